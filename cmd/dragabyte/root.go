package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/output"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/scanner"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "dragabyte",
		Short: "See where disk space goes, locally or on a remote hub",
		Long: `Dragabyte walks directory trees in parallel and reports where the bytes are.

It can also serve a small TCP control hub so another dragabyte (or any tool
speaking newline-delimited JSON) can browse, query and scan this machine.

Examples:
  dragabyte scan ~/Downloads           # Interactive progress, then a report
  dragabyte scan -n -o json /var       # Scriptable JSON output
  dragabyte disk /                     # Capacity of the volume holding /
  dragabyte serve --tcp                # Serve the hub on 127.0.0.1:4799
  dragabyte remote 10.0.0.5:4799 scan /srv --token s3cret`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/dragabyte/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output on stderr")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().String("log-level", "", "log file level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", `log file path ("-" disables the file)`)

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
}

// initConfig reads the config file and DRAGABYTE_ environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "dragabyte"))
	}

	viper.SetEnvPrefix("DRAGABYTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// A missing config file is fine.
	_ = viper.ReadInConfig()
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("output", "pretty")
	viper.SetDefault("priority", string(scanner.PriorityBalanced))
	viper.SetDefault("throttle", string(scanner.ThrottleOff))
	viper.SetDefault("depth", output.DefaultDepth)
	viper.SetDefault("limit", output.DefaultLimit)
}

// initializeLogging is the root PersistentPreRunE hook. Verbose mode mirrors
// debug logs to stderr; otherwise only warnings reach the console.
func initializeLogging(_ *cobra.Command, _ []string) error {
	return logging.Init(loggingConfig(true))
}

// loggingConfig builds the logging setup from viper. console=false keeps
// stderr clean, for the interactive progress view.
func loggingConfig(console bool) logging.Config {
	cfg := logging.Config{
		Level: viper.GetString("log.level"),
		Path:  viper.GetString("log.file"),
	}
	if console && !getQuiet() {
		cfg.ConsoleLevel = "warn"
		if getVerbose() {
			cfg.ConsoleLevel = "debug"
		}
	}
	return cfg
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()
	return rootCmd.Execute()
}

func getVerbose() bool {
	return viper.GetBool("verbose")
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints to stdout unless quiet mode is enabled.
func printInfo(format string, args ...any) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printVerbose prints to stderr in verbose mode.
func printVerbose(format string, args ...any) {
	if getVerbose() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
