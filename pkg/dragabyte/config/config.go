// Package config loads the persisted settings file and resolves the runtime
// options that decide whether and how the control hub is served.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
	"github.com/spf13/viper"
)

// Environment variables consulted by Resolve and SettingsPath.
const (
	EnvHeadless       = "DRAGABYTE_HEADLESS"
	EnvTCPBind        = "DRAGABYTE_TCP_BIND"
	EnvTCPToken       = "DRAGABYTE_TCP_TOKEN"
	EnvDisableUpdater = "DRAGABYTE_DISABLE_UPDATER"
	EnvSettingsPath   = "DRAGABYTE_SETTINGS_PATH"
)

// DefaultBind is the hub address used when TCP is enabled without a bind.
const DefaultBind = "127.0.0.1:4799"

var (
	// ErrInvalidBind indicates a bind address that is not ip:port.
	ErrInvalidBind = errors.New("invalid TCP bind address")

	// ErrTokenRequired indicates a non-loopback bind without a token.
	ErrTokenRequired = errors.New(EnvTCPToken + " is required when binding to non-loopback")

	// ErrHeadlessNeedsTCP indicates headless mode with remote serving off.
	ErrHeadlessNeedsTCP = errors.New("headless mode requires --tcp")
)

// Settings mirrors the persisted settings file. Every field is optional.
type Settings struct {
	LocalToken *string `mapstructure:"localToken" json:"localToken,omitempty"`
	TCPBind    *string `mapstructure:"tcpBind" json:"tcpBind,omitempty"`
	Headless   *bool   `mapstructure:"headless" json:"headless,omitempty"`
	AutoUpdate *bool   `mapstructure:"autoUpdate" json:"autoUpdate,omitempty"`
}

// DefaultSettingsPath returns $XDG_CONFIG_HOME/dragabyte/settings.json.
func DefaultSettingsPath() string {
	return filepath.Join(xdg.ConfigHome, "dragabyte", "settings.json")
}

// SettingsPath picks the settings file: the --settings value, then
// DRAGABYTE_SETTINGS_PATH, then DefaultSettingsPath.
func SettingsPath(flagValue string, env EnvFunc) string {
	if flagValue != "" {
		return flagValue
	}
	if env == nil {
		env = os.LookupEnv
	}
	if v, ok := env(EnvSettingsPath); ok && v != "" {
		return v
	}
	return DefaultSettingsPath()
}

// LoadSettings reads the JSON settings file at path. A missing, empty or
// malformed file yields zero Settings; the file is read once at startup and
// never treated as fatal.
func LoadSettings(path string) Settings {
	log := logging.Get("config")

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("reading settings failed", "path", path, "error", err)
		}
		return Settings{}
	}
	if strings.TrimSpace(string(data)) == "" {
		return Settings{}
	}

	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		log.Warn("settings file is not valid JSON", "path", path, "error", err)
		return Settings{}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		log.Warn("settings file has unexpected values", "path", path, "error", err)
		return Settings{}
	}
	return s
}

// EnvFunc looks up an environment variable. os.LookupEnv satisfies it.
type EnvFunc func(key string) (string, bool)

// Inputs are the command line switches that feed Resolve. Nil pointers mean
// the flag was not given.
type Inputs struct {
	Headless       bool
	TCP            bool
	TCPBind        *string
	TCPToken       *string
	DisableUpdater bool

	// Env defaults to os.LookupEnv.
	Env EnvFunc
}

// TCPConfig is the resolved hub listener configuration.
type TCPConfig struct {
	Bind netip.AddrPort

	// Token is empty when no shared secret is configured.
	Token string
}

// Runtime is the outcome of resolving flags, environment and settings.
type Runtime struct {
	Headless       bool
	TCP            *TCPConfig
	UpdaterEnabled bool
}

// Resolve applies the precedence flag > environment > settings > default to
// every runtime option. TCP is nil when remote serving is not enabled.
func Resolve(in Inputs, s Settings) (*Runtime, error) {
	env := in.Env
	if env == nil {
		env = os.LookupEnv
	}

	rt := &Runtime{
		Headless: in.Headless || envFlag(env, EnvHeadless) || deref(s.Headless),
	}

	tcp, err := resolveTCP(in, env, s)
	if err != nil {
		return nil, err
	}
	rt.TCP = tcp

	rt.UpdaterEnabled = true
	if in.DisableUpdater || envFlag(env, EnvDisableUpdater) {
		rt.UpdaterEnabled = false
	} else if s.AutoUpdate != nil {
		rt.UpdaterEnabled = *s.AutoUpdate
	}

	if rt.Headless && rt.TCP == nil {
		return nil, ErrHeadlessNeedsTCP
	}
	return rt, nil
}

func resolveTCP(in Inputs, env EnvFunc, s Settings) (*TCPConfig, error) {
	envBind, hasEnvBind := env(EnvTCPBind)

	enabled := in.TCP || in.TCPBind != nil || hasEnvBind || s.TCPBind != nil || s.LocalToken != nil
	if !enabled {
		return nil, nil
	}

	var token string
	if in.TCPToken != nil {
		token = *in.TCPToken
	} else if v, ok := env(EnvTCPToken); ok {
		token = v
	} else if s.LocalToken != nil {
		token = *s.LocalToken
	}

	raw := DefaultBind
	switch {
	case in.TCPBind != nil:
		raw = *in.TCPBind
	case hasEnvBind:
		raw = envBind
	case s.TCPBind != nil:
		raw = *s.TCPBind
	}

	bind, err := netip.ParseAddrPort(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBind, raw)
	}
	if !bind.Addr().IsLoopback() && token == "" {
		return nil, ErrTokenRequired
	}
	return &TCPConfig{Bind: bind, Token: token}, nil
}

func envFlag(env EnvFunc, key string) bool {
	v, ok := env(key)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func deref(b *bool) bool {
	return b != nil && *b
}
