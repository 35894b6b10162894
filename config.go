package ddns

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// ErrNotConfigured is returned by LoadConfig when the configuration file is
// missing, unreadable, or incomplete for its declared auth mode.
// The fix is always the same: run the interactive setup again.
var ErrNotConfigured = errors.New("not configured")

// EnvToken is the environment variable consulted for the API token when the
// configuration file has no api_token key.
const EnvToken = "API_TOKEN"

type AuthType string

const (
	// AuthToken authenticates with a scoped API token (Authorization: Bearer).
	AuthToken AuthType = "token"
	// AuthKey authenticates with the account email and global API key headers.
	AuthKey AuthType = "key"
)

const configSection = "cloudflare"

// Config is the persisted program configuration.
// It is read once per run and never mutated in-process.
type Config struct {
	AuthType AuthType
	APIToken string
	Email    string
	APIKey   string
	Domains  []string

	// StaticIPv4 and StaticIPv6 skip discovery for their family when set.
	StaticIPv4 string
	StaticIPv6 string
}

// Credentials returns the provider credentials for the configured auth mode.
func (c Config) Credentials() Credentials {
	if c.AuthType == AuthKey {
		return Credentials{Email: c.Email, Key: c.APIKey}
	}
	return Credentials{Token: c.APIToken}
}

// LoadConfig reads the INI configuration file at path.
//
// Every failure mode is reported as an error wrapping ErrNotConfigured so
// callers have a single branch: tell the user to run --configure.
// In token mode a missing api_token key falls back to the API_TOKEN
// environment variable.
func LoadConfig(path string) (Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: unable to read %q: %v", ErrNotConfigured, path, err)
	}
	sec := f.Section(configSection)

	cfg := Config{
		AuthType:   AuthType(strings.ToLower(strings.TrimSpace(sec.Key("auth_type").String()))),
		APIToken:   strings.TrimSpace(sec.Key("api_token").String()),
		Email:      strings.TrimSpace(sec.Key("email").String()),
		APIKey:     strings.TrimSpace(sec.Key("api_key").String()),
		StaticIPv4: strings.TrimSpace(sec.Key("static_ipv4").String()),
		StaticIPv6: strings.TrimSpace(sec.Key("static_ipv6").String()),
	}
	for _, d := range strings.Split(sec.Key("domains").String(), ",") {
		if d = strings.TrimSpace(d); d != "" {
			cfg.Domains = append(cfg.Domains, d)
		}
	}

	switch cfg.AuthType {
	case AuthToken:
		if cfg.APIToken == "" {
			cfg.APIToken = os.Getenv(EnvToken)
		}
		if cfg.APIToken == "" {
			return Config{}, fmt.Errorf("%w: auth_type is %q but neither the api_token key nor the %s environment variable is set", ErrNotConfigured, AuthToken, EnvToken)
		}
	case AuthKey:
		if cfg.Email == "" || cfg.APIKey == "" {
			return Config{}, fmt.Errorf("%w: auth_type is %q but the email and api_key keys are not both set", ErrNotConfigured, AuthKey)
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown auth_type %q", ErrNotConfigured, cfg.AuthType)
	}

	if len(cfg.Domains) == 0 {
		return Config{}, fmt.Errorf("%w: no domains configured", ErrNotConfigured)
	}

	return cfg, nil
}

// Save writes the configuration to path with owner-only permissions.
// An existing file is chmodded down to 0600 before the credentials are
// written into it.
func (c Config) Save(path string) error {
	f := ini.Empty()
	sec := f.Section(configSection)
	sec.Key("auth_type").SetValue(string(c.AuthType))
	switch c.AuthType {
	case AuthKey:
		sec.Key("email").SetValue(c.Email)
		sec.Key("api_key").SetValue(c.APIKey)
	default:
		sec.Key("api_token").SetValue(c.APIToken)
	}
	sec.Key("domains").SetValue(strings.Join(c.Domains, ","))
	if c.StaticIPv4 != "" {
		sec.Key("static_ipv4").SetValue(c.StaticIPv4)
	}
	if c.StaticIPv6 != "" {
		sec.Key("static_ipv6").SetValue(c.StaticIPv6)
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("unable to create %q: %w", path, err)
	}
	if err := out.Chmod(0600); err != nil {
		out.Close()
		return fmt.Errorf("unable to restrict permissions on %q: %w", path, err)
	}
	if _, err := f.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("error writing %q: %w", path, err)
	}
	return out.Close()
}
