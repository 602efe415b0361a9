// Package config loads and validates the startup configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "TASKS"

// ErrMissing is returned when a required setting is absent.
var ErrMissing = errors.New("required setting missing")

// Config is the validated configuration, built once at process start.
type Config struct {
	HubURLs        []string      `yaml:"hub_urls"`
	MasqAppBaseURL string        `yaml:"masq_app_base_url"`
	RemoteWebRTC   bool          `yaml:"remote_webrtc"`
	RelayServers   []RelayServer `yaml:"relay_servers,omitempty"`
	Addr           string        `yaml:"addr"`
	DBPath         string        `yaml:"db_path"`
	PairingTimeout time.Duration `yaml:"pairing_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	App            AppInfo       `yaml:"app"`
}

// AppInfo identifies the application to the pairing surface.
type AppInfo struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	ImageURL    string `yaml:"image_url" json:"imageURL"`
}

// RelayServer is a NAT traversal server handed to the sync client.
// STUN servers carry only a URL; TURN servers also carry credentials.
type RelayServer struct {
	URL        string `yaml:"url" json:"urls"`
	Username   string `yaml:"username,omitempty" json:"username,omitempty"`
	Credential string `yaml:"credential,omitempty" json:"credential,omitempty"`
}

// DefaultConfig returns the defaults for every optional setting.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		DBPath:         "./data/tasks.db",
		PairingTimeout: 5 * time.Minute,
		WriteTimeout:   30 * time.Second,
		App: AppInfo{
			Name:        "Private Tasks",
			Description: "Organize your tasks but keep them private",
		},
	}
}

// Validate checks required settings and normalizes URLs.
func (c *Config) Validate() error {
	if len(c.HubURLs) == 0 || strings.TrimSpace(c.HubURLs[0]) == "" {
		return fmt.Errorf("%w: hub_urls (%s_HUB_URLS)", ErrMissing, EnvPrefix)
	}
	for i, hub := range c.HubURLs {
		hub = strings.TrimSpace(hub)
		if err := validateAbsoluteURL(hub); err != nil {
			return fmt.Errorf("hub_urls[%d]: %w", i, err)
		}
		c.HubURLs[i] = hub
	}

	base := strings.TrimSpace(c.MasqAppBaseURL)
	if base == "" {
		return fmt.Errorf("%w: masq_app_base_url (%s_MASQ_APP_BASE_URL)", ErrMissing, EnvPrefix)
	}
	if err := validateAbsoluteURL(base); err != nil {
		return fmt.Errorf("masq_app_base_url: %w", err)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	c.MasqAppBaseURL = base

	for i, relay := range c.RelayServers {
		if strings.TrimSpace(relay.URL) == "" {
			return fmt.Errorf("relay server %d: url is required", i)
		}
	}

	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr (%s_ADDR)", ErrMissing, EnvPrefix)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("%w: db_path (%s_DB_PATH)", ErrMissing, EnvPrefix)
	}
	if c.PairingTimeout <= 0 {
		return fmt.Errorf("pairing_timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive")
	}
	if strings.TrimSpace(c.App.Name) == "" {
		return fmt.Errorf("%w: app.name (%s_APP_NAME)", ErrMissing, EnvPrefix)
	}
	return nil
}

func validateAbsoluteURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%q must include scheme and host (e.g. https://example.com)", raw)
	}
	return nil
}

// ParseSTUN parses a comma-separated list of bare STUN endpoints.
func ParseSTUN(raw string) []RelayServer {
	var out []RelayServer
	for _, u := range splitList(raw) {
		out = append(out, RelayServer{URL: u})
	}
	return out
}

// ParseTURN parses a comma-separated list of TURN descriptors of the form
// url|username|credential. A bare url is accepted as well.
func ParseTURN(raw string) ([]RelayServer, error) {
	var out []RelayServer
	for _, entry := range splitList(raw) {
		parts := strings.Split(entry, "|")
		switch len(parts) {
		case 1:
			out = append(out, RelayServer{URL: parts[0]})
		case 3:
			if parts[0] == "" {
				return nil, fmt.Errorf("turn descriptor %q: url is required", entry)
			}
			out = append(out, RelayServer{URL: parts[0], Username: parts[1], Credential: parts[2]})
		default:
			return nil, fmt.Errorf("turn descriptor %q: expected url|username|credential", entry)
		}
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
