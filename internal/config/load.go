package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the environment and, if path is set, from a
// YAML file. Environment variables win over the file. The result is validated
// before it is returned.
func Load(path string) (Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("hub_urls", "")
	v.SetDefault("masq_app_base_url", "")
	v.SetDefault("remote_webrtc", false)
	v.SetDefault("stun_urls", "")
	v.SetDefault("turn_urls", "")
	v.SetDefault("addr", def.Addr)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("pairing_timeout", def.PairingTimeout)
	v.SetDefault("write_timeout", def.WriteTimeout)
	v.SetDefault("app.name", def.App.Name)
	v.SetDefault("app.description", def.App.Description)
	v.SetDefault("app.image_url", def.App.ImageURL)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := Config{
		HubURLs:        stringList(v, "hub_urls"),
		MasqAppBaseURL: v.GetString("masq_app_base_url"),
		RemoteWebRTC:   v.GetBool("remote_webrtc"),
		Addr:           v.GetString("addr"),
		DBPath:         v.GetString("db_path"),
		PairingTimeout: v.GetDuration("pairing_timeout"),
		WriteTimeout:   v.GetDuration("write_timeout"),
		App: AppInfo{
			Name:        v.GetString("app.name"),
			Description: v.GetString("app.description"),
			ImageURL:    v.GetString("app.image_url"),
		},
	}

	// Relay servers only matter when peers may connect across networks.
	if cfg.RemoteWebRTC {
		cfg.RelayServers = append(cfg.RelayServers, ParseSTUN(strings.Join(stringList(v, "stun_urls"), ","))...)
		turn, err := ParseTURN(strings.Join(stringList(v, "turn_urls"), ","))
		if err != nil {
			return Config{}, err
		}
		cfg.RelayServers = append(cfg.RelayServers, turn...)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// stringList accepts either a comma-separated string (environment) or a YAML
// sequence for key.
func stringList(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		return splitList(raw)
	case []string:
		return splitList(strings.Join(raw, ","))
	case []any:
		parts := make([]string, 0, len(raw))
		for _, item := range raw {
			parts = append(parts, fmt.Sprint(item))
		}
		return splitList(strings.Join(parts, ","))
	default:
		return splitList(fmt.Sprint(raw))
	}
}
