package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"privatetasks/internal/config"
)

// configDump is the printable form of config.Config.
type configDump struct {
	HubURLs        []string             `yaml:"hub_urls"`
	MasqAppBaseURL string               `yaml:"masq_app_base_url"`
	RemoteWebRTC   bool                 `yaml:"remote_webrtc"`
	RelayServers   []config.RelayServer `yaml:"relay_servers,omitempty"`
	Addr           string               `yaml:"addr"`
	DBPath         string               `yaml:"db_path"`
	PairingTimeout string               `yaml:"pairing_timeout"`
	WriteTimeout   string               `yaml:"write_timeout"`
	App            config.AppInfo       `yaml:"app"`
}

func newConfigDump(cfg config.Config) configDump {
	return configDump{
		HubURLs:        cfg.HubURLs,
		MasqAppBaseURL: cfg.MasqAppBaseURL,
		RemoteWebRTC:   cfg.RemoteWebRTC,
		RelayServers:   cfg.RelayServers,
		Addr:           cfg.Addr,
		DBPath:         cfg.DBPath,
		PairingTimeout: cfg.PairingTimeout.String(),
		WriteTimeout:   cfg.WriteTimeout.String(),
		App:            cfg.App,
	}
}

func newConfigCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(newConfigDump(cfg)); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
