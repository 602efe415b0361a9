package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"privatetasks/internal/config"
	"privatetasks/internal/handlers"
	"privatetasks/internal/httpserver"
	"privatetasks/internal/masq"
	"privatetasks/internal/session"
	"privatetasks/internal/store"
	"privatetasks/internal/views"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web front-end",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			// Ensure data directory exists
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}

			s, err := store.NewSQLiteStore(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}
			defer func() { _ = s.Close() }()

			tmpl, err := views.Parse()
			if err != nil {
				return fmt.Errorf("failed to parse templates: %w", err)
			}

			broker := masq.NewBroker()
			client := masq.NewLocalClient(s, broker, masq.OptionsFromConfig(cfg))
			ctrl := session.New(client, session.Options{WriteTimeout: cfg.WriteTimeout})
			defer ctrl.Wait()

			if err := ctrl.Initialize(ctx); err != nil {
				// The page shows the error and offers a new link.
				logger.Warn("session initialization incomplete", "err", err)
			}

			h := handlers.New(ctrl, broker, tmpl, cfg.App.Name)
			logger.Info("server listening", "addr", cfg.Addr, "db", cfg.DBPath, "hubs", len(cfg.HubURLs), "relays", len(cfg.RelayServers))
			return httpserver.ListenAndServe(ctx, cfg.Addr, h.Routes())
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
