package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"privatetasks/internal/handlers"
)

func newLinkCmd() *cobra.Command {
	var server string
	var noQR bool
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Print the pairing link of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := fetchSession(cmd, server)
			if err != nil {
				return err
			}
			printLink(cmd.OutOrStdout(), view, !noQR)
			return nil
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "http://localhost:8080", "base URL of the running server")
	cmd.Flags().BoolVar(&noQR, "no-qr", false, "do not render the link as a QR code")
	return cmd
}

func fetchSession(cmd *cobra.Command, server string) (handlers.SessionView, error) {
	var view handlers.SessionView
	url := strings.TrimRight(server, "/") + "/api/session"
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return view, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return view, fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return view, fmt.Errorf("server answered %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return view, fmt.Errorf("invalid session response: %w", err)
	}
	return view, nil
}

func printLink(w io.Writer, view handlers.SessionView, qr bool) {
	_, _ = fmt.Fprintf(w, "phase: %s\n", view.Phase)
	if view.Username != "" {
		_, _ = fmt.Fprintf(w, "username: %s\n", view.Username)
	}
	if view.Error != "" {
		_, _ = fmt.Fprintf(w, "error: %s\n", view.Error)
	}
	if view.Link == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "link: %s\n", view.Link)
	if qr {
		_, _ = fmt.Fprintln(w, "link_qr:")
		qrterminal.GenerateHalfBlock(view.Link, qrterminal.L, w)
	}
}
