package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"privatetasks/internal/masq"
)

func newPairCmd() *cobra.Command {
	var username string
	var profileID string
	var reject bool
	cmd := &cobra.Command{
		Use:   "pair <link>",
		Short: "Answer a pairing link as the pairing application would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invite, err := masq.DecodeLink(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			key, err := invite.LinkKey()
			if err != nil {
				return err
			}

			reply := masq.Reply{Channel: invite.Channel, Accepted: !reject}
			if !reject {
				if strings.TrimSpace(username) == "" {
					return errors.New("--username is required to accept a pairing")
				}
				reply.Username = username
				reply.ProfileID = profileID
				if reply.ProfileID == "" {
					reply.ProfileID = defaultProfileID(username)
				}
			}
			if err := reply.Sign(key); err != nil {
				return err
			}

			client := &http.Client{Timeout: 15 * time.Second}
			if err := masq.PostReply(cmd.Context(), client, invite, reply); err != nil {
				return err
			}

			pslog.Ctx(cmd.Context()).Info("pairing reply sent", "app", invite.Name, "channel", invite.Channel, "accepted", reply.Accepted)
			if reply.Accepted {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "paired %s with %s\n", username, invite.Name)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rejected %s\n", invite.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username to pair as")
	cmd.Flags().StringVar(&profileID, "profile", "", "profile id (derived from the username when empty)")
	cmd.Flags().BoolVar(&reject, "reject", false, "refuse the pairing")
	return cmd
}

// defaultProfileID is stable per username so repeated pairings share records.
func defaultProfileID(username string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("privatetasks:"+username)).String()
}
