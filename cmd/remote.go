package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/sessionhub/remote"
)

// NewRemoteCommand creates the remote client command group
func NewRemoteCommand() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Talk to a sessionhub endpoint on another machine",
	}
	cmd.PersistentFlags().StringVar(&url, "url", "", "Endpoint base URL (default remote.url)")

	newClient := func() (*remote.Client, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		base := url
		if base == "" {
			base = cfg.Remote.URL
		}
		return remote.NewClient(base, cfg.Remote.ClientTimeout), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show endpoint status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			status, err := client.Status(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, status)
			}
			fmt.Fprintf(out, "%s %s\nwaiting:  %d\nlaunched: %d\n", status.Service, status.Version, status.Waiting, status.Launched)
			if status.Address != "" {
				fmt.Fprintf(out, "address:  %s\n", status.Address)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sessions",
		Short: "List sessions launched on the remote machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			list, err := client.Sessions(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No launched sessions")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, s := range list {
				rows = append(rows, []string{s.ID, fmt.Sprint(s.Waiting)})
			}
			return writeTable(out, []string{"ID", "WAITING"}, rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reply <id> <message...>",
		Short: "Send a reply to a waiting session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			if err := client.Reply(context.Background(), args[0], strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reply delivered")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a session completed on the remote machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			if err := client.Complete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", args[0])
			return nil
		},
	})

	return cmd
}
