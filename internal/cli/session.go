package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the live session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Session

			if err := client.Get(cmd.Context(), "/api/v1/session", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newResultsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "results [session-id]",
		Short: "List finished sessions, or show one session's standings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output, cmd.OutOrStdout())

			if len(args) == 1 {
				var result Summary
				if err := client.Get(cmd.Context(), "/api/v1/sessions/"+url.PathEscape(args[0]), &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			var result SummaryList
			path := "/api/v1/sessions"
			if limit > 0 {
				path = fmt.Sprintf("%s?limit=%d", path, limit)
			}
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum sessions to list (server default if 0)")

	return cmd
}
