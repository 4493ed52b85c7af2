package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/bizgateway/internal/config"
	"github.com/teemow/bizgateway/internal/mailbox"
	"github.com/teemow/bizgateway/internal/tools/mail_tools"
)

func newTriageCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Sort the newest inbox messages into business categories",
		Long: `Fetch the newest messages from the inbox, read or unread, and sort them
into business categories, the same way the sort_emails tool does.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			client := mailbox.NewClient(mailbox.NewIMAPDialer(cfg.IMAP), mailbox.ClientOptions{
				Timeout: cfg.IMAP.Timeout,
				Logger:  slog.Default(),
			})
			result, err := mailbox.Triage(cmd.Context(), client, limit)
			if err != nil {
				return fmt.Errorf("failed to sort emails: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return printClassification(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", mail_tools.DefaultSortLimit, "Number of newest messages to sort")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the classification as JSON")

	return cmd
}

// printClassification writes a per-category table of c to w.
func printClassification(w io.Writer, c mailbox.Classification) error {
	if _, err := fmt.Fprintln(w, c.Summary); err != nil {
		return err
	}
	for _, category := range mailbox.Categories {
		members := c.Categories[category]
		if len(members) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d)\n", category, len(members))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, m := range members {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", m.Date.Format("2006-01-02 15:04"), m.From, m.Subject)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
