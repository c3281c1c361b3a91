package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gmailbridge/internal/gmail"
	"gmailbridge/internal/logging"
)

func newReadCmd() *cobra.Command {
	var (
		query      string
		maxResults int64
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read emails from the Gmail inbox",
		Long: `List messages from the Gmail account, optionally filtered by a Gmail
search query such as 'is:unread' or 'from:user@example.com'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Setup(false)

			password, err := resolveVaultPassword()
			if err != nil {
				return err
			}

			sc, err := newSession(cmd.Context(), logger, nil, password)
			if err != nil {
				return err
			}
			defer func() { _ = sc.Shutdown() }()

			var emails []*gmail.MessageInfo
			err = sc.WithClient(cmd.Context(), func(c *gmail.Client) error {
				var lerr error
				emails, lerr = c.ListMessages(cmd.Context(), query, maxResults)
				return lerr
			})
			if err != nil {
				return fmt.Errorf("failed to read emails: %w", err)
			}

			if len(emails) == 0 {
				fmt.Println("No messages found.")
				return nil
			}

			for i, email := range emails {
				fmt.Printf("%d. ID: %s\n   From: %s\n   Subject: %s\n   Date: %s\n   Snippet: %s\n\n",
					i+1, email.ID, email.From, email.Subject, email.Date, email.Snippet)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Gmail search query (empty lists recent messages)")
	cmd.Flags().Int64Var(&maxResults, "max-results", 10, "Maximum number of messages to list")
	return cmd
}
