package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gmailbridge/internal/gmail"
	"gmailbridge/internal/logging"
)

func newSendCmd() *cobra.Command {
	var (
		to       []string
		cc       []string
		bcc      []string
		subject  string
		body     string
		htmlBody string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an email from the Gmail account",
		Long: `Send an email through the Gmail API.

When --html-body is given the message is sent as multipart/alternative
with the plain-text body as fallback.`,
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

			msg := &gmail.EmailMessage{
				To:       to,
				Cc:       cc,
				Bcc:      bcc,
				Subject:  subject,
				Body:     body,
				HTMLBody: htmlBody,
			}

			var id string
			err = sc.WithClient(cmd.Context(), func(c *gmail.Client) error {
				var serr error
				id, serr = c.SendEmail(cmd.Context(), msg)
				return serr
			})
			if err != nil {
				return fmt.Errorf("failed to send email: %w", err)
			}

			fmt.Printf("Email sent (message id: %s)\n", id)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&to, "to", nil, "Recipient address (repeatable or comma-separated)")
	cmd.Flags().StringSliceVar(&cc, "cc", nil, "Cc address (repeatable or comma-separated)")
	cmd.Flags().StringSliceVar(&bcc, "bcc", nil, "Bcc address (repeatable or comma-separated)")
	cmd.Flags().StringVar(&subject, "subject", "", "Email subject")
	cmd.Flags().StringVar(&body, "body", "", "Plain-text email body")
	cmd.Flags().StringVar(&htmlBody, "html-body", "", "Optional HTML body")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}
