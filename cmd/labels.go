package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gmailbridge/internal/gmail"
	"gmailbridge/internal/logging"
)

func newLabelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List all labels in the Gmail account",
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

			var labels []*gmail.LabelInfo
			err = sc.WithClient(cmd.Context(), func(c *gmail.Client) error {
				var lerr error
				labels, lerr = c.ListLabels(cmd.Context())
				return lerr
			})
			if err != nil {
				return fmt.Errorf("failed to list labels: %w", err)
			}

			for _, label := range labels {
				fmt.Printf("%s\t%s\t%s\n", label.ID, label.Name, label.Type)
			}
			return nil
		},
	}
}
