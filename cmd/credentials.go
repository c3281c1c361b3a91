package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"gmailbridge/internal/logging"
	"gmailbridge/internal/vault"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the encrypted OAuth credentials vault",
		Long: `Manage the OAuth client secrets stored in the encrypted vault.

The vault holds the Google OAuth client configuration (client_id and
client_secret) encrypted with a key derived from a password. The password
can be supplied via the ` + vault.PasswordEnv + ` environment variable or
entered at a prompt.`,
	}

	cmd.AddCommand(newCredentialsEncryptCmd())
	cmd.AddCommand(newCredentialsDecryptCmd())
	cmd.AddCommand(newCredentialsVerifyCmd())
	return cmd
}

func newCredentialsEncryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <credentials.json>",
		Short: "Encrypt a Google OAuth client secrets file into the vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Setup(false)
			v := newVault(logger)

			password, err := vault.ResolvePassword("Vault password: ")
			if err != nil {
				return err
			}

			if err := v.EncryptCredentials(args[0], password); err != nil {
				return fmt.Errorf("failed to encrypt credentials: %w", err)
			}

			fmt.Printf("Credentials encrypted to %s\n", v.CredentialsPath())
			fmt.Printf("You can now delete the plaintext file: %s\n", args[0])
			return nil
		},
	}
}

func newCredentialsDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt the vault and show the stored client configuration",
		Long: `Decrypt the stored OAuth client secrets and print a summary.

The client secret itself is never printed; the client_id is shown masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Setup(false)
			v := newVault(logger)

			password, err := vault.ResolvePassword("Vault password: ")
			if err != nil {
				return err
			}

			creds, err := v.DecryptCredentials(password)
			if err != nil {
				return err
			}

			clientID, keys := describeCredentials(creds)
			fmt.Printf("Vault: %s\n", v.CredentialsPath())
			if clientID != "" {
				fmt.Printf("Client ID: %s\n", logging.MaskClientID(clientID))
			}
			for _, key := range keys {
				fmt.Printf("Section: %s\n", key)
			}
			return nil
		},
	}
}

func newCredentialsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the vault password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.Setup(false)
			v := newVault(logger)

			if !v.HasCredentials() {
				return fmt.Errorf("no encrypted credentials found at %s", v.CredentialsPath())
			}

			password, err := vault.ResolvePassword("Vault password: ")
			if err != nil {
				return err
			}

			if _, err := v.DecryptCredentials(password); err != nil {
				fmt.Fprintln(os.Stderr, "Password verification failed.")
				return err
			}

			fmt.Println("Password verified.")
			return nil
		},
	}
}

// describeCredentials extracts the client_id from a Google client secrets
// document ("installed" or "web" section) and lists the top-level sections.
func describeCredentials(creds map[string]any) (clientID string, sections []string) {
	for _, section := range []string{"installed", "web"} {
		inner, ok := creds[section].(map[string]any)
		if !ok {
			continue
		}
		if id, ok := inner["client_id"].(string); ok && clientID == "" {
			clientID = id
		}
	}
	for key := range creds {
		sections = append(sections, key)
	}
	sort.Strings(sections)
	return clientID, sections
}
