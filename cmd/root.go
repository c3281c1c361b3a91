package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gmailbridge/internal/google"
	"gmailbridge/internal/instrumentation"
	"gmailbridge/internal/server"
	"gmailbridge/internal/vault"
)

// credentialsPathEnv overrides the default credentials path when the
// --credentials flag is not given.
const credentialsPathEnv = "GMAIL_CREDENTIALS_PATH"

// defaultCredentialsPath is the vault base path in the working directory.
const defaultCredentialsPath = "credentials.encrypted"

var (
	credentialsFlag string
	plaintextMode   bool
)

// rootCmd represents the base command for the gmailbridge application
var rootCmd = &cobra.Command{
	Use:   "gmailbridge",
	Short: "Gmail connector with password-encrypted credential storage",
	Long: `gmailbridge connects scripts and AI assistants to a Gmail account.

OAuth client secrets and tokens are stored encrypted on disk, protected by
a key derived from a password. It can run as:
  - A standalone CLI tool (read, send, labels)
  - An MCP (Model Context Protocol) server for AI assistants
  - A REST API server`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gmailbridge version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&credentialsFlag, "credentials", "",
		"Path to the encrypted credentials file. Can also use GMAIL_CREDENTIALS_PATH env var. Default: "+defaultCredentialsPath)
	rootCmd.PersistentFlags().BoolVar(&plaintextMode, "plaintext", false,
		"Store credentials and tokens unencrypted next to the credentials path (development only)")

	rootCmd.AddCommand(newCredentialsCmd())
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newLabelsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAPICmd())
	rootCmd.AddCommand(newVersionCmd())
}

// resolveCredentialsPath resolves the vault base path: flag, then env var,
// then the default in the working directory.
func resolveCredentialsPath() string {
	if credentialsFlag != "" {
		return credentialsFlag
	}
	if p := os.Getenv(credentialsPathEnv); p != "" {
		return p
	}
	return defaultCredentialsPath
}

func newVault(logger *slog.Logger) *vault.Vault {
	return vault.New(resolveCredentialsPath(), logger)
}

// resolveVaultPassword returns the session password. Plaintext mode needs
// none; otherwise the password comes from the environment or a terminal
// prompt.
func resolveVaultPassword() (string, error) {
	if plaintextMode {
		return "", nil
	}
	return vault.ResolvePassword("Vault password: ")
}

// newSession builds the shared server context used by the CLI commands and
// the MCP and REST servers.
func newSession(ctx context.Context, logger *slog.Logger, metrics *instrumentation.Metrics, password string) (*server.ServerContext, error) {
	v := newVault(logger)
	v.SetMetrics(metrics)
	oauth := google.NewManager(v, logger, google.ManagerOptions{
		Plaintext: plaintextMode,
		Metrics:   metrics,
	})

	return server.NewServerContext(ctx, server.Config{
		Vault:    v,
		OAuth:    oauth,
		Password: password,
		Logger:   logger,
		Metrics:  metrics,
	})
}
