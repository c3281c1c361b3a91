package vault

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PasswordEnv is the environment variable that supplies the vault password
// non-interactively for automated and server contexts.
const PasswordEnv = "GMAIL_MCP_PASSWORD"

// ResolvePassword returns the vault password from PasswordEnv if set,
// otherwise prompts on the terminal with echo disabled. The prompt blocks
// until the user answers; it is the only suspension point in a vault session.
func ResolvePassword(prompt string) (string, error) {
	if p := os.Getenv(PasswordEnv); p != "" {
		return p, nil
	}
	return readPassword(prompt)
}

// readPassword reads a password from stdin with hidden input, falling back
// to plain line input when stdin is not a terminal (tests, pipes).
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		defer fmt.Fprintln(os.Stderr)
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
