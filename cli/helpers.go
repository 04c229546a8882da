package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"
)

// PasswordEnv, when set, supplies the vault password without prompting.
const PasswordEnv = "WIFI_VAULT_PASSWORD"

// DefaultVaultPath is ~/.wifi-vault/vault.bin.
func DefaultVaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".wifi-vault", "vault.bin"), nil
}

// ReadPassword reads a password from PasswordEnv or, failing that, from the
// terminal without echo. The prompt goes to w.
func ReadPassword(w io.Writer, prompt string) ([]byte, error) {
	if pw, ok := os.LookupEnv(PasswordEnv); ok {
		return []byte(pw), nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("no terminal to prompt for the password; set %s", PasswordEnv)
	}
	fmt.Fprint(w, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	return pw, err
}

// ReadNewPassword asks twice when prompting interactively.
func ReadNewPassword(w io.Writer) ([]byte, error) {
	if _, ok := os.LookupEnv(PasswordEnv); ok {
		return ReadPassword(w, "")
	}
	pw, err := ReadPassword(w, "Vault password: ")
	if err != nil {
		return nil, err
	}
	confirm, err := ReadPassword(w, "Confirm password: ")
	if err != nil {
		zero(pw)
		return nil, err
	}
	defer zero(confirm)
	if !bytes.Equal(pw, confirm) {
		zero(pw)
		return nil, errors.New("passwords do not match")
	}
	if len(pw) == 0 {
		return nil, errors.New("password must not be empty")
	}
	return pw, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
