package cli

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fahmaliyi/wifivault/credentials"
	"github.com/fahmaliyi/wifivault/vault"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Exit codes returned for each vault failure kind.
const (
	ExitDecrypt    = 3
	ExitFormat     = 4
	ExitFileAccess = 5
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// withErrors maps vault error kinds to distinct user messages and exit codes.
func withErrors(action cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		err := action(c)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, vault.ErrDecrypt):
			return cli.Exit("wrong password or tampered vault, try again", ExitDecrypt)
		case errors.Is(err, vault.ErrFormat):
			return cli.Exit(fmt.Sprintf("file is not a usable vault: %v", err), ExitFormat)
		case errors.Is(err, vault.ErrFileAccess):
			return cli.Exit(fmt.Sprintf("cannot access vault: %v", err), ExitFileAccess)
		}
		return err
	}
}

func openStore(c *cli.Context) (*Config, *credentials.Store, error) {
	cfg, err := NewConfigFromCLI(c)
	if err != nil {
		return nil, nil, err
	}
	pw, err := ReadPassword(c.App.ErrWriter, "Vault password: ")
	if err != nil {
		return nil, nil, fmt.Errorf("read password: %w", err)
	}
	defer zero(pw)

	store := credentials.NewStore(cfg.VaultPath, cfg.Logger)
	if err := store.Load(pw); err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func centersTable(centers []credentials.CenterCredentials) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CODE", "CENTER", "USERNAME")
	for _, c := range centers {
		t.Row(c.CenterCode, c.CenterName, c.Username)
	}
	return t.String()
}

func runInfo(c *cli.Context) error {
	cfg, err := NewConfigFromCLI(c)
	if err != nil {
		return err
	}
	h, err := vault.NewVault(cfg.VaultPath, nil).Stat()
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "File:       %s\n", cfg.VaultPath)
	fmt.Fprintf(w, "Format:     %s v%d\n", h.Magic[:], h.Version)
	fmt.Fprintf(w, "KDF:        %s (N=%d r=%d p=%d)\n", vault.KDFName(h.KDFType), h.N, h.R, h.P)
	fmt.Fprintf(w, "Cipher:     %s\n", vault.AEADName(h.AEADType))
	fmt.Fprintf(w, "Salt:       %d bytes\n", h.SaltLen)
	fmt.Fprintf(w, "Nonce:      %d bytes\n", h.NonceLen)
	fmt.Fprintf(w, "Ciphertext: %d bytes\n", h.CiphertextLen)
	return nil
}

func runList(c *cli.Context) error {
	_, store, err := openStore(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, store.Describe())
	fmt.Fprintln(c.App.Writer, centersTable(store.All()))
	return nil
}

func runSearch(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	_, store, err := openStore(c)
	if err != nil {
		return err
	}
	results := store.Search(query)
	if len(results) == 0 {
		fmt.Fprintf(c.App.Writer, "No centers match %q\n", query)
		return nil
	}
	fmt.Fprintln(c.App.Writer, centersTable(results))
	return nil
}

func lookup(store *credentials.Store, key string) (*credentials.CenterCredentials, error) {
	if center := store.ByCode(key); center != nil {
		return center, nil
	}
	if center := store.ByName(key); center != nil {
		return center, nil
	}
	return nil, cli.Exit(fmt.Sprintf("center %q not found", key), 1)
}

func runShow(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: show CODE|NAME", 1)
	}
	_, store, err := openStore(c)
	if err != nil {
		return err
	}
	center, err := lookup(store, strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Code:     %s\nCenter:   %s\nUsername: %s\nPassword: %s\n",
		center.CenterCode, center.CenterName, center.Username, center.Password)
	return nil
}

func runCopy(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: copy CODE|NAME", 1)
	}
	cfg, store, err := openStore(c)
	if err != nil {
		return err
	}
	center, err := lookup(store, strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}
	if err := writeClipboard(center.Password); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	if cfg.ClipboardClear <= 0 {
		fmt.Fprintf(c.App.Writer, "Password for %s copied to clipboard.\n", center.CenterName)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Password for %s copied to clipboard. Clearing in %s...\n", center.CenterName, cfg.ClipboardClear)
	time.Sleep(cfg.ClipboardClear)
	return writeClipboard("")
}

func runBrowse(c *cli.Context) error {
	cfg, store, err := openStore(c)
	if err != nil {
		return err
	}
	return RunTUI(store, cfg.ClipboardClear)
}

func runSeal(c *cli.Context) error {
	cfg, err := NewConfigFromCLI(c)
	if err != nil {
		return err
	}

	in := c.String("in")
	plain, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	payload, err := vault.ParsePayload(plain)
	zero(plain)
	if err != nil {
		return cli.Exit(fmt.Sprintf("input %s is not a usable centers file: %v", in, err), ExitFormat)
	}

	if _, ok := payload.Metadata["generated_at"]; !ok {
		payload.Metadata["generated_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	if _, ok := payload.Metadata["vault_id"]; !ok {
		payload.Metadata["vault_id"] = uuid.New().String()
	}

	centers, skipped, err := credentials.ParseCenters(payload.Centers, cfg.Logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("input %s is not a usable centers file: %v", in, err), ExitFormat)
	}
	if skipped > 0 {
		cfg.Logger.WithField("skipped", skipped).Warn("input contains entries that will be ignored on load")
	}

	params, err := sealParams(c, cfg)
	if err != nil {
		return err
	}

	pw, err := ReadNewPassword(c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer zero(pw)

	out := cfg.VaultPath
	if c.IsSet("out") {
		out = c.String("out")
	}
	if err := vault.NewVault(out, params).Save(payload, pw); err != nil {
		return err
	}

	cfg.Logger.WithFields(logrus.Fields{"file": out, "centers": len(centers), "kdf": vault.KDFName(params.KDF)}).Info("vault written")
	fmt.Fprintf(c.App.Writer, "Sealed %d centers into %s\n", len(centers), out)
	return nil
}

// Argon2id costs used when --kdf argon2id is given without explicit values.
const (
	argon2DefaultTime    = 3
	argon2DefaultMemory  = 64 * 1024
	argon2DefaultThreads = 1
)

func sealParams(c *cli.Context, cfg *Config) (*vault.Params, error) {
	params := &vault.Params{N: cfg.Scrypt.N, R: cfg.Scrypt.R, P: cfg.Scrypt.P}

	switch c.String("kdf") {
	case "scrypt":
		params.KDF = vault.KDFScrypt
	case "argon2id":
		params.KDF = vault.KDFArgon2id
		params.N, params.R, params.P = argon2DefaultTime, argon2DefaultMemory, argon2DefaultThreads
	default:
		return nil, cli.Exit(fmt.Sprintf("unknown kdf %q (expected scrypt|argon2id)", c.String("kdf")), 1)
	}

	switch c.String("aead") {
	case "aes-gcm":
		params.AEAD = vault.AEADAESGCM
	case "chacha20poly1305":
		params.AEAD = vault.AEADChaCha20Poly1305
	default:
		return nil, cli.Exit(fmt.Sprintf("unknown aead %q (expected aes-gcm|chacha20poly1305)", c.String("aead")), 1)
	}

	for _, f := range []struct {
		name string
		dst  *uint32
	}{{"n", &params.N}, {"r", &params.R}, {"p", &params.P}} {
		if !c.IsSet(f.name) {
			continue
		}
		v := c.Uint(f.name)
		if uint64(v) > math.MaxUint32 {
			return nil, cli.Exit(fmt.Sprintf("--%s %d does not fit in 32 bits", f.name, v), 1)
		}
		*f.dst = uint32(v)
	}
	return params, nil
}
