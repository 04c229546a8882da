package cli

import "github.com/urfave/cli/v2"

// NewApp assembles the wifivault command tree.
func NewApp() *cli.App {
	return &cli.App{
		Name:  "wifivault",
		Usage: "Look up WiFi credentials of educational centers from an encrypted VLTB vault",
		Flags: []cli.Flag{
			ConfigFileFlag,
			VaultPathFlag,
			LogLevelFlag,
		},
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "Show the vault header without decrypting",
				Action: withErrors(runInfo),
			},
			{
				Name:   "list",
				Usage:  "List every center in the vault",
				Action: withErrors(runList),
			},
			{
				Name:      "search",
				Usage:     "List centers whose code or name contains QUERY",
				ArgsUsage: "QUERY",
				Action:    withErrors(runSearch),
			},
			{
				Name:      "show",
				Usage:     "Print the credentials of one center",
				ArgsUsage: "CODE|NAME",
				Action:    withErrors(runShow),
			},
			{
				Name:      "copy",
				Usage:     "Copy a center's WiFi password to the clipboard",
				ArgsUsage: "CODE|NAME",
				Action:    withErrors(runCopy),
			},
			{
				Name:   "browse",
				Usage:  "Search and browse centers interactively",
				Action: withErrors(runBrowse),
			},
			{
				Name:  "seal",
				Usage: "Encrypt a plaintext centers JSON file into a vault",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Usage: "Plaintext JSON input", Required: true},
					&cli.StringFlag{Name: "out", Usage: "Vault output path (defaults to --vault)"},
					&cli.StringFlag{Name: "kdf", Value: "scrypt", Usage: "Key derivation (scrypt, argon2id)"},
					&cli.StringFlag{Name: "aead", Value: "aes-gcm", Usage: "Cipher (aes-gcm, chacha20poly1305)"},
					&cli.UintFlag{Name: "n", Usage: "scrypt N, or argon2id time"},
					&cli.UintFlag{Name: "r", Usage: "scrypt r, or argon2id memory in KiB"},
					&cli.UintFlag{Name: "p", Usage: "scrypt p, or argon2id threads"},
				},
				Action: withErrors(runSeal),
			},
		},
	}
}
