// vaultctl is the operator tool for the credential vault: it initializes
// the key material and stores the shared or per-user provider secrets,
// reading them from the terminal without echo.
//
// Usage:
//
//	vaultctl init                    generate the vault key if missing
//	vaultctl set default             store the deployment-wide credential
//	vaultctl set <user-uuid>         store a credential for one user
//	vaultctl check                   bulk-decrypt all records and report
//
// Flags of the companion daemon (-d, -c, CANVAI_VAULT_PASSPHRASE) apply, so
// vaultctl operates on the same data directory.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/canvai/canvai/internal/config"
	"github.com/canvai/canvai/internal/repositories"
	"github.com/canvai/canvai/internal/session"
	"github.com/canvai/canvai/internal/vault"
)

func main() {
	if err := run(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	args := positionalArgs(os.Args[1:])
	if len(args) == 0 {
		return fmt.Errorf("usage: vaultctl init|set|check")
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	if err := os.MkdirAll(cfg.DataDir, 0o770); err != nil {
		return fmt.Errorf("data dir %s: %w", cfg.DataDir, err)
	}

	v, err := vault.Open(cfg.DataDir, cfg.VaultPassphrase)
	if err != nil {
		return fmt.Errorf("vault init error: %w", err)
	}

	switch args[0] {
	case "init":
		fmt.Println("Vault key ready in", cfg.DataDir)
		return nil
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("usage: vaultctl set default|<user-uuid>")
		}
		return setCredential(ctx, cfg, v, args[1])
	case "check":
		return checkCredentials(ctx, cfg, v)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func setCredential(ctx context.Context, cfg *config.Config, v *vault.Vault, target string) error {
	userID := session.DefaultCredentialID
	if target != "default" {
		var err error
		userID, err = uuid.Parse(target)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", target, err)
		}
	}

	fmt.Println("Enter secret")
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	if len(secret) == 0 {
		return fmt.Errorf("empty secret")
	}

	ciphertext, err := v.Encrypt(string(secret))
	if err != nil {
		return err
	}

	repos, err := repositories.InitDatabase(ctx, databasePath(cfg))
	if err != nil {
		return err
	}
	defer repos.DB.Close()

	if err := repos.Credentials.Set(ctx, userID, ciphertext); err != nil {
		return err
	}

	fmt.Println("Success!")
	return nil
}

func checkCredentials(ctx context.Context, cfg *config.Config, v *vault.Vault) error {
	repos, err := repositories.InitDatabase(ctx, databasePath(cfg))
	if err != nil {
		return err
	}
	defer repos.DB.Close()

	records, err := repos.Credentials.All(ctx)
	if err != nil {
		return err
	}

	healthy := 0
	for userID, ciphertext := range records {
		if _, err := v.Decrypt(ciphertext); err != nil {
			fmt.Printf("%s: %v\n", userID, err)
			continue
		}
		healthy++
	}
	fmt.Printf("%d of %d records decrypt cleanly\n", healthy, len(records))
	return nil
}

func databasePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "companion.db")
}

// positionalArgs strips flags (and their values) so the subcommand can sit
// anywhere relative to them.
func positionalArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		out = append(out, a)
	}
	return out
}
