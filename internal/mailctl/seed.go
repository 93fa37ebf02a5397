// Package mailctl implements the operator commands behind cmd/mailctl.
package mailctl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/edvin/sendline/internal/model"
)

// SeedConfig is the accounts.yaml document.
type SeedConfig struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

type SeedAccount struct {
	ID           string       `yaml:"id"`
	Name         string       `yaml:"name"`
	MonthlyQuota int64        `yaml:"monthly_quota"`
	WebhookURL   string       `yaml:"webhook_url"`
	APIKeys      []SeedAPIKey `yaml:"api_keys"`
}

// SeedAPIKey creates a key for the account. An empty Key generates a new one
// and prints it; a fixed Key is upserted so reseeding is repeatable.
type SeedAPIKey struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

// AccountStore persists accounts. *core.AccountService satisfies it.
type AccountStore interface {
	Upsert(ctx context.Context, a *model.Account) error
}

// KeyStore creates API keys. *core.APIKeyService satisfies it.
type KeyStore interface {
	Create(ctx context.Context, accountID, name string) (*model.APIKey, string, error)
	CreateWithRawKey(ctx context.Context, accountID, name, rawKey string) (*model.APIKey, error)
}

// LoadSeed reads and checks a seed file.
func LoadSeed(path string) (*SeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*SeedConfig, error) {
	var cfg SeedConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i, a := range cfg.Accounts {
		if a.Name == "" {
			return nil, fmt.Errorf("accounts[%d]: name is required", i)
		}
		if a.MonthlyQuota < 0 {
			return nil, fmt.Errorf("account %q: monthly_quota must not be negative", a.Name)
		}
		for j, k := range a.APIKeys {
			if k.Name == "" {
				return nil, fmt.Errorf("account %q: api_keys[%d]: name is required", a.Name, j)
			}
			if k.Key != "" && !strings.HasPrefix(k.Key, "sl_") {
				return nil, fmt.Errorf("account %q: api key %q must start with sl_", a.Name, k.Name)
			}
		}
	}

	return &cfg, nil
}

// Seed upserts every account in cfg and creates its API keys, reporting
// progress to out.
func Seed(ctx context.Context, cfg *SeedConfig, accounts AccountStore, keys KeyStore, out io.Writer) error {
	for _, sa := range cfg.Accounts {
		account := &model.Account{
			ID:           sa.ID,
			Name:         sa.Name,
			MonthlyQuota: sa.MonthlyQuota,
		}
		if sa.WebhookURL != "" {
			url := sa.WebhookURL
			account.WebhookURL = &url
		}

		if err := accounts.Upsert(ctx, account); err != nil {
			return fmt.Errorf("upsert account %q: %w", sa.Name, err)
		}
		fmt.Fprintf(out, "Account %q: %s (quota %d)\n", account.Name, account.ID, account.MonthlyQuota)

		for _, k := range sa.APIKeys {
			if k.Key != "" {
				key, err := keys.CreateWithRawKey(ctx, account.ID, k.Name, k.Key)
				if err != nil {
					return fmt.Errorf("create api key %q for %q: %w", k.Name, sa.Name, err)
				}
				fmt.Fprintf(out, "  API key %q: %s\n", key.Name, key.ID)
				continue
			}

			key, raw, err := keys.Create(ctx, account.ID, k.Name)
			if err != nil {
				return fmt.Errorf("create api key %q for %q: %w", k.Name, sa.Name, err)
			}
			fmt.Fprintf(out, "  API key %q: %s\n    Key: %s\n", key.Name, key.ID, raw)
		}
	}
	return nil
}
