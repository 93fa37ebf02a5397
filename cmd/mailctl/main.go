package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/sendline/internal/config"
	"github.com/edvin/sendline/internal/core"
	"github.com/edvin/sendline/internal/db"
	"github.com/edvin/sendline/internal/ledger"
	"github.com/edvin/sendline/internal/mailctl"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	if err := cfg.Validate("mailctl"); err != nil {
		fatal("invalid config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "seed":
		fs := flag.NewFlagSet("seed", flag.ExitOnError)
		file := fs.String("f", "", "Path to accounts YAML file (required)")
		fs.Parse(os.Args[2:])

		if *file == "" {
			fmt.Fprintln(os.Stderr, "Error: -f flag is required")
			fs.Usage()
			os.Exit(1)
		}

		seed, err := mailctl.LoadSeed(*file)
		if err != nil {
			fatal("%v", err)
		}
		pool := connect(ctx, cfg)
		defer pool.Close()

		if err := mailctl.Seed(ctx, seed, core.NewAccountService(pool), core.NewAPIKeyService(pool), os.Stdout); err != nil {
			fatal("%v", err)
		}

	case "create-api-key":
		fs := flag.NewFlagSet("create-api-key", flag.ExitOnError)
		account := fs.String("account", "", "Account ID (required)")
		name := fs.String("name", "", "Name for the API key (required)")
		fs.Parse(os.Args[2:])

		if *account == "" || *name == "" {
			fmt.Fprintln(os.Stderr, "Usage: mailctl create-api-key --account <id> --name <name>")
			os.Exit(1)
		}

		pool := connect(ctx, cfg)
		defer pool.Close()

		key, rawKey, err := core.NewAPIKeyService(pool).Create(ctx, *account, *name)
		if err != nil {
			fatal("failed to create API key: %v", err)
		}
		fmt.Printf("API key created.\n\n")
		fmt.Printf("  Account: %s\n", key.AccountID)
		fmt.Printf("  Name:    %s\n", key.Name)
		fmt.Printf("  ID:      %s\n", key.ID)
		fmt.Printf("  Key:     %s\n\n", rawKey)
		fmt.Printf("Save this key, it will not be shown again.\n")

	case "status":
		id := emailIDArg("status")
		pool := connect(ctx, cfg)
		defer pool.Close()

		if err := mailctl.Status(ctx, ledger.NewStore(pool), id, os.Stdout); err != nil {
			fatal("%v", err)
		}

	case "redrive":
		id := emailIDArg("redrive")
		pool := connect(ctx, cfg)
		defer pool.Close()

		dialOpts, err := cfg.TemporalClientOptions()
		if err != nil {
			fatal("failed to configure temporal client: %v", err)
		}
		tc, err := temporalclient.Dial(dialOpts)
		if err != nil {
			fatal("failed to connect to temporal: %v", err)
		}
		defer tc.Close()

		emails := core.NewEmailService(pool, tc, cfg.TemporalTaskQueue)
		if err := mailctl.Redrive(ctx, emails, id, os.Stdout); err != nil {
			fatal("%v", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func connect(ctx context.Context, cfg *config.Config) *pgxpool.Pool {
	pool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		fatal("failed to connect to database: %v", err)
	}
	return pool
}

func emailIDArg(cmd string) int64 {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: mailctl %s <email-id>\n", cmd)
		os.Exit(1)
	}
	id, err := strconv.ParseInt(os.Args[2], 10, 64)
	if err != nil || id <= 0 {
		fatal("invalid email id %q", os.Args[2])
	}
	return id
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  mailctl seed -f <accounts.yaml>                     Create accounts and API keys
  mailctl create-api-key --account <id> --name <name> Create an API key
  mailctl status <email-id>                           Show delivery state of an email
  mailctl redrive <email-id>                          Restart delivery of a stuck email`)
}
