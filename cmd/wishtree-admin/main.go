package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/lunarjar/wishtree/pkg/audit"
	"github.com/lunarjar/wishtree/pkg/invites"
	"github.com/lunarjar/wishtree/pkg/observability"
	"github.com/lunarjar/wishtree/pkg/perm"
	"github.com/lunarjar/wishtree/pkg/store"
)

// Operator tool for tasks that have no HTTP surface: minting signup invite
// codes, flipping admin flags, and sweeping spent codes. Talks straight to
// the database, so it runs with operator credentials rather than a user token.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	dbURL := os.Getenv("WISHTREE_POSTGRES_URL")
	if dbURL == "" {
		logger.Fatal("WISHTREE_POSTGRES_URL must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := store.NewPostgresStore(ctx, store.Config{
		Type:             "postgres",
		PostgresURL:      dbURL,
		PostgresMaxConns: 2,
		PostgresTimeout:  10 * time.Second,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	var exitErr error
	switch os.Args[1] {
	case "mint":
		exitErr = runMint(ctx, pg, logger, os.Args[2:])
	case "promote":
		exitErr = runSetAdmin(ctx, pg, logger, os.Args[2:], true)
	case "demote":
		exitErr = runSetAdmin(ctx, pg, logger, os.Args[2:], false)
	case "sweep":
		exitErr = runSweep(ctx, pg, logger)
	default:
		usage()
		os.Exit(2)
	}
	if exitErr != nil {
		logger.Fatal(exitErr)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: wishtree-admin <command> [flags]

commands:
  mint     mint signup invite codes (--actor, --max-uses, --count)
  promote  grant a user the admin flag (--user)
  demote   clear a user's admin flag (--user)
  sweep    delete exhausted invite codes past the retention window`)
}

// cliRoster marks the acting operator as admin so the invite service's
// mint gate passes and the audit trail still records who did it.
type cliRoster struct{ actor string }

func (r cliRoster) Contains(userID string) bool { return userID == r.actor }

func runMint(ctx context.Context, pg *store.PostgresStore, logger *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	actor := fs.String("actor", "", "User ID recorded as the minting actor")
	maxUses := fs.Int("max-uses", 1, "Uses per code, 0 for unlimited")
	count := fs.Int("count", 1, "Number of codes to mint")
	fs.Parse(args)

	if *actor == "" {
		return fmt.Errorf("--actor is required")
	}
	if *count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	quiet := observability.NewLogger(observability.ErrorLevel, os.Stderr)
	auditLogger, err := audit.NewDBLogger(pg.DB())
	if err != nil {
		return err
	}
	engine := perm.NewEngine(pg, perm.WithAdminRoster(cliRoster{actor: *actor}), perm.WithLogger(quiet))
	service := invites.NewService(pg, engine, auditLogger, quiet)

	for i := 0; i < *count; i++ {
		code, err := service.Mint(ctx, *actor, *maxUses)
		if err != nil {
			return fmt.Errorf("mint code: %w", err)
		}
		fmt.Println(code.Code)
	}
	logger.Infof("Minted %d invite code(s), max uses %d each", *count, *maxUses)
	return nil
}

func runSetAdmin(ctx context.Context, pg *store.PostgresStore, logger *logrus.Logger, args []string, grant bool) error {
	fs := flag.NewFlagSet("set-admin", flag.ExitOnError)
	userID := fs.String("user", "", "User ID to update")
	fs.Parse(args)

	if *userID == "" {
		return fmt.Errorf("--user is required")
	}

	user, err := pg.GetUser(ctx, *userID)
	if err != nil {
		return fmt.Errorf("look up user %s: %w", *userID, err)
	}
	if user.IsAdmin == grant {
		logger.Infof("User %s already has is_admin=%v, nothing to do", *userID, grant)
		return nil
	}

	user.IsAdmin = grant
	if err := pg.PutUser(ctx, user); err != nil {
		return fmt.Errorf("update user %s: %w", *userID, err)
	}
	logger.Infof("User %s is_admin set to %v", *userID, grant)
	return nil
}

func runSweep(ctx context.Context, pg *store.PostgresStore, logger *logrus.Logger) error {
	quiet := observability.NewLogger(observability.ErrorLevel, os.Stderr)
	engine := perm.NewEngine(pg, perm.WithLogger(quiet))
	service := invites.NewService(pg, engine, audit.NopLogger{}, quiet)

	removed, err := service.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep invite codes: %w", err)
	}
	logger.Infof("Removed %d exhausted invite code(s)", removed)
	return nil
}
