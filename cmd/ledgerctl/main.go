// Command ledgerctl is the operator tool for the troop ledger. It works
// directly against the configured database.
//
//	ledgerctl verify -unit <unit id> | -account <account id>
//	ledgerctl rebuild -unit <unit id>
//	ledgerctl unlinked
//	ledgerctl hash-key <feed key>
//	ledgerctl token -user <id> -role <role> [-ttl 24h]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mmynk/troopledger/internal/auth"
	"github.com/mmynk/troopledger/internal/config"
	"github.com/mmynk/troopledger/internal/ledger"
	"github.com/mmynk/troopledger/internal/storage/postgres"
	"github.com/mmynk/troopledger/internal/storage/sqlite"
	"github.com/mmynk/troopledger/internal/storage/sqlstore"
	"github.com/mmynk/troopledger/pkg/logging"
)

// operator is the caller recorded for repairs made with this tool.
var operator = ledger.Caller{UserID: "ledgerctl", Role: ledger.RoleAdmin}

var errUsage = errors.New("usage: ledgerctl <verify|rebuild|unlinked|hash-key|token> [flags]")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Configure(cfg.LogLevel, cfg.LogFormat)

	cmd, args := args[0], args[1:]
	switch cmd {
	case "hash-key":
		return hashKey(args, out)
	case "token":
		return issueToken(cfg, args, out)
	case "verify", "rebuild", "unlinked":
	default:
		return errUsage
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	l := ledger.New(store, ledger.WithLogger(logger), ledger.WithMaxAttempts(cfg.MaxTxAttempts))

	switch cmd {
	case "verify":
		return verify(ctx, l, args, out)
	case "rebuild":
		return rebuild(ctx, l, args, out)
	default:
		return unlinked(ctx, l, out)
	}
}

func openStore(cfg *config.Config) (*sqlstore.Store, error) {
	if cfg.DBDriver == "postgres" {
		return postgres.New(cfg.DatabaseURL)
	}
	return sqlite.New(cfg.DBPath)
}

func verify(ctx context.Context, l *ledger.Ledger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	unitID := fs.String("unit", "", "verify every account of this unit")
	accountID := fs.String("account", "", "verify a single account")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var accountIDs []string
	switch {
	case *accountID != "":
		accountIDs = []string{*accountID}
	case *unitID != "":
		accounts, err := l.ListAccounts(ctx, *unitID)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			accountIDs = append(accountIDs, a.ID)
		}
	default:
		return errors.New("verify needs -unit or -account")
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tBILLING\tDERIVED\tFUNDS\tDERIVED\tSTATUS")
	mismatches := 0
	for _, id := range accountIDs {
		audit, err := l.VerifyAccount(ctx, id)
		if err != nil {
			return err
		}
		status := "ok"
		if !audit.OK() {
			status = "MISMATCH"
			mismatches++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", id,
			audit.Cached.Billing, audit.Derived.Billing,
			audit.Cached.Funds, audit.Derived.Funds, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if mismatches > 0 {
		return fmt.Errorf("%d of %d accounts disagree with their journal", mismatches, len(accountIDs))
	}
	return nil
}

func rebuild(ctx context.Context, l *ledger.Ledger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("rebuild", flag.ContinueOnError)
	unitID := fs.String("unit", "", "unit whose cached balances to rebuild")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *unitID == "" {
		return errors.New("rebuild needs -unit")
	}

	corrected, err := l.RebuildBalances(ctx, operator, *unitID)
	if err != nil {
		return err
	}
	for _, a := range corrected {
		fmt.Fprintf(out, "corrected %s: billing %s -> %s, funds %s -> %s\n",
			a.AccountID, a.Cached.Billing, a.Derived.Billing, a.Cached.Funds, a.Derived.Funds)
	}
	fmt.Fprintf(out, "%d accounts corrected\n", len(corrected))
	return nil
}

func unlinked(ctx context.Context, l *ledger.Ledger, out io.Writer) error {
	txns, err := l.ListUnlinkedTransactions(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROCESSOR ID\tAMOUNT\tFEE\tSTATUS\tBUYER\tRECEIVED")
	for _, t := range txns {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n", t.ID, t.ProcessorPaymentID,
			t.AmountMinor, t.FeeMinor, t.Status, t.BuyerEmail, t.ReceivedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func hashKey(args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: ledgerctl hash-key <feed key>")
	}
	hash, err := auth.HashFeedKey(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}

func issueToken(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.String("user", "", "user id")
	role := fs.String("role", "", "admin, treasurer, leader, parent or system")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, *ttl).Generate(ledger.Caller{UserID: *userID, Role: ledger.Role(*role)})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
