package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/troopledger/internal/ledger"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage/sqlite"
)

// seed creates a unit with one billed scout in a fresh database and points
// the tool at it.
func seed(t *testing.T) (unitID, accountID string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("JWT_SECRET", "test-secret-key-with-32-bytes!!!")

	store, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	l := ledger.New(store)
	treasurer := ledger.Caller{UserID: "user-treasurer", Role: ledger.RoleTreasurer}
	unit, err := l.CreateUnit(ctx, treasurer, "Troop 42", models.FeePolicy{Percent: decimal.RequireFromString("2.6"), Fixed: 10})
	if err != nil {
		t.Fatalf("CreateUnit failed: %v", err)
	}
	acct, err := l.OpenScoutAccount(ctx, treasurer, ledger.OpenAccountParams{UnitID: unit.ID, ScoutID: "scout-1", Name: "Alice"})
	if err != nil {
		t.Fatalf("OpenScoutAccount failed: %v", err)
	}
	if _, err := l.CreateBillingRecord(ctx, treasurer, ledger.CreateBillingParams{
		UnitID: unit.ID, Description: "Dues", TotalAmount: 2500, AccountIDs: []string{acct.ID},
	}); err != nil {
		t.Fatalf("CreateBillingRecord failed: %v", err)
	}
	return unit.ID, acct.ID
}

func TestVerifyAndRebuild(t *testing.T) {
	unitID, accountID := seed(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := run(ctx, []string{"verify", "-unit", unitID}, &out); err != nil {
		t.Fatalf("verify failed: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), accountID) || strings.Contains(out.String(), "MISMATCH") {
		t.Errorf("unexpected verify output:\n%s", out.String())
	}

	out.Reset()
	if err := run(ctx, []string{"rebuild", "-unit", unitID}, &out); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if !strings.Contains(out.String(), "0 accounts corrected") {
		t.Errorf("unexpected rebuild output:\n%s", out.String())
	}

	out.Reset()
	if err := run(ctx, []string{"unlinked"}, &out); err != nil {
		t.Fatalf("unlinked failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "ID") {
		t.Errorf("unexpected unlinked output:\n%s", out.String())
	}
}

func TestUsageErrors(t *testing.T) {
	seed(t)
	ctx := context.Background()

	tests := [][]string{
		nil,
		{"explode"},
		{"verify"},
		{"rebuild"},
		{"hash-key"},
		{"hash-key", "short"},
		{"token", "-user", "u1", "-role", "owner"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if err := run(ctx, args, &bytes.Buffer{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestToken(t *testing.T) {
	seed(t)

	var out bytes.Buffer
	if err := run(context.Background(), []string{"token", "-user", "user-1", "-role", "treasurer"}, &out); err != nil {
		t.Fatalf("token failed: %v", err)
	}
	if strings.Count(strings.TrimSpace(out.String()), ".") != 2 {
		t.Errorf("output is not a JWT: %q", out.String())
	}
}
