package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/troopledger/internal/auth"
	"github.com/mmynk/troopledger/internal/ledger"
	"github.com/mmynk/troopledger/internal/middleware"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/internal/storage/sqlite"
	"github.com/mmynk/troopledger/pkg/ledgerapi"
)

const (
	testSecret  = "test-secret-key-with-32-bytes!!!"
	testFeedKey = "feed-key-0123456789abcdef"
)

var testFees = models.FeePolicy{Percent: decimal.RequireFromString("2.6"), Fixed: models.Cents(10)}

type testServer struct {
	url  string
	jwt  *auth.JWTManager
	feed *ledgerapi.ProcessorFeedServiceClient
}

// client returns a LedgerService client acting as the given caller.
func (s *testServer) client(t *testing.T, c ledger.Caller) *ledgerapi.LedgerServiceClient {
	t.Helper()
	token, err := s.jwt.Generate(c)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return ledgerapi.NewLedgerServiceClient(http.DefaultClient, s.url, ledgerapi.WithBearerToken(token))
}

// setupTestServer creates a test server backed by a temporary SQLite database.
func setupTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	l := ledger.New(store)
	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	hash, err := auth.HashFeedKey(testFeedKey)
	if err != nil {
		t.Fatalf("failed to hash feed key: %v", err)
	}

	ledgerPath, ledgerHandler := ledgerapi.NewLedgerServiceHandler(
		NewLedgerService(l, testFees, nil),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager)),
	)
	feedPath, feedHandler := ledgerapi.NewProcessorFeedServiceHandler(
		NewFeedService(l, nil),
		connect.WithInterceptors(middleware.RequireFeedKey(auth.NewFeedKeyVerifier(hash))),
	)

	mux := http.NewServeMux()
	mux.Handle(ledgerPath, ledgerHandler)
	mux.Handle(feedPath, feedHandler)
	server := httptest.NewServer(mux)

	ts := &testServer{
		url:  server.URL,
		jwt:  jwtManager,
		feed: ledgerapi.NewProcessorFeedServiceClient(http.DefaultClient, server.URL, ledgerapi.WithFeedKey(testFeedKey)),
	}
	cleanup := func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	}
	return ts, cleanup
}

var (
	treasurer = ledger.Caller{UserID: "user-treasurer", Role: ledger.RoleTreasurer}
	parent    = ledger.Caller{UserID: "user-parent", Role: ledger.RoleParent}
)

// setupUnit creates a unit with one account per scout name.
func setupUnit(t *testing.T, client *ledgerapi.LedgerServiceClient, scouts ...string) (*ledgerapi.Unit, []ledgerapi.Account) {
	t.Helper()
	ctx := context.Background()

	unit, err := client.CreateUnit(ctx, connect.NewRequest(&ledgerapi.CreateUnitRequest{Name: "Troop 42"}))
	if err != nil {
		t.Fatalf("CreateUnit failed: %v", err)
	}
	var accounts []ledgerapi.Account
	for i, name := range scouts {
		resp, err := client.OpenScoutAccount(ctx, connect.NewRequest(&ledgerapi.OpenScoutAccountRequest{
			UnitID:     unit.Msg.ID,
			ScoutID:    "scout-" + name,
			Name:       name,
			PayerEmail: name + "@example.com",
		}))
		if err != nil {
			t.Fatalf("OpenScoutAccount %d failed: %v", i, err)
		}
		accounts = append(accounts, *resp.Msg)
	}
	return unit.Msg, accounts
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect error, got %T: %v", err, err)
	}
	if connectErr.Code() != want {
		t.Fatalf("code = %v, want %v (%v)", connectErr.Code(), want, err)
	}
}

func TestCreateUnit(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()
	client := ts.client(t, treasurer)

	unit, _ := setupUnit(t, client)
	if unit.CardFeePercent != "2.6" || unit.CardFeeFixedCents != 10 {
		t.Errorf("unit fee policy = %s%% + %d, want server default", unit.CardFeePercent, unit.CardFeeFixedCents)
	}
	if unit.OperatingAccountID == "" {
		t.Error("expected operating account")
	}

	zero := int64(0)
	custom, err := client.CreateUnit(context.Background(), connect.NewRequest(&ledgerapi.CreateUnitRequest{
		Name:              "Pack 7",
		CardFeePercent:    "2.9",
		CardFeeFixedCents: &zero,
	}))
	if err != nil {
		t.Fatalf("CreateUnit failed: %v", err)
	}
	if custom.Msg.CardFeePercent != "2.9" || custom.Msg.CardFeeFixedCents != 0 {
		t.Errorf("custom fee policy = %+v", custom.Msg)
	}
}

func TestBillingAndPaymentOverRPC(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()
	client := ts.client(t, treasurer)

	_, accounts := setupUnit(t, client, "alice", "bob", "carol")
	ids := []string{accounts[0].ID, accounts[1].ID, accounts[2].ID}

	record, err := client.CreateBillingRecord(ctx, connect.NewRequest(&ledgerapi.CreateBillingRecordRequest{
		UnitID:           accounts[0].UnitID,
		Description:      "Winter campout",
		TotalAmountCents: 10000,
		AccountIDs:       ids,
	}))
	if err != nil {
		t.Fatalf("CreateBillingRecord failed: %v", err)
	}
	wantShares := []int64{3334, 3333, 3333}
	for i, c := range record.Msg.Charges {
		if c.AmountCents != wantShares[i] || c.AccountID != ids[i] {
			t.Errorf("charge %d = %+v, want %d for %s", i, c, wantShares[i], ids[i])
		}
	}

	payment, err := client.RecordPayment(ctx, connect.NewRequest(&ledgerapi.RecordPaymentRequest{
		AccountID:    accounts[0].ID,
		AmountCents:  4000,
		Method:       "card",
		ProcessorRef: "sq-123",
	}))
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if payment.Msg.FeeCents != 114 || payment.Msg.NetCents != 3886 {
		t.Errorf("payment = %+v, want fee 114 net 3886", payment.Msg)
	}

	alice, err := client.GetAccount(ctx, connect.NewRequest(&ledgerapi.GetAccountRequest{AccountID: accounts[0].ID}))
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if alice.Msg.BillingBalanceCents != 666 {
		t.Errorf("alice billing = %d, want 666", alice.Msg.BillingBalanceCents)
	}

	entries, err := client.ListAccountEntries(ctx, connect.NewRequest(&ledgerapi.ListAccountEntriesRequest{AccountID: accounts[0].ID}))
	if err != nil {
		t.Fatalf("ListAccountEntries failed: %v", err)
	}
	if len(entries.Msg.Entries) != 2 {
		t.Errorf("alice has %d entries, want 2", len(entries.Msg.Entries))
	}

	audit, err := client.VerifyAccount(ctx, connect.NewRequest(&ledgerapi.VerifyAccountRequest{AccountID: accounts[0].ID}))
	if err != nil {
		t.Fatalf("VerifyAccount failed: %v", err)
	}
	if !audit.Msg.OK || audit.Msg.Derived.BillingCents != 666 {
		t.Errorf("audit = %+v", audit.Msg)
	}
}

func TestRecordEntryAndVoidOverRPC(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()
	client := ts.client(t, treasurer)

	unit, accounts := setupUnit(t, client, "alice")

	entry, err := client.RecordEntry(ctx, connect.NewRequest(&ledgerapi.RecordEntryRequest{
		UnitID:      unit.ID,
		Description: "Patch order",
		Type:        "charge",
		Lines: []ledgerapi.JournalLine{
			{AccountID: accounts[0].ID, Kind: "billing", DebitCents: 500},
			{AccountID: unit.OperatingAccountID, Kind: "billing", CreditCents: 500},
		},
	}))
	if err != nil {
		t.Fatalf("RecordEntry failed: %v", err)
	}

	voided, err := client.VoidEntry(ctx, connect.NewRequest(&ledgerapi.VoidEntryRequest{EntryID: entry.Msg.EntryID, Reason: "duplicate"}))
	if err != nil {
		t.Fatalf("VoidEntry failed: %v", err)
	}
	original, err := client.GetEntry(ctx, connect.NewRequest(&ledgerapi.GetEntryRequest{EntryID: entry.Msg.EntryID}))
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if !original.Msg.IsVoid || original.Msg.ReversedByEntryID != voided.Msg.ReversalEntryID {
		t.Errorf("original = %+v", original.Msg)
	}

	_, err = client.VoidEntry(ctx, connect.NewRequest(&ledgerapi.VoidEntryRequest{EntryID: entry.Msg.EntryID, Reason: "again"}))
	assertCode(t, err, connect.CodeFailedPrecondition)
}

func TestErrorCodes(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()
	client := ts.client(t, treasurer)
	unit, accounts := setupUnit(t, client, "alice")

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{"unknown account", func() error {
			_, err := client.GetAccount(ctx, connect.NewRequest(&ledgerapi.GetAccountRequest{AccountID: "acct_01h455vb4pex5vsknk084sn02q"}))
			return err
		}, connect.CodeNotFound},
		{"missing field", func() error {
			_, err := client.GetAccount(ctx, connect.NewRequest(&ledgerapi.GetAccountRequest{}))
			return err
		}, connect.CodeInvalidArgument},
		{"unbalanced entry", func() error {
			_, err := client.RecordEntry(ctx, connect.NewRequest(&ledgerapi.RecordEntryRequest{
				UnitID: unit.ID, Description: "Oops", Type: "charge",
				Lines: []ledgerapi.JournalLine{
					{AccountID: accounts[0].ID, Kind: "billing", DebitCents: 500},
					{AccountID: unit.OperatingAccountID, Kind: "billing", CreditCents: 400},
				},
			}))
			return err
		}, connect.CodeInvalidArgument},
		{"insufficient funds", func() error {
			_, err := client.TransferFundsToBilling(ctx, connect.NewRequest(&ledgerapi.TransferFundsRequest{AccountID: accounts[0].ID, AmountCents: 100}))
			return err
		}, connect.CodeFailedPrecondition},
		{"card capture without gateway", func() error {
			_, err := client.RecordPayment(ctx, connect.NewRequest(&ledgerapi.RecordPaymentRequest{AccountID: accounts[0].ID, AmountCents: 100, Method: "card", CardToken: "cnon:ok"}))
			return err
		}, connect.CodeUnavailable},
		{"parent cannot bill", func() error {
			_, err := ts.client(t, parent).CreateBillingRecord(ctx, connect.NewRequest(&ledgerapi.CreateBillingRecordRequest{
				UnitID: unit.ID, Description: "Dues", TotalAmountCents: 100, AccountIDs: []string{accounts[0].ID},
			}))
			return err
		}, connect.CodePermissionDenied},
		{"parent cannot list unlinked", func() error {
			_, err := ts.client(t, parent).ListUnlinkedTransactions(ctx, connect.NewRequest(&ledgerapi.ListUnlinkedTransactionsRequest{}))
			return err
		}, connect.CodePermissionDenied},
		{"no token", func() error {
			anon := ledgerapi.NewLedgerServiceClient(http.DefaultClient, ts.url)
			_, err := anon.GetAccount(ctx, connect.NewRequest(&ledgerapi.GetAccountRequest{AccountID: accounts[0].ID}))
			return err
		}, connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCode(t, tt.call(), tt.want)
		})
	}

	// Parents can still read.
	if _, err := ts.client(t, parent).GetAccount(ctx, connect.NewRequest(&ledgerapi.GetAccountRequest{AccountID: accounts[0].ID})); err != nil {
		t.Errorf("parent GetAccount failed: %v", err)
	}
}
