// Package service exposes the ledger over connect.
package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/troopledger/internal/ledger"
	"github.com/mmynk/troopledger/internal/middleware"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/pkg/ledgerapi"
)

var errAuthRequired = errors.New("authentication required")

// LedgerService implements ledgerapi.LedgerServiceHandler.
type LedgerService struct {
	ledger      *ledger.Ledger
	defaultFees models.FeePolicy
	logger      *slog.Logger
}

var _ ledgerapi.LedgerServiceHandler = (*LedgerService)(nil)

// NewLedgerService creates a LedgerService. defaultFees applies to units
// created without their own card fee policy.
func NewLedgerService(l *ledger.Ledger, defaultFees models.FeePolicy, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{ledger: l, defaultFees: defaultFees, logger: logger}
}

// callerFrom returns the authenticated caller, validating msg first.
func callerFrom(ctx context.Context, msg any) (ledger.Caller, error) {
	caller := middleware.GetCaller(ctx)
	if caller.UserID == "" {
		return caller, connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}
	if err := validateRequest(msg); err != nil {
		return caller, err
	}
	return caller, nil
}

// CreateUnit creates a unit and its operating account.
func (s *LedgerService) CreateUnit(ctx context.Context, req *connect.Request[ledgerapi.CreateUnitRequest]) (*connect.Response[ledgerapi.Unit], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	policy := s.defaultFees
	if req.Msg.CardFeePercent != "" || req.Msg.CardFeeFixedCents != nil {
		policy = models.FeePolicy{}
		if req.Msg.CardFeePercent != "" {
			if policy.Percent, err = decimal.NewFromString(req.Msg.CardFeePercent); err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, err)
			}
		}
		if req.Msg.CardFeeFixedCents != nil {
			policy.Fixed = models.Money(*req.Msg.CardFeeFixedCents)
		}
	}

	unit, err := s.ledger.CreateUnit(ctx, caller, req.Msg.Name, policy)
	if err != nil {
		return nil, toConnectError(s.logger, "CreateUnit", err)
	}
	return connect.NewResponse(toAPIUnit(unit)), nil
}

// OpenScoutAccount opens a billing account for a scout.
func (s *LedgerService) OpenScoutAccount(ctx context.Context, req *connect.Request[ledgerapi.OpenScoutAccountRequest]) (*connect.Response[ledgerapi.Account], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	account, err := s.ledger.OpenScoutAccount(ctx, caller, ledger.OpenAccountParams{
		UnitID:     req.Msg.UnitID,
		ScoutID:    req.Msg.ScoutID,
		Name:       req.Msg.Name,
		PayerEmail: req.Msg.PayerEmail,
	})
	if err != nil {
		return nil, toConnectError(s.logger, "OpenScoutAccount", err)
	}
	resp := toAPIAccount(account)
	return connect.NewResponse(&resp), nil
}

// GetAccount returns an account with its cached balances.
func (s *LedgerService) GetAccount(ctx context.Context, req *connect.Request[ledgerapi.GetAccountRequest]) (*connect.Response[ledgerapi.Account], error) {
	if _, err := callerFrom(ctx, req.Msg); err != nil {
		return nil, err
	}

	account, err := s.ledger.GetAccount(ctx, req.Msg.AccountID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetAccount", err)
	}
	resp := toAPIAccount(account)
	return connect.NewResponse(&resp), nil
}

// ListAccounts lists the accounts of a unit.
func (s *LedgerService) ListAccounts(ctx context.Context, req *connect.Request[ledgerapi.ListAccountsRequest]) (*connect.Response[ledgerapi.ListAccountsResponse], error) {
	if _, err := callerFrom(ctx, req.Msg); err != nil {
		return nil, err
	}

	accounts, err := s.ledger.ListAccounts(ctx, req.Msg.UnitID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListAccounts", err)
	}
	resp := &ledgerapi.ListAccountsResponse{Accounts: make([]ledgerapi.Account, len(accounts))}
	for i, a := range accounts {
		resp.Accounts[i] = toAPIAccount(a)
	}
	return connect.NewResponse(resp), nil
}

// ListAccountEntries lists the newest journal entries touching an account.
func (s *LedgerService) ListAccountEntries(ctx context.Context, req *connect.Request[ledgerapi.ListAccountEntriesRequest]) (*connect.Response[ledgerapi.ListAccountEntriesResponse], error) {
	if _, err := callerFrom(ctx, req.Msg); err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListAccountEntries(ctx, req.Msg.AccountID, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(s.logger, "ListAccountEntries", err)
	}
	resp := &ledgerapi.ListAccountEntriesResponse{Entries: make([]ledgerapi.JournalEntry, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = toAPIEntry(e)
	}
	return connect.NewResponse(resp), nil
}

// GetEntry returns a journal entry with its lines.
func (s *LedgerService) GetEntry(ctx context.Context, req *connect.Request[ledgerapi.GetEntryRequest]) (*connect.Response[ledgerapi.JournalEntry], error) {
	if _, err := callerFrom(ctx, req.Msg); err != nil {
		return nil, err
	}

	entry, err := s.ledger.GetEntry(ctx, req.Msg.EntryID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetEntry", err)
	}
	resp := toAPIEntry(entry)
	return connect.NewResponse(&resp), nil
}

// RecordEntry records a manual balanced journal entry.
func (s *LedgerService) RecordEntry(ctx context.Context, req *connect.Request[ledgerapi.RecordEntryRequest]) (*connect.Response[ledgerapi.EntryResponse], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	entryID, err := s.ledger.RecordEntry(ctx, caller, ledger.RecordEntryParams{
		UnitID:      req.Msg.UnitID,
		Description: req.Msg.Description,
		Type:        models.EntryType(req.Msg.Type),
		Lines:       fromAPILines(req.Msg.Lines),
		ExternalRef: req.Msg.ExternalRef,
	})
	if err != nil {
		return nil, toConnectError(s.logger, "RecordEntry", err)
	}
	return connect.NewResponse(&ledgerapi.EntryResponse{EntryID: entryID}), nil
}

// VoidEntry voids a journal entry by posting its reversal.
func (s *LedgerService) VoidEntry(ctx context.Context, req *connect.Request[ledgerapi.VoidEntryRequest]) (*connect.Response[ledgerapi.VoidEntryResponse], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	reversalID, err := s.ledger.VoidEntry(ctx, caller, req.Msg.EntryID, req.Msg.Reason)
	if err != nil {
		return nil, toConnectError(s.logger, "VoidEntry", err)
	}
	return connect.NewResponse(&ledgerapi.VoidEntryResponse{ReversalEntryID: reversalID}), nil
}

// CreateBillingRecord bills scouts for a shared expense.
func (s *LedgerService) CreateBillingRecord(ctx context.Context, req *connect.Request[ledgerapi.CreateBillingRecordRequest]) (*connect.Response[ledgerapi.BillingRecord], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	record, err := s.ledger.CreateBillingRecord(ctx, caller, ledger.CreateBillingParams{
		UnitID:      req.Msg.UnitID,
		Description: req.Msg.Description,
		TotalAmount: models.Money(req.Msg.TotalAmountCents),
		AccountIDs:  req.Msg.AccountIDs,
		BillingDate: req.Msg.BillingDate,
	})
	if err != nil {
		return nil, toConnectError(s.logger, "CreateBillingRecord", err)
	}
	return connect.NewResponse(toAPIBillingRecord(record)), nil
}

// GetBillingRecord returns a billing record with its charges.
func (s *LedgerService) GetBillingRecord(ctx context.Context, req *connect.Request[ledgerapi.GetBillingRecordRequest]) (*connect.Response[ledgerapi.BillingRecord], error) {
	if _, err := callerFrom(ctx, req.Msg); err != nil {
		return nil, err
	}

	record, err := s.ledger.GetBillingRecord(ctx, req.Msg.RecordID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetBillingRecord", err)
	}
	return connect.NewResponse(toAPIBillingRecord(record)), nil
}

// VoidBillingRecord voids a billing record and all of its charges.
func (s *LedgerService) VoidBillingRecord(ctx context.Context, req *connect.Request[ledgerapi.VoidBillingRecordRequest]) (*connect.Response[ledgerapi.VoidBillingRecordResponse], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.VoidBillingRecord(ctx, caller, req.Msg.RecordID, req.Msg.Reason); err != nil {
		return nil, toConnectError(s.logger, "VoidBillingRecord", err)
	}
	return connect.NewResponse(&ledgerapi.VoidBillingRecordResponse{}), nil
}

// VoidBillingCharge voids a single unpaid charge.
func (s *LedgerService) VoidBillingCharge(ctx context.Context, req *connect.Request[ledgerapi.VoidBillingChargeRequest]) (*connect.Response[ledgerapi.EntryResponse], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	entryID, err := s.ledger.VoidBillingCharge(ctx, caller, req.Msg.ChargeID, req.Msg.Reason)
	if err != nil {
		return nil, toConnectError(s.logger, "VoidBillingCharge", err)
	}
	return connect.NewResponse(&ledgerapi.EntryResponse{EntryID: entryID}), nil
}

// RecordPayment records a payment toward a scout's bill.
func (s *LedgerService) RecordPayment(ctx context.Context, req *connect.Request[ledgerapi.RecordPaymentRequest]) (*connect.Response[ledgerapi.Payment], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	payment, err := s.ledger.RecordPayment(ctx, caller, ledger.RecordPaymentParams{
		AccountID:    req.Msg.AccountID,
		Amount:       models.Money(req.Msg.AmountCents),
		Method:       models.PaymentMethod(req.Msg.Method),
		ProcessorRef: req.Msg.ProcessorRef,
		CardToken:    req.Msg.CardToken,
		ApplyTo:      req.Msg.ApplyTo,
		Note:         req.Msg.Note,
	})
	if err != nil {
		return nil, toConnectError(s.logger, "RecordPayment", err)
	}
	return connect.NewResponse(toAPIPayment(payment)), nil
}

// GetPayment returns a payment.
func (s *LedgerService) GetPayment(ctx context.Context, req *connect.Request[ledgerapi.GetPaymentRequest]) (*connect.Response[ledgerapi.Payment], error) {
	if _, err := callerFrom(ctx, req.Msg); err != nil {
		return nil, err
	}

	payment, err := s.ledger.GetPayment(ctx, req.Msg.PaymentID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetPayment", err)
	}
	return connect.NewResponse(toAPIPayment(payment)), nil
}

// TransferFundsToBilling moves fundraising funds onto a scout's bill.
func (s *LedgerService) TransferFundsToBilling(ctx context.Context, req *connect.Request[ledgerapi.TransferFundsRequest]) (*connect.Response[ledgerapi.EntryResponse], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	entryID, err := s.ledger.TransferFundsToBilling(ctx, caller, req.Msg.AccountID, models.Money(req.Msg.AmountCents))
	if err != nil {
		return nil, toConnectError(s.logger, "TransferFundsToBilling", err)
	}
	return connect.NewResponse(&ledgerapi.EntryResponse{EntryID: entryID}), nil
}

// RecordFundraisingCredit credits fundraising funds to a scout.
func (s *LedgerService) RecordFundraisingCredit(ctx context.Context, req *connect.Request[ledgerapi.RecordFundraisingCreditRequest]) (*connect.Response[ledgerapi.EntryResponse], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	entryID, err := s.ledger.RecordFundraisingCredit(ctx, caller, req.Msg.AccountID, models.Money(req.Msg.AmountCents), req.Msg.Description)
	if err != nil {
		return nil, toConnectError(s.logger, "RecordFundraisingCredit", err)
	}
	return connect.NewResponse(&ledgerapi.EntryResponse{EntryID: entryID}), nil
}

// LinkTransaction links a processor transaction to a scout account.
func (s *LedgerService) LinkTransaction(ctx context.Context, req *connect.Request[ledgerapi.LinkTransactionRequest]) (*connect.Response[ledgerapi.ProcessorTransaction], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	txn, err := s.ledger.LinkTransaction(ctx, caller, req.Msg.TransactionID, req.Msg.AccountID)
	if err != nil {
		return nil, toConnectError(s.logger, "LinkTransaction", err)
	}
	resp := toAPITransaction(txn)
	return connect.NewResponse(&resp), nil
}

// ReconcileTransaction turns a linked processor transaction into a payment.
func (s *LedgerService) ReconcileTransaction(ctx context.Context, req *connect.Request[ledgerapi.ReconcileTransactionRequest]) (*connect.Response[ledgerapi.Payment], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	payment, err := s.ledger.ReconcileTransaction(ctx, caller, req.Msg.TransactionID)
	if err != nil {
		return nil, toConnectError(s.logger, "ReconcileTransaction", err)
	}
	return connect.NewResponse(toAPIPayment(payment)), nil
}

// ListUnlinkedTransactions reports processor transactions with no account.
func (s *LedgerService) ListUnlinkedTransactions(ctx context.Context, req *connect.Request[ledgerapi.ListUnlinkedTransactionsRequest]) (*connect.Response[ledgerapi.ListUnlinkedTransactionsResponse], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	if !ledger.CanReconcile(caller.Role) {
		return nil, connect.NewError(connect.CodePermissionDenied, ledger.ErrForbidden)
	}

	txns, err := s.ledger.ListUnlinkedTransactions(ctx)
	if err != nil {
		return nil, toConnectError(s.logger, "ListUnlinkedTransactions", err)
	}
	resp := &ledgerapi.ListUnlinkedTransactionsResponse{Transactions: make([]ledgerapi.ProcessorTransaction, len(txns))}
	for i, t := range txns {
		resp.Transactions[i] = toAPITransaction(t)
	}
	return connect.NewResponse(resp), nil
}

// VerifyAccount compares an account's cached balances with a replay.
func (s *LedgerService) VerifyAccount(ctx context.Context, req *connect.Request[ledgerapi.VerifyAccountRequest]) (*connect.Response[ledgerapi.AccountAudit], error) {
	if _, err := callerFrom(ctx, req.Msg); err != nil {
		return nil, err
	}

	audit, err := s.ledger.VerifyAccount(ctx, req.Msg.AccountID)
	if err != nil {
		return nil, toConnectError(s.logger, "VerifyAccount", err)
	}
	resp := toAPIAudit(*audit)
	return connect.NewResponse(&resp), nil
}

// RebuildBalances recomputes a unit's cached balances from its journal.
func (s *LedgerService) RebuildBalances(ctx context.Context, req *connect.Request[ledgerapi.RebuildBalancesRequest]) (*connect.Response[ledgerapi.RebuildBalancesResponse], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	corrected, err := s.ledger.RebuildBalances(ctx, caller, req.Msg.UnitID)
	if err != nil {
		return nil, toConnectError(s.logger, "RebuildBalances", err)
	}
	resp := &ledgerapi.RebuildBalancesResponse{Corrected: make([]ledgerapi.AccountAudit, len(corrected))}
	for i, a := range corrected {
		resp.Corrected[i] = toAPIAudit(a)
	}
	return connect.NewResponse(resp), nil
}
