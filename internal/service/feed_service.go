package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/troopledger/internal/ledger"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/pkg/ledgerapi"
)

// FeedService receives batches from the card processor's transaction feed.
// Each record is ingested on its own; records that end up linked to an
// account and completed at the processor are reconciled right away.
type FeedService struct {
	ledger *ledger.Ledger
	logger *slog.Logger
}

var _ ledgerapi.ProcessorFeedServiceHandler = (*FeedService)(nil)

// NewFeedService creates a FeedService.
func NewFeedService(l *ledger.Ledger, logger *slog.Logger) *FeedService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedService{ledger: l, logger: logger}
}

// IngestTransactions records a batch of processor transactions.
func (s *FeedService) IngestTransactions(ctx context.Context, req *connect.Request[ledgerapi.IngestTransactionsRequest]) (*connect.Response[ledgerapi.IngestTransactionsResponse], error) {
	caller, err := callerFrom(ctx, req.Msg)
	if err != nil {
		return nil, err
	}

	resp := &ledgerapi.IngestTransactionsResponse{Results: make([]ledgerapi.IngestResult, 0, len(req.Msg.Records))}
	failed := 0
	for _, rec := range req.Msg.Records {
		result := s.ingest(ctx, caller, rec)
		if result.Error != "" {
			failed++
		}
		resp.Results = append(resp.Results, result)
	}

	s.logger.Info("processor feed batch ingested", "records", len(req.Msg.Records), "failed", failed)
	return connect.NewResponse(resp), nil
}

func (s *FeedService) ingest(ctx context.Context, caller ledger.Caller, rec ledgerapi.ProcessorRecord) ledgerapi.IngestResult {
	result := ledgerapi.IngestResult{ProcessorPaymentID: rec.ProcessorPaymentID}

	txn, err := s.ledger.IngestProcessorTransaction(ctx, caller, models.ProcessorRecord{
		ProcessorPaymentID: rec.ProcessorPaymentID,
		AmountMinor:        rec.AmountMinor,
		FeeMinor:           rec.FeeMinor,
		Status:             rec.Status,
		BuyerEmail:         rec.BuyerEmail,
	})
	if err != nil {
		s.logger.Warn("processor record rejected", "processor_payment_id", rec.ProcessorPaymentID, "error", err)
		result.Error = err.Error()
		return result
	}
	result.TransactionID = txn.ID
	result.State = string(txn.State)
	result.PaymentID = txn.PaymentID

	if txn.State != models.ReconcileLinked || txn.Status != models.ProcessorStatusCompleted {
		return result
	}
	payment, err := s.ledger.ReconcileTransaction(ctx, caller, txn.ID)
	if err != nil {
		s.logger.Warn("linked transaction not reconciled", "transaction_id", txn.ID, "error", err)
		result.Error = err.Error()
		return result
	}
	result.State = string(models.ReconcileReconciled)
	result.PaymentID = payment.ID
	return result
}
