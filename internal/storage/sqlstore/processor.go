package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/troopledger/internal/models"
)

const processorColumns = "id, processor_payment_id, amount_minor, fee_minor, net_minor, status, buyer_email, " +
	"state, is_reconciled, unit_id, account_id, payment_id, received_at, updated_at"

func scanProcessorTxn(row scanner) (*models.SquareTransaction, error) {
	t := &models.SquareTransaction{}
	var receivedAt, updatedAt int64
	err := row.Scan(&t.ID, &t.ProcessorPaymentID, &t.AmountMinor, &t.FeeMinor, &t.NetMinor, &t.Status,
		&t.BuyerEmail, &t.State, &t.IsReconciled, &t.UnitID, &t.AccountID, &t.PaymentID, &receivedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.ReceivedAt = fromMicros(receivedAt)
	t.UpdatedAt = fromMicros(updatedAt)
	return t, nil
}

// InsertProcessorTransaction persists a transaction reported by the processor.
func (s *queries) InsertProcessorTransaction(ctx context.Context, txn *models.SquareTransaction) error {
	if txn.UpdatedAt.IsZero() {
		txn.UpdatedAt = txn.ReceivedAt
	}
	_, err := s.exec(ctx,
		"INSERT INTO square_transactions ("+processorColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		txn.ID, txn.ProcessorPaymentID, txn.AmountMinor, txn.FeeMinor, txn.NetMinor, txn.Status, txn.BuyerEmail,
		txn.State, txn.IsReconciled, txn.UnitID, txn.AccountID, txn.PaymentID, toMicros(txn.ReceivedAt),
		toMicros(txn.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert processor transaction: %w", err)
	}
	return nil
}

func (s *queries) getProcessorTxn(ctx context.Context, key, where string, lock bool) (*models.SquareTransaction, error) {
	t, err := scanProcessorTxn(s.queryRow(ctx,
		"SELECT "+processorColumns+" FROM square_transactions WHERE "+where+" = ?"+s.lockSuffix(lock),
		key,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("processor transaction", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get processor transaction: %w", err)
	}
	return t, nil
}

// GetProcessorTransaction retrieves a processor transaction by ID.
func (s *queries) GetProcessorTransaction(ctx context.Context, id string) (*models.SquareTransaction, error) {
	return s.getProcessorTxn(ctx, id, "id", false)
}

// GetProcessorTransactionByPaymentID retrieves a transaction by the processor's payment id.
func (s *queries) GetProcessorTransactionByPaymentID(ctx context.Context, processorPaymentID string) (*models.SquareTransaction, error) {
	return s.getProcessorTxn(ctx, processorPaymentID, "processor_payment_id", false)
}

// LockProcessorTransaction retrieves and locks a processor transaction.
func (s *queries) LockProcessorTransaction(ctx context.Context, id string) (*models.SquareTransaction, error) {
	return s.getProcessorTxn(ctx, id, "id", true)
}

// LockProcessorTransactionByPaymentID retrieves and locks a transaction by the processor's payment id.
func (s *queries) LockProcessorTransactionByPaymentID(ctx context.Context, processorPaymentID string) (*models.SquareTransaction, error) {
	return s.getProcessorTxn(ctx, processorPaymentID, "processor_payment_id", true)
}

// UpdateProcessorTransaction writes back every mutable field of a transaction.
func (s *queries) UpdateProcessorTransaction(ctx context.Context, txn *models.SquareTransaction) error {
	return s.execOne(ctx, "processor transaction", txn.ID,
		"UPDATE square_transactions SET amount_minor = ?, fee_minor = ?, net_minor = ?, status = ?, buyer_email = ?, "+
			"state = ?, is_reconciled = ?, unit_id = ?, account_id = ?, payment_id = ?, updated_at = ? WHERE id = ?",
		txn.AmountMinor, txn.FeeMinor, txn.NetMinor, txn.Status, txn.BuyerEmail,
		txn.State, txn.IsReconciled, txn.UnitID, txn.AccountID, txn.PaymentID, toMicros(txn.UpdatedAt), txn.ID,
	)
}

// ListUnlinkedTransactions returns unmatched processor transactions, oldest first.
func (s *queries) ListUnlinkedTransactions(ctx context.Context) ([]*models.SquareTransaction, error) {
	rows, err := s.query(ctx,
		"SELECT "+processorColumns+" FROM square_transactions WHERE state = ? ORDER BY received_at, id",
		models.ReconcileUnlinked,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list processor transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.SquareTransaction
	for rows.Next() {
		t, err := scanProcessorTxn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan processor transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate processor transactions: %w", err)
	}
	return txns, nil
}
