package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/troopledger/internal/models"
)

const paymentColumns = "id, unit_id, account_id, amount, fee_amount, net_amount, method, processor_ref, " +
	"status, entry_id, created_by, created_at"

func scanPayment(row scanner) (*models.Payment, error) {
	p := &models.Payment{}
	var createdAt int64
	err := row.Scan(&p.ID, &p.UnitID, &p.AccountID, &p.Amount, &p.FeeAmount, &p.NetAmount, &p.Method,
		&p.ProcessorRef, &p.Status, &p.EntryID, &p.CreatedBy, &createdAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = fromMicros(createdAt)
	return p, nil
}

// InsertPayment persists a payment and its charge allocations.
func (s *queries) InsertPayment(ctx context.Context, payment *models.Payment) error {
	_, err := s.exec(ctx,
		"INSERT INTO payments ("+paymentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		payment.ID, payment.UnitID, payment.AccountID, payment.Amount, payment.FeeAmount, payment.NetAmount,
		payment.Method, payment.ProcessorRef, payment.Status, payment.EntryID, payment.CreatedBy,
		toMicros(payment.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	for i, chargeID := range payment.ChargeIDs {
		_, err = s.exec(ctx,
			"INSERT INTO payment_allocations (payment_id, charge_id, position) VALUES (?, ?, ?)",
			payment.ID, chargeID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment allocation: %w", err)
		}
	}
	return nil
}

func (s *queries) getPayment(ctx context.Context, what, key, where string) (*models.Payment, error) {
	p, err := scanPayment(s.queryRow(ctx, "SELECT "+paymentColumns+" FROM payments WHERE "+where+" = ?", key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(what, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	rows, err := s.query(ctx,
		"SELECT charge_id FROM payment_allocations WHERE payment_id = ? ORDER BY position",
		p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chargeID string
		if err := rows.Scan(&chargeID); err != nil {
			return nil, fmt.Errorf("failed to scan payment allocation: %w", err)
		}
		p.ChargeIDs = append(p.ChargeIDs, chargeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment allocations: %w", err)
	}
	return p, nil
}

// GetPayment retrieves a payment by ID.
func (s *queries) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	return s.getPayment(ctx, "payment", paymentID, "id")
}

// GetPaymentByEntry retrieves the payment that produced an entry.
func (s *queries) GetPaymentByEntry(ctx context.Context, entryID string) (*models.Payment, error) {
	return s.getPayment(ctx, "payment for entry", entryID, "entry_id")
}

// GetPaymentByProcessorRef retrieves the payment recorded for a processor payment id.
func (s *queries) GetPaymentByProcessorRef(ctx context.Context, processorRef string) (*models.Payment, error) {
	if processorRef == "" {
		return nil, notFound("payment for processor ref", processorRef)
	}
	return s.getPayment(ctx, "payment for processor ref", processorRef, "processor_ref")
}

// SetPaymentStatus updates a payment's status.
func (s *queries) SetPaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error {
	return s.execOne(ctx, "payment", paymentID,
		"UPDATE payments SET status = ? WHERE id = ?",
		status, paymentID,
	)
}
