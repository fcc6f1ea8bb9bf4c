package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/troopledger/internal/models"
)

const recordColumns = "id, unit_id, description, total_amount, billing_date, is_void, void_reason, voided_at, " +
	"entry_id, created_by, created_at"

const chargeColumns = "id, record_id, account_id, amount, is_paid, payment_id, is_void, void_reason, " +
	"void_entry_id, voided_at, created_at"

func scanRecord(row scanner) (*models.BillingRecord, error) {
	r := &models.BillingRecord{}
	var billingDate, createdAt int64
	var voidedAt sql.NullInt64
	err := row.Scan(&r.ID, &r.UnitID, &r.Description, &r.TotalAmount, &billingDate, &r.IsVoid, &r.VoidReason,
		&voidedAt, &r.EntryID, &r.CreatedBy, &createdAt)
	if err != nil {
		return nil, err
	}
	r.BillingDate = fromMicros(billingDate)
	r.VoidedAt = timePtr(voidedAt)
	r.CreatedAt = fromMicros(createdAt)
	return r, nil
}

func scanCharge(row scanner) (*models.BillingCharge, error) {
	c := &models.BillingCharge{}
	var createdAt int64
	var voidedAt sql.NullInt64
	err := row.Scan(&c.ID, &c.RecordID, &c.AccountID, &c.Amount, &c.IsPaid, &c.PaymentID, &c.IsVoid,
		&c.VoidReason, &c.VoidEntryID, &voidedAt, &createdAt)
	if err != nil {
		return nil, err
	}
	c.VoidedAt = timePtr(voidedAt)
	c.CreatedAt = fromMicros(createdAt)
	return c, nil
}

// InsertBillingRecord persists a record and its charges in input order.
func (s *queries) InsertBillingRecord(ctx context.Context, record *models.BillingRecord) error {
	_, err := s.exec(ctx,
		"INSERT INTO billing_records ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		record.ID, record.UnitID, record.Description, record.TotalAmount, toMicros(record.BillingDate),
		record.IsVoid, record.VoidReason, nullMicros(record.VoidedAt), record.EntryID, record.CreatedBy,
		toMicros(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert billing record: %w", err)
	}

	for i := range record.Charges {
		c := &record.Charges[i]
		c.RecordID = record.ID
		_, err = s.exec(ctx,
			"INSERT INTO billing_charges ("+chargeColumns+", position) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			c.ID, record.ID, c.AccountID, c.Amount, c.IsPaid, c.PaymentID, c.IsVoid, c.VoidReason,
			c.VoidEntryID, nullMicros(c.VoidedAt), toMicros(c.CreatedAt), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert billing charge: %w", err)
		}
	}
	return nil
}

func (s *queries) getRecord(ctx context.Context, recordID string, lock bool) (*models.BillingRecord, error) {
	r, err := scanRecord(s.queryRow(ctx,
		"SELECT "+recordColumns+" FROM billing_records WHERE id = ?"+s.lockSuffix(lock),
		recordID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("billing record", recordID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get billing record: %w", err)
	}

	rows, err := s.query(ctx,
		"SELECT "+chargeColumns+" FROM billing_charges WHERE record_id = ? ORDER BY position"+s.lockSuffix(lock),
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get billing charges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan billing charge: %w", err)
		}
		r.Charges = append(r.Charges, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate billing charges: %w", err)
	}
	return r, nil
}

// GetBillingRecord retrieves a record with all of its charges.
func (s *queries) GetBillingRecord(ctx context.Context, recordID string) (*models.BillingRecord, error) {
	return s.getRecord(ctx, recordID, false)
}

// LockBillingRecord locks a record and all of its charges.
func (s *queries) LockBillingRecord(ctx context.Context, recordID string) (*models.BillingRecord, error) {
	return s.getRecord(ctx, recordID, true)
}

// MarkRecordVoid flags a billing record void.
func (s *queries) MarkRecordVoid(ctx context.Context, recordID, reason string, at time.Time) error {
	return s.execOne(ctx, "billing record", recordID,
		"UPDATE billing_records SET is_void = ?, void_reason = ?, voided_at = ? WHERE id = ?",
		true, reason, toMicros(at), recordID,
	)
}

func (s *queries) getCharge(ctx context.Context, chargeID string, lock bool) (*models.BillingCharge, error) {
	c, err := scanCharge(s.queryRow(ctx,
		"SELECT "+chargeColumns+" FROM billing_charges WHERE id = ?"+s.lockSuffix(lock),
		chargeID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("billing charge", chargeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get billing charge: %w", err)
	}
	return c, nil
}

// GetCharge retrieves a billing charge by ID.
func (s *queries) GetCharge(ctx context.Context, chargeID string) (*models.BillingCharge, error) {
	return s.getCharge(ctx, chargeID, false)
}

// LockCharge retrieves and locks a billing charge.
func (s *queries) LockCharge(ctx context.Context, chargeID string) (*models.BillingCharge, error) {
	return s.getCharge(ctx, chargeID, true)
}

// MarkChargeVoid flags a charge void and records its compensating entry.
func (s *queries) MarkChargeVoid(ctx context.Context, chargeID, reason, voidEntryID string, at time.Time) error {
	return s.execOne(ctx, "billing charge", chargeID,
		"UPDATE billing_charges SET is_void = ?, void_reason = ?, void_entry_id = ?, voided_at = ? WHERE id = ?",
		true, reason, voidEntryID, toMicros(at), chargeID,
	)
}

// MarkChargePaid flags a charge as paid by a payment.
func (s *queries) MarkChargePaid(ctx context.Context, chargeID, paymentID string) error {
	return s.execOne(ctx, "billing charge", chargeID,
		"UPDATE billing_charges SET is_paid = ?, payment_id = ? WHERE id = ?",
		true, paymentID, chargeID,
	)
}

// ReleaseCharges clears the paid flag of every charge paid by paymentID.
func (s *queries) ReleaseCharges(ctx context.Context, paymentID string) error {
	_, err := s.exec(ctx,
		"UPDATE billing_charges SET is_paid = ?, payment_id = '' WHERE payment_id = ?",
		false, paymentID,
	)
	if err != nil {
		return fmt.Errorf("failed to release billing charges: %w", err)
	}
	return nil
}
