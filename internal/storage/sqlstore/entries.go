package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/troopledger/internal/ids"
	"github.com/mmynk/troopledger/internal/models"
)

const entryColumns = "id, unit_id, description, entry_type, source_type, source_id, external_ref, " +
	"is_posted, is_void, void_reason, voided_at, reverses_entry_id, reversed_by_entry_id, created_by, created_at"

func scanEntry(row scanner) (*models.JournalEntry, error) {
	e := &models.JournalEntry{}
	var voidedAt sql.NullInt64
	var createdAt int64
	err := row.Scan(&e.ID, &e.UnitID, &e.Description, &e.Type, &e.SourceType, &e.SourceID, &e.ExternalRef,
		&e.IsPosted, &e.IsVoid, &e.VoidReason, &voidedAt, &e.ReversesEntryID, &e.ReversedByEntryID,
		&e.CreatedBy, &createdAt)
	if err != nil {
		return nil, err
	}
	e.VoidedAt = timePtr(voidedAt)
	e.CreatedAt = fromMicros(createdAt)
	return e, nil
}

// InsertEntry persists an entry and its lines.
func (s *queries) InsertEntry(ctx context.Context, entry *models.JournalEntry) error {
	_, err := s.exec(ctx,
		"INSERT INTO journal_entries ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entry.ID, entry.UnitID, entry.Description, entry.Type, entry.SourceType, entry.SourceID, entry.ExternalRef,
		entry.IsPosted, entry.IsVoid, entry.VoidReason, nullMicros(entry.VoidedAt), entry.ReversesEntryID,
		entry.ReversedByEntryID, entry.CreatedBy, toMicros(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	for i := range entry.Lines {
		line := &entry.Lines[i]
		if line.ID == "" {
			line.ID = ids.New(ids.PrefixLine)
		}
		line.EntryID = entry.ID

		_, err = s.exec(ctx,
			"INSERT INTO journal_lines (id, entry_id, account_id, kind, debit, credit, line_no) VALUES (?, ?, ?, ?, ?, ?, ?)",
			line.ID, entry.ID, line.AccountID, line.Kind, line.Debit, line.Credit, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert journal line: %w", err)
		}
	}
	return nil
}

func (s *queries) getEntry(ctx context.Context, entryID string, lock bool) (*models.JournalEntry, error) {
	e, err := scanEntry(s.queryRow(ctx,
		"SELECT "+entryColumns+" FROM journal_entries WHERE id = ?"+s.lockSuffix(lock),
		entryID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("journal entry", entryID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}
	if err := s.loadLines(ctx, []*models.JournalEntry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntry retrieves an entry with its lines.
func (s *queries) GetEntry(ctx context.Context, entryID string) (*models.JournalEntry, error) {
	return s.getEntry(ctx, entryID, false)
}

// LockEntry retrieves and locks an entry with its lines.
func (s *queries) LockEntry(ctx context.Context, entryID string) (*models.JournalEntry, error) {
	return s.getEntry(ctx, entryID, true)
}

// MarkEntryVoid flags an entry void. Its lines are left untouched.
func (s *queries) MarkEntryVoid(ctx context.Context, entryID, reason, reversedBy string, at time.Time) error {
	return s.execOne(ctx, "journal entry", entryID,
		"UPDATE journal_entries SET is_void = ?, void_reason = ?, voided_at = ?, reversed_by_entry_id = ? WHERE id = ?",
		true, reason, toMicros(at), reversedBy, entryID,
	)
}

// ListAccountEntries returns the newest entries touching an account.
func (s *queries) ListAccountEntries(ctx context.Context, accountID string, limit int) ([]*models.JournalEntry, error) {
	query := "SELECT " + entryColumns + " FROM journal_entries" +
		" WHERE id IN (SELECT entry_id FROM journal_lines WHERE account_id = ?)" +
		" ORDER BY created_at DESC, id DESC"
	args := []any{accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	var entries []*models.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal entries: %w", err)
	}

	if err := s.loadLines(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// loadLines fills in the lines of the given entries.
func (s *queries) loadLines(ctx context.Context, entries []*models.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	byID := make(map[string]*models.JournalEntry, len(entries))
	entryIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		e.Lines = nil
		byID[e.ID] = e
		entryIDs = append(entryIDs, e.ID)
	}

	rows, err := s.query(ctx,
		"SELECT id, entry_id, account_id, kind, debit, credit FROM journal_lines WHERE entry_id IN ("+
			placeholders(len(entryIDs))+") ORDER BY entry_id, line_no",
		stringArgs(entryIDs)...,
	)
	if err != nil {
		return fmt.Errorf("failed to get journal lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l models.JournalLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.Kind, &l.Debit, &l.Credit); err != nil {
			return fmt.Errorf("failed to scan journal line: %w", err)
		}
		if e, ok := byID[l.EntryID]; ok {
			e.Lines = append(e.Lines, l)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate journal lines: %w", err)
	}
	return nil
}

const postedLineQuery = "SELECT l.id, l.entry_id, l.account_id, l.kind, l.debit, l.credit, e.is_void, " +
	"CASE WHEN e.reverses_entry_id <> '' THEN 1 ELSE 0 END " +
	"FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id " +
	"WHERE e.is_posted = ? AND "

// ListPostedLines returns every posted line of a unit.
func (s *queries) ListPostedLines(ctx context.Context, unitID string) ([]models.PostedLine, error) {
	return s.listPostedLines(ctx, postedLineQuery+"e.unit_id = ? ORDER BY e.created_at, e.id, l.line_no", true, unitID)
}

// ListAccountLines returns every posted line of one account.
func (s *queries) ListAccountLines(ctx context.Context, accountID string) ([]models.PostedLine, error) {
	return s.listPostedLines(ctx, postedLineQuery+"l.account_id = ? ORDER BY e.created_at, e.id, l.line_no", true, accountID)
}

func (s *queries) listPostedLines(ctx context.Context, query string, args ...any) ([]models.PostedLine, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posted lines: %w", err)
	}
	defer rows.Close()

	var lines []models.PostedLine
	for rows.Next() {
		var l models.PostedLine
		var reversal int64
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.Kind, &l.Debit, &l.Credit, &l.EntryVoid, &reversal); err != nil {
			return nil, fmt.Errorf("failed to scan posted line: %w", err)
		}
		l.IsReversal = reversal == 1
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posted lines: %w", err)
	}
	return lines, nil
}
