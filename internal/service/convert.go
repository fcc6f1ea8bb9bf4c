package service

import (
	"github.com/mmynk/troopledger/internal/ledger"
	"github.com/mmynk/troopledger/internal/models"
	"github.com/mmynk/troopledger/pkg/ledgerapi"
)

func toAPIUnit(u *models.Unit) *ledgerapi.Unit {
	return &ledgerapi.Unit{
		ID:                 u.ID,
		Name:               u.Name,
		CardFeePercent:     u.FeePolicy.Percent.String(),
		CardFeeFixedCents:  int64(u.FeePolicy.Fixed),
		OperatingAccountID: u.OperatingAccountID,
		CreatedAt:          u.CreatedAt,
	}
}

func toAPIAccount(a *models.Account) ledgerapi.Account {
	return ledgerapi.Account{
		ID:                  a.ID,
		UnitID:              a.UnitID,
		Kind:                string(a.Kind),
		ScoutID:             a.ScoutID,
		Name:                a.Name,
		PayerEmail:          a.PayerEmail,
		BillingBalanceCents: int64(a.BillingBalance),
		FundsBalanceCents:   int64(a.FundsBalance),
		UpdatedAt:           a.UpdatedAt,
	}
}

func toAPIEntry(e *models.JournalEntry) ledgerapi.JournalEntry {
	lines := make([]ledgerapi.JournalLine, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = ledgerapi.JournalLine{
			AccountID:   l.AccountID,
			Kind:        string(l.Kind),
			DebitCents:  int64(l.Debit),
			CreditCents: int64(l.Credit),
		}
	}
	return ledgerapi.JournalEntry{
		ID:                e.ID,
		UnitID:            e.UnitID,
		Description:       e.Description,
		Type:              string(e.Type),
		SourceType:        e.SourceType,
		SourceID:          e.SourceID,
		ExternalRef:       e.ExternalRef,
		IsVoid:            e.IsVoid,
		VoidReason:        e.VoidReason,
		ReversesEntryID:   e.ReversesEntryID,
		ReversedByEntryID: e.ReversedByEntryID,
		CreatedBy:         e.CreatedBy,
		CreatedAt:         e.CreatedAt,
		Lines:             lines,
	}
}

func fromAPILines(lines []ledgerapi.JournalLine) []models.JournalLine {
	out := make([]models.JournalLine, len(lines))
	for i, l := range lines {
		out[i] = models.JournalLine{
			AccountID: l.AccountID,
			Kind:      models.BalanceKind(l.Kind),
			Debit:     models.Money(l.DebitCents),
			Credit:    models.Money(l.CreditCents),
		}
	}
	return out
}

func toAPIBillingRecord(r *models.BillingRecord) *ledgerapi.BillingRecord {
	charges := make([]ledgerapi.BillingCharge, len(r.Charges))
	for i, c := range r.Charges {
		charges[i] = ledgerapi.BillingCharge{
			ID:          c.ID,
			AccountID:   c.AccountID,
			AmountCents: int64(c.Amount),
			IsPaid:      c.IsPaid,
			PaymentID:   c.PaymentID,
			IsVoid:      c.IsVoid,
			VoidReason:  c.VoidReason,
		}
	}
	return &ledgerapi.BillingRecord{
		ID:               r.ID,
		UnitID:           r.UnitID,
		Description:      r.Description,
		TotalAmountCents: int64(r.TotalAmount),
		BillingDate:      r.BillingDate,
		EntryID:          r.EntryID,
		IsVoid:           r.IsVoid,
		VoidReason:       r.VoidReason,
		Charges:          charges,
	}
}

func toAPIPayment(p *models.Payment) *ledgerapi.Payment {
	return &ledgerapi.Payment{
		ID:           p.ID,
		UnitID:       p.UnitID,
		AccountID:    p.AccountID,
		AmountCents:  int64(p.Amount),
		FeeCents:     int64(p.FeeAmount),
		NetCents:     int64(p.NetAmount),
		Method:       string(p.Method),
		ProcessorRef: p.ProcessorRef,
		Status:       string(p.Status),
		EntryID:      p.EntryID,
		ChargeIDs:    p.ChargeIDs,
		CreatedAt:    p.CreatedAt,
	}
}

func toAPITransaction(t *models.SquareTransaction) ledgerapi.ProcessorTransaction {
	return ledgerapi.ProcessorTransaction{
		ID:                 t.ID,
		ProcessorPaymentID: t.ProcessorPaymentID,
		AmountMinor:        t.AmountMinor,
		FeeMinor:           t.FeeMinor,
		NetMinor:           t.NetMinor,
		Status:             t.Status,
		BuyerEmail:         t.BuyerEmail,
		State:              string(t.State),
		IsReconciled:       t.IsReconciled,
		AccountID:          t.AccountID,
		PaymentID:          t.PaymentID,
		ReceivedAt:         t.ReceivedAt,
	}
}

func toAPIAudit(a ledger.AccountAudit) ledgerapi.AccountAudit {
	return ledgerapi.AccountAudit{
		AccountID: a.AccountID,
		Cached:    ledgerapi.Balances{BillingCents: int64(a.Cached.Billing), FundsCents: int64(a.Cached.Funds)},
		Derived:   ledgerapi.Balances{BillingCents: int64(a.Derived.Billing), FundsCents: int64(a.Derived.Funds)},
		Gross:     ledgerapi.Balances{BillingCents: int64(a.Gross.Billing), FundsCents: int64(a.Gross.Funds)},
		OK:        a.OK(),
	}
}
