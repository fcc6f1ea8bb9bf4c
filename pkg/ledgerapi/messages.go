package ledgerapi

import "time"

type Unit struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	CardFeePercent     string    `json:"card_fee_percent"`
	CardFeeFixedCents  int64     `json:"card_fee_fixed_cents"`
	OperatingAccountID string    `json:"operating_account_id"`
	CreatedAt          time.Time `json:"created_at"`
}

type Account struct {
	ID                  string    `json:"id"`
	UnitID              string    `json:"unit_id"`
	Kind                string    `json:"kind"`
	ScoutID             string    `json:"scout_id,omitempty"`
	Name                string    `json:"name"`
	PayerEmail          string    `json:"payer_email,omitempty"`
	BillingBalanceCents int64     `json:"billing_balance_cents"`
	FundsBalanceCents   int64     `json:"funds_balance_cents"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type JournalLine struct {
	AccountID   string `json:"account_id" validate:"required"`
	Kind        string `json:"kind" validate:"required,oneof=billing funds"`
	DebitCents  int64  `json:"debit_cents,omitempty" validate:"gte=0"`
	CreditCents int64  `json:"credit_cents,omitempty" validate:"gte=0"`
}

type JournalEntry struct {
	ID                string        `json:"id"`
	UnitID            string        `json:"unit_id"`
	Description       string        `json:"description"`
	Type              string        `json:"type"`
	SourceType        string        `json:"source_type"`
	SourceID          string        `json:"source_id,omitempty"`
	ExternalRef       string        `json:"external_ref,omitempty"`
	IsVoid            bool          `json:"is_void"`
	VoidReason        string        `json:"void_reason,omitempty"`
	ReversesEntryID   string        `json:"reverses_entry_id,omitempty"`
	ReversedByEntryID string        `json:"reversed_by_entry_id,omitempty"`
	CreatedBy         string        `json:"created_by"`
	CreatedAt         time.Time     `json:"created_at"`
	Lines             []JournalLine `json:"lines"`
}

type BillingCharge struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	AmountCents int64  `json:"amount_cents"`
	IsPaid      bool   `json:"is_paid"`
	PaymentID   string `json:"payment_id,omitempty"`
	IsVoid      bool   `json:"is_void"`
	VoidReason  string `json:"void_reason,omitempty"`
}

type BillingRecord struct {
	ID               string          `json:"id"`
	UnitID           string          `json:"unit_id"`
	Description      string          `json:"description"`
	TotalAmountCents int64           `json:"total_amount_cents"`
	BillingDate      time.Time       `json:"billing_date"`
	EntryID          string          `json:"entry_id"`
	IsVoid           bool            `json:"is_void"`
	VoidReason       string          `json:"void_reason,omitempty"`
	Charges          []BillingCharge `json:"charges"`
}

type Payment struct {
	ID           string    `json:"id"`
	UnitID       string    `json:"unit_id"`
	AccountID    string    `json:"account_id"`
	AmountCents  int64     `json:"amount_cents"`
	FeeCents     int64     `json:"fee_cents"`
	NetCents     int64     `json:"net_cents"`
	Method       string    `json:"method"`
	ProcessorRef string    `json:"processor_ref,omitempty"`
	Status       string    `json:"status"`
	EntryID      string    `json:"entry_id"`
	ChargeIDs    []string  `json:"charge_ids,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type ProcessorTransaction struct {
	ID                 string    `json:"id"`
	ProcessorPaymentID string    `json:"processor_payment_id"`
	AmountMinor        int64     `json:"amount_minor"`
	FeeMinor           int64     `json:"fee_minor"`
	NetMinor           int64     `json:"net_minor"`
	Status             string    `json:"status"`
	BuyerEmail         string    `json:"buyer_email,omitempty"`
	State              string    `json:"state"`
	IsReconciled       bool      `json:"is_reconciled"`
	AccountID          string    `json:"account_id,omitempty"`
	PaymentID          string    `json:"payment_id,omitempty"`
	ReceivedAt         time.Time `json:"received_at"`
}

type Balances struct {
	BillingCents int64 `json:"billing_cents"`
	FundsCents   int64 `json:"funds_cents"`
}

type AccountAudit struct {
	AccountID string   `json:"account_id"`
	Cached    Balances `json:"cached"`
	Derived   Balances `json:"derived"`
	Gross     Balances `json:"gross"`
	OK        bool     `json:"ok"`
}

// Units and accounts

type CreateUnitRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	// CardFeePercent and CardFeeFixedCents default to the server's policy when
	// both are empty.
	CardFeePercent    string `json:"card_fee_percent,omitempty" validate:"omitempty,numeric"`
	CardFeeFixedCents *int64 `json:"card_fee_fixed_cents,omitempty" validate:"omitempty,gte=0"`
}

type OpenScoutAccountRequest struct {
	UnitID     string `json:"unit_id" validate:"required"`
	ScoutID    string `json:"scout_id" validate:"required"`
	Name       string `json:"name" validate:"required,max=200"`
	PayerEmail string `json:"payer_email,omitempty" validate:"omitempty,email"`
}

type GetAccountRequest struct {
	AccountID string `json:"account_id" validate:"required"`
}

type ListAccountsRequest struct {
	UnitID string `json:"unit_id" validate:"required"`
}

type ListAccountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type ListAccountEntriesRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	Limit     int    `json:"limit,omitempty" validate:"gte=0,lte=1000"`
}

type ListAccountEntriesResponse struct {
	Entries []JournalEntry `json:"entries"`
}

// Journal

type GetEntryRequest struct {
	EntryID string `json:"entry_id" validate:"required"`
}

type RecordEntryRequest struct {
	UnitID      string        `json:"unit_id" validate:"required"`
	Description string        `json:"description" validate:"required,max=500"`
	Type        string        `json:"type" validate:"required"`
	ExternalRef string        `json:"external_ref,omitempty"`
	Lines       []JournalLine `json:"lines" validate:"required,min=2,dive"`
}

type EntryResponse struct {
	EntryID string `json:"entry_id"`
}

type VoidEntryRequest struct {
	EntryID string `json:"entry_id" validate:"required"`
	Reason  string `json:"reason" validate:"required"`
}

type VoidEntryResponse struct {
	ReversalEntryID string `json:"reversal_entry_id"`
}

// Billing

type CreateBillingRecordRequest struct {
	UnitID           string    `json:"unit_id" validate:"required"`
	Description      string    `json:"description" validate:"required,max=500"`
	TotalAmountCents int64     `json:"total_amount_cents" validate:"gt=0"`
	AccountIDs       []string  `json:"account_ids" validate:"required,min=1,dive,required"`
	BillingDate      time.Time `json:"billing_date"`
}

type GetBillingRecordRequest struct {
	RecordID string `json:"record_id" validate:"required"`
}

type VoidBillingRecordRequest struct {
	RecordID string `json:"record_id" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

type VoidBillingRecordResponse struct{}

type VoidBillingChargeRequest struct {
	ChargeID string `json:"charge_id" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

// Payments and transfers

type RecordPaymentRequest struct {
	AccountID    string   `json:"account_id" validate:"required"`
	AmountCents  int64    `json:"amount_cents" validate:"gt=0"`
	Method       string   `json:"method" validate:"required,oneof=cash check card"`
	ProcessorRef string   `json:"processor_ref,omitempty"`
	CardToken    string   `json:"card_token,omitempty" validate:"excluded_with=ProcessorRef"`
	ApplyTo      []string `json:"apply_to,omitempty" validate:"dive,required"`
	Note         string   `json:"note,omitempty" validate:"max=500"`
}

type GetPaymentRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
}

type TransferFundsRequest struct {
	AccountID   string `json:"account_id" validate:"required"`
	AmountCents int64  `json:"amount_cents" validate:"gt=0"`
}

type RecordFundraisingCreditRequest struct {
	AccountID   string `json:"account_id" validate:"required"`
	AmountCents int64  `json:"amount_cents" validate:"gt=0"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

// Reconciliation

type LinkTransactionRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	AccountID     string `json:"account_id" validate:"required"`
}

type ReconcileTransactionRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
}

type ListUnlinkedTransactionsRequest struct{}

type ListUnlinkedTransactionsResponse struct {
	Transactions []ProcessorTransaction `json:"transactions"`
}

// Audit

type VerifyAccountRequest struct {
	AccountID string `json:"account_id" validate:"required"`
}

type RebuildBalancesRequest struct {
	UnitID string `json:"unit_id" validate:"required"`
}

type RebuildBalancesResponse struct {
	Corrected []AccountAudit `json:"corrected"`
}

// Processor feed

type ProcessorRecord struct {
	ProcessorPaymentID string `json:"processor_payment_id" validate:"required"`
	AmountMinor        int64  `json:"amount_minor" validate:"gt=0"`
	FeeMinor           int64  `json:"fee_minor" validate:"gte=0,ltefield=AmountMinor"`
	Status             string `json:"status" validate:"required"`
	BuyerEmail         string `json:"buyer_email,omitempty"`
}

type IngestTransactionsRequest struct {
	Records []ProcessorRecord `json:"records" validate:"required,min=1,max=500,dive"`
}

// IngestResult reports what happened to one feed record. Error is set when
// the record could not be ingested; other records are still processed.
type IngestResult struct {
	ProcessorPaymentID string `json:"processor_payment_id"`
	TransactionID      string `json:"transaction_id,omitempty"`
	State              string `json:"state,omitempty"`
	PaymentID          string `json:"payment_id,omitempty"`
	Error              string `json:"error,omitempty"`
}

type IngestTransactionsResponse struct {
	Results []IngestResult `json:"results"`
}
