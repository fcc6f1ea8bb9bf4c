package ledger

import "context"

// CaptureRequest asks the card processor to charge a tokenized card.
type CaptureRequest struct {
	// SourceToken is the card nonce produced by the processor's client SDK.
	SourceToken    string
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
	Note           string
}

// CaptureResult is the processor's answer to a successful capture call.
type CaptureResult struct {
	ProcessorPaymentID string
	FeeMinor           int64
	Status             string
}

// CaptureGateway captures card payments at the external processor. It is the
// only blocking external call the ledger makes, and it is never retried.
type CaptureGateway interface {
	Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error)
}
