// Package ids generates prefixed, K-sortable identifiers for ledger objects,
// e.g. "je_01h2xcejqtf2nbrexx3vqjhp41" for a journal entry.
package ids

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the object type encoded in an id.
type Prefix string

const (
	PrefixUnit          Prefix = "unit"
	PrefixAccount       Prefix = "acct"
	PrefixEntry         Prefix = "je"
	PrefixLine          Prefix = "jl"
	PrefixBillingRecord Prefix = "bill"
	PrefixCharge        Prefix = "chg"
	PrefixPayment       Prefix = "pay"
	PrefixProcessorTxn  Prefix = "sqtx"
)

// New generates a new id with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) string {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("ids: invalid prefix %q: %v", prefix, err))
	}
	return tid.String()
}

// Check parses s and verifies that it carries the expected prefix.
func Check(s string, expected Prefix) error {
	if s == "" {
		return fmt.Errorf("ids: empty %s id", expected)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return fmt.Errorf("ids: parse %q: %w", s, err)
	}
	if Prefix(tid.Prefix()) != expected {
		return fmt.Errorf("ids: expected prefix %q, got %q", expected, tid.Prefix())
	}
	return nil
}
