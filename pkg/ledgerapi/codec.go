// Package ledgerapi is the wire contract of the troop ledger server: the
// request and response messages, procedure names, and connect handlers and
// clients for LedgerService and ProcessorFeedService. Messages are plain Go
// structs sent as JSON; amounts are always integer cents.
package ledgerapi

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec serializes messages as JSON. It replaces connect's protobuf JSON codec
// under the same "json" name, so requests use Content-Type application/json.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// WithJSON configures a handler or client to use Codec.
func WithJSON() connect.Option {
	return connect.WithCodec(Codec{})
}
