package ledgerapi

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const (
	LedgerServiceName        = "troopledger.v1.LedgerService"
	ProcessorFeedServiceName = "troopledger.v1.ProcessorFeedService"
)

// Procedure names, as used in request paths.
const (
	LedgerServiceCreateUnitProcedure                = "/troopledger.v1.LedgerService/CreateUnit"
	LedgerServiceOpenScoutAccountProcedure          = "/troopledger.v1.LedgerService/OpenScoutAccount"
	LedgerServiceGetAccountProcedure                = "/troopledger.v1.LedgerService/GetAccount"
	LedgerServiceListAccountsProcedure              = "/troopledger.v1.LedgerService/ListAccounts"
	LedgerServiceListAccountEntriesProcedure        = "/troopledger.v1.LedgerService/ListAccountEntries"
	LedgerServiceGetEntryProcedure                  = "/troopledger.v1.LedgerService/GetEntry"
	LedgerServiceRecordEntryProcedure               = "/troopledger.v1.LedgerService/RecordEntry"
	LedgerServiceVoidEntryProcedure                 = "/troopledger.v1.LedgerService/VoidEntry"
	LedgerServiceCreateBillingRecordProcedure       = "/troopledger.v1.LedgerService/CreateBillingRecord"
	LedgerServiceGetBillingRecordProcedure          = "/troopledger.v1.LedgerService/GetBillingRecord"
	LedgerServiceVoidBillingRecordProcedure         = "/troopledger.v1.LedgerService/VoidBillingRecord"
	LedgerServiceVoidBillingChargeProcedure         = "/troopledger.v1.LedgerService/VoidBillingCharge"
	LedgerServiceRecordPaymentProcedure             = "/troopledger.v1.LedgerService/RecordPayment"
	LedgerServiceGetPaymentProcedure                = "/troopledger.v1.LedgerService/GetPayment"
	LedgerServiceTransferFundsToBillingProcedure    = "/troopledger.v1.LedgerService/TransferFundsToBilling"
	LedgerServiceRecordFundraisingCreditProcedure   = "/troopledger.v1.LedgerService/RecordFundraisingCredit"
	LedgerServiceLinkTransactionProcedure           = "/troopledger.v1.LedgerService/LinkTransaction"
	LedgerServiceReconcileTransactionProcedure      = "/troopledger.v1.LedgerService/ReconcileTransaction"
	LedgerServiceListUnlinkedTransactionsProcedure  = "/troopledger.v1.LedgerService/ListUnlinkedTransactions"
	LedgerServiceVerifyAccountProcedure             = "/troopledger.v1.LedgerService/VerifyAccount"
	LedgerServiceRebuildBalancesProcedure           = "/troopledger.v1.LedgerService/RebuildBalances"
	ProcessorFeedServiceIngestTransactionsProcedure = "/troopledger.v1.ProcessorFeedService/IngestTransactions"
)

// LedgerServiceHandler is implemented by the ledger server.
type LedgerServiceHandler interface {
	CreateUnit(context.Context, *connect.Request[CreateUnitRequest]) (*connect.Response[Unit], error)
	OpenScoutAccount(context.Context, *connect.Request[OpenScoutAccountRequest]) (*connect.Response[Account], error)
	GetAccount(context.Context, *connect.Request[GetAccountRequest]) (*connect.Response[Account], error)
	ListAccounts(context.Context, *connect.Request[ListAccountsRequest]) (*connect.Response[ListAccountsResponse], error)
	ListAccountEntries(context.Context, *connect.Request[ListAccountEntriesRequest]) (*connect.Response[ListAccountEntriesResponse], error)
	GetEntry(context.Context, *connect.Request[GetEntryRequest]) (*connect.Response[JournalEntry], error)
	RecordEntry(context.Context, *connect.Request[RecordEntryRequest]) (*connect.Response[EntryResponse], error)
	VoidEntry(context.Context, *connect.Request[VoidEntryRequest]) (*connect.Response[VoidEntryResponse], error)
	CreateBillingRecord(context.Context, *connect.Request[CreateBillingRecordRequest]) (*connect.Response[BillingRecord], error)
	GetBillingRecord(context.Context, *connect.Request[GetBillingRecordRequest]) (*connect.Response[BillingRecord], error)
	VoidBillingRecord(context.Context, *connect.Request[VoidBillingRecordRequest]) (*connect.Response[VoidBillingRecordResponse], error)
	VoidBillingCharge(context.Context, *connect.Request[VoidBillingChargeRequest]) (*connect.Response[EntryResponse], error)
	RecordPayment(context.Context, *connect.Request[RecordPaymentRequest]) (*connect.Response[Payment], error)
	GetPayment(context.Context, *connect.Request[GetPaymentRequest]) (*connect.Response[Payment], error)
	TransferFundsToBilling(context.Context, *connect.Request[TransferFundsRequest]) (*connect.Response[EntryResponse], error)
	RecordFundraisingCredit(context.Context, *connect.Request[RecordFundraisingCreditRequest]) (*connect.Response[EntryResponse], error)
	LinkTransaction(context.Context, *connect.Request[LinkTransactionRequest]) (*connect.Response[ProcessorTransaction], error)
	ReconcileTransaction(context.Context, *connect.Request[ReconcileTransactionRequest]) (*connect.Response[Payment], error)
	ListUnlinkedTransactions(context.Context, *connect.Request[ListUnlinkedTransactionsRequest]) (*connect.Response[ListUnlinkedTransactionsResponse], error)
	VerifyAccount(context.Context, *connect.Request[VerifyAccountRequest]) (*connect.Response[AccountAudit], error)
	RebuildBalances(context.Context, *connect.Request[RebuildBalancesRequest]) (*connect.Response[RebuildBalancesResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler for every LedgerService
// procedure. It returns the path prefix to mount the handler on.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	handlers := map[string]http.Handler{
		LedgerServiceCreateUnitProcedure:               connect.NewUnaryHandler(LedgerServiceCreateUnitProcedure, svc.CreateUnit, opts...),
		LedgerServiceOpenScoutAccountProcedure:         connect.NewUnaryHandler(LedgerServiceOpenScoutAccountProcedure, svc.OpenScoutAccount, opts...),
		LedgerServiceGetAccountProcedure:               connect.NewUnaryHandler(LedgerServiceGetAccountProcedure, svc.GetAccount, opts...),
		LedgerServiceListAccountsProcedure:             connect.NewUnaryHandler(LedgerServiceListAccountsProcedure, svc.ListAccounts, opts...),
		LedgerServiceListAccountEntriesProcedure:       connect.NewUnaryHandler(LedgerServiceListAccountEntriesProcedure, svc.ListAccountEntries, opts...),
		LedgerServiceGetEntryProcedure:                 connect.NewUnaryHandler(LedgerServiceGetEntryProcedure, svc.GetEntry, opts...),
		LedgerServiceRecordEntryProcedure:              connect.NewUnaryHandler(LedgerServiceRecordEntryProcedure, svc.RecordEntry, opts...),
		LedgerServiceVoidEntryProcedure:                connect.NewUnaryHandler(LedgerServiceVoidEntryProcedure, svc.VoidEntry, opts...),
		LedgerServiceCreateBillingRecordProcedure:      connect.NewUnaryHandler(LedgerServiceCreateBillingRecordProcedure, svc.CreateBillingRecord, opts...),
		LedgerServiceGetBillingRecordProcedure:         connect.NewUnaryHandler(LedgerServiceGetBillingRecordProcedure, svc.GetBillingRecord, opts...),
		LedgerServiceVoidBillingRecordProcedure:        connect.NewUnaryHandler(LedgerServiceVoidBillingRecordProcedure, svc.VoidBillingRecord, opts...),
		LedgerServiceVoidBillingChargeProcedure:        connect.NewUnaryHandler(LedgerServiceVoidBillingChargeProcedure, svc.VoidBillingCharge, opts...),
		LedgerServiceRecordPaymentProcedure:            connect.NewUnaryHandler(LedgerServiceRecordPaymentProcedure, svc.RecordPayment, opts...),
		LedgerServiceGetPaymentProcedure:               connect.NewUnaryHandler(LedgerServiceGetPaymentProcedure, svc.GetPayment, opts...),
		LedgerServiceTransferFundsToBillingProcedure:   connect.NewUnaryHandler(LedgerServiceTransferFundsToBillingProcedure, svc.TransferFundsToBilling, opts...),
		LedgerServiceRecordFundraisingCreditProcedure:  connect.NewUnaryHandler(LedgerServiceRecordFundraisingCreditProcedure, svc.RecordFundraisingCredit, opts...),
		LedgerServiceLinkTransactionProcedure:          connect.NewUnaryHandler(LedgerServiceLinkTransactionProcedure, svc.LinkTransaction, opts...),
		LedgerServiceReconcileTransactionProcedure:     connect.NewUnaryHandler(LedgerServiceReconcileTransactionProcedure, svc.ReconcileTransaction, opts...),
		LedgerServiceListUnlinkedTransactionsProcedure: connect.NewUnaryHandler(LedgerServiceListUnlinkedTransactionsProcedure, svc.ListUnlinkedTransactions, opts...),
		LedgerServiceVerifyAccountProcedure:            connect.NewUnaryHandler(LedgerServiceVerifyAccountProcedure, svc.VerifyAccount, opts...),
		LedgerServiceRebuildBalancesProcedure:          connect.NewUnaryHandler(LedgerServiceRebuildBalancesProcedure, svc.RebuildBalances, opts...),
	}
	return "/" + LedgerServiceName + "/", routeProcedures(handlers)
}

// ProcessorFeedServiceHandler is implemented by the processor feed endpoint.
type ProcessorFeedServiceHandler interface {
	IngestTransactions(context.Context, *connect.Request[IngestTransactionsRequest]) (*connect.Response[IngestTransactionsResponse], error)
}

// NewProcessorFeedServiceHandler builds an HTTP handler for the processor
// feed. It returns the path prefix to mount the handler on.
func NewProcessorFeedServiceHandler(svc ProcessorFeedServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	handlers := map[string]http.Handler{
		ProcessorFeedServiceIngestTransactionsProcedure: connect.NewUnaryHandler(ProcessorFeedServiceIngestTransactionsProcedure, svc.IngestTransactions, opts...),
	}
	return "/" + ProcessorFeedServiceName + "/", routeProcedures(handlers)
}

func routeProcedures(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
