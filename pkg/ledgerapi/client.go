package ledgerapi

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// FeedKeyHeader carries the processor feed's shared key.
const FeedKeyHeader = "X-Feed-Key"

// LedgerServiceClient calls a ledger server.
type LedgerServiceClient struct {
	createUnit               *connect.Client[CreateUnitRequest, Unit]
	openScoutAccount         *connect.Client[OpenScoutAccountRequest, Account]
	getAccount               *connect.Client[GetAccountRequest, Account]
	listAccounts             *connect.Client[ListAccountsRequest, ListAccountsResponse]
	listAccountEntries       *connect.Client[ListAccountEntriesRequest, ListAccountEntriesResponse]
	getEntry                 *connect.Client[GetEntryRequest, JournalEntry]
	recordEntry              *connect.Client[RecordEntryRequest, EntryResponse]
	voidEntry                *connect.Client[VoidEntryRequest, VoidEntryResponse]
	createBillingRecord      *connect.Client[CreateBillingRecordRequest, BillingRecord]
	getBillingRecord         *connect.Client[GetBillingRecordRequest, BillingRecord]
	voidBillingRecord        *connect.Client[VoidBillingRecordRequest, VoidBillingRecordResponse]
	voidBillingCharge        *connect.Client[VoidBillingChargeRequest, EntryResponse]
	recordPayment            *connect.Client[RecordPaymentRequest, Payment]
	getPayment               *connect.Client[GetPaymentRequest, Payment]
	transferFundsToBilling   *connect.Client[TransferFundsRequest, EntryResponse]
	recordFundraisingCredit  *connect.Client[RecordFundraisingCreditRequest, EntryResponse]
	linkTransaction          *connect.Client[LinkTransactionRequest, ProcessorTransaction]
	reconcileTransaction     *connect.Client[ReconcileTransactionRequest, Payment]
	listUnlinkedTransactions *connect.Client[ListUnlinkedTransactionsRequest, ListUnlinkedTransactionsResponse]
	verifyAccount            *connect.Client[VerifyAccountRequest, AccountAudit]
	rebuildBalances          *connect.Client[RebuildBalancesRequest, RebuildBalancesResponse]
}

// NewLedgerServiceClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &LedgerServiceClient{
		createUnit:               connect.NewClient[CreateUnitRequest, Unit](httpClient, baseURL+LedgerServiceCreateUnitProcedure, opts...),
		openScoutAccount:         connect.NewClient[OpenScoutAccountRequest, Account](httpClient, baseURL+LedgerServiceOpenScoutAccountProcedure, opts...),
		getAccount:               connect.NewClient[GetAccountRequest, Account](httpClient, baseURL+LedgerServiceGetAccountProcedure, opts...),
		listAccounts:             connect.NewClient[ListAccountsRequest, ListAccountsResponse](httpClient, baseURL+LedgerServiceListAccountsProcedure, opts...),
		listAccountEntries:       connect.NewClient[ListAccountEntriesRequest, ListAccountEntriesResponse](httpClient, baseURL+LedgerServiceListAccountEntriesProcedure, opts...),
		getEntry:                 connect.NewClient[GetEntryRequest, JournalEntry](httpClient, baseURL+LedgerServiceGetEntryProcedure, opts...),
		recordEntry:              connect.NewClient[RecordEntryRequest, EntryResponse](httpClient, baseURL+LedgerServiceRecordEntryProcedure, opts...),
		voidEntry:                connect.NewClient[VoidEntryRequest, VoidEntryResponse](httpClient, baseURL+LedgerServiceVoidEntryProcedure, opts...),
		createBillingRecord:      connect.NewClient[CreateBillingRecordRequest, BillingRecord](httpClient, baseURL+LedgerServiceCreateBillingRecordProcedure, opts...),
		getBillingRecord:         connect.NewClient[GetBillingRecordRequest, BillingRecord](httpClient, baseURL+LedgerServiceGetBillingRecordProcedure, opts...),
		voidBillingRecord:        connect.NewClient[VoidBillingRecordRequest, VoidBillingRecordResponse](httpClient, baseURL+LedgerServiceVoidBillingRecordProcedure, opts...),
		voidBillingCharge:        connect.NewClient[VoidBillingChargeRequest, EntryResponse](httpClient, baseURL+LedgerServiceVoidBillingChargeProcedure, opts...),
		recordPayment:            connect.NewClient[RecordPaymentRequest, Payment](httpClient, baseURL+LedgerServiceRecordPaymentProcedure, opts...),
		getPayment:               connect.NewClient[GetPaymentRequest, Payment](httpClient, baseURL+LedgerServiceGetPaymentProcedure, opts...),
		transferFundsToBilling:   connect.NewClient[TransferFundsRequest, EntryResponse](httpClient, baseURL+LedgerServiceTransferFundsToBillingProcedure, opts...),
		recordFundraisingCredit:  connect.NewClient[RecordFundraisingCreditRequest, EntryResponse](httpClient, baseURL+LedgerServiceRecordFundraisingCreditProcedure, opts...),
		linkTransaction:          connect.NewClient[LinkTransactionRequest, ProcessorTransaction](httpClient, baseURL+LedgerServiceLinkTransactionProcedure, opts...),
		reconcileTransaction:     connect.NewClient[ReconcileTransactionRequest, Payment](httpClient, baseURL+LedgerServiceReconcileTransactionProcedure, opts...),
		listUnlinkedTransactions: connect.NewClient[ListUnlinkedTransactionsRequest, ListUnlinkedTransactionsResponse](httpClient, baseURL+LedgerServiceListUnlinkedTransactionsProcedure, opts...),
		verifyAccount:            connect.NewClient[VerifyAccountRequest, AccountAudit](httpClient, baseURL+LedgerServiceVerifyAccountProcedure, opts...),
		rebuildBalances:          connect.NewClient[RebuildBalancesRequest, RebuildBalancesResponse](httpClient, baseURL+LedgerServiceRebuildBalancesProcedure, opts...),
	}
}

func (c *LedgerServiceClient) CreateUnit(ctx context.Context, req *connect.Request[CreateUnitRequest]) (*connect.Response[Unit], error) {
	return c.createUnit.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) OpenScoutAccount(ctx context.Context, req *connect.Request[OpenScoutAccountRequest]) (*connect.Response[Account], error) {
	return c.openScoutAccount.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetAccount(ctx context.Context, req *connect.Request[GetAccountRequest]) (*connect.Response[Account], error) {
	return c.getAccount.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListAccounts(ctx context.Context, req *connect.Request[ListAccountsRequest]) (*connect.Response[ListAccountsResponse], error) {
	return c.listAccounts.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListAccountEntries(ctx context.Context, req *connect.Request[ListAccountEntriesRequest]) (*connect.Response[ListAccountEntriesResponse], error) {
	return c.listAccountEntries.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetEntry(ctx context.Context, req *connect.Request[GetEntryRequest]) (*connect.Response[JournalEntry], error) {
	return c.getEntry.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordEntry(ctx context.Context, req *connect.Request[RecordEntryRequest]) (*connect.Response[EntryResponse], error) {
	return c.recordEntry.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) VoidEntry(ctx context.Context, req *connect.Request[VoidEntryRequest]) (*connect.Response[VoidEntryResponse], error) {
	return c.voidEntry.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) CreateBillingRecord(ctx context.Context, req *connect.Request[CreateBillingRecordRequest]) (*connect.Response[BillingRecord], error) {
	return c.createBillingRecord.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetBillingRecord(ctx context.Context, req *connect.Request[GetBillingRecordRequest]) (*connect.Response[BillingRecord], error) {
	return c.getBillingRecord.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) VoidBillingRecord(ctx context.Context, req *connect.Request[VoidBillingRecordRequest]) (*connect.Response[VoidBillingRecordResponse], error) {
	return c.voidBillingRecord.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) VoidBillingCharge(ctx context.Context, req *connect.Request[VoidBillingChargeRequest]) (*connect.Response[EntryResponse], error) {
	return c.voidBillingCharge.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordPayment(ctx context.Context, req *connect.Request[RecordPaymentRequest]) (*connect.Response[Payment], error) {
	return c.recordPayment.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetPayment(ctx context.Context, req *connect.Request[GetPaymentRequest]) (*connect.Response[Payment], error) {
	return c.getPayment.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) TransferFundsToBilling(ctx context.Context, req *connect.Request[TransferFundsRequest]) (*connect.Response[EntryResponse], error) {
	return c.transferFundsToBilling.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordFundraisingCredit(ctx context.Context, req *connect.Request[RecordFundraisingCreditRequest]) (*connect.Response[EntryResponse], error) {
	return c.recordFundraisingCredit.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) LinkTransaction(ctx context.Context, req *connect.Request[LinkTransactionRequest]) (*connect.Response[ProcessorTransaction], error) {
	return c.linkTransaction.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ReconcileTransaction(ctx context.Context, req *connect.Request[ReconcileTransactionRequest]) (*connect.Response[Payment], error) {
	return c.reconcileTransaction.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListUnlinkedTransactions(ctx context.Context, req *connect.Request[ListUnlinkedTransactionsRequest]) (*connect.Response[ListUnlinkedTransactionsResponse], error) {
	return c.listUnlinkedTransactions.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) VerifyAccount(ctx context.Context, req *connect.Request[VerifyAccountRequest]) (*connect.Response[AccountAudit], error) {
	return c.verifyAccount.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RebuildBalances(ctx context.Context, req *connect.Request[RebuildBalancesRequest]) (*connect.Response[RebuildBalancesResponse], error) {
	return c.rebuildBalances.CallUnary(ctx, req)
}

// ProcessorFeedServiceClient calls the processor feed endpoint.
type ProcessorFeedServiceClient struct {
	ingestTransactions *connect.Client[IngestTransactionsRequest, IngestTransactionsResponse]
}

// NewProcessorFeedServiceClient creates a feed client for the server at baseURL.
func NewProcessorFeedServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ProcessorFeedServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &ProcessorFeedServiceClient{
		ingestTransactions: connect.NewClient[IngestTransactionsRequest, IngestTransactionsResponse](
			httpClient, baseURL+ProcessorFeedServiceIngestTransactionsProcedure, opts...,
		),
	}
}

func (c *ProcessorFeedServiceClient) IngestTransactions(ctx context.Context, req *connect.Request[IngestTransactionsRequest]) (*connect.Response[IngestTransactionsResponse], error) {
	return c.ingestTransactions.CallUnary(ctx, req)
}

// WithBearerToken sends token in the Authorization header of every request.
func WithBearerToken(token string) connect.ClientOption {
	return withHeader("Authorization", "Bearer "+token)
}

// WithFeedKey sends the processor feed key with every request.
func WithFeedKey(key string) connect.ClientOption {
	return withHeader(FeedKeyHeader, key)
}

func withHeader(key, value string) connect.ClientOption {
	return connect.WithInterceptors(connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set(key, value)
			return next(ctx, req)
		}
	}))
}
