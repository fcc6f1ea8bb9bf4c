// Package models defines the domain types of the unit financial ledger.
//
// # Accounts and balances
//
// Every scout has one Account holding two cached balances:
//   - BillingBalance: what the scout owes the unit (negative = owes)
//   - FundsBalance: the scout's savings from fundraising (never negative)
//
// Each unit also has one operating Account (kind "unit") that is the
// counter-party of scout lines, so every JournalEntry balances.
//
// # Journal
//
// A JournalEntry owns one or more JournalLines. Lines are never edited; a
// mistaken entry is corrected by posting a reversal entry and flagging the
// original void.
//
// # Billing and payments
//
// A BillingRecord is split into one BillingCharge per scout. Payments credit
// a scout's billing balance; card payments also carry a processing fee and a
// link to the processor's SquareTransaction.
//
// All amounts are Money (integer cents).
package models
