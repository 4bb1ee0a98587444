// Package models defines the core domain models for Splitwallet.
//
// # Records
//
//   - Account: one participant's wallet balance
//   - Expense: an amount fronted by a payer
//   - Allocation: how an expense is divided among beneficiaries
//
// # Derived values
//
//   - Split: one beneficiary's computed share of an expense
//   - Share: one ordered-pair entry of a settlement report
//   - SettlementReport: every Share produced by one settle call
//
// Shares are never stored on an Allocation. They are recomputed from the
// Expense amount and the Allocation each time, so they cannot drift from
// the source amount. Account balances are the only durable mutable state.
//
// # Money
//
// All amounts are decimal.Decimal values carried at two fractional digits.
// Participants are identified by owner strings.
package models
