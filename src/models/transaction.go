// backend/src/models/transaction.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates which side of the account a transaction moved.
type Direction string

const (
	DirectionCredit Direction = "Credit"
	DirectionDebit  Direction = "Debit"
)

// RawBankTransaction holds a single row exactly as returned by the bank API.
// Fields are validated and defaulted when converting into a Transaction; raw
// rows never travel past the service boundary.
type RawBankTransaction struct {
	ID                    string `json:"id"`
	AccountIBAN           string `json:"account_iban"`
	Amount                string `json:"amount"`
	Side                  string `json:"side"` // "credit" / "debit"; derived from the amount sign when empty
	Currency              string `json:"currency"`
	ValueDate             string `json:"value_date"`
	CounterpartName       string `json:"counterpart_name"`
	RemittanceInformation string `json:"remittance_information"`
	Communication         string `json:"communication"`
	AdditionalInformation string `json:"additional_information"`
	AccountRef            string `json:"account_ref"`
}

// Transaction is the immutable, fully-typed representation of one ledger
// movement. The description is the counterparty name concatenated with the
// first non-empty free-text field of the raw row.
type Transaction struct {
	ID          string          `json:"id"`
	IBAN        string          `json:"iban"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
	ValueDate   time.Time       `json:"value_date"`
	Description string          `json:"description"`
	Currency    string          `json:"currency"`
	AccountRef  string          `json:"account_ref,omitempty"`
}

// TransactionStats aggregates a transaction set for reporting.
type TransactionStats struct {
	Count        int             `json:"count"`
	CreditCount  int             `json:"credit_count"`
	DebitCount   int             `json:"debit_count"`
	TotalCredits decimal.Decimal `json:"total_credits"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	Net          decimal.Decimal `json:"net"`
	OldestDate   time.Time       `json:"oldest_date,omitempty"`
	NewestDate   time.Time       `json:"newest_date,omitempty"`
}
