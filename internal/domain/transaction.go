package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies how money moved.
type TransactionType string

const (
	TypePurchase   TransactionType = "PURCHASE"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeTransfer   TransactionType = "TRANSFER"
	TypeDeposit    TransactionType = "DEPOSIT"
	TypePayment    TransactionType = "PAYMENT"
	TypeRefund     TransactionType = "REFUND"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypePurchase, TypeWithdrawal, TypeTransfer, TypeDeposit, TypePayment, TypeRefund:
		return true
	}
	return false
}

// FraudStatus is the outcome of fraud analysis for a transaction.
type FraudStatus string

const (
	// StatusPending marks a transaction persisted but not yet analyzed.
	StatusPending FraudStatus = "PENDING"

	StatusLegitimate FraudStatus = "LEGITIMATE"
	StatusSuspicious FraudStatus = "SUSPICIOUS"
	StatusFraudulent FraudStatus = "FRAUDULENT"
)

// Valid reports whether s is a known fraud status.
func (s FraudStatus) Valid() bool {
	switch s {
	case StatusPending, StatusLegitimate, StatusSuspicious, StatusFraudulent:
		return true
	}
	return false
}

// Transaction is a monetary event submitted for fraud analysis.
type Transaction struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	Amount          decimal.Decimal `json:"amount"`
	TransactionType TransactionType `json:"transactionType"`

	MerchantName     string `json:"merchantName,omitempty"`
	MerchantCategory string `json:"merchantCategory,omitempty"`
	Location         string `json:"location,omitempty"`
	CardNumberMasked string `json:"cardNumberMasked,omitempty"`
	IPAddress        string `json:"ipAddress,omitempty"`

	// OccurredAt is when the transaction happened; CreatedAt is when it
	// entered the system.
	OccurredAt time.Time `json:"occurredAt"`
	CreatedAt  time.Time `json:"createdAt"`

	// Analysis outcome. Rewritten as a unit on every (re)analysis.
	FraudStatus FraudStatus `json:"fraudStatus"`
	FraudScore  float64     `json:"fraudScore"`
	FraudReason string      `json:"fraudReason,omitempty"`
}

// ApplyAnalysis records an analysis outcome on the transaction.
// Score, status and reason always change together.
func (t *Transaction) ApplyAnalysis(score float64, status FraudStatus, reason string) {
	t.FraudScore = score
	t.FraudStatus = status
	t.FraudReason = reason
}

// TransactionRequest is the API payload for submitting a transaction.
type TransactionRequest struct {
	UserID           string          `json:"userId"`
	Amount           decimal.Decimal `json:"amount"`
	TransactionType  TransactionType `json:"transactionType"`
	MerchantName     string          `json:"merchantName,omitempty"`
	MerchantCategory string          `json:"merchantCategory,omitempty"`
	Location         string          `json:"location,omitempty"`
	CardNumberMasked string          `json:"cardNumberMasked,omitempty"`
	IPAddress        string          `json:"ipAddress,omitempty"`
	OccurredAt       *time.Time      `json:"occurredAt,omitempty"`
}

// Validate checks the request before any write happens.
func (r *TransactionRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	if r.TransactionType == "" {
		return fmt.Errorf("%w: transactionType is required", ErrValidation)
	}
	if !r.TransactionType.Valid() {
		return fmt.Errorf("%w: unknown transactionType %q", ErrValidation, r.TransactionType)
	}
	return nil
}

// ToTransaction builds a pending transaction from the request.
// OccurredAt defaults to now when the caller did not supply it.
func (r *TransactionRequest) ToTransaction(now time.Time) *Transaction {
	occurredAt := now
	if r.OccurredAt != nil {
		occurredAt = r.OccurredAt.UTC()
	}
	return &Transaction{
		UserID:           r.UserID,
		Amount:           r.Amount,
		TransactionType:  r.TransactionType,
		MerchantName:     r.MerchantName,
		MerchantCategory: r.MerchantCategory,
		Location:         r.Location,
		CardNumberMasked: r.CardNumberMasked,
		IPAddress:        r.IPAddress,
		OccurredAt:       occurredAt,
		CreatedAt:        now,
		FraudStatus:      StatusPending,
		FraudScore:       0.0,
	}
}
