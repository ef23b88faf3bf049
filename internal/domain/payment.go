package domain

import (
	"encoding/json"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentNetBanking PaymentMethod = "NET_BANKING"
	PaymentUPI        PaymentMethod = "UPI"
	PaymentWallet     PaymentMethod = "WALLET"
)

// ParsePaymentMethod defaults an empty method to CREDIT_CARD.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case "":
		return PaymentCreditCard, nil
	case PaymentCreditCard, PaymentDebitCard, PaymentNetBanking, PaymentUPI, PaymentWallet:
		return m, nil
	default:
		return "", NewInvalidInput("unsupported payment method " + s)
	}
}

// PaymentTransaction records one charge or refund attempt. Refunds carry a
// negative amount.
type PaymentTransaction struct {
	TransactionID   string          `json:"transaction_id"`
	PNR             string          `json:"pnr,omitempty"`
	FlightID        int64           `json:"flight_id"`
	AmountCents     int64           `json:"amount_cents"`
	Method          PaymentMethod   `json:"method"`
	Status          PaymentStatus   `json:"status"`
	GatewayResponse json.RawMessage `json:"gateway_response,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
