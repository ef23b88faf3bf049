// Package payment authorizes charges against a payment gateway. The bundled
// Simulator approves a configurable share of requests after a short delay.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/entropy"
	"github.com/google/uuid"
)

type Request struct {
	FlightID    int64
	AmountCents int64
	Method      domain.PaymentMethod
	Passenger   string
}

type Result struct {
	Approved bool
	// Response is the raw gateway payload, stored with the transaction.
	Response json.RawMessage
}

type Gateway interface {
	Charge(ctx context.Context, req Request) (Result, error)
}

type gatewayResponse struct {
	Status               string `json:"status"`
	GatewayTransactionID string `json:"gateway_transaction_id,omitempty"`
	ErrorCode            string `json:"error_code,omitempty"`
	Message              string `json:"message"`
	AmountCents          int64  `json:"amount_cents"`
	Method               string `json:"method"`
}

type Simulator struct {
	successRate float64
	latency     time.Duration
	src         entropy.Source
}

func NewSimulator(successRate float64, latency time.Duration, src entropy.Source) *Simulator {
	return &Simulator{successRate: successRate, latency: latency, src: src}
}

func (s *Simulator) Charge(ctx context.Context, req Request) (Result, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("payment gateway: %w", ctx.Err())
		case <-timer.C:
		}
	}

	resp := gatewayResponse{AmountCents: req.AmountCents, Method: string(req.Method)}
	approved := s.src.Float64() < s.successRate
	if approved {
		resp.Status = "SUCCESS"
		resp.GatewayTransactionID = fmt.Sprintf("GW%06d", 100000+s.src.IntN(900000))
		resp.Message = "Payment processed successfully"
	} else {
		resp.Status = "FAILED"
		resp.ErrorCode = "INSUFFICIENT_FUNDS"
		resp.Message = "Payment declined by bank"
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return Result{}, err
	}
	return Result{Approved: approved, Response: raw}, nil
}

// Approver is a Gateway that approves every charge immediately.
type Approver struct{}

func (Approver) Charge(ctx context.Context, req Request) (Result, error) {
	return Result{Approved: true, Response: json.RawMessage(`{"status":"SUCCESS"}`)}, nil
}

// NewTransactionID returns a 12 character upper-case identifier.
func NewTransactionID() string {
	return strings.ToUpper(uuid.NewString()[:12])
}

var (
	_ Gateway = (*Simulator)(nil)
	_ Gateway = Approver{}
)
