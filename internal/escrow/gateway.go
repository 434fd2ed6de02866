package escrow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrGatewayTimeout is returned when the processor does not answer within
// the configured deadline. The ledger row stays PENDING in that case.
var ErrGatewayTimeout = errors.New("payment gateway timed out")

// PaymentGateway is the external charge/transfer API. Every call returns a
// processor reference id that gets recorded on the ledger row. Failures
// surface as errors, never panics; a hung call must respect the context
// deadline.
type PaymentGateway interface {
	// Charge collects money from a guest into the platform account
	Charge(ctx context.Context, userID string, amount float64, currency string) (string, error)
	// Transfer pays held funds out to a host
	Transfer(ctx context.Context, userID string, amount float64, currency string) (string, error)
	// RefundTransfer returns held funds to a guest
	RefundTransfer(ctx context.Context, userID string, amount float64, currency string) (string, error)
}

// MockGateway simulates a payment processor for development and tests.
// Latency and failure are injectable.
type MockGateway struct {
	Latency     time.Duration
	FailCharges bool
	FailPayouts bool
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) Charge(ctx context.Context, userID string, amount float64, currency string) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}
	if g.FailCharges {
		return "", errors.New("card declined")
	}
	return g.reference("ch")
}

func (g *MockGateway) Transfer(ctx context.Context, userID string, amount float64, currency string) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}
	if g.FailPayouts {
		return "", errors.New("transfer rejected")
	}
	return g.reference("tr")
}

func (g *MockGateway) RefundTransfer(ctx context.Context, userID string, amount float64, currency string) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}
	if g.FailPayouts {
		return "", errors.New("refund rejected")
	}
	return g.reference("re")
}

func (g *MockGateway) wait(ctx context.Context) error {
	if g.Latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(g.Latency):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrGatewayTimeout, ctx.Err())
	}
}

func (g *MockGateway) reference(prefix string) (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(buf)), nil
}
