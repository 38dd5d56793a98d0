package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"go.uber.org/zap"

	"carshare/internal/service"
)

const currency = "usd"

// centsPerUnit converts a decimal dollar amount into Stripe's integer cents.
var centsPerUnit = decimal.NewFromInt(100)

// StripeGateway implements service.PaymentGateway on top of Stripe
// checkout sessions.
type StripeGateway struct {
	successURL string
	cancelURL  string
	logger     *zap.Logger
}

// Ensure the interface is satisfied.
var _ service.PaymentGateway = (*StripeGateway)(nil)

// NewStripeGateway creates a new StripeGateway and installs the API key.
func NewStripeGateway(apiKey, successURL, cancelURL string, logger *zap.Logger) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{
		successURL: successURL,
		cancelURL:  cancelURL,
		logger:     logger,
	}
}

// CreateCheckoutSession opens a Stripe checkout session for the amount.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, amount decimal.Decimal, description string) (*service.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(amount.Mul(centsPerUnit).IntPart()),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
			},
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		g.logger.Error("stripe checkout session creation failed",
			zap.String("amount", amount.StringFixed(2)),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	g.logger.Debug("stripe checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("amount", amount.StringFixed(2)))

	return &service.CheckoutSession{
		ID:  sess.ID,
		URL: sess.URL,
	}, nil
}

// IsSessionPaid polls Stripe for the session's payment status.
func (g *StripeGateway) IsSessionPaid(ctx context.Context, sessionID string) (bool, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return false, fmt.Errorf("stripe: retrieve session %s: %w", sessionID, err)
	}

	return sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}
