package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutRequest describes a single-item card payment.
type CheckoutRequest struct {
	TourID        string
	TourName      string
	TourSummary   string
	ImageURL      string
	CustomerEmail string
	Amount        decimal.Decimal
	SuccessURL    string
	CancelURL     string
}

type LineItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Currency    string   `json:"currency"`
	UnitAmount  int64    `json:"unitAmount"`
	Quantity    int      `json:"quantity"`
}

// CheckoutSession is what the client needs to redirect to the payment page.
type CheckoutSession struct {
	ID                 string     `json:"id"`
	URL                string     `json:"url"`
	Mode               string     `json:"mode"`
	PaymentMethodTypes []string   `json:"paymentMethodTypes"`
	SuccessURL         string     `json:"successUrl"`
	CancelURL          string     `json:"cancelUrl"`
	CustomerEmail      string     `json:"customerEmail"`
	ClientReferenceID  string     `json:"clientReferenceId"`
	LineItems          []LineItem `json:"lineItems"`
	ExpiresAt          time.Time  `json:"expiresAt"`
}

// PaymentProvider opens hosted checkout sessions.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// HostedCheckout issues sessions for a hosted payment page at baseURL.
type HostedCheckout struct {
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewHostedCheckout(baseURL string) *HostedCheckout {
	return &HostedCheckout{baseURL: strings.TrimRight(baseURL, "/"), ttl: 24 * time.Hour, now: time.Now}
}

func (h *HostedCheckout) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if h.baseURL == "" {
		return nil, errors.New("payment checkout url is not configured")
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("invalid checkout amount %s", req.Amount)
	}

	id := "cs_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	images := []string{}
	if req.ImageURL != "" {
		images = append(images, req.ImageURL)
	}

	return &CheckoutSession{
		ID:                 id,
		URL:                h.baseURL + "/" + url.PathEscape(id),
		Mode:               "payment",
		PaymentMethodTypes: []string{"card"},
		SuccessURL:         req.SuccessURL,
		CancelURL:          req.CancelURL,
		CustomerEmail:      req.CustomerEmail,
		ClientReferenceID:  req.TourID,
		LineItems: []LineItem{{
			Name:        req.TourName + " Tour",
			Description: req.TourSummary,
			Images:      images,
			Currency:    "usd",
			UnitAmount:  req.Amount.Shift(2).Round(0).IntPart(),
			Quantity:    1,
		}},
		ExpiresAt: h.now().Add(h.ttl),
	}, nil
}
