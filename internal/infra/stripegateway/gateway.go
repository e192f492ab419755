package stripegateway

import (
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"
)

// Gateway is the slice of the Stripe API the purchase flow needs. It exists
// so the orchestrator can be constructed with a test double instead of the
// live client.
type Gateway interface {
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetPaymentIntent(id string) (*stripe.PaymentIntent, error)
	ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// Client wraps a dedicated stripe client.API instance. Constructed once at
// startup and injected; the package-global stripe.Key is never set.
type Client struct {
	api           *client.API
	webhookSecret string
}

func New(secretKey, webhookSecret string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api, webhookSecret: webhookSecret}
}

func (c *Client) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return c.api.CheckoutSessions.New(params)
}

func (c *Client) GetPaymentIntent(id string) (*stripe.PaymentIntent, error) {
	return c.api.PaymentIntents.Get(id, nil)
}

func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
}
