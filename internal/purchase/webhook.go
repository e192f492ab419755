package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"ip-vault-api/internal/domain/licensing"

	"github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"
)

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrMissingMetadata  = errors.New("missing critical metadata for purchase fulfillment")
)

// sessionMetadata is the purchase intent the gateway echoes back on the
// completion event. All three fields plus the payment intent must be present
// before fulfillment may proceed.
type sessionMetadata struct {
	BuyerID       string
	LicensePlanID string
	AssetID       string
}

func metadataFromSession(session *stripe.CheckoutSession) (sessionMetadata, string, error) {
	meta := sessionMetadata{
		BuyerID:       session.Metadata["buyerId"],
		LicensePlanID: session.Metadata["licensePlanId"],
		AssetID:       session.Metadata["assetId"],
	}
	paymentIntentID := ""
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}
	if meta.BuyerID == "" || meta.LicensePlanID == "" || meta.AssetID == "" || paymentIntentID == "" {
		return meta, "", ErrMissingMetadata
	}
	return meta, paymentIntentID, nil
}

// HandleWebhook verifies and dispatches a gateway event. A nil return means
// the event should be acknowledged; any non-signature error is retryable and
// the caller should answer with a server error so the gateway redelivers.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.gateway.ConstructWebhookEvent(payload, sigHeader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("parse checkout session: %w", err)
		}
		return s.fulfillCheckoutSession(ctx, &session)
	default:
		// Acknowledge anything we don't act on so the gateway stops retrying.
		log.Printf("ignoring unhandled stripe event type %s", event.Type)
		return nil
	}
}

func (s *Service) fulfillCheckoutSession(ctx context.Context, session *stripe.CheckoutSession) error {
	meta, paymentIntentID, err := metadataFromSession(session)
	if err != nil {
		return err
	}

	var plan licensing.LicensePlan
	err = s.db.WithContext(ctx).Where("id = ?", meta.LicensePlanID).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("license plan %s not found during webhook processing", meta.LicensePlanID)
	}
	if err != nil {
		return fmt.Errorf("load license plan: %w", err)
	}

	_, err = s.fulfill(ctx, &plan, meta.BuyerID, paymentIntentID)
	if errors.Is(err, ErrAlreadyLicensed) {
		// Redelivery of an event we already fulfilled; success no-op.
		log.Printf("buyer %s already licensed for asset %s, skipping", meta.BuyerID, meta.AssetID)
		return nil
	}
	return err
}
