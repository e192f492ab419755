package purchase

import (
	"context"
	"errors"
	"fmt"

	"ip-vault-api/internal/domain/licensing"
	"ip-vault-api/internal/infra/stripegateway"

	"github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"
)

var (
	ErrPlanNotFound    = errors.New("license plan not found")
	ErrAlreadyLicensed = errors.New("buyer already owns a license for this asset")
	ErrPaymentFailed   = errors.New("payment was not successful")
)

const checkoutCurrency = "usd"

// Service coordinates license purchases: the synchronous confirm-and-buy
// path and the checkout-session/webhook path. Both end in fulfill, so the
// license-creation logic exists exactly once.
type Service struct {
	db         *gorm.DB
	gateway    stripegateway.Gateway
	successURL string
	cancelURL  string
}

func New(db *gorm.DB, gateway stripegateway.Gateway, successURL, cancelURL string) *Service {
	return &Service{
		db:         db,
		gateway:    gateway,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// PurchaseAsset confirms a purchase whose payment was collected client-side.
// The payment intent must already have succeeded.
func (s *Service) PurchaseAsset(ctx context.Context, buyerID, licensePlanID, paymentIntentID string) (*licensing.License, error) {
	plan, err := s.loadPlan(ctx, licensePlanID)
	if err != nil {
		return nil, err
	}

	owned, err := s.ownsLicense(ctx, plan.AssetID, buyerID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, ErrAlreadyLicensed
	}

	pi, err := s.gateway.GetPaymentIntent(paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, ErrPaymentFailed
	}

	return s.fulfill(ctx, plan, buyerID, paymentIntentID)
}

// CreateCheckoutSession opens a hosted payment page for the given plan and
// returns its redirect URL. Fulfillment happens later, when the gateway
// reports completion on the webhook.
func (s *Service) CreateCheckoutSession(ctx context.Context, buyerID, licensePlanID string) (string, error) {
	plan, err := s.loadPlan(ctx, licensePlanID)
	if err != nil {
		return "", err
	}

	// Advisory only; the unique index checked in fulfill is authoritative.
	owned, err := s.ownsLicense(ctx, plan.AssetID, buyerID)
	if err != nil {
		return "", err
	}
	if owned {
		return "", ErrAlreadyLicensed
	}

	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:        stripe.String(fmt.Sprintf("%s License for %s", plan.Name, plan.Asset.Title)),
		Description: stripe.String(plan.LicenseTerms),
	}
	if plan.Asset.FileURL != "" {
		productData.Images = stripe.StringSlice([]string{plan.Asset.FileURL})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(checkoutCurrency),
					ProductData: productData,
					UnitAmount:  stripe.Int64(minorUnits(plan.Price)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.successURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.cancelURL),
	}
	// The metadata is the only channel carrying purchase intent into the
	// webhook; the gateway echoes it back verbatim on completion.
	params.AddMetadata("buyerId", buyerID)
	params.AddMetadata("licensePlanId", plan.ID)
	params.AddMetadata("assetId", plan.AssetID)

	session, err := s.gateway.CreateCheckoutSession(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return session.URL, nil
}

// fulfill creates the license row with the plan's current price and terms.
// A duplicate-key violation on (asset_id, buyer_id) means the buyer already
// holds a license, regardless of which path got there first.
func (s *Service) fulfill(ctx context.Context, plan *licensing.LicensePlan, buyerID, paymentIntentID string) (*licensing.License, error) {
	license := &licensing.License{
		AssetID:         plan.AssetID,
		BuyerID:         buyerID,
		LicensePlanID:   plan.ID,
		Price:           plan.Price,
		LicenseTerms:    plan.LicenseTerms,
		PaymentIntentID: &paymentIntentID,
		Status:          licensing.StatusActive,
	}
	if err := s.db.WithContext(ctx).Create(license).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyLicensed
		}
		return nil, fmt.Errorf("create license: %w", err)
	}
	return license, nil
}

func (s *Service) loadPlan(ctx context.Context, id string) (*licensing.LicensePlan, error) {
	var plan licensing.LicensePlan
	err := s.db.WithContext(ctx).Preload("Asset").Where("id = ?", id).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load license plan: %w", err)
	}
	return &plan, nil
}

func (s *Service) ownsLicense(ctx context.Context, assetID, buyerID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&licensing.License{}).
		Where("asset_id = ? AND buyer_id = ?", assetID, buyerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check existing license: %w", err)
	}
	return count > 0, nil
}
