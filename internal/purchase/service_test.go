package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"ip-vault-api/database"
	"ip-vault-api/internal/domain/assets"
	"ip-vault-api/internal/domain/licensing"
	"ip-vault-api/internal/domain/users"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSignature = "t=123,v1=valid"

/* ---------------- test setup ---------------- */

type fakeGateway struct {
	piStatus           stripe.PaymentIntentStatus
	piErr              error
	sessionURL         string
	sessionErr         error
	lastCheckoutParams *stripe.CheckoutSessionParams
}

func (f *fakeGateway) GetPaymentIntent(id string) (*stripe.PaymentIntent, error) {
	if f.piErr != nil {
		return nil, f.piErr
	}
	return &stripe.PaymentIntent{ID: id, Status: f.piStatus}, nil
}

func (f *fakeGateway) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.lastCheckoutParams = params
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &stripe.CheckoutSession{URL: f.sessionURL}, nil
}

func (f *fakeGateway) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if sigHeader != testSignature {
		return stripe.Event{}, fmt.Errorf("no valid signature found")
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, err
	}
	return event, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestService(t *testing.T) (*Service, *fakeGateway, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	gateway := &fakeGateway{
		piStatus:   stripe.PaymentIntentStatusSucceeded,
		sessionURL: "https://checkout.stripe.test/cs_123",
	}
	svc := New(db, gateway, "http://localhost:3000/purchase-success", "http://localhost:3000/purchase-cancelled")
	return svc, gateway, db
}

func seedUser(t *testing.T, db *gorm.DB) *users.User {
	t.Helper()
	user := &users.User{
		Name:     "Test User",
		Email:    uuid.NewString() + "@example.com",
		Role:     "user",
		Verified: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedPlan(t *testing.T, db *gorm.DB, price string) *licensing.LicensePlan {
	t.Helper()
	owner := seedUser(t, db)
	asset := &assets.Asset{
		UserID:  owner.ID,
		Title:   "Sunset Photo",
		FileURL: "https://cdn.example.com/sunset.jpg",
		Hash:    uuid.NewString(),
		Status:  assets.StatusProtected,
	}
	require.NoError(t, db.Create(asset).Error)

	plan := &licensing.LicensePlan{
		AssetID:      asset.ID,
		Name:         "Standard",
		Price:        decimal.RequireFromString(price),
		LicenseTerms: "Non-exclusive worldwide use",
	}
	require.NoError(t, db.Create(plan).Error)
	plan.Asset = *asset
	return plan
}

func countLicenses(t *testing.T, db *gorm.DB, assetID, buyerID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&licensing.License{}).
		Where("asset_id = ? AND buyer_id = ?", assetID, buyerID).
		Count(&count).Error)
	return count
}

/* ---------------- direct confirmation path ---------------- */

func TestPurchaseAsset(t *testing.T) {
	svc, _, db := newTestService(t)
	plan := seedPlan(t, db, "19.99")
	buyer := seedUser(t, db)

	license, err := svc.PurchaseAsset(context.Background(), buyer.ID, plan.ID, "pi_123")
	require.NoError(t, err)

	assert.Equal(t, plan.AssetID, license.AssetID)
	assert.Equal(t, buyer.ID, license.BuyerID)
	assert.Equal(t, plan.ID, license.LicensePlanID)
	assert.True(t, license.Price.Equal(plan.Price))
	assert.Equal(t, plan.LicenseTerms, license.LicenseTerms)
	assert.Equal(t, licensing.StatusActive, license.Status)
	require.NotNil(t, license.PaymentIntentID)
	assert.Equal(t, "pi_123", *license.PaymentIntentID)
}

func TestPurchaseAsset_PlanNotFound(t *testing.T) {
	svc, _, db := newTestService(t)
	buyer := seedUser(t, db)

	_, err := svc.PurchaseAsset(context.Background(), buyer.ID, uuid.NewString(), "pi_123")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestPurchaseAsset_PaymentNotSucceeded(t *testing.T) {
	svc, gateway, db := newTestService(t)
	gateway.piStatus = stripe.PaymentIntentStatusRequiresPaymentMethod
	plan := seedPlan(t, db, "19.99")
	buyer := seedUser(t, db)

	_, err := svc.PurchaseAsset(context.Background(), buyer.ID, plan.ID, "pi_123")
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Zero(t, countLicenses(t, db, plan.AssetID, buyer.ID))
}

func TestPurchaseAsset_GatewayError(t *testing.T) {
	svc, gateway, db := newTestService(t)
	gateway.piErr = errors.New("stripe unavailable")
	plan := seedPlan(t, db, "19.99")
	buyer := seedUser(t, db)

	_, err := svc.PurchaseAsset(context.Background(), buyer.ID, plan.ID, "pi_123")
	require.Error(t, err)
	assert.Zero(t, countLicenses(t, db, plan.AssetID, buyer.ID))
}

func TestPurchaseAsset_SecondPurchaseConflicts(t *testing.T) {
	svc, _, db := newTestService(t)
	plan := seedPlan(t, db, "19.99")
	buyer := seedUser(t, db)

	_, err := svc.PurchaseAsset(context.Background(), buyer.ID, plan.ID, "pi_1")
	require.NoError(t, err)

	_, err = svc.PurchaseAsset(context.Background(), buyer.ID, plan.ID, "pi_2")
	assert.ErrorIs(t, err, ErrAlreadyLicensed)
	assert.EqualValues(t, 1, countLicenses(t, db, plan.AssetID, buyer.ID))
}

/* ---------------- fulfill uniqueness ---------------- */

func TestFulfill_DuplicateMapsToAlreadyLicensed(t *testing.T) {
	svc, _, db := newTestService(t)
	plan := seedPlan(t, db, "19.99")
	buyer := seedUser(t, db)

	// Bypass the advisory pre-check entirely; the unique index alone must
	// reject the second row.
	_, err := svc.fulfill(context.Background(), plan, buyer.ID, "pi_1")
	require.NoError(t, err)

	_, err = svc.fulfill(context.Background(), plan, buyer.ID, "pi_2")
	assert.ErrorIs(t, err, ErrAlreadyLicensed)
	assert.EqualValues(t, 1, countLicenses(t, db, plan.AssetID, buyer.ID))
}

func TestFulfill_ConcurrentCallsCreateOneLicense(t *testing.T) {
	svc, _, db := newTestService(t)
	plan := seedPlan(t, db, "19.99")
	buyer := seedUser(t, db)

	// Both goroutines model callers that already passed the advisory check.
	const callers = 2
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.fulfill(context.Background(), plan, buyer.ID, fmt.Sprintf("pi_%d", i))
		}(i)
	}
	wg.Wait()

	successes := 0
	conflicts := 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadyLicensed):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.EqualValues(t, 1, countLicenses(t, db, plan.AssetID, buyer.ID))
}

/* ---------------- checkout-session path ---------------- */

func TestCreateCheckoutSession(t *testing.T) {
	svc, gateway, db := newTestService(t)
	plan := seedPlan(t, db, "19.99")
	buyer := seedUser(t, db)

	url, err := svc.CreateCheckoutSession(context.Background(), buyer.ID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_123", url)

	params := gateway.lastCheckoutParams
	require.NotNil(t, params)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *params.Mode)
	require.Len(t, params.LineItems, 1)

	item := params.LineItems[0]
	assert.EqualValues(t, 1999, *item.PriceData.UnitAmount)
	assert.Equal(t, "Standard License for Sunset Photo", *item.PriceData.ProductData.Name)
	assert.Equal(t, plan.LicenseTerms, *item.PriceData.ProductData.Description)

	// Metadata is the only channel carrying purchase intent to the webhook.
	assert.Equal(t, buyer.ID, params.Metadata["buyerId"])
	assert.Equal(t, plan.ID, params.Metadata["licensePlanId"])
	assert.Equal(t, plan.AssetID, params.Metadata["assetId"])

	assert.Contains(t, *params.SuccessURL, "{CHECKOUT_SESSION_ID}")
}

func TestCreateCheckoutSession_PlanNotFound(t *testing.T) {
	svc, _, db := newTestService(t)
	buyer := seedUser(t, db)

	_, err := svc.CreateCheckoutSession(context.Background(), buyer.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestCreateCheckoutSession_AlreadyLicensed(t *testing.T) {
	svc, _, db := newTestService(t)
	plan := seedPlan(t, db, "19.99")
	buyer := seedUser(t, db)

	_, err := svc.fulfill(context.Background(), plan, buyer.ID, "pi_1")
	require.NoError(t, err)

	_, err = svc.CreateCheckoutSession(context.Background(), buyer.ID, plan.ID)
	assert.ErrorIs(t, err, ErrAlreadyLicensed)
}
