package stripewebhooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ip-vault-api/database"
	"ip-vault-api/internal/purchase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSignature = "t=123,v1=valid"

type fakeGateway struct{}

func (f *fakeGateway) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) GetPaymentIntent(id string) (*stripe.PaymentIntent, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if sigHeader != testSignature {
		return stripe.Event{}, errors.New("signature mismatch")
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, err
	}
	return event, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	purchases := purchase.New(db, &fakeGateway{}, "https://app.test/success", "https://app.test/cancel")

	r := gin.New()
	h := NewHandler(purchases)
	r.POST("/api/stripe-webhook", h.HandleWebhook)
	return r
}

func postWebhook(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/stripe-webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	r := newTestRouter(t)

	w := postWebhook(r, []byte(`{"type":"checkout.session.completed"}`), "t=123,v1=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Signature verification failed")
}

func TestHandleWebhook_UnhandledEventAcknowledged(t *testing.T) {
	r := newTestRouter(t)

	w := postWebhook(r, []byte(`{"type":"invoice.paid","data":{"object":{}}}`), testSignature)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received": true}`, w.Body.String())
}

func TestHandleWebhook_ProcessingFailureIsRetryable(t *testing.T) {
	r := newTestRouter(t)

	// Metadata references a plan that no longer exists. The gateway must get
	// a server error back so it redelivers.
	body := []byte(`{
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"payment_intent": "pi_test_1",
				"metadata": {
					"buyerId": "buyer-1",
					"licensePlanId": "missing-plan",
					"assetId": "asset-1"
				}
			}
		}
	}`)
	w := postWebhook(r, body, testSignature)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
