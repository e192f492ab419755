package stripewebhooks

import (
	"errors"
	"io"
	"net/http"

	"ip-vault-api/internal/purchase"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Purchases *purchase.Service
}

func NewHandler(purchases *purchase.Service) *Handler {
	return &Handler{Purchases: purchases}
}

// POST /api/stripe-webhook
//
// The unparsed body is required for signature verification. A signature
// failure is a permanent rejection; any other failure answers with a server
// error so the gateway redelivers the event.
func (h *Handler) HandleWebhook(c *gin.Context) {
	payload, err := readWebhookBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	err = h.Purchases.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, purchase.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func readWebhookBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
