package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/distributor-portal/internal/model"
	"github.com/iliyamo/distributor-portal/internal/repository"
)

// purchaseValidityDays is how long an ingested marketplace purchase can
// back a registration.  Nothing deletes expired rows; the validator just
// stops accepting them.
const purchaseValidityDays = 30

// errInvalidPayload covers every malformed or incomplete webhook body.
var errInvalidPayload = errors.New("invalid webhook payload")

// WebhookHandler ingests marketplace purchase notifications.  Each
// platform gets a thin adapter that normalizes its payload into a
// MarketplacePurchase row; the upsert makes redelivery harmless.
type WebhookHandler struct {
	Purchases *repository.PurchaseRepo
}

func NewWebhookHandler(p *repository.PurchaseRepo) *WebhookHandler {
	if p == nil {
		panic("nil dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{Purchases: p}
}

// Ingest handles POST /v1/webhooks/:platform.
func (h *WebhookHandler) Ingest(c echo.Context) error {
	platform := strings.ToLower(c.Param("platform"))

	var (
		p   model.MarketplacePurchase
		err error
	)
	switch platform {
	case "paypal":
		p, err = parsePayPal(c)
	case "googleplay":
		p, err = parseGooglePlay(c)
	default:
		return badRequest(c, "unsupported platform")
	}
	if err != nil {
		return badRequest(c, err.Error())
	}
	p.Platform = platform
	p.ExpiresAt = time.Now().UTC().Add(purchaseValidityDays * 24 * time.Hour)

	if err := h.Purchases.Upsert(c.Request().Context(), p); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"purchase_id": p.PurchaseID, "platform": platform})
}

// payPalPayload is the subset of a PayPal sale-completed notification the
// validator cares about.
type payPalPayload struct {
	TxnID        string `json:"txn_id"`
	PayerEmail   string `json:"payer_email"`
	Custom       string `json:"custom"` // carries our app id
	McGrossCents uint64 `json:"mc_gross_cents"`
	McCurrency   string `json:"mc_currency"`
	AppID        uint64 `json:"app_id"`
}

func parsePayPal(c echo.Context) (model.MarketplacePurchase, error) {
	var body payPalPayload
	if err := c.Bind(&body); err != nil {
		return model.MarketplacePurchase{}, errInvalidPayload
	}
	appID := body.AppID
	if appID == 0 && body.Custom != "" {
		// Older notifications carry the app id in the free-form custom
		// field as {"app_id": N}.
		var custom struct {
			AppID uint64 `json:"app_id"`
		}
		if json.Unmarshal([]byte(body.Custom), &custom) == nil {
			appID = custom.AppID
		}
	}
	if body.TxnID == "" || body.PayerEmail == "" || appID == 0 {
		return model.MarketplacePurchase{}, errInvalidPayload
	}
	return model.MarketplacePurchase{
		PurchaseID:    body.TxnID,
		CustomerEmail: strings.ToLower(strings.TrimSpace(body.PayerEmail)),
		AppID:         appID,
		AmountCents:   body.McGrossCents,
		Currency:      body.McCurrency,
	}, nil
}

// googlePlayPayload is the subset of a Play purchase notification the
// validator cares about.
type googlePlayPayload struct {
	OrderID       string `json:"order_id"`
	EmailAddress  string `json:"email_address"`
	AppID         uint64 `json:"app_id"`
	PriceMicros   uint64 `json:"price_amount_micros"`
	PriceCurrency string `json:"price_currency_code"`
}

func parseGooglePlay(c echo.Context) (model.MarketplacePurchase, error) {
	var body googlePlayPayload
	if err := c.Bind(&body); err != nil {
		return model.MarketplacePurchase{}, errInvalidPayload
	}
	if body.OrderID == "" || body.EmailAddress == "" || body.AppID == 0 {
		return model.MarketplacePurchase{}, errInvalidPayload
	}
	return model.MarketplacePurchase{
		PurchaseID:    body.OrderID,
		CustomerEmail: strings.ToLower(strings.TrimSpace(body.EmailAddress)),
		AppID:         body.AppID,
		AmountCents:   body.PriceMicros / 10000, // micros to cents
		Currency:      body.PriceCurrency,
	}, nil
}
