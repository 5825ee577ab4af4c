package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookContext(body string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/x", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestParsePayPal(t *testing.T) {
	c := webhookContext(`{
		"txn_id": "TXN-1",
		"payer_email": "Buyer@Example.COM",
		"app_id": 7,
		"mc_gross_cents": 4999,
		"mc_currency": "USD"
	}`)
	p, err := parsePayPal(c)
	require.NoError(t, err)

	assert.Equal(t, "TXN-1", p.PurchaseID)
	assert.Equal(t, "buyer@example.com", p.CustomerEmail)
	assert.Equal(t, uint64(7), p.AppID)
	assert.Equal(t, uint64(4999), p.AmountCents)
	assert.Equal(t, "USD", p.Currency)
}

func TestParsePayPalAppIDFromCustomField(t *testing.T) {
	c := webhookContext(`{
		"txn_id": "TXN-2",
		"payer_email": "a@b.c",
		"custom": "{\"app_id\": 9}"
	}`)
	p, err := parsePayPal(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), p.AppID)
}

func TestParsePayPalIncomplete(t *testing.T) {
	c := webhookContext(`{"txn_id": "TXN-3"}`)
	_, err := parsePayPal(c)
	assert.ErrorIs(t, err, errInvalidPayload)
}

func TestParseGooglePlay(t *testing.T) {
	c := webhookContext(`{
		"order_id": "GPA.1234",
		"email_address": "a@b.c",
		"app_id": 7,
		"price_amount_micros": 49990000,
		"price_currency_code": "EUR"
	}`)
	p, err := parseGooglePlay(c)
	require.NoError(t, err)

	assert.Equal(t, "GPA.1234", p.PurchaseID)
	assert.Equal(t, uint64(4999), p.AmountCents, "micros convert to cents")
	assert.Equal(t, "EUR", p.Currency)
}
