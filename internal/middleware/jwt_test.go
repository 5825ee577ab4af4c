package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/distributor-portal/internal/utils"
)

const testSecret = "test-secret"

func runWithAuth(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, h(c))
	return c, rec
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	access, err := utils.NewAccessToken(testSecret, 42, "DISTRIBUTOR", 15)
	require.NoError(t, err)

	c, rec := runWithAuth(t, JWTAuth(testSecret), "Bearer "+access.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DISTRIBUTOR", c.Get("role"))
	assert.NotNil(t, c.Get("user_id"))
}

func TestJWTAuthRejectsMissingAndBadTokens(t *testing.T) {
	_, rec := runWithAuth(t, JWTAuth(testSecret), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, rec = runWithAuth(t, JWTAuth(testSecret), "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Signed with a different secret.
	access, err := utils.NewAccessToken("other-secret", 42, "ADMIN", 15)
	require.NoError(t, err)
	_, rec = runWithAuth(t, JWTAuth(testSecret), "Bearer "+access.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalJWTAuthPassesThroughWithoutToken(t *testing.T) {
	c, rec := runWithAuth(t, OptionalJWTAuth(testSecret), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, c.Get("role"))
}

func TestOptionalJWTAuthSetsClaimsWhenPresent(t *testing.T) {
	access, err := utils.NewAccessToken(testSecret, 42, "ADMIN", 15)
	require.NoError(t, err)

	c, rec := runWithAuth(t, OptionalJWTAuth(testSecret), "Bearer "+access.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ADMIN", c.Get("role"))
}

func TestOptionalJWTAuthIgnoresInvalidToken(t *testing.T) {
	c, rec := runWithAuth(t, OptionalJWTAuth(testSecret), "Bearer garbage")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, c.Get("role"))
}
