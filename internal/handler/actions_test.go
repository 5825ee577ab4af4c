package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okAction(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func fullRegistry() *ActionRegistry {
	reg := NewActionRegistry()
	for _, name := range AllActions {
		reg.Register(name, authPublic, okAction)
	}
	return reg
}

func portalContext(action string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/portal?action="+action, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRegistryValidateComplete(t *testing.T) {
	assert.NoError(t, fullRegistry().Validate())
}

func TestRegistryValidateMissingAction(t *testing.T) {
	reg := NewActionRegistry()
	for _, name := range AllActions[:len(AllActions)-1] {
		reg.Register(name, authPublic, okAction)
	}
	err := reg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), AllActions[len(AllActions)-1])
}

func TestRegistryValidateUnknownAction(t *testing.T) {
	reg := fullRegistry()
	reg.Register("mystery_action", authPublic, okAction)
	assert.Error(t, reg.Validate())
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	reg := NewActionRegistry()
	reg.Register(ActionIssueToken, authAny, okAction)
	assert.Panics(t, func() { reg.Register(ActionIssueToken, authAny, okAction) })
}

func TestDispatchUnknownAction(t *testing.T) {
	reg := fullRegistry()
	c, rec := portalContext("does_not_exist")
	require.NoError(t, reg.Dispatch(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchAuthEnforcement(t *testing.T) {
	reg := NewActionRegistry()
	reg.Register(ActionListTokens, authAny, okAction)
	reg.Register(ActionListDistributors, authAdmin, okAction)
	reg.Register(ActionRegisterAppUser, authPublic, okAction)

	t.Run("public action needs no identity", func(t *testing.T) {
		c, rec := portalContext(ActionRegisterAppUser)
		require.NoError(t, reg.Dispatch(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("authed action without identity", func(t *testing.T) {
		c, rec := portalContext(ActionListTokens)
		require.NoError(t, reg.Dispatch(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authed action with identity", func(t *testing.T) {
		c, rec := portalContext(ActionListTokens)
		c.Set("user_id", uint64(1))
		c.Set("role", "DISTRIBUTOR")
		require.NoError(t, reg.Dispatch(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("admin action with distributor role", func(t *testing.T) {
		c, rec := portalContext(ActionListDistributors)
		c.Set("user_id", uint64(1))
		c.Set("role", "DISTRIBUTOR")
		require.NoError(t, reg.Dispatch(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin action with admin role", func(t *testing.T) {
		c, rec := portalContext(ActionListDistributors)
		c.Set("user_id", uint64(1))
		c.Set("role", "ADMIN")
		require.NoError(t, reg.Dispatch(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
