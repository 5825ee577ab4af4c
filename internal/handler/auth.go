package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/distributor-portal/internal/config"
	"github.com/iliyamo/distributor-portal/internal/model"
	"github.com/iliyamo/distributor-portal/internal/repository"
	"github.com/iliyamo/distributor-portal/internal/utils"
)

// AuthHandler bundles dependencies for the portal login endpoints.
// There is no public sign-up here: distributor accounts are created
// through the register_distributor portal action.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Sessions *repository.SessionRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, s *repository.SessionRepo) *AuthHandler {
	if u == nil || s == nil {
		panic("nil dependency passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID     uint64              `json:"id"`
	Email  string              `json:"email"`
	Role   string              `json:"role"`
	Status model.AccountStatus `json:"status"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issuePair creates and stores a fresh access/refresh pair for a user.
func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Sessions.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Login verifies credentials and returns a token pair.  Accounts that
// are not active (still pending reconciliation, or deactivated) cannot
// log in.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, errorResponse{Code: CodeUnauthorized, Message: "invalid credentials"})
	}
	if err != nil {
		return respondErr(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, errorResponse{Code: CodeUnauthorized, Message: "invalid credentials"})
	}
	if u.Status != model.AccountActive {
		return c.JSON(http.StatusForbidden, errorResponse{Code: CodeForbidden, Message: "account is not active"})
	}

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and returns a
// fresh pair (rotation).
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token is required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Sessions.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Code: CodeUnauthorized, Message: "invalid refresh token"})
	}
	_ = h.Sessions.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return respondErr(c, err)
	}
	if u.Status != model.AccountActive {
		return c.JSON(http.StatusForbidden, errorResponse{Code: CodeForbidden, Message: "account is not active"})
	}

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes sessions.  With a refresh_token in the body only that
// session dies; an authenticated call without one revokes every session
// of the caller.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Sessions.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Code: CodeUnauthorized, Message: "invalid refresh token"})
		}
		if err := h.Sessions.RevokeByHash(ctx, hash); err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"revoked": 1})
	}

	// No body token: fall back to the authenticated identity and revoke
	// everything.
	userID, err := getUserID(c)
	if err != nil {
		return badRequest(c, "refresh_token or a bearer token is required")
	}
	if err := h.Sessions.RevokeAllForUser(ctx, userID); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": "all"})
}

// Me returns the authenticated portal user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Code: CodeUnauthorized, Message: "authentication required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status})
}
