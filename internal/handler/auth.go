package handler

import (
    "errors"   // errors.Is against repository sentinels
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // token expiry timestamps in responses

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/gymdesk/internal/config"     // app configuration
    "github.com/iliyamo/gymdesk/internal/middleware" // identity stored by JWTAuth
    "github.com/iliyamo/gymdesk/internal/repository" // repository sentinels
    "github.com/iliyamo/gymdesk/internal/utils"      // password check and token issuing
)

// AuthHandler bundles dependencies for the staff auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Staff  StaffStore
    Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, s StaffStore, t TokenStore) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Staff: s, Tokens: t}
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
type staffPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
    Name  string `json:"name"`
    Role  string `json:"role"`
}
type authResp struct {
    Staff   staffPart `json:"staff"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// Login: verify credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := requestContext(c)
    defer cancel()

    s, err := h.Staff.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            utils.VerifyPassword("", req.Password)
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return err
    }
    if !utils.VerifyPassword(s.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if !s.IsActive {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "account deactivated"})
    }
    return h.issuePair(c, staffPart{ID: s.ID, Email: s.Email, Name: s.Name, Role: s.Role}, http.StatusOK)
}

// Refresh: validate by hash, revoke the old token, issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    hash, err := refreshHash(c)
    if err != nil {
        return err
    }

    ctx, cancel := requestContext(c)
    defer cancel()

    staffID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    // a concurrent refresh with the same token loses here
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return err
    }
    s, err := h.Staff.GetByID(ctx, staffID)
    if err != nil || !s.IsActive {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    return h.issuePair(c, staffPart{ID: s.ID, Email: s.Email, Name: s.Name, Role: s.Role}, http.StatusOK)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
    hash, err := refreshHash(c)
    if err != nil {
        return err
    }

    ctx, cancel := requestContext(c)
    defer cancel()

    staffID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    s, err := h.Staff.GetByID(ctx, staffID)
    if err != nil || !s.IsActive {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, s.ID, s.Role, s.Name, h.Cfg.AccessTTLMin)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access": tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the caller when only a valid bearer token is sent.
func (h *AuthHandler) Logout(c echo.Context) error {
    // The bearer is optional here, so the header is read directly instead
    // of going through JWTAuth.
    var staffID uint64
    if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
        raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
        if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, raw); err == nil {
            staffID, _ = claims.StaffID()
        }
    }

    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := requestContext(c)
    defer cancel()

    switch {
    case refreshToken != "":
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil && !errors.Is(err, repository.ErrNotFound) {
            return err
        }
    case staffID != 0:
        if err := h.Tokens.RevokeAllForStaff(ctx, staffID); err != nil {
            return err
        }
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
    id, ok := middleware.StaffID(c)
    if !ok {
        return errUnauthorized
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    s, err := h.Staff.GetByID(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, s)
}

func (h *AuthHandler) issuePair(c echo.Context, s staffPart, status int) error {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, s.ID, s.Role, s.Name, h.Cfg.AccessTTLMin)
    if err != nil {
        return err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()
    if err := h.Tokens.StoreRefresh(ctx, s.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return err
    }
    return c.JSON(status, authResp{
        Staff:   s,
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    })
}

func refreshHash(c echo.Context) (string, error) {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return "", echo.NewHTTPError(http.StatusBadRequest, "refresh_token required")
    }
    return utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)), nil
}
