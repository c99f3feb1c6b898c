package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gymdesk/internal/config"
	"github.com/iliyamo/gymdesk/internal/handler"
	"github.com/iliyamo/gymdesk/internal/model"
	"github.com/iliyamo/gymdesk/internal/utils"
)

const secret = "router-test-secret"

type members struct{ handler.MemberStore }

func (members) List(ctx context.Context, f model.MemberFilter) ([]model.Member, error) {
	return []model.Member{}, nil
}

type sellers struct{ handler.SellerStore }

func (sellers) List(ctx context.Context, includeInactive bool) ([]model.Seller, error) {
	return []model.Seller{}, nil
}

func newAPI(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	opts := Options{Config: config.Config{JWTSecret: secret}}
	RegisterRoutes(e, opts.Config)
	RegisterAPI(e, Handlers{
		Members: handler.NewMemberHandler(members{}, nil, nil, nil, nil),
		Sellers: handler.NewSellerHandler(sellers{}, nil),
	}, opts)
	return e
}

func get(t *testing.T, e *echo.Echo, path, role string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if role != "" {
		tok, err := utils.NewAccessToken(secret, 9, role, "Test", 15)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRoleAllowList(t *testing.T) {
	e := newAPI(t)

	cases := []struct {
		path string
		role string
		want int
	}{
		{"/v1/users", "", http.StatusUnauthorized},
		{"/v1/users", model.RoleCoach, http.StatusOK},
		{"/v1/users", model.RoleFrontDesk, http.StatusOK},
		{"/v1/sellers", model.RoleCoach, http.StatusForbidden},
		{"/v1/sellers", model.RoleFrontDesk, http.StatusForbidden},
		{"/v1/sellers", model.RoleAdmin, http.StatusOK},
		{"/v1/sellers", model.RoleSuperAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.path+"/"+tc.role, func(t *testing.T) {
			assert.Equal(t, tc.want, get(t, e, tc.path, tc.role))
		})
	}
}

func TestHealthIsPublic(t *testing.T) {
	assert.Equal(t, http.StatusOK, get(t, newAPI(t), "/healthz", ""))
}
