package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"  // Echo web framework
	"github.com/redis/go-redis/v9" // shared client for the limiter and the response cache

	"github.com/iliyamo/gymdesk/internal/config"     // cache and rate limit settings
	"github.com/iliyamo/gymdesk/internal/handler"    // HTTP handlers
	"github.com/iliyamo/gymdesk/internal/middleware" // JWT, role gate, limiter, cache
	"github.com/iliyamo/gymdesk/internal/model"      // staff roles
)

// Role sets of the route allow-list.
var (
	allStaff    = []string{model.RoleSuperAdmin, model.RoleAdmin, model.RoleFrontDesk, model.RoleCoach}
	frontOffice = []string{model.RoleSuperAdmin, model.RoleAdmin, model.RoleFrontDesk}
	management  = []string{model.RoleSuperAdmin, model.RoleAdmin}
	superAdmin  = []string{model.RoleSuperAdmin}
)

// Handlers groups every handler the API mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Plans       *handler.PlanHandler
	Memberships *handler.MembershipHandler
	Payments    *handler.PaymentHandler
	Prospects   *handler.ProspectHandler
	Leads       *handler.LeadHandler
	Members     *handler.MemberHandler
	Sellers     *handler.SellerHandler
	Staff       *handler.StaffHandler
	Logs        *handler.LogHandler
	Dashboard   *handler.DashboardHandler
}

// Options carries what the middlewares need.  A nil Redis client turns
// both the limiter and the cache into pass-throughs.
type Options struct {
	Config    config.Config
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
}

// RegisterRoutes registers routes that do not require authentication:
// the health check and the public runtime configuration.
func RegisterRoutes(e *echo.Echo, cfg config.Config) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/config", handler.PublicConfig(cfg))
}

// RegisterAuth registers the staff session endpoints.  Login and token
// exchange live under /v1/auth and are rate limited per IP; /v1/me needs
// a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opts Options) {
	g := e.Group("/v1/auth", middleware.NewTokenBucket(opts.RateLimit.Public(), opts.Redis))
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	// new access token, same refresh token
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(opts.Config.JWTSecret),
		middleware.RequireRole(allStaff...),
	)
}

// RegisterAPI mounts the back-office API under /v1.  Every route passes
// JWTAuth and then its own RequireRole, so the allow-list is enforced
// here and not by the dashboard.  Reads go through the Redis response
// cache after the role check; any successful write flushes it.
func RegisterAPI(e *echo.Echo, h Handlers, opts Options) {
	// The landing page form is the only anonymous write.  It only touches
	// the prospect list and the dashboard counters, so only those scopes
	// are flushed.
	e.POST("/v1/prospects", h.Prospects.Capture,
		middleware.NewTokenBucket(opts.RateLimit.Public(), opts.Redis),
		middleware.InvalidateOnWrite(opts.Cache, opts.Redis, "prospects", "dashboard"),
	)

	g := e.Group("/v1",
		middleware.JWTAuth(opts.Config.JWTSecret),
		middleware.NewTokenBucket(opts.RateLimit, opts.Redis),
		middleware.InvalidateOnWrite(opts.Cache, opts.Redis),
	)
	cache := middleware.NewRedisCache(opts.Cache, opts.Redis)
	allow := func(roles []string) echo.MiddlewareFunc { return middleware.RequireRole(roles...) }
	read := func(roles []string) []echo.MiddlewareFunc {
		return []echo.MiddlewareFunc{allow(roles), cache}
	}

	// ---- Dashboard ----
	g.GET("/dashboard", h.Dashboard.Get, read(frontOffice)...)

	// ---- Membership plans ----
	g.GET("/membership-plans", h.Plans.List, read(allStaff)...)
	g.GET("/membership-plans/:id", h.Plans.Get, read(allStaff)...)
	g.POST("/membership-plans", h.Plans.Create, allow(management))
	g.PUT("/membership-plans/:id", h.Plans.Update, allow(management))
	g.PATCH("/membership-plans/:id", h.Plans.Update, allow(management))

	// ---- Memberships & payments ----
	g.POST("/memberships", h.Memberships.Create, allow(frontOffice))
	g.PATCH("/memberships/:id", h.Memberships.Update, allow(frontOffice))
	g.GET("/memberships/expiring", h.Memberships.Expiring, read(frontOffice)...)
	g.POST("/payments", h.Payments.Record, allow(frontOffice))
	g.GET("/payments", h.Payments.List, read(frontOffice)...)
	g.GET("/payments/revenue", h.Payments.Revenue, read(frontOffice)...)

	// ---- Prospects ----
	g.GET("/prospects", h.Prospects.List, read(frontOffice)...)
	g.GET("/prospects/:id", h.Prospects.Get, read(frontOffice)...)
	g.PATCH("/prospects/:id", h.Prospects.Update, allow(frontOffice))
	g.POST("/prospects/:id/convert", h.Prospects.Convert, allow(frontOffice))

	// ---- Leads ----
	g.POST("/leads", h.Leads.Create, allow(frontOffice))
	g.GET("/leads", h.Leads.List, read(frontOffice)...)
	g.GET("/leads/:id", h.Leads.Get, read(frontOffice)...)
	g.PATCH("/leads/:id", h.Leads.Update, allow(frontOffice))
	g.PUT("/leads/:id/seller", h.Leads.Assign, allow(frontOffice))
	g.PATCH("/leads/:id/status", h.Leads.Status, allow(frontOffice))
	g.POST("/leads/:id/convert", h.Leads.Convert, allow(frontOffice))

	// ---- Members (coaches get the read-only views) ----
	withCoach := allStaff
	g.POST("/users", h.Members.Create, allow(frontOffice))
	g.GET("/users", h.Members.List, read(withCoach)...)
	g.GET("/users/:id", h.Members.Get, read(withCoach)...)
	g.PATCH("/users/:id", h.Members.Update, allow(frontOffice))
	g.PATCH("/users/:id/status", h.Members.Status, allow(frontOffice))
	g.POST("/users/:id/renew", h.Memberships.Renew, allow(frontOffice))
	g.GET("/users/:id/memberships", h.Memberships.History, read(frontOffice)...)
	g.GET("/users/:id/payments", h.Payments.ForMember, read(frontOffice)...)
	g.GET("/users/:id/activity", h.Members.Activity, read(frontOffice)...)

	// ---- Sellers ----
	g.POST("/sellers", h.Sellers.Create, allow(management))
	g.GET("/sellers", h.Sellers.List, read(management)...)
	g.PATCH("/sellers/:id", h.Sellers.Update, allow(management))
	g.DELETE("/sellers/:id", h.Sellers.Deactivate, allow(management))

	// ---- Audit log ----
	g.GET("/logs", h.Logs.List, read(management)...)

	// ---- Staff accounts ----
	g.GET("/staff", h.Staff.List, allow(superAdmin))
	g.POST("/staff", h.Staff.Create, allow(superAdmin))
	g.DELETE("/staff/:id", h.Staff.Delete, allow(superAdmin))
}
