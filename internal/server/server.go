package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/parishhub/parish/internal/auth"
	"github.com/parishhub/parish/internal/database"
	"github.com/parishhub/parish/internal/handler"
	"github.com/parishhub/parish/internal/middleware"
	"github.com/parishhub/parish/internal/model"
	"github.com/parishhub/parish/internal/service"
	"github.com/parishhub/parish/internal/store"
	ws "github.com/parishhub/parish/internal/websocket"
)

type Options struct {
	CORSOrigins []string
	RateLimit   int
	RateWindow  time.Duration
	Mailer      service.Mailer
	// Clock overrides the store clock used for age derivation.
	Clock       func() time.Time
}

type Server struct {
	db          *database.DB
	tokens      *auth.TokenManager
	hub         *ws.Hub
	families    *service.FamilyService
	admins      *service.AdminService
	familyAuthH *handler.FamilyAuthHandler
	familyUnitH *handler.FamilyUnitHandler
	adminFamH   *handler.AdminFamilyHandler
	adminAuthH  *handler.AdminAuthHandler
	rateLimiter *middleware.RateLimiter
	opts        Options
	logger      *slog.Logger
}

func New(db *database.DB, tokens *auth.TokenManager, opts Options, logger *slog.Logger) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	var storeOpts []store.FamilyStoreOption
	if opts.Clock != nil {
		storeOpts = append(storeOpts, store.WithClock(opts.Clock))
	}
	familyStore := store.NewFamilyStore(db, storeOpts...)
	adminStore := store.NewAdminStore(db)

	families := service.NewFamilyService(familyStore, hub, opts.Mailer, logger.With("component", "family_service"))
	admins := service.NewAdminService(adminStore, hub, logger.With("component", "admin_service"))

	return &Server{
		db:          db,
		tokens:      tokens,
		hub:         hub,
		families:    families,
		admins:      admins,
		familyAuthH: handler.NewFamilyAuthHandler(families, tokens, logger.With("component", "family_auth")),
		familyUnitH: handler.NewFamilyUnitHandler(families, logger.With("component", "family_unit")),
		adminFamH:   handler.NewAdminFamilyHandler(families, logger.With("component", "admin_family")),
		adminAuthH:  handler.NewAdminAuthHandler(admins, tokens, logger.With("component", "admin_auth")),
		rateLimiter: middleware.NewRateLimiter(),
		opts:        opts,
		logger:      logger,
	}
}

// Hub returns the realtime hub so it can be closed on shutdown.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Close disconnects realtime clients and waits for background e-mail.
func (s *Server) Close() {
	s.hub.Close()
	s.families.Wait()
}

// Admins returns the admin service for seeding.
func (s *Server) Admins() *service.AdminService {
	return s.admins
}

type middlewareFunc = func(http.Handler) http.Handler

// chain wraps h so the first middleware runs first.
func chain(h http.HandlerFunc, mws ...middlewareFunc) http.Handler {
	var out http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	authn := middleware.Authenticate(s.tokens)
	limited := middleware.RateLimit(s.rateLimiter, middleware.ByIP, s.opts.RateLimit, s.opts.RateWindow)
	family := []middlewareFunc{authn, middleware.RequireFamily}
	familyAdmin := []middlewareFunc{authn, middleware.RequireAdmin, middleware.RequirePermission(model.PermManageFamilyUnits)}
	superAdmin := []middlewareFunc{authn, middleware.RequireRole(model.RoleSuperAdmin)}

	mux.Handle("GET /health", handler.Health(s.db, s.logger.With("component", "health")))

	// Family accounts
	mux.Handle("POST /api/family-auth/register", chain(s.familyAuthH.Register, limited))
	mux.Handle("POST /api/family-auth/login", chain(s.familyAuthH.Login, limited))
	mux.Handle("GET /api/family-auth/me", chain(s.familyAuthH.Me, family...))
	mux.Handle("PUT /api/family-auth/profile", chain(s.familyAuthH.UpdateProfile, family...))
	mux.Handle("PUT /api/family-auth/password", chain(s.familyAuthH.ChangePassword, family...))

	// Directory and own members
	mux.HandleFunc("GET /api/family-units", s.familyUnitH.List)
	mux.HandleFunc("GET /api/family-units/{id}", s.familyUnitH.Get)
	mux.Handle("POST /api/family-units/members", chain(s.familyUnitH.AddMember, family...))
	mux.Handle("PUT /api/family-units/members/{memberId}", chain(s.familyUnitH.UpdateMember, family...))
	mux.Handle("DELETE /api/family-units/members/{memberId}", chain(s.familyUnitH.RemoveMember, family...))

	// Admin accounts
	mux.Handle("POST /api/admin/auth/login", chain(s.adminAuthH.Login, limited))
	mux.Handle("GET /api/admin/auth/me", chain(s.adminAuthH.Me, authn, middleware.RequireAdmin))
	mux.Handle("GET /api/admin/admins", chain(s.adminAuthH.List, superAdmin...))
	mux.Handle("POST /api/admin/admins", chain(s.adminAuthH.Create, superAdmin...))

	// Family management
	mux.Handle("GET /api/admin/families", chain(s.adminFamH.List, familyAdmin...))
	mux.Handle("GET /api/admin/families/export", chain(s.adminFamH.Export, familyAdmin...))
	mux.Handle("POST /api/admin/families", chain(s.adminFamH.Create, familyAdmin...))
	mux.Handle("GET /api/admin/families/{id}", chain(s.adminFamH.Get, familyAdmin...))
	mux.Handle("PUT /api/admin/families/{id}", chain(s.adminFamH.Update, familyAdmin...))
	mux.Handle("DELETE /api/admin/families/{id}", chain(s.adminFamH.Delete,
		authn, middleware.RequireRole(model.RoleSuperAdmin, model.RoleAdmin), middleware.RequirePermission(model.PermManageFamilyUnits)))
	mux.Handle("PUT /api/admin/families/{id}/password", chain(s.adminFamH.ResetPassword, familyAdmin...))
	mux.Handle("POST /api/admin/families/{id}/members", chain(s.adminFamH.AddMember, familyAdmin...))
	mux.Handle("PUT /api/admin/families/{id}/members/{memberId}", chain(s.adminFamH.UpdateMember, familyAdmin...))
	mux.Handle("DELETE /api/admin/families/{id}/members/{memberId}", chain(s.adminFamH.RemoveMember, familyAdmin...))

	// Realtime feed
	mux.Handle("GET /api/admin/ws", chain(
		ws.HandleWebSocket(s.hub, ws.OriginPatterns(s.opts.CORSOrigins), s.logger.With("component", "websocket")),
		authn, middleware.RequireAdmin,
	))

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	return middleware.RequestLogger(s.logger.With("component", "http"))(corsHandler(mux))
}
