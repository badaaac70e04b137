package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gymclub/internal/config"
	"gymclub/internal/database"
	"gymclub/internal/handler"
	"gymclub/internal/middleware"
	"gymclub/internal/model"
	"gymclub/internal/session"
	"gymclub/internal/websocket"
)

func New(
	cfg *config.Config,
	db *database.DB,
	manager *session.Manager,
	hub *websocket.Hub,
	authHandler *handler.AuthHandler,
	memberHandler *handler.MemberHandler,
	adminHandler *handler.AdminHandler,
	uploadsRoot string,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Health(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unreachable"))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/ws", websocket.ServeWS(hub, manager))

	// Receipts and promo images are served directly when the local storage
	// driver is active; the S3 driver hands out bucket URLs instead.
	if uploadsRoot != "" {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsRoot)))
		r.Get("/uploads/*", fileServer.ServeHTTP)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", authHandler.Login)
			auth.Post("/signup", authHandler.Signup)
			auth.Post("/magic-link", authHandler.MagicLink)
			auth.Post("/bootstrap", authHandler.Bootstrap)
			auth.Get("/session", authHandler.Session)
			auth.Post("/refresh-profile", authHandler.RefreshProfile)
			auth.Post("/logout", authHandler.Logout)
		})

		api.Route("/member", func(member chi.Router) {
			member.Use(middleware.Guard(manager, model.RoleMember))
			member.Get("/summary", memberHandler.Summary)
			member.Put("/profile", memberHandler.UpdateProfile)
			member.Get("/payments", memberHandler.ListPayments)
			member.Post("/payments/sandbox", memberHandler.PaySandbox)
			member.Post("/payments/transfer", memberHandler.PayTransfer)
			member.Get("/notifications", memberHandler.ListNotifications)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.Guard(manager, model.RoleAdmin))
			admin.Get("/members", adminHandler.ListMembers)
			admin.Get("/members/stats", adminHandler.MemberStats)
			admin.Put("/members/{id}/expiry", adminHandler.UpdateMemberExpiry)
			admin.Get("/payments", adminHandler.ListPayments)
			admin.Put("/payments/{id}", adminHandler.ValidatePayment)
			admin.Get("/notifications", adminHandler.ListNotifications)
			admin.Post("/notifications", adminHandler.CreateNotification)
			admin.Delete("/notifications/{id}", adminHandler.DeleteNotification)
		})
	})

	return r
}
