package router

import (
	"basmah/config"
	"basmah/internal/handler"
	"basmah/internal/middleware"
	"basmah/internal/service"
	"basmah/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Actions    *service.AdminActionService
	Gallery    *service.GalleryService
	Reconciler *service.ReconciliationService
	Hub        *ws.Hub
	Limiter    middleware.Limiter
	Health     map[string]handler.Pinger
}

func Setup(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler(d.Health)
	r.GET("/healthz", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handler.NewAuthHandler(d.Actions, &cfg.JWT)
	bookingHandler := handler.NewBookingHandler(d.Actions)
	userHandler := handler.NewUserHandler(d.Actions)
	galleryHandler := handler.NewGalleryHandler(d.Gallery, cfg.Cloudinary.Folder)
	reconcileHandler := handler.NewReconcileHandler(d.Reconciler)

	api := r.Group("/api/v1/admin")
	if d.Limiter != nil {
		api.Use(middleware.RateLimit(d.Limiter))
	}
	api.POST("/login", authHandler.Login)
	api.GET("/ws/admin-feed", ws.UpgradeAdminFeed(&cfg.JWT, d.Hub))

	admin := api.Group("")
	admin.Use(middleware.AuthRequired(&cfg.JWT), middleware.AdminRequired())
	{
		bookings := admin.Group("/bookings/:id")
		bookings.GET("", bookingHandler.Get)
		bookings.PATCH("/status", bookingHandler.ChangeStatus)
		bookings.PATCH("/expiry", bookingHandler.ExtendExpiry)
		bookings.POST("/transfer", bookingHandler.Transfer)
		bookings.POST("/cancel", bookingHandler.Cancel)
		bookings.DELETE("", bookingHandler.Delete)
		bookings.GET("/pdf", bookingHandler.DownloadPDF)
		bookings.GET("/audit", bookingHandler.Audit)

		admin.POST("/users", userHandler.Create)
		users := admin.Group("/users/:id")
		users.GET("", userHandler.Get)
		users.PATCH("", userHandler.Update)
		users.PATCH("/account-status", userHandler.SetAccountStatus)
		users.DELETE("", userHandler.Delete)
		users.GET("/audit", userHandler.Audit)
		users.GET("/wallet", userHandler.Wallet)
		users.GET("/wallet/transactions", userHandler.WalletTransactions)
		users.POST("/wallet/credit", userHandler.CreditWallet)
		users.POST("/wallet/debit", userHandler.DebitWallet)
		users.POST("/points", userHandler.AdjustPoints)

		admin.POST("/gallery", galleryHandler.Upload)
		admin.POST("/reconcile", reconcileHandler.Run)
	}
	return r
}
