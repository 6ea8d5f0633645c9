package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
	"github.com/nekogravitycat/visitor-parking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/visitor-parking-backend/internal/booking/http"
	"github.com/nekogravitycat/visitor-parking-backend/internal/payout"
	payoutHttp "github.com/nekogravitycat/visitor-parking-backend/internal/payout/http"
	webhookHttp "github.com/nekogravitycat/visitor-parking-backend/internal/webhook/http"
)

// Config carries what the router needs from the container.
type Config struct {
	IsProduction     bool
	ProdOrigins      string
	SimulatorEnabled bool

	Log            *zap.Logger
	DBPool         *pgxpool.Pool
	JWTManager     *auth.JWTManager
	BookingService booking.Service
	Webhooks       webhookHttp.Processor
	Payouts        *payout.Service
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - RequestID: Tags every request so log lines can be correlated.
	// - AccessLog: Structured request logging through zap.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestID(), AccessLog(cfg.Log), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		config.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	} else {
		config.AllowOrigins = []string{
			"http://localhost:3000", // resident portal
			"http://localhost:8081", // Swagger
		}
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", requestIDHeader}
	r.Use(cors.New(config))

	r.GET("/health", health(cfg.DBPool))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// staffMiddleware: Further restricts to platform staff.
	staffMiddleware := auth.RequireRole(auth.RoleAdmin, auth.RoleSupport)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	authHandler := NewAuthHandler()
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	webhookHandler := webhookHttp.NewHandler(cfg.Webhooks, cfg.SimulatorEnabled)
	payoutHandler := payoutHttp.NewHandler(cfg.Payouts)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		v1.GET("/auth/me", authMiddleware, authHandler.Me)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
		webhookHttp.RegisterRoutes(v1, webhookHandler)
		payoutHttp.RegisterRoutes(v1, payoutHandler, authMiddleware, staffMiddleware)
	}

	return r
}

func health(pool *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pool != nil {
			if err := pool.Ping(c.Request.Context()); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
