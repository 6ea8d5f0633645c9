package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/visitor-parking-backend/internal/api"
	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
	"github.com/nekogravitycat/visitor-parking-backend/internal/blacklist"
	"github.com/nekogravitycat/visitor-parking-backend/internal/block"
	"github.com/nekogravitycat/visitor-parking-backend/internal/booking"
	"github.com/nekogravitycat/visitor-parking-backend/internal/clock"
	"github.com/nekogravitycat/visitor-parking-backend/internal/config"
	"github.com/nekogravitycat/visitor-parking-backend/internal/db"
	"github.com/nekogravitycat/visitor-parking-backend/internal/event"
	"github.com/nekogravitycat/visitor-parking-backend/internal/notification"
	"github.com/nekogravitycat/visitor-parking-backend/internal/payment"
	"github.com/nekogravitycat/visitor-parking-backend/internal/payout"
	"github.com/nekogravitycat/visitor-parking-backend/internal/pricing"
	"github.com/nekogravitycat/visitor-parking-backend/internal/webhook"
)

// Container holds the initialized components that are needed externally.
type Container struct {
	Router       *gin.Engine
	JWTManager   *auth.JWTManager
	Bus          *event.Bus
	Bookings     booking.Service
	Payouts      *payout.Service
	ExpiryWorker *booking.ExpiryWorker

	broadcaster event.Broadcaster
	notifier    notification.Notifier
}

// NewContainer initializes all modules and returns the container.
func NewContainer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log *zap.Logger) (*Container, error) {
	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTokenTTL)
	tx := db.NewTransactor(pool)
	clk := clock.NewSystem()

	// Event Bus
	broadcaster, err := event.NewBroadcaster(ctx, event.BroadcasterConfig{
		Driver:        cfg.Bus.Driver,
		RedisAddr:     cfg.Bus.RedisAddr,
		RedisPassword: cfg.Bus.RedisPassword,
		RedisChannel:  cfg.Bus.RedisChannel,
		AMQPURL:       cfg.Bus.AMQPURL,
		AMQPExchange:  cfg.Bus.AMQPExchange,
		KafkaBrokers:  cfg.Bus.KafkaBrokers,
		KafkaTopic:    cfg.Bus.KafkaTopic,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init event broadcaster: %w", err)
	}
	bus := event.NewBus(cfg.InstanceID, broadcaster, event.NewPgxStore(pool), log, cfg.Bus.BufferSize)
	bus.SubscribeAll(event.AuditLogger(log))

	// Notifications
	notifier, err := notification.New(cfg.Notify.Driver, cfg.Notify.AMQPURL, cfg.Notify.Exchange, log)
	if err != nil {
		_ = broadcaster.Close()
		return nil, fmt.Errorf("init notifier: %w", err)
	}

	// Payment Gateways
	gateways, err := payment.NewRegistry(payment.FactoryConfig{
		PublicBaseURL:       cfg.PublicBaseURL,
		StripeSecretKey:     cfg.Gateway.StripeSecretKey,
		StripeWebhookSecret: cfg.Gateway.StripeWebhookSecret,
		OmisePublicKey:      cfg.Gateway.OmisePublicKey,
		OmiseSecretKey:      cfg.Gateway.OmiseSecretKey,
		OmiseSourceType:     cfg.Gateway.OmiseSourceType,
	}, log)
	if err != nil {
		_ = broadcaster.Close()
		_ = notifier.Close()
		return nil, fmt.Errorf("init payment gateways: %w", err)
	}

	// Pricing Module
	pricingService := pricing.NewService(pricing.NewPgxRuleStore(pool), cfg.Booking.CommissionRate)

	// Blacklist Module
	checker := blacklist.NewChecker(blacklist.NewPgxRepository(pool), blacklist.NewHasher(cfg.Blocklist.Pepper), log)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(pool)
	paymentRepo := payment.NewPgxRepository(pool)
	bookingService := booking.NewService(booking.Deps{
		Repo:        bookingRepo,
		Blocks:      block.NewPgxRepository(pool),
		Payments:    paymentRepo,
		Gateways:    gateways,
		Pricing:     pricingService,
		Blacklist:   checker,
		Tx:          tx,
		Events:      bus,
		Clock:       clk,
		Log:         log,
		Currency:    cfg.Booking.Currency,
		HomeCountry: cfg.Booking.HomeCountry,
	})
	expiryWorker := booking.NewExpiryWorker(bookingService, cfg.Booking.PendingTTL, cfg.Booking.ExpiryScanInterval, log)

	// Webhook Module
	reconciler := webhook.NewReconciler(webhook.Deps{
		Gateways: gateways,
		Bookings: bookingRepo,
		Payments: paymentRepo,
		Tx:       tx,
		Notifier: notifier,
		Events:   bus,
		Log:      log,
	})

	// Payout Module
	payoutService := payout.NewService(payout.NewPgxRepository(pool), bus, log)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:     cfg.IsProduction(),
		ProdOrigins:      cfg.ProdOrigins,
		SimulatorEnabled: !cfg.IsProduction() || gateways.Default().Mode() == payment.ModeSimulator,
		Log:              log,
		DBPool:           pool,
		JWTManager:       jwtManager,
		BookingService:   bookingService,
		Webhooks:         reconciler,
		Payouts:          payoutService,
	})

	return &Container{
		Router:       router,
		JWTManager:   jwtManager,
		Bus:          bus,
		Bookings:     bookingService,
		Payouts:      payoutService,
		ExpiryWorker: expiryWorker,
		broadcaster:  broadcaster,
		notifier:     notifier,
	}, nil
}

// Close releases the transports opened by NewContainer.
func (c *Container) Close() error {
	return errors.Join(c.notifier.Close(), c.broadcaster.Close())
}
