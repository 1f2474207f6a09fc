package bootstrap

import (
	"context"
	"fmt"
	"log"

	"club-membership-be/internal/config"
	"club-membership-be/internal/controller"
	"club-membership-be/internal/pkg/logger"
	"club-membership-be/internal/pkg/serverutils"
	"club-membership-be/internal/repository/memory"
	"club-membership-be/internal/repository/unitofwork"
	"club-membership-be/internal/service"
	"club-membership-be/pkg/events"
	"club-membership-be/pkg/gateway"
	"club-membership-be/pkg/jobs"
	"club-membership-be/pkg/lock"
	membershipEvents "club-membership-be/pkg/membership/events"
	"club-membership-be/pkg/membership/status"

	pktNats "club-membership-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const settlementDurable = "settlement-consumer"

type Container struct {
	// Controllers
	MembershipController controller.IMembershipController
	PaymentController    controller.IPaymentController

	// Background work, started by Start
	SettlementService service.ISettlementService
	Reconciler        *jobs.PaymentReconciler

	cfg         *config.Config
	logger      logger.ILogger
	auditLogger logger.ILogger
	pubSub      *gochannel.GoChannel
	natsPub     *pktNats.Publisher
	natsSub     *pktNats.Subscriber
	redis       *redis.Client
}

// NewContainer wires every dependency. A nil db selects the in-process store.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)

	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		log.Printf("[WARN] DB_CONNECTION_STRING is empty, using the in-process store")
		uowFactory = memory.NewStore()
	}

	// 2. Infrastructure
	var rdb *redis.Client
	var locker lock.Locker
	if cfg.Lock.Backend == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		locker = lock.NewRedisLocker(rdb, cfg.Lock.TTL, cfg.Lock.Wait)
	} else {
		locker = lock.NewMemoryLocker(cfg.Lock.TTL, cfg.Lock.Wait)
	}

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Settlement inbox
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)

	paymentGateway := gateway.NewMidtransGateway(gateway.MidtransConfig{
		ServerKey:    cfg.Midtrans.ServerKey,
		IsProduction: cfg.Midtrans.IsProduction,
		Timeout:      cfg.Midtrans.GatewayTimeout,
	})

	// 3. Services
	eventPublisher := membershipEvents.NewNatsPublisher(natsPub, sysLogger)
	statusManager := status.NewManager(sysLogger, eventPublisher, nil)

	lifecycleService := service.NewLifecycleService(
		uowFactory,
		paymentGateway,
		locker,
		eventPublisher,
		sysLogger,
		service.LifecycleOptions{FrontendURL: cfg.App.FrontendURL},
	)
	adminService := service.NewMembershipAdminService(uowFactory, locker, statusManager)
	settlementService := service.NewSettlementService(
		lifecycleService,
		pubSub,
		memory.NewSignalCache(cfg.Settlement.DedupTTL),
		sysLogger,
		auditLogger,
		service.SettlementOptions{
			Topic:     cfg.Settlement.Topic,
			ServerKey: cfg.Midtrans.ServerKey,
		},
	)

	reconciler := jobs.NewPaymentReconciler(lifecycleService, paymentGateway, settlementService, sysLogger, cfg.Settlement.ReconcileStale)

	// 4. Controllers
	auth := serverutils.JwtMiddleware(cfg.Auth.JwtSecret)

	return &Container{
		MembershipController: controller.NewMembershipController(lifecycleService, adminService, auth),
		PaymentController:    controller.NewPaymentController(lifecycleService, settlementService, auth),
		SettlementService:    settlementService,
		Reconciler:           reconciler,
		cfg:                  cfg,
		logger:               sysLogger,
		auditLogger:          auditLogger,
		pubSub:               pubSub,
		natsPub:              natsPub,
		natsSub:              natsSub,
		redis:                rdb,
	}
}

// Start launches the settlement consumer, the NATS settlement subscription
// and the reconciler schedule.
func (c *Container) Start(ctx context.Context) error {
	if err := c.SettlementService.Consume(ctx); err != nil {
		return fmt.Errorf("start settlement consumer: %w", err)
	}

	if c.natsSub != nil {
		subject := events.Subject(events.PaymentSettlement)
		if err := c.natsSub.Subscribe(subject, settlementDurable, c.SettlementService.HandleBusEvent); err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	} else {
		c.logger.Warn("BOOTSTRAP", "NATS unavailable, bus settlements disabled", nil)
	}

	if err := c.Reconciler.Start(c.cfg.Settlement.ReconcileCron); err != nil {
		return fmt.Errorf("start reconciler: %w", err)
	}
	return nil
}

// Close stops background work and releases connections.
func (c *Container) Close() {
	c.Reconciler.Stop()
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if err := c.pubSub.Close(); err != nil {
		c.logger.Warn("BOOTSTRAP", "Failed to close settlement inbox", map[string]interface{}{"error": err.Error()})
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
	_ = c.auditLogger.Sync()
	_ = c.logger.Sync()
}
