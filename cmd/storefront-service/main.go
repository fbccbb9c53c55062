// cmd/storefront-service/main.go
package main

import (
	"context"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"storefront/internal/pkg/auth"
	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/mq"
	"storefront/internal/pkg/redis"
	inquiryapp "storefront/internal/service/inquiry/application"
	inquiryinfra "storefront/internal/service/inquiry/infrastructure"
	"storefront/internal/service/inquiry/infrastructure/rule"
	inquiryhttp "storefront/internal/service/inquiry/interfaces"
	loyaltyapp "storefront/internal/service/loyalty/application"
	loyaltyhttp "storefront/internal/service/loyalty/interfaces"
	orderapp "storefront/internal/service/order/application"
	orderinfra "storefront/internal/service/order/infrastructure"
	"storefront/internal/service/order/infrastructure/adapter"
	orderhttp "storefront/internal/service/order/interfaces"
	promoapp "storefront/internal/service/promotion/application"
	promoinfra "storefront/internal/service/promotion/infrastructure"
	promohttp "storefront/internal/service/promotion/interfaces"
	"storefront/internal/zookeeper"
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	cfg, err := bootstrap.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.App.Name, cfg.App.LogLevel)

	if err := run(cfg); err != nil {
		zlog.Fatal().Err(err).Msg("service exited with error")
	}
}

func run(cfg *bootstrap.Config) error {
	ctx := context.Background()
	var cleanup []func(ctx context.Context) error

	loc, err := time.LoadLocation(cfg.App.TimeZone)
	if err != nil {
		return errors.Wrapf(err, "load time zone %s", cfg.App.TimeZone)
	}

	// 1. 初始化核心技术组件
	mysqlCfg := cfg.Infra.MySQL
	db, err := database.Open(database.Options{
		Host:            mysqlCfg.Host,
		Port:            mysqlCfg.Port,
		User:            mysqlCfg.User,
		Password:        mysqlCfg.Password,
		Database:        mysqlCfg.Database,
		MaxOpenConns:    mysqlCfg.MaxOpenConns,
		MaxIdleConns:    mysqlCfg.MaxIdleConns,
		ConnMaxLifetime: mysqlCfg.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	cleanup = append(cleanup, closeDB(db))
	if mysqlCfg.AutoMigrate {
		if err := migrate(db); err != nil {
			return err
		}
	}
	txManager := database.NewTxManager(db)
	tracer := otel.Tracer(cfg.App.Name)

	// 2. promotion：ZooKeeper 未配置时只依赖数据库行锁
	var couponLocker promoapp.Locker = promoapp.NopLocker{}
	if zkCfg := cfg.Infra.Zookeeper; len(zkCfg.Servers) > 0 {
		conn, err := zookeeper.Connect(zkCfg.Servers, zkCfg.SessionTimeout)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, func(context.Context) error { conn.Close(); return nil })
		couponLocker = zookeeper.NewLocker(conn, zkCfg.LockTimeout)
	}
	promotionService := promoapp.NewPromotionService(promoinfra.NewGormCouponRepository(db), txManager, couponLocker, tracer)

	// 3. order：Redis 和 Kafka 都是可选的
	var orderOpts []orderapp.Option
	if redisCfg := cfg.Infra.Redis; redisCfg.Addr != "" {
		rdb, err := redis.NewClient(ctx, redis.Options{Addr: redisCfg.Addr, Password: redisCfg.Password, DB: redisCfg.DB})
		if err != nil {
			return err
		}
		cleanup = append(cleanup, func(context.Context) error { return rdb.Close() })
		orderOpts = append(orderOpts, orderapp.WithSubmissionGuard(adapter.NewSubmissionRedisAdapter(rdb, redisCfg.SubmissionTTL)))
	}
	if kafkaCfg := cfg.Infra.Kafka; len(kafkaCfg.Brokers) > 0 {
		publisher := adapter.NewOrderEventKafkaAdapter(mq.NewKafkaWriter(kafkaCfg.Brokers, kafkaCfg.OrderEventsTopic))
		cleanup = append(cleanup, func(context.Context) error { return publisher.Close() })
		orderOpts = append(orderOpts, orderapp.WithEventPublisher(publisher))
	}
	orderRepo := orderinfra.NewGormOrderRepository(db)
	productRepo := orderinfra.NewGormProductRepository(db)
	orderService := orderapp.NewOrderApplicationService(orderRepo, productRepo, txManager, promotionService, tracer, orderOpts...)

	// 4. loyalty 和 inquiry 只读订单历史
	tierService := loyaltyapp.NewTierService(orderRepo, tracer)

	ruleSet, err := rule.LoadRuleSet(cfg.Triage.RulesFile)
	if err != nil {
		return err
	}
	engine, err := rule.NewCELEngine(ruleSet)
	if err != nil {
		return err
	}
	inquiryService := inquiryapp.NewInquiryService(inquiryinfra.NewGormInquiryRepository(db), productRepo, orderRepo, engine, loc, tracer)

	// 5. 注册路由
	verifier := auth.NewVerifier(cfg.App.JWTSecret)
	promotionHandler := promohttp.NewPromotionHandler(promotionService)
	orderHandler := orderhttp.NewOrderHandler(orderService)
	tierHandler := loyaltyhttp.NewTierHandler(tierService)
	inquiryHandler := inquiryhttp.NewInquiryHandler(inquiryService)

	return bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.App.Name,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Router.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(verifier))
				promotionHandler.RegisterRoutes(r)
				orderHandler.RegisterRoutes(r)
				tierHandler.RegisterRoutes(r)
				inquiryHandler.RegisterRoutes(r)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					orderHandler.RegisterAdminRoutes(r)
				})
			})
		},
		Cleanup: cleanup,
	})
}

func migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&promoinfra.CouponModel{},
		&promoinfra.CouponUsageModel{},
		&orderinfra.OrderModel{},
		&orderinfra.ProductModel{},
		&inquiryinfra.InquiryModel{},
	)
	return errors.Wrap(err, "auto migrate")
}

func closeDB(db *gorm.DB) func(context.Context) error {
	return func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}
