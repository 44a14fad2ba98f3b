package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Vivek-k24/foodbiz/internal/cache"
	"github.com/Vivek-k24/foodbiz/internal/config"
	"github.com/Vivek-k24/foodbiz/internal/database"
	"github.com/Vivek-k24/foodbiz/internal/fanout"
	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/memstore"
	"github.com/Vivek-k24/foodbiz/internal/messaging"
	"github.com/Vivek-k24/foodbiz/internal/seed"
	"github.com/Vivek-k24/foodbiz/internal/server"
	"github.com/Vivek-k24/foodbiz/internal/services/menu"
	"github.com/Vivek-k24/foodbiz/internal/services/notification"
	"github.com/Vivek-k24/foodbiz/internal/services/order"
	"github.com/Vivek-k24/foodbiz/internal/services/table"
	"github.com/Vivek-k24/foodbiz/internal/services/tracking"
)

const serviceName = "order-service"

func main() {
	var (
		mode       = flag.String("mode", "", "Service mode (order-service, migrate, seed)")
		configPath = flag.String("config", "config.yaml", "Path to the YAML config file")
		port       = flag.Int("port", 0, "HTTP port, overrides the config file")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.HTTP.Port = *port
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "order-service":
		err = runOrderService(ctx, cfg, log)
	case "migrate":
		err = runMigrate(ctx, cfg, log)
	case "seed":
		err = runSeed(ctx, cfg, log)
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}
	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

func runMigrate(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	return db.RunMigrations(ctx, cfg.Database.MigrationsDir)
}

func runSeed(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	return db.Seed(ctx, seed.RestaurantName, seed.Menu(time.Now()))
}

// orderStore is what the order, tracking and table services need from the
// order persistence.
type orderStore interface {
	order.OrderStore
	tracking.OrderReader
	table.OrderSummarizer
}

type stores struct {
	orders orderStore
	tables table.TableStore
	menus  menu.Store
	ping   func(ctx context.Context) error
	close  func()
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		mem := memstore.New()
		mem.PutRestaurant(seed.RestaurantID, seed.RestaurantName)
		mem.PutMenu(seed.Menu(time.Now()))
		log.Info("store_ready", "Using in-memory store with demo restaurant", "startup", map[string]interface{}{
			"restaurant_id": seed.RestaurantID,
		})
		return &stores{orders: mem.Orders(), tables: mem.Tables(), menus: mem.Menus(), ping: mem.Ping, close: func() {}}, nil
	}

	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(ctx, cfg.Database.MigrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &stores{orders: db.Orders(), tables: db.Tables(), menus: db.Menus(), ping: db.Ping, close: db.Close}, nil
}

type transport struct {
	publisher  fanout.Publisher
	subscriber fanout.Subscriber
	checks     []server.HealthCheck
	close      func()
}

func openFanout(ctx context.Context, cfg *config.Config, rc *redis.Client, redisOpts *redis.Options, log *logger.Logger) (*transport, error) {
	if cfg.Fanout.Driver == config.FanoutDriverRabbitMQ {
		msgLog := log.With("messaging")
		conn, err := messaging.Dial(ctx, cfg, msgLog)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize messaging: %w", err)
		}
		log.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
			"exchange": conn.Exchange(),
		})
		return &transport{
			publisher:  messaging.NewPublisher(conn, msgLog),
			subscriber: messaging.NewSubscriber(conn, msgLog),
			checks:     []server.HealthCheck{{Name: "rabbitmq", Check: conn.Ping}},
			close:      func() { _ = conn.Close() },
		}, nil
	}
	return &transport{
		publisher:  fanout.NewRedisPublisher(rc),
		subscriber: fanout.NewRedisSubscriber(redisOpts),
		close:      func() {},
	}, nil
}

func runOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	redisOpts, err := cfg.RedisOptions()
	if err != nil {
		return err
	}
	rc := redis.NewClient(redisOpts)
	defer rc.Close()

	fo, err := openFanout(ctx, cfg, rc, redisOpts, log)
	if err != nil {
		return err
	}
	defer fo.close()

	fanoutLog := log.With("event-fanout")
	notifyLog := log.With("notification")

	notifier := fanout.NewNotifier(fo.publisher, cfg.Fanout.PublishTimeout, fanoutLog)
	registry := notification.NewRegistry(notifyLog)
	listener := fanout.NewListener(fo.subscriber, registry, fanout.ListenerConfig{
		Pattern:        cfg.Fanout.Pattern,
		InitialBackoff: cfg.Fanout.InitialBackoff,
		MaxBackoff:     cfg.Fanout.MaxBackoff,
		PollTimeout:    cfg.Fanout.PollTimeout,
	}, fanoutLog)

	menus := cache.NewMenuCache(st.menus, rc, cfg.MenuCache.TTL, log.With("menu-cache"))

	e := server.New(server.Options{Logger: log, TracerProvider: tp})
	checks := append([]server.HealthCheck{
		{Name: "store", Check: st.ping},
		{Name: "redis", Check: func(ctx context.Context) error { return rc.Ping(ctx).Err() }},
	}, fo.checks...)
	server.RegisterHealth(e, serviceName, checks...)

	order.NewHandler(order.NewService(st.orders, st.tables, st.menus, notifier, log), log).SetupRoutes(e)
	tracking.NewHandler(tracking.NewService(st.orders, st.tables, log), log).SetupRoutes(e)
	table.NewHandler(table.NewService(st.tables, st.orders, notifier, log), log).SetupRoutes(e)
	menu.NewHandler(menu.NewService(menus), log).SetupRoutes(e)
	notification.NewWebSocketHandler(registry, notifyLog).SetupRoutes(e)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("service_started", fmt.Sprintf("Order Service started on port %d", cfg.HTTP.Port), "startup", map[string]interface{}{
			"port":          cfg.HTTP.Port,
			"store_driver":  cfg.Store.Driver,
			"fanout_driver": cfg.Fanout.Driver,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return listener.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("graceful_shutdown", "Shutting down HTTP server", "", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
