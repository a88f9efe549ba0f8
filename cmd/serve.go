package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/rfidscan/api"
	"example.com/rfidscan/config"
	"example.com/rfidscan/internal/cache"
	"example.com/rfidscan/internal/database"
	"example.com/rfidscan/internal/messaging"
	"example.com/rfidscan/internal/mqtt"
	"example.com/rfidscan/internal/repository"
	"example.com/rfidscan/internal/scanlog"
	"example.com/rfidscan/internal/search"
	"example.com/rfidscan/internal/service"
	"example.com/rfidscan/internal/telemetry"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	disableNewRelic bool
	disableMQTT     bool
	autoMigrate     bool
	serverPort      int
	gracefulTimeout int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and MQTT ingestion",
	Long: `Starts the RFID scan service: the HTTP API, the MQTT scan subscriber
and the periodic flush of scanner logs to the database.

Persisted scanners are loaded on startup and flushed once more on SIGINT or SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startServer(); err != nil {
			log.Fatalf("Server exited with error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&disableNewRelic, "disable-newrelic", false, "Disable New Relic monitoring")
	serveCmd.Flags().BoolVar(&disableMQTT, "disable-mqtt", false, "Do not subscribe to the scan topic")
	serveCmd.Flags().BoolVar(&autoMigrate, "auto-migrate", true, "Run database migrations before serving")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "Server port (overrides config file)")
	serveCmd.Flags().IntVar(&gracefulTimeout, "graceful-timeout", 30, "Graceful shutdown timeout in seconds")
}

func startServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}
	mqttEnabled := cfg.MQTT.Enabled && !disableMQTT

	log.WithFields(logrus.Fields{
		"port":             cfg.Server.Port,
		"capacity":         cfg.Scanner.Capacity,
		"flush_interval":   cfg.Scanner.FlushInterval.String(),
		"mqtt_enabled":     mqttEnabled,
		"newrelic_enabled": cfg.NewRelic.Enabled && !disableNewRelic,
	}).Info("Initializing service components...")

	db, err := connectWithRetry(cfg.Database, 5)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing database connection...")
		if err := db.Close(); err != nil {
			log.WithError(err).Error("Error closing database connection")
		}
	}()

	if autoMigrate {
		log.Info("Running database migrations...")
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
	}

	snapshotCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, continuing without caching")
		snapshotCache, _ = cache.NewRedisCache(config.RedisConfig{})
	}
	defer snapshotCache.Close()

	bus, err := messaging.NewServiceBusClient(cfg.ServiceBus, "rfid-service", log)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.WithError(err).Error("Error closing messaging connection")
		}
	}()

	indexer, err := search.NewScanIndexer(cfg.Elastic)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize Elasticsearch, continuing without scan search")
		indexer, _ = search.NewScanIndexer(config.ElasticConfig{})
	}

	nrCfg := cfg.NewRelic
	if disableNewRelic {
		nrCfg.Enabled = false
	}
	nrApp, err := telemetry.InitNewRelic(nrCfg)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize New Relic")
	}
	if nrApp != nil {
		defer nrApp.Shutdown(5 * time.Second)
	}

	repo := repository.NewRepository(db)

	svc, err := service.NewService(service.ServiceConfig{
		Repository: repo,
		Cache:      snapshotCache,
		Bus:        bus,
		Indexer:    indexer,
		Logger:     log,
		Capacity:   cfg.Scanner.Capacity,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := svc.Load(ctx); err != nil {
		return err
	}

	server := api.NewServer(cfg, log, nrApp, svc, repo)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(gracefulTimeout)*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return service.RunFlusher(gctx, svc, cfg.Scanner.FlushInterval, log)
	})

	if mqttEnabled {
		client, err := mqtt.NewClient(cfg.MQTT, log)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}

		sub := mqtt.NewSubscriber(client.Native(), cfg.MQTT.ScanTopic, submitFromDevice(svc), log)
		if err := sub.Subscribe(); err != nil {
			client.Close()
			stop()
			_ = g.Wait()
			return err
		}

		g.Go(func() error {
			<-gctx.Done()
			if err := sub.Unsubscribe(); err != nil {
				log.WithError(err).Warn("Failed to unsubscribe from scan topic")
			}
			client.Close()
			return nil
		})
	}

	err = g.Wait()

	log.Info("Flushing scanners before exit...")
	flushCtx, cancel := context.WithTimeout(context.Background(), time.Duration(gracefulTimeout)*time.Second)
	defer cancel()
	if ferr := svc.Shutdown(flushCtx); ferr != nil {
		log.WithError(ferr).Error("Final flush failed")
	}

	log.Info("Server shutdown complete")
	return err
}

// submitFromDevice feeds MQTT scans into the service. The topic's account
// acts as the caller.
func submitFromDevice(svc service.Service) mqtt.ScanHandler {
	return func(ctx context.Context, account scanlog.Account, p mqtt.ScanPayload) error {
		_, err := svc.Submit(ctx, account, service.SubmitRequest{
			Account:  account,
			DeviceID: p.DeviceID,
			ScanTime: *p.ScanTime,
			TagUID:   p.TagUID,
		})
		return err
	}
}

// connectWithRetry connects to the database with exponential backoff
func connectWithRetry(cfg config.DatabaseConfig, maxRetries int) (database.DB, error) {
	var (
		db  database.DB
		err error
	)
	retryInterval := time.Second

	for i := 0; i < maxRetries; i++ {
		log.WithField("attempt", i+1).Info("Connecting to database...")
		db, err = database.Connect(cfg)
		if err == nil {
			log.Info("Successfully connected to database")
			return db, nil
		}

		log.WithFields(logrus.Fields{
			"error":         err.Error(),
			"retry_attempt": i + 1,
			"max_retries":   maxRetries,
		}).Error("Failed to connect to database, retrying...")

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}

	return nil, err
}
