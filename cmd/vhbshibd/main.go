package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/DatabayAG/VhbShibAuth/pkg/authflow"
	"github.com/DatabayAG/VhbShibAuth/pkg/config"
	"github.com/DatabayAG/VhbShibAuth/pkg/matching"
	"github.com/DatabayAG/VhbShibAuth/pkg/observability"
	"github.com/DatabayAG/VhbShibAuth/pkg/provision"
	"github.com/DatabayAG/VhbShibAuth/pkg/session"
	"github.com/DatabayAG/VhbShibAuth/pkg/web"
)

func main() {
	proc, err := config.LoadProcess()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(proc.LogLevel), os.Stdout)

	db, err := sql.Open("postgres", proc.PostgresURL)
	if err != nil {
		logger.WithError(err).Error("failed to open database")
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.WithError(err).Error("database is not reachable")
		os.Exit(1)
	}

	ctx := context.Background()
	cfgStore := config.NewStore(db)
	if err := cfgStore.Migrate(ctx); err != nil {
		logger.WithError(err).Error("failed to migrate configuration table")
		os.Exit(1)
	}
	catalog := config.DefaultCatalog()
	if err := cfgStore.Load(ctx, catalog); err != nil {
		logger.WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	// Pending selections go to redis when configured, otherwise to an
	// in-process store swept by a background job.
	var sessions session.Store
	var redisClient *redis.Client
	var memSessions *session.MemoryStore
	if proc.RedisAddr != "" {
		store, err := session.NewRedisStore(proc.RedisAddr, proc.RedisPassword, session.DefaultTTL)
		if err != nil {
			logger.WithError(err).Error("redis is not reachable")
			os.Exit(1)
		}
		sessions = store
		redisClient = store.Client()
		logger.WithField("addr", proc.RedisAddr).Info("using redis session store")
	} else {
		memSessions = session.NewMemoryStore(session.DefaultTTL)
		sessions = memSessions
		logger.Info("using in-process session store")
	}

	var metrics *observability.Metrics
	if proc.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	courseStore := matching.NewSQLCourseStore(db)
	flow := authflow.NewFlow(catalog,
		provision.NewSQLAccountStore(db),
		courseStore,
		matching.NewSQLMembershipStore(db),
		sessions, logger, metrics,
		authflow.Options{BaseURL: proc.BaseURL, StartPageURL: proc.StartPageURL})

	var samlService *web.SAMLService
	if proc.SAMLIdPSSOURL != "" {
		samlService, err = web.NewSAMLService(web.SAMLConfig{
			EntityID:    proc.SAMLEntityID,
			IdPSSOURL:   proc.SAMLIdPSSOURL,
			IdPIssuer:   proc.SAMLIdPIssuer,
			IdPCertFile: proc.SAMLIdPCertFile,
			ACSURL:      proc.BaseURL + "/auth/shibboleth/callback",
		})
		if err != nil {
			logger.WithError(err).Error("failed to configure SAML service provider")
			os.Exit(1)
		}
		logger.Info("SAML assertion consumer enabled")
	}

	server := web.NewServer(flow, catalog, cfgStore, courseStore, samlService, logger, metrics)
	router := server.Router()

	health := observability.NewHealthChecker(db, redisClient)
	router.HandleFunc("/healthz", health.Handler).Methods(http.MethodGet)
	if metrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	scheduler := cron.New()
	if memSessions != nil {
		if _, err := scheduler.AddFunc("@every 5m", func() {
			if n := memSessions.Sweep(); n > 0 {
				logger.WithField("expired", n).Debug("swept expired selections")
			}
		}); err != nil {
			logger.WithError(err).Error("failed to schedule session sweep")
			os.Exit(1)
		}
	}
	scheduler.Start()

	httpServer := &http.Server{
		Addr:         proc.Host + ":" + proc.Port,
		Handler:      router,
		ReadTimeout:  proc.ReadTimeout,
		WriteTimeout: proc.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server failed")
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")

	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(ctx, proc.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown failed")
		os.Exit(1)
	}
	logger.Info("stopped")
}
