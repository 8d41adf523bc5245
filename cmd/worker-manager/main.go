// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"welfare-workers/internal/common/auth"
	"welfare-workers/internal/common/config"
	"welfare-workers/internal/common/database"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/observability"
	"welfare-workers/internal/welfare"
	"welfare-workers/pkg/registry"

	aa "welfare-workers/internal/workers/welfare/approve-application"
	mp "welfare-workers/internal/workers/welfare/mark-application-paid"
	rp "welfare-workers/internal/workers/welfare/mark-reimbursement-paid"
	rr "welfare-workers/internal/workers/welfare/reallocate-reimbursements"
	rf "welfare-workers/internal/workers/welfare/recompute-fund-stats"
	ra "welfare-workers/internal/workers/welfare/reject-application"
	sn "welfare-workers/internal/workers/welfare/send-notification"
	us "welfare-workers/internal/workers/welfare/update-registration-status"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting welfare worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("welfare-worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	catalog := registry.Builtin()
	if err := catalog.Validate(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Shared domain services ---
	verifier := auth.NewVerifier(
		cfg.Auth.Keycloak.URL,
		cfg.Auth.Keycloak.Realm,
		cfg.Auth.Keycloak.ClientID,
		cfg.Auth.Keycloak.ClientSecret,
		cfg.Auth.Keycloak.Introspect,
	)
	audit := welfare.NewAuditRecorder(pg.DB, esClient.Client, cfg.Database.Elasticsearch.AuditIndex, log)
	stats := welfare.NewStatsAggregator(pg.DB, redis.Client, cfg.Welfare, log)

	// --- Register Workers ---

	// Application lifecycle (3)
	if cfg.Workers[aa.TaskType].Enabled {
		handler := aa.NewHandler(
			&aa.Config{
				Timeout: time.Duration(cfg.Workers[aa.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, verifier, audit, log,
		)
		startWorker(zeebeClient, aa.TaskType, cfg.Workers[aa.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[ra.TaskType].Enabled {
		handler := ra.NewHandler(
			&ra.Config{
				Timeout: time.Duration(cfg.Workers[ra.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, verifier, audit, log,
		)
		startWorker(zeebeClient, ra.TaskType, cfg.Workers[ra.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[mp.TaskType].Enabled {
		handler := mp.NewHandler(
			&mp.Config{
				Timeout:                 time.Duration(cfg.Workers[mp.TaskType].Timeout) * time.Millisecond,
				ReimbursementWindowDays: cfg.Welfare.ReimbursementWindowDays,
			},
			pg.DB, verifier, audit, log,
		)
		startWorker(zeebeClient, mp.TaskType, cfg.Workers[mp.TaskType], handler.Handle, zapLog)
	}

	// Reimbursement lifecycle (2)
	if cfg.Workers[rr.TaskType].Enabled {
		handler := rr.NewHandler(
			&rr.Config{
				Timeout: time.Duration(cfg.Workers[rr.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, verifier, audit, log,
		)
		startWorker(zeebeClient, rr.TaskType, cfg.Workers[rr.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[rp.TaskType].Enabled {
		handler := rp.NewHandler(
			&rp.Config{
				Timeout: time.Duration(cfg.Workers[rp.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, verifier, audit, log,
		)
		startWorker(zeebeClient, rp.TaskType, cfg.Workers[rp.TaskType], handler.Handle, zapLog)
	}

	// Registration & fund statistics (2)
	if cfg.Workers[us.TaskType].Enabled {
		handler := us.NewHandler(
			&us.Config{
				Timeout: time.Duration(cfg.Workers[us.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, verifier, audit, stats, log,
		)
		startWorker(zeebeClient, us.TaskType, cfg.Workers[us.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[rf.TaskType].Enabled {
		handler := rf.NewHandler(
			&rf.Config{
				Timeout: time.Duration(cfg.Workers[rf.TaskType].Timeout) * time.Millisecond,
			},
			stats, log,
		)
		startWorker(zeebeClient, rf.TaskType, cfg.Workers[rf.TaskType], handler.Handle, zapLog)
	}

	// Communication (1)
	if cfg.Workers[sn.TaskType].Enabled {
		handler, err := sn.NewHandler(
			&sn.Config{
				Timeout:      time.Duration(cfg.Workers[sn.TaskType].Timeout) * time.Millisecond,
				EmailEnabled: cfg.Notifications.Email.Enabled,
				SMSEnabled:   cfg.Notifications.SMS.Enabled,
				FromEmail:    cfg.Notifications.Email.FromEmail,
				AWSRegion:    cfg.Notifications.AWS.Region,
			},
			pg.DB, log,
		)
		if err != nil {
			zapLog.Fatal("failed to create send-notification handler", zap.Error(err))
		}
		startWorker(zeebeClient, sn.TaskType, cfg.Workers[sn.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All workers registered successfully",
		zap.Int("catalogSize", len(catalog.Activities)),
		zap.String("catalogVersion", catalog.Version),
	)

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/activities", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(catalog)
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_ = shutdownCtx

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
