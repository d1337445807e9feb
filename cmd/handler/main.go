package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rocjay1/card-simulator/internal/config"
	"github.com/rocjay1/card-simulator/internal/handler"
	"github.com/rocjay1/card-simulator/internal/scheduler"
	"github.com/rocjay1/card-simulator/internal/services"
	"github.com/shopspring/decimal"
)

// maxLoggedBody caps how much of a request body is logged.
const maxLoggedBody = 2048

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "path", configPath, "error", err)
		os.Exit(1)
	}

	// Initialize Services
	dbService, err := services.NewDatabaseService(ctx, cfg.Storage.TableServiceURL, services.TableNames{
		Cards:        cfg.Storage.CardsTable,
		Transactions: cfg.Storage.TransactionsTable,
		Statements:   cfg.Storage.StatementsTable,
	})
	if err != nil {
		slog.Error("Failed to init DatabaseService", "error", err)
		os.Exit(1)
	}

	blobService, err := services.NewBlobService(cfg.Storage.BlobServiceURL)
	if err != nil {
		slog.Error("Failed to init BlobService", "error", err)
		os.Exit(1)
	}

	queueService, err := services.NewQueueService(cfg.Storage.QueueServiceURL)
	if err != nil {
		slog.Error("Failed to init QueueService", "error", err)
		os.Exit(1)
	}

	deps := &handler.Dependencies{
		Database: dbService,
		Blob:     blobService,
		Queue:    queueService,
		Config:   cfg,
	}

	// Router
	mux := http.NewServeMux()

	// API Routes
	mux.HandleFunc("GET /api/cards", deps.HandleCreditCards)
	mux.HandleFunc("POST /api/cards", deps.HandleCreditCards)
	mux.HandleFunc("DELETE /api/cards", deps.HandleCreditCards)

	mux.HandleFunc("GET /api/statements", deps.HandleStatements)
	mux.HandleFunc("POST /api/statements", deps.HandleStatements)
	mux.HandleFunc("POST /api/statements/paid", deps.HandleStatementPaid)

	mux.HandleFunc("POST /api/payoff", deps.HandlePayoff)
	mux.HandleFunc("POST /api/payoff/compare", deps.HandleComparePayments)
	mux.HandleFunc("POST /api/payoff/required", deps.HandleRequiredPayment)
	mux.HandleFunc("POST /api/payoff/plan", deps.HandlePayoffPlan)

	mux.HandleFunc("POST /api/impact", deps.HandleImpact)
	mux.HandleFunc("POST /api/upload", deps.HandleUpload)

	// Adapter for HTTP Trigger (since enableForwardingHttpRequest is false)
	mux.HandleFunc("/HttpTrigger", deps.HandleHttpTrigger(mux))

	// Function triggers match on path only; the host always POSTs.
	mux.HandleFunc("/ProcessQueue", deps.ProcessQueue)
	mux.HandleFunc("/NightlyTrigger", deps.HandleNightlyTrigger)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Catch-all handler for unmatched requests to debug what the Host is sending
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		headers := make(map[string]string)
		for k, v := range r.Header {
			headers[k] = strings.Join(v, ", ")
		}
		slog.Warn("UNMATCHED REQUEST",
			"method", r.Method,
			"path", r.URL.Path,
			"headers", headers,
			"content_length", r.ContentLength,
		)
		http.NotFound(w, r)
	})

	// In-process cycle closing for deployments without a timer trigger.
	if spec := cfg.Schedule.CycleCloseCron; spec != "" {
		sched, err := scheduler.New(ctx, "close-cycles", spec, 10*time.Minute, func(ctx context.Context) error {
			_, err := deps.CloseDueCycles(ctx)
			return err
		})
		if err != nil {
			slog.Error("Failed to init scheduler", "cron", spec, "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           loggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting server", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Read body for logging (and restore it)
		var bodyBytes []byte
		if r.Body != nil {
			bodyBytes, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}
		preview := bodyBytes
		if len(preview) > maxLoggedBody {
			preview = preview[:maxLoggedBody]
		}

		slog.Debug("incoming request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_type", r.Header.Get("Content-Type"),
			"content_length", r.ContentLength,
			"body_preview", string(preview),
		)

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		slog.Info("request completed", "method", r.Method, "path", r.URL.Path, "status", rw.status, "duration", time.Since(start))
	})
}
