package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"lmaalem_backend/internal/events"
	apphttp "lmaalem_backend/internal/http"
	"lmaalem_backend/internal/http/router"
	"lmaalem_backend/internal/messaging"
	"lmaalem_backend/internal/notifier"
	"lmaalem_backend/internal/payments"
	"lmaalem_backend/internal/payments/provider"
	"lmaalem_backend/internal/store"
	"lmaalem_backend/internal/watcher"
	"lmaalem_backend/platform/config"
	"lmaalem_backend/platform/logger"
	"lmaalem_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	app, err := initFirebase(ctx, log, cfg)
	if err != nil {
		log.Error("failed to initialize firebase app", "error", err)
		panic("failed to initialize firebase app: " + err.Error())
	}

	fsClient, err := app.Firestore(ctx)
	if err != nil {
		log.Error("failed to initialize firestore client", "error", err)
		panic("failed to initialize firestore client: " + err.Error())
	}
	defer fsClient.Close()
	log.Info("firestore client initialized", "project", cfg.FirebaseProjectID)

	sender, err := messaging.NewFCMSender(ctx, app, log)
	if err != nil {
		log.Error("failed to initialize fcm sender", "error", err)
		panic("failed to initialize fcm sender: " + err.Error())
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	docStore := store.NewFirestore(fsClient, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	notifierModule := notifier.NewModule(docStore, docStore, docStore, sender, val, log)
	notifierModule.RegisterHandlers(eventBus)

	modules := []apphttp.Module{notifierModule}

	if paymentsModule := newPaymentsModule(cfg, val, log); paymentsModule != nil {
		modules = append(modules, paymentsModule)
	}

	watchErr := startWatcher(ctx, cfg, fsClient, eventBus, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	httpApp := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   docStore,
		EventBus: eventBus,
		Modules:  modules,
	}

	engine := router.New(httpApp)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		drained := make(chan struct{})
		go func() {
			eventBus.Drain()
			close(drained)
		}()
		select {
		case <-drained:
		case <-shutdownCtx.Done():
			log.Warn("shutdown timeout reached with handlers still in flight")
		}
	case err := <-watchErr:
		if err != nil {
			log.Error("watcher error", "error", err)
			panic("watcher error: " + err.Error())
		}
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initFirebase builds the Firebase app with retries; the project id and
// credentials come through the module-scoped config interface.
func initFirebase(ctx context.Context, log *logger.Logger, cfg config.FirebaseConfig) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.GetFirebaseCredentialsFile() != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GetFirebaseCredentialsFile()))
	}

	var app *firebase.App
	err := withRetry(ctx, log, "firebase app init", 5, 2*time.Second, func() error {
		a, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.GetFirebaseProjectID()}, opts...)
		if err != nil {
			return err
		}
		app = a
		return nil
	})
	return app, err
}

// newPaymentsModule builds the payments module, or nil when no Stripe key
// is configured.
func newPaymentsModule(cfg config.StripeConfig, val *validator.Validator, log *logger.Logger) *payments.Module {
	if !cfg.IsPaymentsEnabled() {
		log.Warn("STRIPE_SECRET_KEY not configured; payment endpoints disabled")
		return nil
	}
	return payments.NewModule(provider.NewStripeClient(cfg.GetStripeSecretKey()), val, log)
}

// startWatcher launches the Firestore change watcher when enabled. The
// returned channel carries its terminal error, if it ever stops.
func startWatcher(ctx context.Context, cfg config.WatcherConfig, client *firestore.Client, bus events.Bus, log *logger.Logger) <-chan error {
	watchErr := make(chan error, 1)
	if !cfg.IsWatcherEnabled() {
		log.Warn("document change watcher disabled")
		return watchErr
	}
	w := watcher.New(client, bus, log)
	go func() {
		watchErr <- w.Run(ctx)
	}()
	return watchErr
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
