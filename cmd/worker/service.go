package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/daybreak-labs/daybreak-backend/api/routes"
	"github.com/daybreak-labs/daybreak-backend/internal/activitylog"
	"github.com/daybreak-labs/daybreak-backend/internal/adapters"
	"github.com/daybreak-labs/daybreak-backend/internal/alarms"
	"github.com/daybreak-labs/daybreak-backend/internal/cron"
	"github.com/daybreak-labs/daybreak-backend/internal/definitions"
	"github.com/daybreak-labs/daybreak-backend/internal/domain"
	"github.com/daybreak-labs/daybreak-backend/internal/hub"
	"github.com/daybreak-labs/daybreak-backend/internal/policy"
	"github.com/daybreak-labs/daybreak-backend/internal/recovery"
	financesched "github.com/daybreak-labs/daybreak-backend/internal/scheduler/finance"
	"github.com/daybreak-labs/daybreak-backend/internal/scheduler/universal"
	"github.com/daybreak-labs/daybreak-backend/internal/settings"
	"github.com/daybreak-labs/daybreak-backend/pkg/config"
	"github.com/daybreak-labs/daybreak-backend/pkg/db"
	"github.com/daybreak-labs/daybreak-backend/pkg/kv"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
	"github.com/daybreak-labs/daybreak-backend/pkg/metrics"
)

const recoveryLockName = "recovery"

// Service owns the worker's long-running pieces: the reconciliation cron, the
// alarm dispatcher, and the HTTP surface.
type Service struct {
	cfg        *config.Config
	logg       *logger.Logger
	cron       *cron.Service
	dispatcher *alarms.Dispatcher
	server     *http.Server
}

// NewService wires the full notification pipeline from a database client.
func NewService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	if dbClient == nil {
		return nil, errors.New("database client is required")
	}

	conn := dbClient.DB()
	store := kv.NewStore(conn)

	settingsSvc, err := settings.NewService(store)
	if err != nil {
		return nil, fmt.Errorf("settings service: %w", err)
	}
	gate, err := policy.NewGate(settingsSvc, logg)
	if err != nil {
		return nil, fmt.Errorf("policy gate: %w", err)
	}
	log, err := activitylog.NewStore(store, cfg.Notify.LogCap)
	if err != nil {
		return nil, fmt.Errorf("activity log: %w", err)
	}
	alarmStore, err := alarms.NewStore(conn)
	if err != nil {
		return nil, fmt.Errorf("alarm store: %w", err)
	}

	recoveryMetrics := metrics.NewRecoveryMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	h, err := hub.New(hub.Params{
		Scheduler: alarmStore,
		Log:       log,
		Logger:    logg,
		Metrics:   recoveryMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("hub: %w", err)
	}

	tasks := domain.NewTaskRepo(conn)
	habits := domain.NewHabitRepo(conn)
	finance := domain.NewFinanceRepo(conn)

	taskAdapter, err := adapters.NewTaskAdapter(tasks, logg)
	if err != nil {
		return nil, fmt.Errorf("task adapter: %w", err)
	}
	habitAdapter, err := adapters.NewHabitAdapter(habits, logg)
	if err != nil {
		return nil, fmt.Errorf("habit adapter: %w", err)
	}
	financeAdapter, err := adapters.NewFinanceAdapter(finance, logg)
	if err != nil {
		return nil, fmt.Errorf("finance adapter: %w", err)
	}
	h.RegisterAdapter(taskAdapter)
	h.RegisterAdapter(habitAdapter)
	h.RegisterAdapter(financeAdapter)

	defsRepo, err := definitions.NewRepo(store)
	if err != nil {
		return nil, fmt.Errorf("definition repo: %w", err)
	}

	uniSched, err := universal.New(universal.Params{
		Definitions: defsRepo,
		Tasks:       tasks,
		Habits:      habits,
		Finance:     finance,
		Settings:    settingsSvc,
		Policy:      gate,
		Hub:         h,
		Log:         log,
		Logger:      logg,
		Notify:      cfg.Notify,
	})
	if err != nil {
		return nil, fmt.Errorf("universal scheduler: %w", err)
	}
	finSched, err := financesched.New(financesched.Params{
		Finance: finance,
		Policy:  gate,
		Hub:     h,
		Pending: alarmStore,
		Log:     log,
		Logger:  logg,
		Notify:  cfg.Notify,
	})
	if err != nil {
		return nil, fmt.Errorf("finance scheduler: %w", err)
	}

	defsSvc, err := definitions.NewService(definitions.ServiceParams{
		Repo:     defsRepo,
		Resyncer: uniSched,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("definition service: %w", err)
	}

	orch, err := recovery.NewOrchestrator(recovery.OrchestratorParams{
		Hub:       h,
		Finance:   finSched,
		Universal: uniSched,
		Policy:    gate,
		Alarms:    alarmStore,
		Tasks:     tasks,
		Habits:    habits,
		Registry:  domain.NewRegistry(tasks, habits, finance),
		Defs:      defsRepo,
		FinRepo:   finance,
		Log:       log,
		Logger:    logg,
		Metrics:   recoveryMetrics,
		Notify:    cfg.Notify,
	})
	if err != nil {
		return nil, fmt.Errorf("recovery orchestrator: %w", err)
	}
	refresher, err := recovery.NewRefresher(recovery.RefresherParams{
		Orchestrator: orch,
		Settings:     settingsSvc,
		KV:           store,
		Logger:       logg,
		Debounce:     cfg.Recovery.Debounce,
	})
	if err != nil {
		return nil, fmt.Errorf("recovery refresher: %w", err)
	}

	recoveryJob, err := recovery.NewJob(orch)
	if err != nil {
		return nil, fmt.Errorf("recovery job: %w", err)
	}
	compactionJob, err := recovery.NewCompactionJob(log)
	if err != nil {
		return nil, fmt.Errorf("compaction job: %w", err)
	}
	registry := cron.NewRegistry()
	registry.Register(recoveryJob)
	registry.Register(compactionJob)

	lock, err := cron.NewLeaseLock(conn, recoveryLockName, cfg.Recovery.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("recovery lock: %w", err)
	}
	cronSvc, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Recovery.Interval,
	})
	if err != nil {
		return nil, fmt.Errorf("cron service: %w", err)
	}

	dispatcher, err := alarms.NewDispatcher(alarms.DispatcherParams{
		Store:    alarmStore,
		Log:      log,
		Logger:   logg,
		Metrics:  recoveryMetrics,
		Interval: cfg.Recovery.DispatchInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("alarm dispatcher: %w", err)
	}

	router := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Hub:         h,
		Log:         log,
		Definitions: defsSvc,
		Refresher:   refresher,
		Metrics:     prometheus.DefaultGatherer,
	})

	return &Service{
		cfg:        cfg,
		logg:       logg,
		cron:       cronSvc,
		dispatcher: dispatcher,
		server: &http.Server{
			Addr:              ":" + cfg.App.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run starts the cron loop, the dispatcher, and the HTTP server, then blocks
// until the context is cancelled or a component fails.
func (s *Service) Run(ctx context.Context) error {
	errCh := make(chan error, 3)

	go func() {
		if err := s.cron.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("cron: %w", err)
			return
		}
		errCh <- nil
	}()
	go func() {
		if err := s.dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("dispatcher: %w", err)
			return
		}
		errCh <- nil
	}()
	go func() {
		s.logg.Info(ctx, "http server listening on "+s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logg.Error(shutdownCtx, "http shutdown failed", err)
	}
	return runErr
}
