package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SidSin0809/hdock-batch/internal/api"
	"github.com/SidSin0809/hdock-batch/internal/browser"
	"github.com/SidSin0809/hdock-batch/internal/clock/system"
	"github.com/SidSin0809/hdock-batch/internal/config"
	"github.com/SidSin0809/hdock-batch/internal/dispatcher"
	"github.com/SidSin0809/hdock-batch/internal/hdock"
	"github.com/SidSin0809/hdock-batch/internal/logging"
	"github.com/SidSin0809/hdock-batch/internal/metrics"
	"github.com/SidSin0809/hdock-batch/internal/preflight"
	"github.com/SidSin0809/hdock-batch/internal/progress"
	"github.com/SidSin0809/hdock-batch/internal/progress/sinks"
	queueMemory "github.com/SidSin0809/hdock-batch/internal/queue/memory"
	"github.com/SidSin0809/hdock-batch/internal/runlog"
	"github.com/SidSin0809/hdock-batch/internal/storage/postgres"
	"github.com/SidSin0809/hdock-batch/internal/worker"
)

// newSubmitCmd creates the 'submit' subcommand: the whole batch pipeline
// from CSV to run log.
func newSubmitCmd() *cobra.Command {
	var (
		outDir string
		jobs   int
	)
	cmd := &cobra.Command{
		Use:   "submit <csv>",
		Short: "Submits every CSV row to the docking service",
		Long: `Reads the input table, classifies each row's ligand, submits every valid
row through the service's HTML form with up to -j concurrent browser
sessions, and appends one outcome row per job to run-log.csv. Individual
job failures are recorded, not fatal; only an unreadable input file or an
unwritable log target aborts the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.Output.Dir = outDir
			}
			if cmd.Flags().Changed("jobs") {
				cfg.Batch.Jobs = jobs
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runSubmit(cmd.Context(), cfg, args[0])
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "./hdock_logs", "run-log directory")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "concurrent browser sessions")
	return cmd
}

func runSubmit(parent context.Context, cfg config.Config, csvPath string) error {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	clock := system.New()
	batchID := uuid.NewString()
	logger.Info("batch starting",
		zap.String("batch_id", batchID),
		zap.String("csv", csvPath),
		zap.Int("jobs", cfg.Batch.Jobs),
	)

	batch, err := loadBatch(csvPath, clock, logger)
	if err != nil {
		return err
	}
	total := len(batch.Specs) + len(batch.Rejects)
	if total == 0 {
		logger.Warn("input table has no data rows")
		return nil
	}

	writer, err := runlog.NewWriter(cfg.Output.Dir, logger.Named("runlog"))
	if err != nil {
		return err
	}

	var store hdock.ResultStore
	if cfg.DB.DSN != "" {
		pgStore, err := postgres.NewRunLogStore(ctx, postgres.RunLogStoreConfig{
			DSN:   cfg.DB.DSN,
			Table: cfg.DB.Table,
		})
		if err != nil {
			logger.Warn("postgres mirror disabled", zap.Error(err))
		} else {
			store = pgStore
			defer pgStore.Close()
		}
	}

	tracker := progress.NewTracker(batchID, total, sinks.NewLogSink(logger.Named("progress")))

	if cfg.Server.Addr != "" {
		shutdown := startStatusServer(cfg.Server.Addr, tracker, logger)
		defer shutdown()
	}

	if cfg.Preflight.Enabled {
		runPreflight(ctx, cfg, logger)
	}

	results := make(chan hdock.JobResult, cfg.Batch.QueueDepth)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for res := range results {
			if err := writer.Append(res); err != nil {
				logger.Error("run log append failed", zap.Int("row", res.RowIndex), zap.Error(err))
			} else {
				metrics.RunLogAppended()
			}
			if store != nil {
				if err := store.InsertResult(ctx, batchID, res); err != nil {
					metrics.MirrorError()
					logger.Warn("postgres mirror insert failed", zap.Int("row", res.RowIndex), zap.Error(err))
				}
			}
			tracker.Record(res)
		}
	}()

	for _, reject := range batch.Rejects {
		metrics.JobRejected()
		results <- reject
	}

	dispatchErr := dispatchBatch(ctx, cfg, batch.Specs, results, clock, logger)

	close(results)
	<-writerDone

	snap := tracker.Snapshot()
	logger.Info("batch finished",
		zap.Int("completed", snap.Completed),
		zap.Int("succeeded", snap.Succeeded),
		zap.Int("failed", snap.Failed),
		zap.String("log", writer.Path()),
	)
	if err := writer.Close(); err != nil {
		return err
	}
	return dispatchErr
}

func loadBatch(csvPath string, clock hdock.Clock, logger *zap.Logger) (hdock.Batch, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return hdock.Batch{}, fmt.Errorf("open input csv: %w", err)
	}
	defer f.Close()

	batch, err := hdock.NewNormalizer(clock, logger.Named("normalizer")).Load(f)
	if err != nil {
		return hdock.Batch{}, fmt.Errorf("parse input csv: %w", err)
	}
	return batch, nil
}

// dispatchBatch starts one browser session per worker and drains the batch.
// A browser that cannot start is batch-fatal only because it would fail
// every remaining job the same way; rows already written stay written.
func dispatchBatch(
	ctx context.Context,
	cfg config.Config,
	specs []hdock.JobSpec,
	results chan<- hdock.JobResult,
	clock hdock.Clock,
	logger *zap.Logger,
) error {
	if len(specs) == 0 {
		return nil
	}

	workerCount := cfg.Batch.Jobs
	if workerCount > len(specs) {
		workerCount = len(specs)
	}

	alloc := browser.NewAllocator(browser.Config{
		UserAgent:     cfg.Service.UserAgent,
		Headless:      cfg.Browser.Headless,
		NavTimeout:    cfg.NavTimeout(),
		ActionTimeout: cfg.ActionTimeout(),
	})
	defer alloc.Close()

	workerCfg := worker.Config{
		ServiceURL: cfg.Service.URL,
		Form: worker.FormSelectors{
			ReceptorFile:    cfg.Form.ReceptorFile,
			LigandFile:      cfg.Form.LigandFile,
			LigandSequence:  cfg.Form.LigandSequence,
			LigandType:      cfg.Form.LigandType,
			LigandTypeValue: cfg.Form.LigandTypeValue,
			SiteToggle:      cfg.Form.SiteToggle,
			SiteInput:       cfg.Form.SiteInput,
			Email:           cfg.Form.Email,
			JobName:         cfg.Form.JobName,
			Submit:          cfg.Form.Submit,
		},
		SubmitTimeout: cfg.SubmitTimeout(),
	}

	queue := queueMemory.NewQueue(cfg.Batch.QueueDepth)
	workers := make([]*worker.Worker, 0, workerCount)
	for i := 0; i < workerCount; i++ {
		session, err := alloc.NewBrowser(logger.Named("browser").With(zap.Int("worker", i)))
		if err != nil {
			return fmt.Errorf("start browser session %d: %w", i, err)
		}
		defer session.Close()
		workers = append(workers, worker.New(
			queue,
			session,
			results,
			clock,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}

	return dispatcher.New(queue, workers, logger.Named("dispatcher")).Run(ctx, specs)
}

func runPreflight(ctx context.Context, cfg config.Config, logger *zap.Logger) {
	probe := preflight.New(preflight.Config{
		URL:       cfg.Service.URL,
		UserAgent: cfg.Service.UserAgent,
		Timeout:   cfg.PreflightTimeout(),
		Selectors: []string{
			cfg.Form.ReceptorFile,
			cfg.Form.LigandFile,
			cfg.Form.LigandSequence,
			cfg.Form.LigandType,
			cfg.Form.JobName,
			cfg.Form.Submit,
		},
	}, logger.Named("preflight"))
	if err := probe.Check(ctx); err != nil {
		logger.Warn("preflight check failed, continuing anyway", zap.Error(err))
	}
}

func startStatusServer(addr string, tracker *progress.Tracker, logger *zap.Logger) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(tracker, logger.Named("api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("status server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server error", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown error", zap.Error(err))
		}
	}
}
