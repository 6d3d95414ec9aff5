package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nemanja-m/gomr/internal/api/rest"
	"github.com/nemanja-m/gomr/internal/demo"
	"github.com/nemanja-m/gomr/internal/planner"
	"github.com/nemanja-m/gomr/internal/shared/config"
	"github.com/nemanja-m/gomr/internal/shared/logging"
	"github.com/nemanja-m/gomr/internal/tracker"
	"github.com/nemanja-m/gomr/internal/tracker/collab"
	"github.com/nemanja-m/gomr/internal/tracker/core"
	"github.com/nemanja-m/gomr/internal/tracker/discovery"
	"github.com/nemanja-m/gomr/internal/tracker/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadTracker(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewSlogLogger(parseLevel(cfg.Logging.Level))
	nodeId := core.NewNodeId()

	metaStore := store.NewInMemoryStore()
	disco := discovery.NewHeartbeatDiscovery(cfg.Discovery.StaleTimeout)
	disco.Join(nodeId)

	runtimeCtx := demo.NewSingleNodeRuntime(nodeId, cfg.Node.UpdateLeader, int64(cfg.Jobs.FinishedJobInfoTTL.Seconds()))
	shuffle := demo.NewNoopShuffle(logger)
	jobDirs := demo.NewJobDirectory()

	var jt *tracker.JobTracker
	executor := demo.NewLocalExecutor(jobDirs, func(task core.TaskInfo, status core.TaskStatus, counters core.Counters) {
		jt.OnTaskFinished(task, status, counters)
	}, logger, runtime.NumCPU())

	jt = tracker.New(tracker.Deps{
		Store:      metaStore,
		Discovery:  disco,
		Planner:    planner.NewLocalPlanner(),
		Executor:   executor,
		Shuffle:    shuffle,
		RuntimeCtx: runtimeCtx,
		JobFactory: func(jobId core.JobId, info core.JobInfo) (collab.Job, error) {
			job := demo.NewLocalJob(jobId, jobDirs)
			if err := job.Initialize(nodeId); err != nil {
				return nil, err
			}
			return job, nil
		},
		Logger:          logger,
		EventQueueDepth: cfg.EventLoop.QueueDepth,
	})
	jt.Start()

	discoCtx, discoCancel := context.WithCancel(context.Background())
	go disco.Run(discoCtx, cfg.Discovery.PollInterval)

	server := rest.NewServer(cfg.REST, jt, logger)

	go func() {
		logger.Info("starting tracker REST server", "addr", cfg.REST.Addr, "node_id", nodeId.String())
		if err := server.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
			logger.Fatal("REST server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down tracker node", "node_id", nodeId.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("REST server forced to shutdown", "error", err)
	}

	discoCancel()
	jt.Stop()

	logger.Info("tracker node stopped", "node_id", nodeId.String())
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
