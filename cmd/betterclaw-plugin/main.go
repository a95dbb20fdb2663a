// Command betterclaw-plugin is the entrypoint: it wires the event log,
// context store, rules engine, judgment layer, pipeline, pattern engine,
// and proactive engine together, registers the two scheduled timers plus
// the delayed one-shot, and serves the JSON-RPC surface over stdio.
//
// Grounded on the teacher's cmd/alex entrypoint wiring and its
// internal/app/scheduler.newCron concurrency-policy idiom.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"betterclaw/internal/async"
	"betterclaw/internal/clix"
	"betterclaw/internal/config"
	"betterclaw/internal/delivery"
	"betterclaw/internal/devicectx"
	"betterclaw/internal/eventlog"
	"betterclaw/internal/judgment"
	"betterclaw/internal/logging"
	"betterclaw/internal/observability"
	"betterclaw/internal/patterns"
	"betterclaw/internal/pipeline"
	"betterclaw/internal/proactive"
	"betterclaw/internal/rpc"
	"betterclaw/internal/rules"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "bc" {
		runCLI()
		return
	}
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "betterclaw-plugin: fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(filepath.Join(config.Defaults().DataDir, "config.yaml"))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctxStore := devicectx.New(
		filepath.Join(cfg.DataDir, "context.json"),
		filepath.Join(cfg.DataDir, "patterns.json"),
		logging.NewComponentLogger(logger, "devicectx"),
	)
	if err := ctxStore.Load(); err != nil {
		return err
	}

	log := eventlog.New(filepath.Join(cfg.DataDir, "events.jsonl"), logging.NewComponentLogger(logger, "eventlog"))

	rulesEngine := rules.New(cfg.PushBudgetPerDay)
	recent, err := log.ReadSince(float64(time.Now().Add(-24 * time.Hour).Unix()))
	if err != nil {
		logger.Warn("startup: failed to read recent log entries for cooldown restore: %v", err)
	} else {
		rulesEngine.RestoreCooldowns(recent)
	}

	invoker := &judgment.HTTPInvoker{BaseURL: os.Getenv("BETTERCLAW_LLM_BASE_URL"), APIKey: os.Getenv("BETTERCLAW_LLM_API_KEY")}
	judgmentLayer := judgment.New(invoker, cfg.LLMModel, cfg.LLMTimeout, logging.NewComponentLogger(logger, "judgment"))

	deliverer := delivery.New(cfg.DeliveryCommand, cfg.DeliveryTimeout)

	meterProvider, err := observability.NewMeterProvider()
	if err != nil {
		return err
	}
	metrics, err := observability.NewMetrics(meterProvider)
	if err != nil {
		return err
	}

	pipe := pipeline.New(ctxStore, rulesEngine, judgmentLayer, log, deliverer, logging.NewComponentLogger(logger, "pipeline"), metrics)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	async.Go(logger, "pipeline.run", func() { pipe.Run(rootCtx) })

	handler := rpc.NewHandler(ctxStore, pipe)
	handler.MarkInitialized()

	patternEngine := patterns.New(log, ctxStore, cfg.PatternWindowDays, logging.NewComponentLogger(logger, "patterns"))
	proactiveEngine := proactive.New(ctxStore, deliverer, logging.NewComponentLogger(logger, "proactive"))

	scheduler := newScheduler()
	if _, err := scheduler.AddFunc("0 */6 * * *", func() {
		if err := patternEngine.Compute(rootCtx, time.Now()); err != nil {
			logger.Error("patterns: compute tick failed: %v", err)
		}
	}); err != nil {
		return err
	}
	async.Go(logger, "patterns.immediate", func() {
		if err := patternEngine.Compute(rootCtx, time.Now()); err != nil {
			logger.Error("patterns: initial compute failed: %v", err)
		}
	})

	if cfg.ProactiveEnabled {
		if _, err := scheduler.AddFunc("0 * * * *", func() {
			proactiveEngine.Scan(rootCtx, time.Now())
		}); err != nil {
			return err
		}
		time.AfterFunc(5*time.Minute, func() {
			async.Go(logger, "proactive.delayed", func() { proactiveEngine.Scan(rootCtx, time.Now()) })
		})
	}

	scheduler.Start()
	defer scheduler.Stop()

	conn := rpc.NewConn(os.Stdin, os.Stdout)
	async.Go(logger, "rpc.serve", func() { serveRPC(rootCtx, conn, handler, logger) })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	cancel()
	pipe.Wait()
	return nil
}

// newScheduler mirrors the teacher's internal/app/scheduler.newCron: a
// minute-resolution parser with a skip-if-still-running wrapper so an
// overrunning tick never stacks with the next.
func newScheduler() *cron.Cron {
	return cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
}

func serveRPC(ctx context.Context, conn *rpc.Conn, handler *rpc.Handler, logger logging.Logger) {
	defer async.Recover(logger, "rpc.serve")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		req, err := conn.ReadRequest()
		if err != nil {
			logger.Warn("rpc: read failed, stopping: %v", err)
			return
		}
		resp := handler.Handle(req, float64(time.Now().Unix()))
		if err := conn.WriteResponse(resp); err != nil {
			logger.Error("rpc: write failed: %v", err)
			return
		}
	}
}

func runCLI() {
	cfg, err := config.Load(filepath.Join(config.Defaults().DataDir, "config.yaml"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "betterclaw-plugin: config load failed:", err)
		os.Exit(1)
	}
	ctxStore := devicectx.New(filepath.Join(cfg.DataDir, "context.json"), filepath.Join(cfg.DataDir, "patterns.json"), nil)
	if err := ctxStore.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "betterclaw-plugin: context load failed:", err)
		os.Exit(1)
	}

	cmd := clix.NewCommand(ctxStore)
	cmd.SetArgs(os.Args[2:])
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "betterclaw-plugin:", err)
		os.Exit(1)
	}
}
