package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zeromicro/go-zero/core/logx"

	"coinsnap/internal/cli"
	"coinsnap/internal/config"
	"coinsnap/internal/runner"
	"coinsnap/internal/svc"
)

const shutdownTimeout = 30 * time.Second // Grace period for running sources

var (
	configFile = flag.String("f", "etc/ingest.yaml", "the config file")
	runNow     = flag.Bool("now", false, "run every scheduled source once at startup")
)

func fatalf(format string, args ...any) {
	logx.Errorf(format, args...)
	logx.Close()
	os.Exit(1)
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cron: %v\n", err)
		os.Exit(1)
	}
	logx.MustSetup(cfg.Log)
	logx.DisableStat()
	defer logx.Close()
	cli.LogConfigSummary(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcCtx, err := svc.NewServiceContext(ctx, *cfg, svc.Options{})
	if err != nil {
		fatalf("cron: %v", err)
	}

	sched, scheduled, err := schedule(ctx, svcCtx)
	if err != nil {
		fatalf("cron: %v", err)
	}
	if scheduled == 0 {
		logx.Info("cron: no source has a schedule; nothing to do")
		return
	}
	sched.Start()
	logx.Infof("cron: scheduled %d source(s)", scheduled)

	var runs sync.WaitGroup
	if *runNow {
		runEntries(sched, &runs)
	}

	<-ctx.Done()
	logx.Info("cron: shutdown signal received, waiting for running sources")

	// Stop returns a context that is done once scheduled jobs return.
	if waitForRuns(sched.Stop(), &runs, shutdownTimeout) {
		logx.Info("cron: all sources stopped cleanly")
	} else {
		logx.Info("cron: shutdown timeout exceeded, forcing exit")
	}
}

// runEntries runs every entry once outside the schedule, tracked by runs.
func runEntries(c *cron.Cron, runs *sync.WaitGroup) {
	for _, entry := range c.Entries() {
		runs.Add(1)
		go func(job cron.Job) {
			defer runs.Done()
			job.Run()
		}(entry.Job)
	}
}

// waitForRuns reports whether the scheduler's jobs and the runs started by
// runEntries all returned within timeout.
func waitForRuns(stopped context.Context, runs *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// schedule registers one cron entry per enabled source with a schedule.
func schedule(ctx context.Context, svcCtx *svc.ServiceContext) (*cron.Cron, int, error) {
	schedules := svcCtx.Sources.Schedules()
	names := make([]string, 0, len(schedules))
	for name := range schedules {
		names = append(names, name)
	}
	sort.Strings(names)

	c := cron.New()
	for _, name := range names {
		jobs, err := svcCtx.Jobs(name)
		if err != nil {
			return nil, 0, err
		}
		job := jobs[0]
		expr := schedules[name]
		if _, err := c.AddFunc(expr, func() {
			_, err := svcCtx.Runner.Run(ctx, job)
			if errors.Is(err, runner.ErrAlreadyRunning) {
				return
			}
			if err != nil {
				logx.WithContext(ctx).Errorf("cron: source %s failed: %v", job.Name(), err)
			}
		}); err != nil {
			return nil, 0, fmt.Errorf("source %s: invalid schedule %q: %w", name, expr, err)
		}
		logx.Infof("cron: source=%s schedule=%q", name, expr)
	}
	return c, len(names), nil
}
