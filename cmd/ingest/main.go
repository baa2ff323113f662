package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/zeromicro/go-zero/core/logx"

	"coinsnap/internal/cli"
	"coinsnap/internal/config"
	"coinsnap/internal/svc"
	"coinsnap/pkg/ingest"
	"coinsnap/pkg/sources"
)

var (
	configFile = flag.String("f", "etc/ingest.yaml", "the config file")
	sourceList = flag.String("source", "", "comma-separated sources to run, e.g. coins,nfts")
	runAll     = flag.Bool("all", false, "run every enabled source")
	dryRun     = flag.Bool("dry-run", false, "fetch and extract without writing to Postgres")
	listOnly   = flag.Bool("list", false, "print the registered sources and exit")
)

func fatalf(format string, args ...any) {
	logx.Errorf(format, args...)
	logx.Close()
	os.Exit(1)
}

func main() {
	flag.Parse()

	if *listOnly {
		for _, name := range sources.Names() {
			def, _ := sources.Lookup(name)
			fmt.Printf("%-12s %s\n", name, def.Relation)
		}
		return
	}

	names := parseSources(*sourceList)
	if len(names) == 0 && !*runAll {
		fmt.Fprintln(os.Stderr, "ingest: pass -source <name[,name]> or -all")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		os.Exit(1)
	}
	logx.MustSetup(cfg.Log)
	logx.DisableStat()
	cli.LogConfigSummary(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcCtx, err := svc.NewServiceContext(ctx, *cfg, svc.Options{DryRun: *dryRun})
	if err != nil {
		fatalf("ingest: %v", err)
	}
	jobs, err := svcCtx.Jobs(names...)
	if err != nil {
		fatalf("ingest: %v", err)
	}

	_, err = svcCtx.Runner.RunAll(ctx, jobs)
	if mem, ok := svcCtx.Sink.(*ingest.MemorySink); ok {
		logDryRun(mem)
	}
	if err != nil {
		fatalf("ingest: finished with errors: %v", err)
	}
	logx.Close()
}

func parseSources(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func logDryRun(mem *ingest.MemorySink) {
	counts := make(map[string]int)
	for _, e := range mem.Entries() {
		counts[e.Relation.String()]++
	}
	relations := make([]string, 0, len(counts))
	for rel := range counts {
		relations = append(relations, rel)
	}
	sort.Strings(relations)
	for _, rel := range relations {
		logx.Infof("ingest: dry-run relation=%s rows=%d", rel, counts[rel])
	}
}
