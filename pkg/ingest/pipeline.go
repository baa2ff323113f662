// Package ingest implements the list, detail, extract, write pipeline shared by
// every snapshot source.
//
// A Pipeline fixes the capability set of one source: how to list candidate items,
// how (and whether) to resolve each item's detail record, how to flatten a detail
// record into rows, and which relation receives them. Runs are sequential and
// stateless: rows are written in list order, one upstream call at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

// Job is a runnable source.
type Job interface {
	Name() string
	Run(ctx context.Context, sink Sink) (Report, error)
}

// Report summarises one run.
type Report struct {
	Source   string
	Relation Relation
	Tally
	Written int
	Elapsed time.Duration
}

// Pipeline is the generic source adapter. I is the listed item type and D the
// detail record type; single-call sources use the same type for both.
type Pipeline[I, D any] struct {
	Source   string
	Relation Relation

	// List is the first upstream call. Its failure is fatal.
	List func(ctx context.Context) ([]I, error)
	// Identify, Detail and Lift are handed to the Walker; see its fields.
	Identify func(item I) (string, error)
	Detail   DetailFunc[I, D]
	Lift     func(item I) D
	// Extract flattens one detail record into zero or more rows.
	Extract func(detail D) iter.Seq[Row]

	Limit int
	Delay time.Duration
	Sleep func(ctx context.Context, d time.Duration) bool
}

var errIncomplete = errors.New("ingest: pipeline is missing List or Extract")

// Name implements Job.
func (p *Pipeline[I, D]) Name() string { return p.Source }

// Run lists, walks, extracts and writes. Item errors are logged and counted;
// list and write errors end the run and are returned wrapped in ErrListFetch
// and ErrWrite respectively. Rows already written stay written.
func (p *Pipeline[I, D]) Run(ctx context.Context, sink Sink) (report Report, err error) {
	started := time.Now()
	report = Report{Source: p.Source, Relation: p.Relation}
	defer func() { report.Elapsed = time.Since(started) }()

	if p.List == nil || p.Extract == nil {
		return report, fmt.Errorf("%s: %w", p.Source, errIncomplete)
	}
	if sink == nil {
		return report, fmt.Errorf("%s: nil sink", p.Source)
	}

	items, err := p.List(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %s: %w", ErrListFetch, p.Source, err)
	}
	logx.WithContext(ctx).Infof("ingest: source=%s listed=%d limit=%d delay=%s", p.Source, len(items), p.Limit, p.Delay)

	walker := Walker[I, D]{
		Limit:    p.Limit,
		Delay:    p.Delay,
		Identify: p.Identify,
		Detail:   p.Detail,
		Lift:     p.Lift,
		Sleep:    p.Sleep,
		OnSkip: func(ctx context.Context, ref string, err error) {
			logx.WithContext(ctx).Infof("ingest: skip source=%s item=%s err=%v", p.Source, ref, err)
		},
	}

	for detail := range walker.Walk(ctx, items, &report.Tally) {
		for row := range p.Extract(detail) {
			if err := sink.Append(ctx, p.Relation, row); err != nil {
				return report, fmt.Errorf("%w: %s: %w", ErrWrite, p.Relation, err)
			}
			report.Written++
		}
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("%s: interrupted: %w", p.Source, err)
	}
	return report, nil
}
