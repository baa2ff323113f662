// Package snapshot persists normalized rows as append-only snapshots in
// Postgres and optionally mirrors the latest row of each entity to Redis.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lib/pq"

	"coinsnap/pkg/ingest"
)

// Execer is the subset of sqlx.SqlConn the sink needs.
type Execer interface {
	ExecCtx(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Sink appends rows with one INSERT each. Every insert commits on its own;
// the stamp column is filled by the database clock.
type Sink struct {
	conn Execer

	mu         sync.RWMutex
	statements map[string]string
}

// NewSink returns a Sink writing through conn. Returns nil when conn is nil.
func NewSink(conn Execer) *Sink {
	if conn == nil {
		return nil
	}
	return &Sink{conn: conn, statements: make(map[string]string)}
}

// Append implements ingest.Sink.
func (s *Sink) Append(ctx context.Context, rel ingest.Relation, row ingest.Row) error {
	if err := row.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(rel.Table) == "" {
		return fmt.Errorf("snapshot: relation has no table")
	}
	stmt := s.statement(rel, row.Names())
	if _, err := s.conn.ExecCtx(ctx, stmt, row.Values()...); err != nil {
		return fmt.Errorf("snapshot: insert into %s: %w", rel, err)
	}
	return nil
}

func (s *Sink) statement(rel ingest.Relation, columns []string) string {
	sig := rel.String() + "|" + rel.StampColumn() + "|" + strings.Join(columns, ",")
	s.mu.RLock()
	stmt, ok := s.statements[sig]
	s.mu.RUnlock()
	if ok {
		return stmt
	}
	stmt = InsertStatement(rel, columns)
	s.mu.Lock()
	s.statements[sig] = stmt
	s.mu.Unlock()
	return stmt
}

// InsertStatement renders the parameterized INSERT for columns, appending the
// relation's stamp column bound to NOW().
func InsertStatement(rel ingest.Relation, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	if rel.Schema != "" {
		b.WriteString(pq.QuoteIdentifier(rel.Schema))
		b.WriteByte('.')
	}
	b.WriteString(pq.QuoteIdentifier(rel.Table))
	b.WriteString(" (")
	for _, c := range columns {
		b.WriteString(pq.QuoteIdentifier(c))
		b.WriteString(", ")
	}
	b.WriteString(pq.QuoteIdentifier(rel.StampColumn()))
	b.WriteString(") VALUES (")
	for i := range columns {
		b.WriteString("$")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(", ")
	}
	b.WriteString("NOW())")
	return b.String()
}
