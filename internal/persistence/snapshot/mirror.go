package snapshot

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"

	"coinsnap/internal/cache"
	"coinsnap/pkg/ingest"
)

// Setter is the subset of the go-zero Redis client the mirror needs.
type Setter interface {
	SetexCtx(ctx context.Context, key, value string, seconds int) error
}

// Mirror stores the latest row of each entity under a Redis key derived from
// the relation key columns. Mirror failures are logged and never returned.
type Mirror struct {
	store Setter
	ttl   time.Duration
	now   func() time.Time
}

// NewMirror returns a Mirror writing through store. Returns nil when store is nil.
func NewMirror(store Setter, ttl time.Duration) *Mirror {
	if store == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = cache.DefaultLatestTTL
	}
	return &Mirror{store: store, ttl: ttl, now: time.Now}
}

// Wrap returns a Sink that mirrors every row next accepted. A nil Mirror
// returns next unchanged.
func (m *Mirror) Wrap(next ingest.Sink) ingest.Sink {
	if m == nil {
		return next
	}
	return ingest.SinkFunc(func(ctx context.Context, rel ingest.Relation, row ingest.Row) error {
		if err := next.Append(ctx, rel, row); err != nil {
			return err
		}
		m.Store(ctx, rel, row)
		return nil
	})
}

// Store writes row as the latest value of its entity.
func (m *Mirror) Store(ctx context.Context, rel ingest.Relation, row ingest.Row) {
	key := m.Key(rel, row)
	payload, err := Encode(rel, row, m.now().UTC())
	if err != nil {
		logx.WithContext(ctx).Errorf("snapshot: mirror encode key=%s err=%v", key, err)
		return
	}
	seconds := int(m.ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	if err := m.store.SetexCtx(ctx, key, string(payload), seconds); err != nil {
		logx.WithContext(ctx).Errorf("snapshot: mirror key=%s err=%v", key, err)
	}
}

// Key derives the Redis key of the entity row describes.
func (m *Mirror) Key(rel ingest.Relation, row ingest.Row) string {
	parts := make([]string, 0, len(rel.Key))
	for _, col := range rel.Key {
		v, _ := row.Get(col)
		if p := plain(v); p != nil {
			parts = append(parts, fmt.Sprint(p))
		}
	}
	return cache.LatestRowKey(rel.String(), parts...)
}

// Encode renders row as a msgpack map, adding the stamp column.
func Encode(rel ingest.Relation, row ingest.Row, at time.Time) ([]byte, error) {
	doc := make(map[string]any, len(row)+1)
	for _, c := range row {
		doc[c.Name] = plain(c.Value)
	}
	doc[rel.StampColumn()] = at
	return msgpack.Marshal(doc)
}

// plain unwraps SQL parameter types into values msgpack can carry.
func plain(v any) any {
	switch x := v.(type) {
	case pq.StringArray:
		if x == nil {
			return nil
		}
		return []string(x)
	case driver.Valuer:
		val, err := x.Value()
		if err != nil {
			return nil
		}
		return val
	}
	return v
}
