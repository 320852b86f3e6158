package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/okian/teamform/internal/domain/model"
	"github.com/okian/teamform/pkg/metrics"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entities (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	id   TEXT NOT NULL,
	data BLOB NOT NULL,
	UNIQUE (kind, id)
);`

// SQLiteStore persists entities in a single sqlite table. The seq column
// records insertion order.
type SQLiteStore struct {
	db   *sql.DB
	lock *flock.Flock
	opts storeOptions

	wg       sync.WaitGroup
	stopChan chan struct{}
	once     sync.Once
	closed   atomic.Bool
}

// OpenSQLiteStore opens (or creates) dir/teamform.db.
func OpenSQLiteStore(ctx context.Context, dir string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}

	l, err := lockDir(dir)
	if err != nil {
		return nil, err
	}
	s.lock = l

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.Join(dir, "teamform.db"))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = unlockDir(l)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite wants a single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		_ = unlockDir(l)
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		_ = unlockDir(l)
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	s.db = db

	s.stopChan = make(chan struct{})
	startMetricsUpdater(ctx, &s.wg, s.stopChan, s.opts.metricsUpdateInterval, s)
	return s, nil
}

// GetAll implements Store.GetAll.
func (s *SQLiteStore) GetAll(ctx context.Context, kind model.Kind) ([]model.Entity, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(string(kind), float64(time.Since(start).Microseconds())/1000)
	}()

	rows, err := s.db.QueryContext(ctx, `SELECT data FROM entities WHERE kind = ? ORDER BY seq`, string(kind))
	if err != nil {
		metrics.RecordStoreError("get_all")
		return nil, s.mapErr(err)
	}
	defer rows.Close()

	out := []model.Entity{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		e, err := Decode(kind, data)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError("get_all")
		return nil, s.mapErr(err)
	}
	return out, nil
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM entities WHERE kind = ? AND id = ?`, string(kind), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, id)
	}
	if err != nil {
		return nil, s.mapErr(err)
	}
	return Decode(kind, data)
}

// Create implements Store.Create.
func (s *SQLiteStore) Create(ctx context.Context, e model.Entity) error {
	if err := checkEntity(e); err != nil {
		return err
	}
	data, err := Encode(e)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (kind, id, data) VALUES (?, ?, ?) ON CONFLICT (kind, id) DO NOTHING`,
		string(e.Kind()), e.GetID(), data)
	if err != nil {
		metrics.RecordStoreError("create")
		return s.mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrConflict, e.Kind(), e.GetID())
	}
	metrics.RecordStoreWrite(string(e.Kind()), "create")
	return nil
}

// Update implements Store.Update.
func (s *SQLiteStore) Update(ctx context.Context, e model.Entity) error {
	if err := checkEntity(e); err != nil {
		return err
	}
	data, err := Encode(e)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE entities SET data = ? WHERE kind = ? AND id = ?`,
		data, string(e.Kind()), e.GetID())
	if err != nil {
		metrics.RecordStoreError("update")
		return s.mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, e.Kind(), e.GetID())
	}
	metrics.RecordStoreWrite(string(e.Kind()), "update")
	return nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context, kind model.Kind) (int, error) {
	if err := checkKind(kind); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE kind = ?`, string(kind)).Scan(&n); err != nil {
		return 0, s.mapErr(err)
	}
	return n, nil
}

// Close closes the database and drops the directory lock.
func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.stopChan)
		s.wg.Wait()
		err = errors.Join(s.db.Close(), unlockDir(s.lock))
	})
	return err
}

func (s *SQLiteStore) mapErr(err error) error {
	if s.closed.Load() || errors.Is(err, sql.ErrConnDone) {
		return ErrClosed
	}
	return err
}
