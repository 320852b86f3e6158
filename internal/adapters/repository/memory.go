package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/teamform/internal/domain/model"
	"github.com/okian/teamform/pkg/metrics"
)

// collection keeps one kind in insertion order.
type collection struct {
	order []string
	byID  map[string]model.Entity
}

// MemoryStore is an in-memory Store. Entities are cloned on the way in and
// on the way out so callers never share state with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	cols  map[model.Kind]*collection
	opts  storeOptions
	ended bool

	// background metrics management
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		cols: make(map[model.Kind]*collection),
		opts: defaultOptions(),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	for _, k := range model.Kinds() {
		s.cols[k] = &collection{byID: make(map[string]model.Entity)}
	}

	s.stopChan = make(chan struct{})
	startMetricsUpdater(ctx, &s.wg, s.stopChan, s.opts.metricsUpdateInterval, s)

	return s
}

// GetAll implements Store.GetAll.
func (s *MemoryStore) GetAll(ctx context.Context, kind model.Kind) ([]model.Entity, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(string(kind), float64(time.Since(start).Microseconds())/1000)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, err := s.collection(kind)
	if err != nil {
		return nil, err
	}
	out := make([]model.Entity, 0, len(col.order))
	for _, id := range col.order {
		out = append(out, col.byID[id].Clone())
	}
	return out, nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, err := s.collection(kind)
	if err != nil {
		return nil, err
	}
	e, ok := col.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, id)
	}
	return e.Clone(), nil
}

// Create implements Store.Create.
func (s *MemoryStore) Create(ctx context.Context, e model.Entity) error {
	if err := checkEntity(e); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(e.Kind())
	if err != nil {
		return err
	}
	if _, ok := col.byID[e.GetID()]; ok {
		return fmt.Errorf("%w: %s/%s", ErrConflict, e.Kind(), e.GetID())
	}
	col.order = append(col.order, e.GetID())
	col.byID[e.GetID()] = e.Clone()
	metrics.RecordStoreWrite(string(e.Kind()), "create")
	return nil
}

// Update implements Store.Update.
func (s *MemoryStore) Update(ctx context.Context, e model.Entity) error {
	if err := checkEntity(e); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(e.Kind())
	if err != nil {
		return err
	}
	if _, ok := col.byID[e.GetID()]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, e.Kind(), e.GetID())
	}
	col.byID[e.GetID()] = e.Clone()
	metrics.RecordStoreWrite(string(e.Kind()), "update")
	return nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context, kind model.Kind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, err := s.collection(kind)
	if err != nil {
		return 0, err
	}
	return len(col.order), nil
}

// Close stops the background metrics goroutine. Further calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()

	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// collection must be called with s.mu held.
func (s *MemoryStore) collection(kind model.Kind) (*collection, error) {
	if s.ended {
		return nil, ErrClosed
	}
	col, ok := s.cols[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return col, nil
}

type counter interface {
	Count(ctx context.Context, kind model.Kind) (int, error)
}

// startMetricsUpdater publishes per-kind entity counts until stop is closed
// or ctx is done.
func startMetricsUpdater(ctx context.Context, wg *sync.WaitGroup, stop <-chan struct{}, interval time.Duration, c counter) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				updateCounts(ctx, c)
			}
		}
	}()
}

func updateCounts(ctx context.Context, c counter) {
	for _, k := range model.Kinds() {
		n, err := c.Count(ctx, k)
		if err != nil {
			metrics.RecordStoreError("count")
			continue
		}
		metrics.UpdateEntityCount(string(k), n)
	}
}
