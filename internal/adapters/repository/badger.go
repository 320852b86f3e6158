package repository

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/gofrs/flock"
	"github.com/okian/teamform/internal/domain/model"
	"github.com/okian/teamform/pkg/metrics"
)

const sequenceBandwidth = 100

// Key layout:
//
//	rec:<kind>:<seq, 8 bytes big endian> -> encoded entity
//	idx:<kind>:<id>                      -> seq
//	seq:<kind>                           -> badger sequence
func recordPrefix(kind model.Kind) []byte { return []byte("rec:" + string(kind) + ":") }

func recordKey(kind model.Kind, seq uint64) []byte {
	p := recordPrefix(kind)
	buf := make([]byte, len(p)+8)
	n := copy(buf, p)
	binary.BigEndian.PutUint64(buf[n:], seq)
	return buf
}

func indexKey(kind model.Kind, id string) []byte { return []byte("idx:" + string(kind) + ":" + id) }

func sequenceKey(kind model.Kind) []byte { return []byte("seq:" + string(kind)) }

// badgerLogger adapts slog onto badger's logger.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any)   { l.logger.Error(fmt.Sprintf(msg, items...)) }
func (l *badgerLogger) Warningf(msg string, items ...any) { l.logger.Warn(fmt.Sprintf(msg, items...)) }
func (l *badgerLogger) Infof(msg string, items ...any)    { l.logger.Debug(fmt.Sprintf(msg, items...)) }
func (l *badgerLogger) Debugf(msg string, items ...any)   { l.logger.Debug(fmt.Sprintf(msg, items...)) }

// BadgerStore persists entities in BadgerDB.
type BadgerStore struct {
	db   *badger.DB
	lock *flock.Flock
	opts storeOptions

	// creates are serialised so the id index check and insert are atomic
	writeMu sync.Mutex
	seqMu   sync.Mutex
	seqs    map[model.Kind]*badger.Sequence

	wg       sync.WaitGroup
	stopChan chan struct{}
	once     sync.Once
}

// OpenBadgerStore opens (or creates) a badger database under dir/badger.
func OpenBadgerStore(ctx context.Context, dir string, opts ...Option) (*BadgerStore, error) {
	s := &BadgerStore{
		opts: defaultOptions(),
		seqs: make(map[model.Kind]*badger.Sequence),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}

	var bopts badger.Options
	if s.opts.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		l, err := lockDir(dir)
		if err != nil {
			return nil, err
		}
		s.lock = l
		bopts = badger.DefaultOptions(filepath.Join(dir, "badger"))
	}
	bopts.Logger = &badgerLogger{logger: s.opts.logger}
	bopts.Compression = options.None

	db, err := badger.Open(bopts)
	if err != nil {
		_ = unlockDir(s.lock)
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s.db = db

	s.stopChan = make(chan struct{})
	startMetricsUpdater(ctx, &s.wg, s.stopChan, s.opts.metricsUpdateInterval, s)
	return s, nil
}

func (s *BadgerStore) sequence(kind model.Kind) (*badger.Sequence, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	if seq, ok := s.seqs[kind]; ok {
		return seq, nil
	}
	seq, err := s.db.GetSequence(sequenceKey(kind), sequenceBandwidth)
	if err != nil {
		return nil, err
	}
	s.seqs[kind] = seq
	return seq, nil
}

// GetAll implements Store.GetAll. Records are keyed by sequence, so prefix
// iteration yields insertion order.
func (s *BadgerStore) GetAll(ctx context.Context, kind model.Kind) ([]model.Entity, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(string(kind), float64(time.Since(start).Microseconds())/1000)
	}()

	var out []model.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: recordPrefix(kind), PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e model.Entity
			err := it.Item().Value(func(val []byte) error {
				var derr error
				e, derr = Decode(kind, val)
				return derr
			})
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		metrics.RecordStoreError("get_all")
		return nil, s.mapErr(err)
	}
	if out == nil {
		out = []model.Entity{}
	}
	return out, nil
}

// Get implements Store.Get.
func (s *BadgerStore) Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var e model.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		key, err := s.lookup(txn, kind, id)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var derr error
			e, derr = Decode(kind, val)
			return derr
		})
	})
	if err != nil {
		return nil, s.mapErr(err)
	}
	return e, nil
}

// Create implements Store.Create.
func (s *BadgerStore) Create(ctx context.Context, e model.Entity) error {
	if err := checkEntity(e); err != nil {
		return err
	}
	val, err := Encode(e)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	kind, id := e.Kind(), e.GetID()
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(indexKey(kind, id)); err == nil {
			return fmt.Errorf("%w: %s/%s", ErrConflict, kind, id)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		seq, err := s.sequence(kind)
		if err != nil {
			return err
		}
		n, err := seq.Next()
		if err != nil {
			return err
		}
		var idx [8]byte
		binary.BigEndian.PutUint64(idx[:], n)
		if err := txn.Set(indexKey(kind, id), idx[:]); err != nil {
			return err
		}
		return txn.Set(recordKey(kind, n), val)
	})
	if err != nil {
		metrics.RecordStoreError("create")
		return s.mapErr(err)
	}
	metrics.RecordStoreWrite(string(kind), "create")
	return nil
}

// Update implements Store.Update.
func (s *BadgerStore) Update(ctx context.Context, e model.Entity) error {
	if err := checkEntity(e); err != nil {
		return err
	}
	val, err := Encode(e)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		key, err := s.lookup(txn, e.Kind(), e.GetID())
		if err != nil {
			return err
		}
		return txn.Set(key, val)
	})
	if err != nil {
		metrics.RecordStoreError("update")
		return s.mapErr(err)
	}
	metrics.RecordStoreWrite(string(e.Kind()), "update")
	return nil
}

// Count implements Store.Count.
func (s *BadgerStore) Count(ctx context.Context, kind model.Kind) (int, error) {
	if err := checkKind(kind); err != nil {
		return 0, err
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: recordPrefix(kind)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, s.mapErr(err)
	}
	return n, nil
}

// Close releases sequences, closes the database and drops the directory lock.
func (s *BadgerStore) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stopChan)
		s.wg.Wait()

		s.seqMu.Lock()
		for _, seq := range s.seqs {
			if rerr := seq.Release(); rerr != nil {
				s.opts.logger.Warn("release sequence", "error", rerr)
			}
		}
		s.seqMu.Unlock()

		err = errors.Join(s.db.Close(), unlockDir(s.lock))
	})
	return err
}

// lookup resolves an ID to its record key.
func (s *BadgerStore) lookup(txn *badger.Txn, kind model.Kind, id string) ([]byte, error) {
	item, err := txn.Get(indexKey(kind, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, id)
	}
	if err != nil {
		return nil, err
	}
	var key []byte
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("%w: bad index for %s/%s", ErrCorruptRecord, kind, id)
		}
		key = recordKey(kind, binary.BigEndian.Uint64(val))
		return nil
	})
	return key, err
}

func (s *BadgerStore) mapErr(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}
