// Package serial implements an ordering service with a single writer.
//
// The transactions are executed one at a time, each in its own database
// transaction, so that a rejected transaction leaves no trace in the state.
// The nonce of the author and the height of the ledger are only updated when
// the transaction is accepted, and the watchers are notified once the database
// transaction is committed.
package serial

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.ezyvote.org/ezyvote"
	"go.ezyvote.org/ezyvote/core"
	"go.ezyvote.org/ezyvote/core/access"
	"go.ezyvote.org/ezyvote/core/execution"
	"go.ezyvote.org/ezyvote/core/ordering"
	"go.ezyvote.org/ezyvote/core/store"
	"go.ezyvote.org/ezyvote/core/store/kv"
	"go.ezyvote.org/ezyvote/core/txn"
	"golang.org/x/xerrors"
)

var (
	stateBucket   = []byte("state")
	metaBucket    = []byte("meta")
	nonceBucket   = []byte("nonces")
	historyBucket = []byte("history")

	heightKey  = []byte("height")
	genesisKey = []byte("genesis")
)

const defaultEventBuffer = 100

// ErrClosed is returned when a transaction is added to a closed service.
var ErrClosed = xerrors.New("service is closed")

// errRejected aborts the database transaction of a rejected transaction.
var errRejected = xerrors.New("rejected")

// Record is the entry of the history of the ledger for a committed
// transaction.
type Record struct {
	Height      uint64          `json:"height"`
	Time        time.Time       `json:"time"`
	ID          []byte          `json:"id"`
	Identity    string          `json:"identity"`
	Nonce       uint64          `json:"nonce"`
	Transaction json.RawMessage `json:"transaction,omitempty"`
}

// Service is an ordering service that applies the transactions in the order
// they are added.
//
// - implements ordering.Service
type Service struct {
	sync.Mutex

	logger  zerolog.Logger
	db      kv.DB
	exec    execution.Service
	watcher *core.Watcher
	clock   func() time.Time
	bufSize int
	height  uint64
	closed  bool
}

type serviceTemplate struct {
	clock   func() time.Time
	bufSize int
}

// ServiceOption is the type of options to create a service.
type ServiceOption func(*serviceTemplate)

// WithClock sets the source of the execution time of the transactions.
func WithClock(clock func() time.Time) ServiceOption {
	return func(tmpl *serviceTemplate) {
		tmpl.clock = clock
	}
}

// WithEventBuffer sets the size of the channel of each watcher. A watcher
// that falls behind by more events loses the next ones.
func WithEventBuffer(size int) ServiceOption {
	return func(tmpl *serviceTemplate) {
		tmpl.bufSize = size
	}
}

// NewService creates a service on top of the database. It restores the height
// of the ledger if the database is not empty.
func NewService(db kv.DB, exec execution.Service, opts ...ServiceOption) (*Service, error) {
	tmpl := serviceTemplate{
		clock:   time.Now,
		bufSize: defaultEventBuffer,
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	srvc := &Service{
		logger:  ezyvote.Logger.With().Str("role", "ordering").Logger(),
		db:      db,
		exec:    exec,
		watcher: core.NewWatcher(),
		clock:   tmpl.clock,
		bufSize: tmpl.bufSize,
	}

	err := db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(metaBucket)
		if bucket != nil {
			srvc.height = decodeUint64(bucket.Get(heightKey))
		}

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read height: %v", err)
	}

	promHeight.Set(float64(srvc.height))

	return srvc, nil
}

// Init runs the genesis function on the state if the ledger has never been
// initialized. It returns true when the genesis has been applied.
func (s *Service) Init(genesis func(store.Snapshot) error) (bool, error) {
	s.Lock()
	defer s.Unlock()

	applied := false

	err := s.db.Update(func(tx kv.WritableTx) error {
		meta, err := tx.GetBucketOrCreate(metaBucket)
		if err != nil {
			return err
		}

		if meta.Get(genesisKey) != nil {
			return nil
		}

		state, err := tx.GetBucketOrCreate(stateBucket)
		if err != nil {
			return err
		}

		err = genesis(kv.NewSnapshot(state))
		if err != nil {
			return xerrors.Errorf("genesis failed: %v", err)
		}

		applied = true

		return meta.Set(genesisKey, encodeUint64(uint64(s.clock().Unix())))
	})
	if err != nil {
		return false, xerrors.Errorf("failed to init: %v", err)
	}

	if applied {
		s.logger.Info().Msg("ledger initialized")
	}

	return applied, nil
}

// Add implements ordering.Service. It executes the transaction in a database
// transaction that is rolled back if the transaction is rejected.
func (s *Service) Add(ctx context.Context, tx txn.Transaction) (execution.Result, error) {
	err := ctx.Err()
	if err != nil {
		return execution.Result{}, err
	}

	ident, err := identityKey(tx.GetIdentity())
	if err != nil {
		return execution.Result{}, xerrors.Errorf("invalid identity: %v", err)
	}

	s.Lock()
	defer s.Unlock()

	if s.closed {
		return execution.Result{}, ErrClosed
	}

	var res execution.Result

	now := s.clock()
	height := s.height + 1

	err = s.db.Update(func(dbtx kv.WritableTx) error {
		nonces, err := dbtx.GetBucketOrCreate(nonceBucket)
		if err != nil {
			return err
		}

		expected := decodeUint64(nonces.Get([]byte(ident)))
		if tx.GetNonce() != expected {
			reason := xerrors.Errorf("invalid nonce %d != %d", tx.GetNonce(), expected)

			res = execution.Result{Message: reason.Error(), Reason: reason}

			return errRejected
		}

		state, err := dbtx.GetBucketOrCreate(stateBucket)
		if err != nil {
			return err
		}

		step := execution.Step{
			Current: tx,
			Time:    now,
		}

		res, err = s.exec.Execute(kv.NewSnapshot(state), step)
		if err != nil {
			return xerrors.Errorf("failed to execute: %v", err)
		}

		if !res.Accepted {
			return errRejected
		}

		err = nonces.Set([]byte(ident), encodeUint64(expected+1))
		if err != nil {
			return xerrors.Errorf("failed to store nonce: %v", err)
		}

		err = s.storeHistory(dbtx, tx, ident, height, now)
		if err != nil {
			return err
		}

		event := ordering.Event{
			Index:         height,
			TransactionID: tx.GetID(),
			Events:        res.Events,
		}

		dbtx.OnCommit(func() {
			s.height = height
			promHeight.Set(float64(height))

			s.watcher.Notify(event)
		})

		return nil
	})

	if xerrors.Is(err, errRejected) {
		promRejected.Inc()

		s.logger.Debug().
			Str("identity", ident).
			Uint64("nonce", tx.GetNonce()).
			Str("reason", res.Message).
			Msg("transaction rejected")

		if res.Reason == nil {
			res.Reason = xerrors.New(res.Message)
		}

		return res, xerrors.Errorf("transaction rejected: %w", res.Reason)
	}
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to commit: %v", err)
	}

	promAccepted.Inc()

	s.logger.Trace().
		Uint64("height", height).
		Hex("id", tx.GetID()).
		Msg("transaction committed")

	return res, nil
}

func (s *Service) storeHistory(dbtx kv.WritableTx, tx txn.Transaction, ident string,
	height uint64, now time.Time) error {

	history, err := dbtx.GetBucketOrCreate(historyBucket)
	if err != nil {
		return err
	}

	meta, err := dbtx.GetBucketOrCreate(metaBucket)
	if err != nil {
		return err
	}

	record := Record{
		Height:   height,
		Time:     now.UTC(),
		ID:       tx.GetID(),
		Identity: ident,
		Nonce:    tx.GetNonce(),
	}

	marshaler, ok := tx.(json.Marshaler)
	if ok {
		record.Transaction, err = marshaler.MarshalJSON()
		if err != nil {
			return xerrors.Errorf("failed to marshal transaction: %v", err)
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return xerrors.Errorf("failed to marshal record: %v", err)
	}

	err = history.Set(encodeUint64(height), data)
	if err != nil {
		return xerrors.Errorf("failed to store record: %v", err)
	}

	err = meta.Set(heightKey, encodeUint64(height))
	if err != nil {
		return xerrors.Errorf("failed to store height: %v", err)
	}

	return nil
}

// View implements ordering.Service. The readable store is only valid during
// the execution of the function.
func (s *Service) View(fn func(store.Readable) error) error {
	return s.db.View(func(tx kv.ReadableTx) error {
		return fn(kv.NewReadable(tx.GetBucket(stateBucket)))
	})
}

// GetNonce implements ordering.Service.
func (s *Service) GetNonce(ident access.Identity) (uint64, error) {
	key, err := identityKey(ident)
	if err != nil {
		return 0, xerrors.Errorf("invalid identity: %v", err)
	}

	var nonce uint64

	err = s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(nonceBucket)
		if bucket != nil {
			nonce = decodeUint64(bucket.Get([]byte(key)))
		}

		return nil
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	return nonce, nil
}

// GetHeight implements ordering.Service.
func (s *Service) GetHeight() uint64 {
	s.Lock()
	defer s.Unlock()

	return s.height
}

// GetRecord returns the history record of the transaction committed at the
// given height.
func (s *Service) GetRecord(height uint64) (Record, error) {
	var record Record

	err := s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(historyBucket)
		if bucket == nil {
			return xerrors.Errorf("record %d not found", height)
		}

		data := bucket.Get(encodeUint64(height))
		if data == nil {
			return xerrors.Errorf("record %d not found", height)
		}

		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return record, xerrors.Errorf("failed to read record: %v", err)
	}

	return record, nil
}

// Watch implements ordering.Service. The events are sent without blocking the
// service, so a watcher that does not read its channel loses the events that
// do not fit the buffer.
func (s *Service) Watch(ctx context.Context) <-chan ordering.Event {
	obs := &observer{
		logger: s.logger,
		ch:     make(chan ordering.Event, s.bufSize),
	}

	s.watcher.Add(obs)
	promWatchers.Set(float64(s.watcher.Len()))

	go func() {
		<-ctx.Done()

		s.watcher.Remove(obs)
		promWatchers.Set(float64(s.watcher.Len()))

		close(obs.ch)
	}()

	return obs.ch
}

// Close implements ordering.Service. The transactions added afterwards are
// refused. The database is not closed.
func (s *Service) Close() error {
	s.Lock()
	s.closed = true
	s.Unlock()

	return nil
}

type observer struct {
	logger  zerolog.Logger
	ch      chan ordering.Event
	dropped uint64
}

func (obs *observer) NotifyCallback(event interface{}) {
	select {
	case obs.ch <- event.(ordering.Event):
	default:
		total := atomic.AddUint64(&obs.dropped, 1)
		promDropped.Inc()

		obs.logger.Warn().
			Uint64("index", event.(ordering.Event).Index).
			Uint64("dropped", total).
			Msg("watcher is full, event dropped")
	}
}

func identityKey(ident access.Identity) (string, error) {
	if ident == nil {
		return "", xerrors.New("identity is missing")
	}

	text, err := ident.MarshalText()
	if err != nil {
		return "", err
	}

	return strings.ToLower(string(text)), nil
}

func encodeUint64(value uint64) []byte {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, value)

	return buffer
}

func decodeUint64(data []byte) uint64 {
	if len(data) != 8 {
		return 0
	}

	return binary.BigEndian.Uint64(data)
}
