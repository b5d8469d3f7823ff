// Package ledger keeps the durable, ordered history of contract
// invocations issued through the gateway. Records are owned by the ledger
// once appended; callers mutate them only through Update.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// storeKey holds the serialized record list. Every mutation rewrites the
// whole list; the store is assumed to make the overwrite atomic.
const storeKey = "tx_history"

// ErrNotFound is returned when an update references a record sequence the
// ledger has never issued.
var ErrNotFound = errors.New("ledger: record not found")

// Status is the lifecycle state of an invocation record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Record is a single invocation. Seq is the ledger-assigned local key and
// never changes; Hash starts as a placeholder and is rewritten exactly once
// when the network assigns the real transaction hash.
type Record struct {
	Seq         uint64     `json:"seq"`
	Hash        string     `json:"hash"`
	Label       string     `json:"label"`
	Method      string     `json:"method"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ExplorerURL string     `json:"explorerUrl,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Patch describes the single reconciliation applied to a pending record.
// Empty fields are left unchanged.
type Patch struct {
	Hash        string
	Status      Status
	CompletedAt *time.Time
	ExplorerURL string
	Error       string
}

// Store is the slice of the durable store the ledger needs.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// Ledger is the in-memory view backed by the durable store. Reads are
// newest-first.
type Ledger struct {
	store  Store
	logger *slog.Logger

	mu      sync.RWMutex
	records []Record // newest first
	nextSeq uint64
}

// Load builds a ledger from the store. Corrupt or absent stored state
// yields an empty ledger rather than an error.
func Load(store Store, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{store: store, logger: logger, nextSeq: 1}
	raw, found, err := store.Get(storeKey)
	if err != nil {
		return nil, fmt.Errorf("ledger: load: %w", err)
	}
	if found && len(raw) > 0 {
		var records []Record
		if err := json.Unmarshal(raw, &records); err != nil {
			logger.Warn("discarding corrupt invocation history", "error", err)
		} else {
			l.records = records
			for _, rec := range records {
				if rec.Seq >= l.nextSeq {
					l.nextSeq = rec.Seq + 1
				}
			}
		}
	}
	return l, nil
}

// PlaceholderHash derives the local placeholder identifier for a sequence.
func PlaceholderHash(seq uint64) string {
	return fmt.Sprintf("pending-%d", seq)
}

// Append inserts a new record at the head and persists the full ledger.
// The record's Seq, Hash (placeholder), and Status are assigned here.
func (l *Ledger) Append(label, method string, createdAt time.Time) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := Record{
		Seq:       l.nextSeq,
		Label:     label,
		Method:    method,
		Status:    StatusPending,
		CreatedAt: createdAt,
	}
	rec.Hash = PlaceholderHash(rec.Seq)
	l.nextSeq++
	l.records = append([]Record{rec}, l.records...)
	if err := l.persistLocked(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update applies a patch to the record with the given sequence and
// persists the full ledger. Returns ErrNotFound for unknown sequences.
func (l *Ledger) Update(seq uint64, patch Patch) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		if l.records[i].Seq != seq {
			continue
		}
		rec := &l.records[i]
		if patch.Hash != "" {
			rec.Hash = patch.Hash
		}
		if patch.Status != "" {
			rec.Status = patch.Status
		}
		if patch.CompletedAt != nil {
			at := *patch.CompletedAt
			rec.CompletedAt = &at
		}
		if patch.ExplorerURL != "" {
			rec.ExplorerURL = patch.ExplorerURL
		}
		if patch.Error != "" {
			rec.Error = patch.Error
		}
		if err := l.persistLocked(); err != nil {
			return Record{}, err
		}
		return *rec, nil
	}
	return Record{}, ErrNotFound
}

// UpdateByHash applies a patch to the record whose current hash matches,
// placeholder or real. Returns ErrNotFound when no record carries the
// hash.
func (l *Ledger) UpdateByHash(hash string, patch Patch) (Record, error) {
	l.mu.RLock()
	var seq uint64
	found := false
	for _, rec := range l.records {
		if rec.Hash == hash {
			seq = rec.Seq
			found = true
			break
		}
	}
	l.mu.RUnlock()
	if !found {
		return Record{}, ErrNotFound
	}
	return l.Update(seq, patch)
}

// All returns every record, newest first.
func (l *Ledger) All() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Record(nil), l.records...)
}

// ByStatus returns the records currently in the given status, newest first.
func (l *Ledger) ByStatus(status Status) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Record
	for _, rec := range l.records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}

// Len reports the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

func (l *Ledger) persistLocked() error {
	raw, err := json.Marshal(l.records)
	if err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}
	if err := l.store.Put(storeKey, raw); err != nil {
		return fmt.Errorf("ledger: persist: %w", err)
	}
	return nil
}
