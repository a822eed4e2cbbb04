package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/buildgrid/internal/target"
	"gopkg.in/yaml.v3"
)

// Snapshot is the recorded outcome of one packaged target.
type Snapshot struct {
	Target     string              `yaml:"target"`
	Hash       string              `yaml:"hash"`
	RunID      string              `yaml:"run_id,omitempty"`
	RecordedAt time.Time           `yaml:"recorded_at"`
	Products   map[string][]string `yaml:"products"`
}

// NewSnapshot captures set under the declaration spelling of each kind.
func NewSnapshot(name, hash, runID string, set target.ProductSet) *Snapshot {
	products := make(map[string][]string, len(set))
	for kind, paths := range set {
		products[kind.String()] = append([]string(nil), paths...)
	}
	return &Snapshot{
		Target:     name,
		Hash:       hash,
		RunID:      runID,
		RecordedAt: time.Now().UTC(),
		Products:   products,
	}
}

// ProductSet converts the snapshot back to typed products.
func (s *Snapshot) ProductSet() (target.ProductSet, error) {
	set := make(target.ProductSet, len(s.Products))
	for name, paths := range s.Products {
		kind, err := target.ParseProductKind(name)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s/%s: %w", s.Target, s.Hash, err)
		}
		set[kind] = append([]string(nil), paths...)
	}
	return set, nil
}

// Marshal encodes a snapshot as YAML.
func Marshal(s *Snapshot) ([]byte, error) {
	return yaml.Marshal(s)
}

// Unmarshal decodes a YAML snapshot.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &s, nil
}

// Store persists snapshots. Get reports a miss with ok == false and a nil error.
type Store interface {
	Get(ctx context.Context, target, hash string) (*Snapshot, bool, error)
	Put(ctx context.Context, target, hash string, s *Snapshot) error
}

// Mode selects how a run uses its cache store.
type Mode string

const (
	ModeOff       Mode = "off"
	ModeReadWrite Mode = "readwrite"
	ModeReadOnly  Mode = "readonly"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeOff, ModeReadWrite, ModeReadOnly:
		return m, nil
	default:
		return "", fmt.Errorf("invalid cache mode '%s': must be one of 'off', 'readwrite', or 'readonly'", s)
	}
}

// WithMode applies a mode to s. ModeOff and a nil store both yield a store
// that always misses and drops every write.
func WithMode(s Store, m Mode) Store {
	if s == nil || m == ModeOff {
		return disabled{}
	}
	if m == ModeReadOnly {
		return readOnly{s}
	}
	return s
}

type disabled struct{}

func (disabled) Get(context.Context, string, string) (*Snapshot, bool, error) { return nil, false, nil }
func (disabled) Put(context.Context, string, string, *Snapshot) error        { return nil }

type readOnly struct{ Store }

func (readOnly) Put(context.Context, string, string, *Snapshot) error { return nil }

// Memory is a process-local Store.
type Memory struct {
	entries sync.Map // Key: target + "/" + hash, Value: []byte (YAML)
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(ctx context.Context, target, hash string) (*Snapshot, bool, error) {
	v, ok := m.entries.Load(target + "/" + hash)
	if !ok {
		return nil, false, nil
	}
	s, err := Unmarshal(v.([]byte))
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (m *Memory) Put(ctx context.Context, target, hash string, s *Snapshot) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	m.entries.Store(target+"/"+hash, data)
	return nil
}

// Len returns the number of stored snapshots.
func (m *Memory) Len() int {
	n := 0
	m.entries.Range(func(any, any) bool { n++; return true })
	return n
}
