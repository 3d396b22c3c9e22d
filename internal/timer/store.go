package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/studyx/internal/shared"
)

// KV is the durable key/value storage the timer record is written to.
//
// Get returns [shared.ErrRecordNotFound] when nothing is stored under namespace.
type KV interface {
	Get(namespace string) ([]byte, error)
	Put(namespace string, value []byte) error
}

// Store reads and writes the timer [State] as a flat JSON record under one namespace.
type Store struct {
	kv        KV
	namespace string
}

func NewStore(kv KV, namespace string) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Store{kv: kv, namespace: namespace}
}

func (s *Store) Namespace() string { return s.namespace }

// Load returns the stored state.
//
// A missing record yields [DefaultState] and no error. Unreadable or malformed records also yield
// [DefaultState], along with an error describing the failure so the caller can log it.
func (s *Store) Load() (State, error) {
	data, err := s.kv.Get(s.namespace)
	if errors.Is(err, shared.ErrRecordNotFound) {
		return DefaultState(), nil
	}
	if err != nil {
		return DefaultState(), fmt.Errorf("failed to read %s: %w", s.namespace, err)
	}

	state, err := DecodeState(data)
	if err != nil {
		return DefaultState(), err
	}
	return state, nil
}

// Save writes state.
func (s *Store) Save(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode timer state: %w", err)
	}
	if err := s.kv.Put(s.namespace, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.namespace, err)
	}
	return nil
}

// DecodeState parses and validates a persisted record. Fields absent from the record keep their
// defaults.
func DecodeState(data []byte) (State, error) {
	state := DefaultState()
	if err := json.Unmarshal(data, &state); err != nil {
		if errors.Is(err, shared.ErrMalformedState) {
			return DefaultState(), err
		}
		return DefaultState(), fmt.Errorf("%w: %v", shared.ErrMalformedState, err)
	}
	if err := state.Validate(); err != nil {
		return DefaultState(), err
	}
	return state, nil
}

// MemoryKV is an in-process [KV], used when no database is configured and in tests.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(namespace string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[namespace]
	if !ok {
		return nil, shared.ErrRecordNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Put(namespace string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[namespace] = append([]byte(nil), value...)
	return nil
}
