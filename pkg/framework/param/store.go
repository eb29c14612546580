package param

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// DefaultEventCapacity is the event queue size used by NewStore.
const DefaultEventCapacity = 256

// Snapshot is an immutable view of every parameter target. A new
// snapshot is published on each accepted change. Serials[i] is the
// Version that last set parameter i, so readers can tell a repeated
// value from no change at all.
type Snapshot struct {
	Version uint64
	Values  []float64
	Serials []uint64
}

// Store holds the declared parameters and publishes their targets to the
// audio thread. Setters may be called from any goroutine; Snapshot,
// Drain and PublishCurrent are wait-free and meant for the audio thread.
type Store struct {
	params []*Parameter
	index  map[string]int

	mu       sync.Mutex // serializes writers
	snapshot atomic.Pointer[Snapshot]
	current  []atomic.Uint64
	events   *EventQueue
}

// NewStore creates a store for params with targets at their defaults.
func NewStore(params ...*Parameter) (*Store, error) {
	return NewStoreWithCapacity(DefaultEventCapacity, params...)
}

// NewStoreWithCapacity is NewStore with an explicit event queue size.
func NewStoreWithCapacity(eventCapacity int, params ...*Parameter) (*Store, error) {
	s := &Store{
		params:  params,
		index:   make(map[string]int, len(params)),
		current: make([]atomic.Uint64, len(params)),
		events:  NewEventQueue(eventCapacity),
	}

	values := make([]float64, len(params))
	for i, p := range params {
		if _, exists := s.index[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParameter, p.ID)
		}
		v, err := p.Validate(p.DefaultValue)
		if err != nil {
			return nil, fmt.Errorf("default for %s: %w", p.ID, err)
		}
		s.index[p.ID] = i
		values[i] = v
		s.current[i].Store(math.Float64bits(v))
	}
	s.snapshot.Store(&Snapshot{Values: values, Serials: make([]uint64, len(params))})
	return s, nil
}

// Len returns the number of parameters.
func (s *Store) Len() int {
	return len(s.params)
}

// Param returns the parameter at index i.
func (s *Store) Param(i int) *Parameter {
	return s.params[i]
}

// Params returns all parameters in declaration order.
func (s *Store) Params() []*Parameter {
	return s.params
}

// Index looks up the index of id.
func (s *Store) Index(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

func (s *Store) lookup(id string) (int, error) {
	i, ok := s.index[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	return i, nil
}

// validate returns the value to apply, and whether it should be applied
// despite a non-nil error.
func (s *Store) validate(i int, value float64) (float64, bool, error) {
	v, err := s.params[i].Validate(value)
	if err == nil {
		return v, true, nil
	}
	return v, errors.Is(err, ErrConfigurationExceeded), err
}

// SetTarget validates value and publishes it as the new target for id.
// A clamped value is still applied and ErrConfigurationExceeded returned.
func (s *Store) SetTarget(id string, value float64) error {
	i, err := s.lookup(id)
	if err != nil {
		return err
	}
	v, apply, err := s.validate(i, value)
	if !apply {
		return err
	}

	s.mu.Lock()
	old := s.snapshot.Load()
	values := make([]float64, len(old.Values))
	copy(values, old.Values)
	values[i] = v
	serials := make([]uint64, len(old.Serials))
	copy(serials, old.Serials)
	serials[i] = old.Version + 1
	s.snapshot.Store(&Snapshot{Version: old.Version + 1, Values: values, Serials: serials})
	s.mu.Unlock()
	return err
}

// SetNormalized sets id from a host-normalized 0-1 value.
func (s *Store) SetNormalized(id string, normalized float64) error {
	i, err := s.lookup(id)
	if err != nil {
		return err
	}
	if math.IsNaN(normalized) {
		return fmt.Errorf("%w: %s normalized value is NaN", ErrInvalidParameterValue, id)
	}
	return s.SetTarget(id, s.params[i].Denormalize(normalized))
}

// SetTargetAt queues a change of id that takes effect offset samples
// into the next processed block. A SetTarget of the same id published
// after the event was queued supersedes it.
func (s *Store) SetTargetAt(id string, value float64, offset int) error {
	i, err := s.lookup(id)
	if err != nil {
		return err
	}
	v, apply, err := s.validate(i, value)
	if !apply {
		return err
	}

	s.mu.Lock()
	serial := s.snapshot.Load().Serials[i]
	ok := s.events.Push(Event{Index: i, Value: v, Offset: offset, Serial: serial})
	s.mu.Unlock()
	if !ok {
		return ErrQueueFull
	}
	return err
}

// NewEvent validates value and returns an event for a caller-built block
// context. Clamped values are returned with ErrConfigurationExceeded.
func (s *Store) NewEvent(id string, value float64, offset int) (Event, error) {
	i, err := s.lookup(id)
	if err != nil {
		return Event{}, err
	}
	v, apply, err := s.validate(i, value)
	if !apply {
		return Event{}, err
	}
	return Event{Index: i, Value: v, Offset: offset}, err
}

// Snapshot returns the latest published targets. The result must not be
// modified.
func (s *Store) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Target returns the latest published target of id.
func (s *Store) Target(id string) (float64, error) {
	i, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	return s.snapshot.Load().Values[i], nil
}

// Drain moves every queued event into dst[:0].
func (s *Store) Drain(dst []Event) []Event {
	return s.events.Drain(dst)
}

// EventCapacity returns the event queue size.
func (s *Store) EventCapacity() int {
	return s.events.Cap()
}

// PublishCurrent records the value the audio thread is using for index i.
func (s *Store) PublishCurrent(i int, value float64) {
	s.current[i].Store(math.Float64bits(value))
}

// Current returns the value most recently published by the audio thread.
func (s *Store) Current(id string) (float64, error) {
	i, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(s.current[i].Load()), nil
}

// Format renders value for display using the parameter's formatter.
func (s *Store) Format(id string, value float64) (string, error) {
	i, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	return s.params[i].FormatValue(value), nil
}

// Parse converts a display string back into a plain value for id.
func (s *Store) Parse(id, text string) (float64, error) {
	i, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	v, err := s.params[i].ParseValue(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidParameterValue, id, err)
	}
	return v, nil
}
