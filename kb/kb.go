package kb

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/signalsfoundry/wsn-simulator/model"
)

// Names of the builtin radio profiles.
const (
	ProfileDefault = "DEFAULT"
	ProfileESP32   = "ESP32-WROOM-32U"
)

var (
	ErrUnknownProfile = errors.New("radio profile not supported")
	ErrProfileExists  = errors.New("radio profile already exists")
	ErrProfileInvalid = errors.New("invalid radio profile")
)

// builtinProfiles is the hardware table shipped with the simulator.
var builtinProfiles = []model.RadioProfile{
	{
		Name:             ProfileDefault,
		MinTxPowerDBm:    -15.0,
		MaxTxPowerDBm:    27.0,
		RxSensitivityDBm: -80.0,
		FrequencyHz:      933.0e6,
	},
	{
		Name:             ProfileESP32,
		MinTxPowerDBm:    -12.0,
		MaxTxPowerDBm:    9.0,
		RxSensitivityDBm: -97.0,
		FrequencyHz:      2.4e9,
	},
}

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	EventProfileAdded EventType = iota
)

// Event is emitted to subscribers when a profile is registered.
type Event struct {
	Type    EventType
	Profile model.RadioProfile
}

// Registry is an in-memory, thread-safe table of radio profiles keyed
// by upper-cased name. Lookups are case-insensitive.
type Registry struct {
	mu sync.RWMutex

	profiles map[string]model.RadioProfile

	subs   map[uint64]func(Event)
	nextID uint64
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		profiles: make(map[string]model.RadioProfile),
	}
}

// NewRegistryWithBuiltins constructs a registry pre-loaded with the
// builtin profiles, ready to be extended with custom hardware.
func NewRegistryWithBuiltins() *Registry {
	r := NewRegistry()
	for _, p := range builtinProfiles {
		if err := r.Add(p); err != nil {
			panic(fmt.Sprintf("kb: invalid builtin profile %q: %v", p.Name, err))
		}
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry holding only the builtin
// profiles. Callers must treat it as read-only.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistryWithBuiltins()
	})
	return defaultRegistry
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Add registers a new profile. The stored name is upper-cased.
func (r *Registry) Add(p model.RadioProfile) error {
	key := normalize(p.Name)
	switch {
	case key == "":
		return fmt.Errorf("%w: empty name", ErrProfileInvalid)
	case p.MinTxPowerDBm > p.MaxTxPowerDBm:
		return fmt.Errorf("%w: %q min tx power %v dBm exceeds max %v dBm",
			ErrProfileInvalid, key, p.MinTxPowerDBm, p.MaxTxPowerDBm)
	case p.FrequencyHz <= 0:
		return fmt.Errorf("%w: %q frequency must be positive, got %v Hz", ErrProfileInvalid, key, p.FrequencyHz)
	}
	p.Name = key

	r.mu.Lock()
	if _, exists := r.profiles[key]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrProfileExists, key)
	}
	r.profiles[key] = p
	event := Event{Type: EventProfileAdded, Profile: p}
	ids := slices.Sorted(maps.Keys(r.subs))
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, r.subs[id])
	}
	r.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Lookup returns the profile registered under name.
func (r *Registry) Lookup(name string) (model.RadioProfile, error) {
	key := normalize(name)

	r.mu.RLock()
	p, ok := r.profiles[key]
	r.mu.RUnlock()

	if !ok {
		return model.RadioProfile{}, fmt.Errorf("%w: %q (valid: %s)",
			ErrUnknownProfile, key, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

// Names returns the registered profile names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// List returns a snapshot of all profiles sorted by name.
func (r *Registry) List() []model.RadioProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.RadioProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Subscribe registers a callback for registry events. Callbacks run in
// subscription order. The returned unsubscribe function is idempotent.
func (r *Registry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		r.subs = make(map[uint64]func(Event))
	}
	id := r.nextID
	r.nextID++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}
