// Package registry holds the markers of the current ingestion run and the
// visibility state the map filters operate on.
package registry

import (
	"strings"
	"sync"

	"github.com/couchcryptid/sensor-map-service/internal/domain"
)

// Handle is the presentation layer's reference for a marker. The registry
// stores it but never looks inside.
type Handle any

// MarkerEntry is a registered record plus its derived display state.
// AggregateOccupancy and Color are computed once at registration.
type MarkerEntry struct {
	Record             domain.SensorRecord
	AggregateOccupancy int
	Color              domain.HSL
	Visible            bool
	Handle             Handle

	foldedName string
}

// Placeable reports whether the map can position the entry.
func (e MarkerEntry) Placeable() bool {
	return e.Record.Position.Placeable()
}

// Change describes a registry mutation delivered to listeners.
type Change struct {
	Reason  string // "load", "register", "filter", "show_all", "clear"
	Entries []MarkerEntry
}

// Listener receives a snapshot after every mutation. It runs outside the
// registry lock and must not block for long.
type Listener func(Change)

// Registry is the marker collection for one ingestion run. All methods are
// safe for concurrent use; a single lock covers registration, filtering and
// search.
type Registry struct {
	mu        sync.RWMutex
	entries   []MarkerEntry
	listeners []Listener
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// OnChange subscribes a listener to registry mutations.
func (r *Registry) OnChange(l Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// Register appends a visible entry for rec. There is no duplicate detection;
// re-ingestion goes through LoadBatch or Clear first.
func (r *Registry) Register(rec domain.SensorRecord, handle Handle) MarkerEntry {
	entry := newEntry(rec, handle)

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	change := r.changeLocked("register")
	r.mu.Unlock()

	r.notify(change)
	return entry
}

// LoadBatch replaces the registry content with one entry per record, all
// visible, in feed order.
func (r *Registry) LoadBatch(records []domain.SensorRecord) int {
	entries := make([]MarkerEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, newEntry(rec, nil))
	}

	r.mu.Lock()
	r.entries = entries
	change := r.changeLocked("load")
	r.mu.Unlock()

	r.notify(change)
	return len(entries)
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.entries = nil
	change := r.changeLocked("clear")
	r.mu.Unlock()

	r.notify(change)
}

// FilterByType shows only entries whose type equals typ exactly and returns
// how many are visible.
func (r *Registry) FilterByType(typ string) int {
	r.mu.Lock()
	visible := 0
	for i := range r.entries {
		r.entries[i].Visible = r.entries[i].Record.Type == typ
		if r.entries[i].Visible {
			visible++
		}
	}
	change := r.changeLocked("filter")
	r.mu.Unlock()

	r.notify(change)
	return visible
}

// ShowAll makes every entry visible.
func (r *Registry) ShowAll() {
	r.mu.Lock()
	for i := range r.entries {
		r.entries[i].Visible = true
	}
	change := r.changeLocked("show_all")
	r.mu.Unlock()

	r.notify(change)
}

// Search returns the first entry, in registration order, whose name contains
// term ignoring case and accents. ok is false when nothing matches or term is
// blank. Visibility is not affected.
func (r *Registry) Search(term string) (entry MarkerEntry, ok bool) {
	needle := foldName(strings.TrimSpace(term))
	if needle == "" {
		return MarkerEntry{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if strings.Contains(e.foldedName, needle) {
			return e, true
		}
	}
	return MarkerEntry{}, false
}

// Entries returns a copy of all entries in registration order.
func (r *Registry) Entries() []MarkerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Visible returns a copy of the visible entries in registration order.
func (r *Registry) Visible() []MarkerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MarkerEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Visible {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Stats summarizes the registry content.
type Stats struct {
	Total       int            `json:"total"`
	Visible     int            `json:"visible"`
	Unplaceable int            `json:"unplaceable"`
	ByType      map[string]int `json:"by_type"`
}

// Stats counts entries overall, visible, unplaceable and per type.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Stats{Total: len(r.entries), ByType: make(map[string]int)}
	for _, e := range r.entries {
		if e.Visible {
			s.Visible++
		}
		if !e.Placeable() {
			s.Unplaceable++
		}
		s.ByType[e.Record.Type]++
	}
	return s
}

func newEntry(rec domain.SensorRecord, handle Handle) MarkerEntry {
	occupancy := domain.AggregateOccupancy(rec)
	return MarkerEntry{
		Record:             rec,
		AggregateOccupancy: occupancy,
		Color:              domain.EncodeColor(float64(occupancy)),
		Visible:            true,
		Handle:             handle,
		foldedName:         foldName(rec.Name),
	}
}

func (r *Registry) snapshotLocked() []MarkerEntry {
	out := make([]MarkerEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// changeLocked captures the state to publish; nil when nobody listens.
func (r *Registry) changeLocked(reason string) *Change {
	if len(r.listeners) == 0 {
		return nil
	}
	return &Change{Reason: reason, Entries: r.snapshotLocked()}
}

func (r *Registry) notify(change *Change) {
	if change == nil {
		return
	}
	r.mu.RLock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, l := range listeners {
		l(*change)
	}
}
