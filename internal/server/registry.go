package server

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/behavior"
)

// record is everything the service keeps for one session.
type record struct {
	id        string
	createdAt time.Time
	events    []behavior.Event
	responses map[string]any

	// asked holds the question texts served per stage tag.
	asked map[string][]string
}

// Registry is the in-memory session store. Sessions live until the process
// exits.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*record
	now      func() time.Time
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*record), now: time.Now}
}

// Create registers a new session and returns its id.
func (r *Registry) Create() string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &record{
		id:        id,
		createdAt: r.now(),
		responses: make(map[string]any),
		asked:     make(map[string][]string),
	}
	return id
}

// Exists reports whether id is a known session.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// AddEvent appends an event. It returns false for unknown sessions.
func (r *Registry) AddEvent(id string, e behavior.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.sessions[id]
	if !ok {
		return false
	}
	rec.events = append(rec.events, e)
	return true
}

// MergeResponses merges keyed responses, later values winning.
func (r *Registry) MergeResponses(id string, kv map[string]any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.sessions[id]
	if !ok {
		return false
	}
	maps.Copy(rec.responses, kv)
	return true
}

// AddQuestion remembers a served question for deduplication.
func (r *Registry) AddQuestion(id, stageTag, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.sessions[id]; ok {
		rec.asked[stageTag] = append(rec.asked[stageTag], text)
	}
}

// Asked returns the questions already served for a stage, as history
// entries the question validators understand.
func (r *Registry) Asked(id, stageTag string) []adaptive.HistoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sessions[id]
	if !ok {
		return nil
	}
	out := make([]adaptive.HistoryEntry, 0, len(rec.asked[stageTag]))
	for _, q := range rec.asked[stageTag] {
		out = append(out, adaptive.HistoryEntry{Stage: stageTag, Question: q})
	}
	return out
}

// SessionData is a point-in-time copy of one session.
type SessionData struct {
	ID        string
	CreatedAt time.Time
	Events    []behavior.Event
	Responses map[string]any
}

// CreativeOutputs returns the free-text answers, ordered by key.
func (d SessionData) CreativeOutputs() []string {
	var keys []string
	for k := range d.Responses {
		if strings.HasSuffix(k, "_text") {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if s, ok := d.Responses[k].(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Get returns a copy of the session.
func (r *Registry) Get(id string) (SessionData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sessions[id]
	if !ok {
		return SessionData{}, false
	}
	return SessionData{
		ID:        rec.id,
		CreatedAt: rec.createdAt,
		Events:    append([]behavior.Event(nil), rec.events...),
		Responses: maps.Clone(rec.responses),
	}, true
}
