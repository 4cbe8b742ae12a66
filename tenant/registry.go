// Package tenant implements the process-local tenant registry: a
// read-mostly, copy-on-reload set of known tenant IDs plus their metadata.
package tenant

import (
	"encoding/json"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/Sebastian25gb/nubla-siem/logging"
)

// Descriptor is a tenant entry as it appears in the registry file. Entries
// may be bare strings (Id only) or objects with at least an id.
type Descriptor struct {
	ID       string `json:"id"`
	PolicyID string `json:"policy_id,omitempty"`
	Active   bool   `json:"active"`
}

type snapshot struct {
	ids   map[string]struct{}
	byID  map[string]Descriptor
}

func emptySnapshot() *snapshot {
	return &snapshot{ids: map[string]struct{}{}, byID: map[string]Descriptor{}}
}

// Registry answers is_valid/metadata lookups in O(1) (All returns a copy of
// the set) against an atomically-swapped immutable snapshot, so reload()
// never produces a torn read for a concurrent lookup.
type Registry struct {
	path string
	cur  atomic.Pointer[snapshot]
	log  *logging.Logger
	watch *fsnotify.Watcher
}

// New builds a registry for the given file path. The registry starts empty;
// call Reload (or Watch) to populate it.
func New(path string, log *logging.Logger) *Registry {
	if log == nil {
		log = logging.NewDiscard()
	}
	r := &Registry{path: path, log: log}
	r.cur.Store(emptySnapshot())
	return r
}

// Reload atomically replaces the backing set from the configured file.
// A missing or malformed file yields an empty set; it never returns an
// error to the caller, so a bad registry file degrades to "no tenants
// known" rather than crashing the consumer.
func (r *Registry) Reload() {
	snap := emptySnapshot()

	data, err := os.ReadFile(r.path)
	if err != nil {
		r.log.Warn("tenant_registry_reload_missing", logging.F("path", r.path), logging.F("error", err))
		r.cur.Store(snap)
		return
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		r.log.Warn("tenant_registry_reload_invalid", logging.F("path", r.path), logging.F("error", err))
		r.cur.Store(snap)
		return
	}

	for _, item := range raw {
		var asString string
		if err := json.Unmarshal(item, &asString); err == nil {
			if asString == "" {
				continue
			}
			snap.ids[asString] = struct{}{}
			snap.byID[asString] = Descriptor{ID: asString, Active: true}
			continue
		}
		var d Descriptor
		if err := json.Unmarshal(item, &d); err == nil && d.ID != "" {
			snap.ids[d.ID] = struct{}{}
			snap.byID[d.ID] = d
		}
	}

	r.cur.Store(snap)
	r.log.Info("tenant_registry_reloaded", logging.F("tenants", len(snap.ids)))
}

// All returns a copy of the current tenant ID set.
func (r *Registry) All() map[string]struct{} {
	snap := r.cur.Load()
	out := make(map[string]struct{}, len(snap.ids))
	for id := range snap.ids {
		out[id] = struct{}{}
	}
	return out
}

// Size reports the current tenant count, used for the tenant_registry_size gauge.
func (r *Registry) Size() int {
	return len(r.cur.Load().ids)
}

// IsValid reports whether id is a known tenant. A descriptor's Active flag
// is not consulted.
func (r *Registry) IsValid(id string) bool {
	if id == "" {
		return false
	}
	_, ok := r.cur.Load().ids[id]
	return ok
}

// Metadata returns the descriptor for id, if any.
func (r *Registry) Metadata(id string) (Descriptor, bool) {
	d, ok := r.cur.Load().byID[id]
	return d, ok
}

// Watch starts an fsnotify watch on the registry file's directory and
// triggers Reload on write events. This supplements the on-demand Reload
// with automatic pickup of onboarding changes; it does not change
// Reload's semantics. Watch is best-effort: a failure to establish the
// watch is logged and does not prevent the registry from functioning via
// explicit Reload calls.
func (r *Registry) Watch() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		r.log.Warn("tenant_registry_watch_unavailable", logging.F("error", err))
		return
	}
	dir := dirOf(r.path)
	if err := w.Add(dir); err != nil {
		r.log.Warn("tenant_registry_watch_unavailable", logging.F("path", dir), logging.F("error", err))
		w.Close()
		return
	}
	r.watch = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name == r.path && (ev.Op&(fsnotify.Write|fsnotify.Create) != 0) {
					r.Reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				r.log.Warn("tenant_registry_watch_error", logging.F("error", err))
			}
		}
	}()
}

// Close releases the fsnotify watch, if one was started.
func (r *Registry) Close() error {
	if r.watch != nil {
		return r.watch.Close()
	}
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
