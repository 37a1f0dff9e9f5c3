package patterns

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
)

// LoadError names the offending pattern_id and field, mirroring §7's
// PatternLoadError kind. It is a plain error here; callers at the runtime
// package boundary wrap it into runtime.PatternLoadError so this leaf
// package has no dependency on the root package.
type LoadError struct {
	PatternID string
	Field     string
	Reason    string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("pattern load error: pattern_id=%q field=%q: %s", e.PatternID, e.Field, e.Reason)
}

// patternFile is the top-level §6.9 pattern JSON document shape.
type patternFile struct {
	Version  int           `json:"version"`
	Patterns []patternJSON `json:"patterns"`
}

// snapshot is the immutable value swapped atomically on Load/Reload (§4.1
// "reload(): atomic swap; concurrent iter_by_priority() sees old or new
// set, never a mix").
type snapshot struct {
	byPriority []*ErrorPattern // descending priority, then insertion order
	byID       map[string]*ErrorPattern
}

// Registry owns the pattern collection. The zero value is usable (empty);
// call Load to populate it.
type Registry struct {
	current atomic.Pointer[snapshot]
	sources []string // remembered for Reload
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(&snapshot{byID: map[string]*ErrorPattern{}})
	return r
}

// Load reads every source JSON file, validates and compiles every pattern,
// and atomically installs the new snapshot only if the whole batch is
// valid — a malformed pattern in one file must not partially replace a
// working registry (§4.1 "invalid pattern -> PatternLoadError naming the
// offending pattern_id and field").
func (r *Registry) Load(sources ...string) error {
	var all []patternJSON
	for _, path := range sources {
		data, err := os.ReadFile(path)
		if err != nil {
			return &LoadError{PatternID: "", Field: "source", Reason: fmt.Sprintf("reading %s: %v", path, err)}
		}
		var pf patternFile
		if err := json.Unmarshal(data, &pf); err != nil {
			return &LoadError{PatternID: "", Field: "source", Reason: fmt.Sprintf("decoding %s: %v", path, err)}
		}
		if pf.Version == 0 {
			return &LoadError{PatternID: "", Field: "version", Reason: fmt.Sprintf("%s: version field is required", path)}
		}
		all = append(all, pf.Patterns...)
	}

	snap := &snapshot{byID: make(map[string]*ErrorPattern, len(all))}
	for _, pj := range all {
		compiled, field, err := compilePattern(pj)
		if err != nil {
			return &LoadError{PatternID: pj.PatternID, Field: field, Reason: err.Error()}
		}
		if _, dup := snap.byID[compiled.PatternID]; dup {
			return &LoadError{PatternID: compiled.PatternID, Field: "pattern_id", Reason: "duplicate pattern_id"}
		}
		snap.byID[compiled.PatternID] = compiled
		snap.byPriority = append(snap.byPriority, compiled)
	}
	// Descending priority, first-loaded wins on ties (§3 invariant): a
	// stable sort over the insertion-ordered slice preserves that.
	sort.SliceStable(snap.byPriority, func(i, j int) bool {
		return snap.byPriority[i].Priority > snap.byPriority[j].Priority
	})

	r.sources = sources
	r.current.Store(snap)
	return nil
}

// Reload re-reads the same sources passed to the last Load and atomically
// swaps the snapshot; on error the previous snapshot remains live (§4.1
// reload()).
func (r *Registry) Reload() error {
	return r.Load(r.sources...)
}

// IterByPriority returns patterns in descending-priority, insertion-order
// sequence from a single consistent snapshot.
func (r *Registry) IterByPriority() []*ErrorPattern {
	return r.current.Load().byPriority
}

// Find is the §4.1 point lookup, error if missing.
func (r *Registry) Find(patternID string) (*ErrorPattern, error) {
	snap := r.current.Load()
	p, ok := snap.byID[patternID]
	if !ok {
		return nil, fmt.Errorf("pattern not found: %q", patternID)
	}
	return p, nil
}

// Stats is the Supplemented Feature from registry.py's get_stats(): total
// pattern count, all pattern IDs, and a priority histogram, useful for the
// indexer/admin CLI and tests.
type Stats struct {
	TotalPatterns       int
	PatternIDs          []string
	PriorityDistribution map[int]int
}

func (r *Registry) Stats() Stats {
	snap := r.current.Load()
	s := Stats{TotalPatterns: len(snap.byPriority), PriorityDistribution: map[int]int{}}
	for _, p := range snap.byPriority {
		s.PatternIDs = append(s.PatternIDs, p.PatternID)
		s.PriorityDistribution[p.Priority]++
	}
	return s
}
