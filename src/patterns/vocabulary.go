package patterns

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

// Vocabulary owns the fuzzy-match word lists the registry's patterns
// reference by vocabulary_scope (§4.1 "registry owns vocabulary map
// (companion JSON); lookup returns word set for a scope"), kept separate
// from the pattern snapshot since it has its own file and its own, simpler,
// atomic swap.
type Vocabulary struct {
	scopes atomic.Pointer[map[string][]string]
}

func NewVocabulary() *Vocabulary {
	v := &Vocabulary{}
	empty := map[string][]string{}
	v.scopes.Store(&empty)
	return v
}

// LoadFile reads a companion JSON file of the form {"scope": ["word", ...]}
// (§6.9) and atomically installs it.
func (v *Vocabulary) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("vocabulary: read %s: %w", path, err)
	}
	var scopes map[string][]string
	if err := json.Unmarshal(data, &scopes); err != nil {
		return fmt.Errorf("vocabulary: decode %s: %w", path, err)
	}
	v.scopes.Store(&scopes)
	return nil
}

// Words returns the word set for a scope, or nil if the scope is unknown.
func (v *Vocabulary) Words(scope string) []string {
	scopes := *v.scopes.Load()
	return scopes[scope]
}

// AllWords flattens every scope into one lookup set. The retriever's
// command-keyword extraction (§4.3) treats the same companion JSON
// (paths.cisco_vocabulary) the fuzzy matcher uses as its stopword whitelist,
// rather than loading a second vocabulary file.
func (v *Vocabulary) AllWords() map[string]struct{} {
	scopes := *v.scopes.Load()
	all := make(map[string]struct{})
	for _, words := range scopes {
		for _, w := range words {
			all[strings.ToLower(w)] = struct{}{}
		}
	}
	return all
}
