package appfilter

import (
	"sort"
	"sync"

	zlog "github.com/rs/zerolog/log"
)

// PersistFunc writes the current allow/ignore lists back to durable
// configuration. It is called outside the store's lock.
type PersistFunc func(allowed, ignored []string) error

// Store holds the mutable filtering state shared between the poll loop
// and the user-prompt handler. All access goes through a single RWMutex;
// the lock is never held across a persist call.
type Store struct {
	mu               sync.RWMutex
	promptForNewApps bool
	scrobbleUnknown  bool
	allowed          map[string]struct{}
	ignored          map[string]struct{}

	persist PersistFunc
}

// NewStore creates a store from the loaded configuration lists.
func NewStore(promptForNewApps, scrobbleUnknown bool, allowed, ignored []string, persist PersistFunc) *Store {
	s := &Store{
		promptForNewApps: promptForNewApps,
		scrobbleUnknown:  scrobbleUnknown,
		allowed:          make(map[string]struct{}, len(allowed)),
		ignored:          make(map[string]struct{}, len(ignored)),
		persist:          persist,
	}
	for _, id := range allowed {
		s.allowed[id] = struct{}{}
	}
	for _, id := range ignored {
		s.ignored[id] = struct{}{}
	}
	return s
}

// Classify applies the filtering rules to the given app identifier.
func (s *Store) Classify(appID string) Action {
	s.mu.RLock()
	rules := Rules{
		PromptForNewApps: s.promptForNewApps,
		ScrobbleUnknown:  s.scrobbleUnknown,
		Allowed:          s.allowed,
		Ignored:          s.ignored,
	}
	action := Classify(appID, rules)
	s.mu.RUnlock()
	return action
}

// Remember records the user's decision for an app and persists it.
// The next poll that sees the same app resolves without prompting.
func (s *Store) Remember(appID string, allow bool) {
	if appID == "" {
		return
	}

	action := ActionIgnore
	if allow {
		action = ActionAllow
	}

	s.mu.Lock()
	if allow {
		s.allowed[appID] = struct{}{}
		delete(s.ignored, appID)
	} else {
		s.ignored[appID] = struct{}{}
		delete(s.allowed, appID)
	}
	allowed := sortedKeys(s.allowed)
	ignored := sortedKeys(s.ignored)
	s.mu.Unlock()

	zlog.Info().Msgf("App %s marked as %s", appID, action)

	if s.persist != nil {
		if err := s.persist(allowed, ignored); err != nil {
			zlog.Error().Msgf("Failed to persist app filter decision for %s: %v", appID, err)
		}
	}
}

// Lists returns sorted copies of the current allow and ignore lists.
func (s *Store) Lists() (allowed, ignored []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.allowed), sortedKeys(s.ignored)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
