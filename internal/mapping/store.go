package mapping

import (
	"errors"
	"os"
	"sort"
	"time"

	"github.com/gitdocs/gitdocs/internal/log"
	"github.com/gitdocs/gitdocs/internal/storage"
)

// Mapping records that one commit relates to one ticket, and whether that
// relation has been pushed to the tracker yet.
type Mapping struct {
	TicketKey     string     `json:"ticket_key"`
	CommitSHA     string     `json:"commit_sha"`
	CommitMessage string     `json:"commit_message"`
	MappedAt      time.Time  `json:"mapped_at"`
	Synced        bool       `json:"synced"`
	SyncedAt      *time.Time `json:"synced_at,omitempty"`
}

// Store accumulates commit-ticket mappings, keyed by ticket with insertion
// order preserved per ticket. It is a rebuildable convenience index, not a
// source of truth: a corrupt persisted file loads as an empty store.
type Store struct {
	ByTicket map[string][]*Mapping `json:"mappings"`
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{ByTicket: make(map[string][]*Mapping)}
}

// NewMapping builds a mapping for a commit with MappedAt set to now.
func NewMapping(ticketKey, commitSHA, commitMessage string) *Mapping {
	return &Mapping{
		TicketKey:     ticketKey,
		CommitSHA:     commitSHA,
		CommitMessage: commitMessage,
		MappedAt:      time.Now(),
	}
}

// Add inserts a mapping unless one with the same (ticket, commit) pair
// already exists. Returns true if the mapping was added.
func (s *Store) Add(m *Mapping) bool {
	for _, existing := range s.ByTicket[m.TicketKey] {
		if existing.CommitSHA == m.CommitSHA {
			return false
		}
	}

	s.ByTicket[m.TicketKey] = append(s.ByTicket[m.TicketKey], m)
	return true
}

// ForTicket returns all mappings for a ticket in discovery order.
// Returns an empty slice for unknown tickets.
func (s *Store) ForTicket(ticketKey string) []*Mapping {
	return s.ByTicket[ticketKey]
}

// Tickets returns all known ticket keys, sorted.
func (s *Store) Tickets() []string {
	keys := make([]string, 0, len(s.ByTicket))
	for key := range s.ByTicket {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Unsynced returns every mapping not yet pushed to the tracker, ordered by
// ticket key and then discovery order so repeated calls are stable.
func (s *Store) Unsynced() []*Mapping {
	var unsynced []*Mapping
	for _, ticket := range s.Tickets() {
		for _, m := range s.ByTicket[ticket] {
			if !m.Synced {
				unsynced = append(unsynced, m)
			}
		}
	}
	return unsynced
}

// MarkSynced flags the mapping for (ticket, commit) as synced and stamps
// SyncedAt. No-op if no such mapping exists. SyncedAt is set exactly once.
func (s *Store) MarkSynced(ticketKey, commitSHA string) {
	for _, m := range s.ByTicket[ticketKey] {
		if m.CommitSHA == commitSHA {
			if !m.Synced {
				m.Synced = true
				now := time.Now()
				m.SyncedAt = &now
			}
			return
		}
	}
}

// Len returns the total number of mappings across all tickets.
func (s *Store) Len() int {
	n := 0
	for _, ms := range s.ByTicket {
		n += len(ms)
	}
	return n
}

// Load reads a store from path. A missing, unreadable or corrupt file
// yields an empty usable store with a logged warning; the store can always
// be rebuilt from git history.
func Load(logger *log.Logger, path string) *Store {
	if logger == nil {
		logger = log.Discard()
	}

	var store Store
	if err := storage.LoadJSON(path, &store); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("failed to load mapping store %s: %v", path, err)
		}
		return NewStore()
	}

	if store.ByTicket == nil {
		store.ByTicket = make(map[string][]*Mapping)
	}
	return &store
}

// Save writes the store to path atomically, rewriting the whole file.
func (s *Store) Save(path string) error {
	return storage.SaveJSON(path, s)
}
