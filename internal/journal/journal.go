// Package journal attaches free-text annotations to transactions. The
// link is a soft reference: entries may point at transactions the
// ledger no longer keeps, and nothing validates the ID at write time.
package journal

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/papertrade/papertrade-api/internal/types"
)

// ErrEntryNotFound is returned when updating an unknown journal entry.
var ErrEntryNotFound = errors.New("journal entry not found")

// Journal holds a single client's annotations in creation order.
type Journal struct {
	entries []*types.JournalEntry
	now     func() time.Time
}

// New creates an empty journal.
func New() *Journal {
	return &Journal{now: time.Now}
}

// SetClock overrides the time source.
func (j *Journal) SetClock(now func() time.Time) {
	j.now = now
}

// AddNote appends a new entry referencing transactionID.
func (j *Journal) AddNote(transactionID, text string, tags []string) *types.JournalEntry {
	now := j.now()
	entry := &types.JournalEntry{
		EntryID:       "JRN_" + uuid.New().String(),
		TransactionID: transactionID,
		Text:          text,
		Tags:          tags,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	j.entries = append(j.entries, entry)
	out := *entry
	return &out
}

// UpdateNote replaces the text and tags of an existing entry.
func (j *Journal) UpdateNote(entryID, text string, tags []string) (*types.JournalEntry, error) {
	for _, e := range j.entries {
		if e.EntryID == entryID {
			e.Text = text
			e.Tags = tags
			e.UpdatedAt = j.now()
			out := *e
			return &out, nil
		}
	}
	return nil, ErrEntryNotFound
}

// ForTransaction returns the first entry referencing the transaction.
func (j *Journal) ForTransaction(transactionID string) (types.JournalEntry, bool) {
	for _, e := range j.entries {
		if e.TransactionID == transactionID {
			return *e, true
		}
	}
	return types.JournalEntry{}, false
}

// Entries returns copies of all entries in creation order.
func (j *Journal) Entries() []types.JournalEntry {
	out := make([]types.JournalEntry, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, *e)
	}
	return out
}

// Snapshot returns the most recent maxEntries entries for persistence
// (non-positive keeps all).
func (j *Journal) Snapshot(maxEntries int) []types.JournalEntry {
	entries := j.Entries()
	if maxEntries > 0 && len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}
	return entries
}

// Restore replaces the journal's contents.
func (j *Journal) Restore(entries []types.JournalEntry) {
	j.entries = make([]*types.JournalEntry, 0, len(entries))
	for i := range entries {
		e := entries[i]
		j.entries = append(j.entries, &e)
	}
}
