package ports

import "github.com/ghalamif/AegisMaint/internal/domain"

type EntryID uint64

// ExperienceJournal is the append-only, order-preserving persistence of the
// experience store. Entries are never rewritten or deleted.
type ExperienceJournal interface {
	Append(e domain.Experience) (EntryID, error)
	Iterate(from EntryID, fn func(id EntryID, e domain.Experience) error) error
	Stats() JournalStats
	Close() error
}

type JournalStats struct {
	Entries        uint64
	LatestAppended EntryID
	SizeBytes      int64
}
