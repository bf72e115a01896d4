package autosave

import (
	"strings"

	"github.com/percorso-labs/percorso-api/internal/models"
)

// Snapshot is one complete working state of an editing session. Snapshots are
// value objects; comparing two of them decides whether a write is worth
// making.
type Snapshot struct {
	Answers models.AnswerMap
	Notes   string
}

// NewSnapshot clones the answers so later mutations by the caller cannot
// alias the stored state.
func NewSnapshot(answers models.AnswerMap, notes string) Snapshot {
	return Snapshot{
		Answers: models.CloneAnswerMap(answers),
		Notes:   notes,
	}
}

// Empty reports whether the snapshot carries nothing worth persisting: no
// answers and no notes after trimming.
func (s Snapshot) Empty() bool {
	return len(s.Answers) == 0 && strings.TrimSpace(s.Notes) == ""
}

// Changed reports whether next differs from prev in a way that warrants a
// write. Notes are compared after trimming so trailing whitespace alone never
// triggers a save.
func Changed(prev, next Snapshot) bool {
	if !models.EqualAnswerMaps(prev.Answers, next.Answers) {
		return true
	}
	return strings.TrimSpace(prev.Notes) != strings.TrimSpace(next.Notes)
}

// ShouldPersist is the autosave gate: a write happens only when the state
// changed since the last persisted snapshot and the new state is non-empty.
func ShouldPersist(lastSaved, next Snapshot) bool {
	return Changed(lastSaved, next) && !next.Empty()
}
