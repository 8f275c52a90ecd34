package monitor

import (
	"errors"
	"fmt"
	"time"

	"FilingsMonitor/internal/domain"
	"FilingsMonitor/internal/snapshot"
)

// Detector turns the currently observed identity set for an entity into a
// change report against the entity's stored snapshot.
//
// Callers must serialize Detect calls per entity: the load-diff-save sequence
// assumes no other writer touches the same snapshot in between.
type Detector struct {
	store *snapshot.Store
}

// NewDetector wires the snapshot store.
func NewDetector(store *snapshot.Store) *Detector {
	return &Detector{store: store}
}

// Detect diffs current against the stored snapshot and commits current as
// the new baseline.
//
// The first run for an entity bootstraps the snapshot and is reported as
// first_snapshot, not as a change. On later runs the diff compares identity
// keys, never labels; the report carries labels in the encounter order of
// the current (for new) and previous (for removed) snapshots. The snapshot
// is rewritten even when nothing changed, so the recorded state always
// reflects the freshly observed truth.
func (d *Detector) Detect(entityKey string, current *snapshot.Snapshot) (domain.ChangeReport, error) {
	report := domain.ChangeReport{
		Entity:     entityKey,
		Tracked:    current.Len(),
		DetectedAt: time.Now().UTC(),
	}

	previous, err := d.store.Load(entityKey)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotFound) {
			return domain.ChangeReport{}, fmt.Errorf("load previous snapshot: %w", err)
		}

		if err := d.store.Save(entityKey, current); err != nil {
			return domain.ChangeReport{}, fmt.Errorf("save first snapshot: %w", err)
		}

		report.Status = domain.StatusFirstSnapshot
		return report, nil
	}

	var added, removed []string
	for _, id := range current.IDs() {
		if !previous.Has(id) {
			added = append(added, current.Label(id))
		}
	}
	for _, id := range previous.IDs() {
		if !current.Has(id) {
			removed = append(removed, previous.Label(id))
		}
	}

	if err := d.store.Save(entityKey, current); err != nil {
		return domain.ChangeReport{}, fmt.Errorf("save snapshot: %w", err)
	}

	if len(added) == 0 && len(removed) == 0 {
		report.Status = domain.StatusNoChange
		return report, nil
	}

	report.Status = domain.StatusChanged
	report.New = added
	report.Removed = removed
	return report, nil
}
