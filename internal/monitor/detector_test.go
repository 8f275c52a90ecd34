package monitor

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"FilingsMonitor/internal/domain"
	"FilingsMonitor/internal/snapshot"
)

func TestBootstrapFirstSnapshot(t *testing.T) {
	t.Parallel()

	store := snapshot.NewStore(t.TempDir())
	detector := NewDetector(store)

	current := snapshot.New()
	current.Set("x", "X")

	report, err := detector.Detect("entity", current)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFirstSnapshot, report.Status)
	require.Empty(t, report.New)
	require.Empty(t, report.Removed)
	require.Equal(t, 1, report.Tracked)

	saved, err := store.Load("entity")
	require.NoError(t, err)
	require.Equal(t, "X", saved.Label("x"))
}

func TestDiffReportsLabelsNotIdentities(t *testing.T) {
	t.Parallel()

	store := snapshot.NewStore(t.TempDir())
	detector := NewDetector(store)

	previous := snapshot.New()
	previous.Set("a", "A")
	previous.Set("b", "B")
	require.NoError(t, store.Save("entity", previous))

	current := snapshot.New()
	current.Set("b", "B")
	current.Set("c", "C")

	report, err := detector.Detect("entity", current)
	require.NoError(t, err)
	require.Equal(t, domain.StatusChanged, report.Status)
	require.Equal(t, []string{"C"}, report.New)
	require.Equal(t, []string{"A"}, report.Removed)
}

func TestLabelChangeAloneIsNotAChange(t *testing.T) {
	t.Parallel()

	store := snapshot.NewStore(t.TempDir())
	detector := NewDetector(store)

	previous := snapshot.New()
	previous.Set("a", "Old wording")
	require.NoError(t, store.Save("entity", previous))

	current := snapshot.New()
	current.Set("a", "New wording of the same filing")

	report, err := detector.Detect("entity", current)
	require.NoError(t, err)
	require.Equal(t, domain.StatusNoChange, report.Status)

	// The snapshot is still refreshed to the observed truth.
	saved, err := store.Load("entity")
	require.NoError(t, err)
	require.Equal(t, "New wording of the same filing", saved.Label("a"))
}

func TestNoChangeStillRewritesSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := snapshot.NewStore(dir)
	detector := NewDetector(store)

	previous := snapshot.New()
	previous.Set("a", "A")
	require.NoError(t, store.Save("entity", previous))

	before, err := os.Stat(store.Path("entity"))
	require.NoError(t, err)

	current := snapshot.New()
	current.Set("a", "A")

	report, err := detector.Detect("entity", current)
	require.NoError(t, err)
	require.Equal(t, domain.StatusNoChange, report.Status)

	after, err := os.Stat(store.Path("entity"))
	require.NoError(t, err)
	require.False(t, after.ModTime().Before(before.ModTime()))
}

func TestNewFilingsKeepEncounterOrder(t *testing.T) {
	t.Parallel()

	store := snapshot.NewStore(t.TempDir())
	detector := NewDetector(store)

	require.NoError(t, store.Save("entity", snapshot.New()))

	current := snapshot.New()
	current.Set("3", "Third")
	current.Set("1", "First")
	current.Set("2", "Second")

	report, err := detector.Detect("entity", current)
	require.NoError(t, err)
	require.Equal(t, []string{"Third", "First", "Second"}, report.New)
}
