package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"interview-monitor/internal/domain"
)

func TestDiscoverFiltersSmallDetachedAndStalled(t *testing.T) {
	big := newSource("big", 640, 480)
	thumb := newSource("thumb", 99, 300)
	gone := newSource("gone", 640, 480)
	gone.detach()
	stalled := newSource("stalled", 640, 480)
	stalled.setReady(false)
	edge := newSource("edge", 100, 100)

	r := NewVideoSourceRegistry(newFakeHost(big, thumb, gone, stalled, edge), nopLogger())
	var ids []string
	for _, s := range r.Discover() {
		ids = append(ids, s.ID())
	}
	require.Equal(t, []string{"big", "edge"}, ids)

	infos := r.Describe()
	require.Len(t, infos, 5)
	require.False(t, infos[1].Candidate)
	require.True(t, infos[4].Candidate)
}

func TestSelectUnmarksExactlyThePreviousTarget(t *testing.T) {
	a, b, c := newSource("a", 200, 200), newSource("b", 200, 200), newSource("c", 200, 200)
	host := newFakeHost(a, b, c)
	r := NewVideoSourceRegistry(host, nopLogger())

	_, err := r.Select("a")
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"a": true}, host.markedIDs())

	_, err = r.Select("b")
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"b": true}, host.markedIDs())
	require.Equal(t, 1, host.unmarkCalls("a"))
	require.Equal(t, 0, host.unmarkCalls("c"))

	// Re-selecting the same target keeps it marked and unmarks nothing.
	_, err = r.Select("b")
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"b": true}, host.markedIDs())
	require.Equal(t, 0, host.unmarkCalls("b"))
	require.Equal(t, 1, host.unmarkCalls("a"))

	_, err = r.Select("nope")
	require.ErrorIs(t, err, domain.ErrUnknownSource)
	require.Equal(t, "b", r.Selected().ID())
}

func TestSelectionModeOverlay(t *testing.T) {
	a := newSource("a", 200, 200)
	host := newFakeHost(a)
	r := NewVideoSourceRegistry(host, nopLogger())

	require.Len(t, r.EnterSelectionMode(), 1)
	require.True(t, r.Selecting())
	require.Equal(t, []string{"a"}, host.overlay)

	r.CancelSelection()
	require.False(t, r.Selecting())
	require.Empty(t, host.overlay)
	require.Nil(t, r.Selected())

	r.EnterSelectionMode()
	_, err := r.Select("a")
	require.NoError(t, err)
	require.False(t, r.Selecting())
	require.Empty(t, host.overlay)
}

func TestEnterSelectionModeWithoutCandidates(t *testing.T) {
	host := newFakeHost(newSource("tiny", 50, 50))
	r := NewVideoSourceRegistry(host, nopLogger())
	require.Empty(t, r.EnterSelectionMode())
	require.False(t, r.Selecting())
}

func TestBestGuess(t *testing.T) {
	r := NewVideoSourceRegistry(newFakeHost(), nopLogger())
	require.Nil(t, r.BestGuess())

	r = NewVideoSourceRegistry(newFakeHost(newSource("only", 120, 120)), nopLogger())
	require.Equal(t, "only", r.BestGuess().ID())

	r = NewVideoSourceRegistry(newFakeHost(
		newSource("small", 320, 240),
		newSource("wide", 1280, 720),
		newSource("tall", 720, 1280),
	), nopLogger())
	require.Equal(t, "wide", r.BestGuess().ID(), "ties go to the first discovered")
}

func TestValidate(t *testing.T) {
	s := newSource("s", 200, 200)
	r := NewVideoSourceRegistry(newFakeHost(s), nopLogger())
	require.Equal(t, TargetReady, r.Validate(s))
	s.setReady(false)
	require.Equal(t, TargetNotReady, r.Validate(s))
	s.detach()
	require.Equal(t, TargetLost, r.Validate(s))
	require.Equal(t, TargetLost, r.Validate(nil))
}

func TestReleaseClearsMarking(t *testing.T) {
	a := newSource("a", 200, 200)
	host := newFakeHost(a)
	r := NewVideoSourceRegistry(host, nopLogger())
	r.SelectSource(a)
	r.Release()
	require.Empty(t, host.markedIDs())
	require.Nil(t, r.Selected())
	r.Release()
}
