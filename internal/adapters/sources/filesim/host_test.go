package filesim

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFrame(t *testing.T, dir, name string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestSourceCyclesFrames(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "000.png", 160, 120, color.White)
	writeFrame(t, dir, "001.png", 160, 120, color.Black)

	src, err := NewSource("cam", dir)
	require.NoError(t, err)
	require.True(t, src.IsAttached())
	require.True(t, src.IsReady())
	w, h := src.Size()
	require.Equal(t, 160, w)
	require.Equal(t, 120, h)

	var firsts []uint32
	for i := 0; i < 3; i++ {
		img, err := src.CurrentImage()
		require.NoError(t, err)
		r, _, _, _ := img.At(0, 0).RGBA()
		firsts = append(firsts, r)
	}
	require.Equal(t, firsts[0], firsts[2])
	require.NotEqual(t, firsts[0], firsts[1])
}

func TestSourceDetachesWhenDirectoryRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "feed")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeFrame(t, dir, "a.png", 200, 200, color.White)
	src, err := NewSource("feed", dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))
	require.False(t, src.IsAttached())

	h := NewHost(nil, src)
	srcs := h.VideoSources()
	require.Len(t, srcs, 1)
	require.False(t, srcs[0].IsReady())
}

func TestEmptyDirectoryIsNotReady(t *testing.T) {
	src, err := NewSource("empty", t.TempDir())
	require.NoError(t, err)
	require.True(t, src.IsAttached())
	require.False(t, src.IsReady())
	_, err = src.CurrentImage()
	require.Error(t, err)
}

func TestParseSpecs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	srcs, err := ParseSpecs([]string{"front=" + a, " ", b})
	require.NoError(t, err)
	require.Len(t, srcs, 2)
	require.Equal(t, "front", srcs[0].ID())
	require.Equal(t, filepath.Base(b), srcs[1].ID())

	_, err = ParseSpecs([]string{"x=" + a, "x=" + b})
	require.Error(t, err)
	_, err = ParseSpecs([]string{"=" + a})
	require.Error(t, err)
}

func TestHostMarkingAndOverlay(t *testing.T) {
	a, _ := NewSource("a", t.TempDir())
	b, _ := NewSource("b", t.TempDir())
	h := NewHost(nil, a, b)

	h.SetMarked(a, true)
	h.SetMarked(b, true)
	h.SetMarked(a, false)
	require.Equal(t, []string{"b"}, h.Marked())

	h.ShowSelectionOverlay(h.VideoSources())
	require.Equal(t, []string{"a", "b"}, h.Overlay())
	h.HideSelectionOverlay()
	require.Empty(t, h.Overlay())
}
