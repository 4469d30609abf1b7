package jpeg

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	stdjpeg "image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeProducesDecodableDataURL(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		img.Set(x, 10, color.RGBA{R: 200, A: 255})
	}
	f, err := New().Encode(img)
	require.NoError(t, err)
	require.Equal(t, 64, f.Width)
	require.Equal(t, 48, f.Height)
	require.Equal(t, MimeType, f.MimeType)

	url := f.DataURL()
	require.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.SplitN(url, ",", 2)[1])
	require.NoError(t, err)
	decoded, err := stdjpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 64, decoded.Bounds().Dx())
}

func TestEncodeRejectsEmpty(t *testing.T) {
	_, err := New().Encode(nil)
	require.Error(t, err)
	_, err = New().Encode(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	require.Error(t, err)
}
