package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	k := NewKey("/covers/", "Mon Livre.PNG")
	assert.True(t, strings.HasPrefix(k, "covers/"))
	assert.True(t, strings.HasSuffix(k, ".png"))
	assert.NotEqual(t, k, NewKey("covers", "Mon Livre.PNG"))

	assert.False(t, strings.Contains(NewKey("", "x.pdf"), "/"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("https://cdn.test")

	require.NoError(t, m.Upload(ctx, "books/a.pdf", strings.NewReader("%PDF"), "application/pdf"))
	o, ok := m.Get("books/a.pdf")
	require.True(t, ok)
	assert.Equal(t, "%PDF", string(o.Data))
	assert.Equal(t, "application/pdf", o.ContentType)
	assert.Equal(t, "https://cdn.test/books/a.pdf", m.PublicURL("books/a.pdf"))
	assert.Empty(t, m.PublicURL(""))

	require.NoError(t, m.Delete(ctx, "books/a.pdf"))
	require.ErrorIs(t, m.Delete(ctx, "books/a.pdf"), ErrNotFound)
	assert.Empty(t, m.Keys())

	m.FailUploads = true
	require.Error(t, m.Upload(ctx, "x", strings.NewReader("x"), "text/plain"))
}

func TestDisabled(t *testing.T) {
	var s Store = Disabled{}
	require.ErrorIs(t, s.Upload(context.Background(), "k", strings.NewReader(""), ""), ErrDisabled)
	assert.False(t, IsEnabled(s))
	assert.False(t, IsEnabled(nil))
	assert.True(t, IsEnabled(NewMemory("")))
}

func TestNormalizeCover(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2400, 1200))
	for x := 0; x < 2400; x++ {
		src.Set(x, 10, color.NRGBA{R: 200, A: 255})
	}
	var in bytes.Buffer
	require.NoError(t, png.Encode(&in, src))

	out, err := NormalizeCover(&in)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())

	small := image.NewNRGBA(image.Rect(0, 0, 300, 400))
	in.Reset()
	require.NoError(t, png.Encode(&in, small))
	out, err = NormalizeCover(&in)
	require.NoError(t, err)
	img, err = imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())

	_, err = NormalizeCover(strings.NewReader("not an image"))
	require.ErrorIs(t, err, ErrNotImage)
}
