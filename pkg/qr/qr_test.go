package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPNG(t *testing.T) {
	data, err := PNG("ORD-4711")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, size, img.Bounds().Dx())
}

func TestPNGEmpty(t *testing.T) {
	_, err := PNG("")
	assert.Error(t, err)
}
