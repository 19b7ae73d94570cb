package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipPack(t *testing.T) {
	data, err := Zip{}.Pack([]Entry{
		{Name: "page_1_a.pdf", Data: []byte("one")},
		{Name: "page_2_a.pdf", Data: []byte("two")},
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "page_1_a.pdf", zr.File[0].Name)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))
}

func TestZipRejectsDuplicates(t *testing.T) {
	_, err := Zip{}.Pack([]Entry{{Name: "x"}, {Name: "x"}})
	assert.Error(t, err)
}
