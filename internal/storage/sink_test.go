package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPutGet(t *testing.T) {
	l := NewLocal(t.TempDir())
	ctx := context.Background()

	ref, err := l.Put(ctx, "job1.pdf", Object{Name: "split-a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")})
	require.NoError(t, err)

	obj, err := l.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "split-a.pdf", obj.Name)
	assert.Equal(t, "application/pdf", obj.ContentType)
	assert.Equal(t, []byte("%PDF"), obj.Data)
}

func TestLocalRejectsEscapes(t *testing.T) {
	l := NewLocal(t.TempDir())
	_, err := l.Put(context.Background(), "../x", Object{})
	assert.Error(t, err)

	_, err = l.Get(context.Background(), "/etc/passwd")
	assert.Error(t, err)
}

func TestLocalCleanup(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir)
	ref, err := l.Put(context.Background(), "old.pdf", Object{Data: []byte("x")})
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(ref, past, past))
	require.NoError(t, os.Chtimes(ref+".meta.json", past, past))
	_, err = l.Put(context.Background(), "new.pdf", Object{Data: []byte("y")})
	require.NoError(t, err)

	assert.Equal(t, 2, l.Cleanup(time.Hour))
	_, err = os.Stat(filepath.Join(dir, "new.pdf"))
	assert.NoError(t, err)
}

func TestParseS3Ref(t *testing.T) {
	b, k, err := parseS3Ref("s3://bucket/results/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "bucket", b)
	assert.Equal(t, "results/a.pdf", k)

	for _, bad := range []string{"bucket/a", "s3://bucket", "s3://bucket/", "s3:///a"} {
		_, _, err := parseS3Ref(bad)
		assert.Error(t, err, bad)
	}
}
