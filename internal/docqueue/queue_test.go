package docqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdftools/internal/apperr"
)

func pdf(name string) RawFile {
	return RawFile{Name: name, ContentType: AcceptedType, Data: []byte(name)}
}

func filled(t *testing.T, names ...string) Queue {
	t.Helper()
	files := make([]RawFile, len(names))
	for i, n := range names {
		files[i] = pdf(n)
	}
	q, res := Queue{}.Add(files)
	require.Len(t, res.Added, len(names))
	return q
}

func assertDense(t *testing.T, q Queue) {
	t.Helper()
	for i, e := range q.Snapshot() {
		assert.Equal(t, i, e.Position)
	}
}

func TestAddDedupFirstWins(t *testing.T) {
	first := RawFile{Name: "a.doc", ContentType: AcceptedType, Data: []byte("first")}
	second := RawFile{Name: "a.doc", ContentType: AcceptedType, Data: []byte("second")}

	q, res := Queue{}.Add([]RawFile{first, second})
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, []string{"a.doc"}, res.Duplicates)
	assert.Equal(t, []byte("first"), q.Snapshot()[0].File.Data)

	q, res = q.Add([]RawFile{second})
	assert.Equal(t, 1, q.Len())
	assert.Empty(t, res.Added)
}

func TestAddRejectsOtherTypes(t *testing.T) {
	q, res := Queue{}.Add([]RawFile{
		{Name: "notes.txt", ContentType: "text/plain"},
		{Name: "doc.pdf", ContentType: "application/pdf; charset=binary"},
		{Name: "img.png", ContentType: ""},
	})
	assert.Equal(t, []string{"doc.pdf"}, q.Names())
	assert.Equal(t, []string{"notes.txt", "img.png"}, res.Rejected)
}

func TestAddDoesNotMutateReceiver(t *testing.T) {
	q := filled(t, "a.pdf")
	_, _ = q.Add([]RawFile{pdf("b.pdf")})
	assert.Equal(t, 1, q.Len())
}

func TestRemoveAt(t *testing.T) {
	q := filled(t, "a.pdf", "b.pdf", "c.pdf")

	next, err := q.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "c.pdf"}, next.Names())
	assertDense(t, next)
	assert.Equal(t, 3, q.Len())

	for _, idx := range []int{-1, 3, 10} {
		same, err := q.RemoveAt(idx)
		assert.Equal(t, apperr.KindIndexOutOfBounds, apperr.KindOf(err))
		assert.Equal(t, q.Names(), same.Names())
	}
}

func TestReorderIsPermutation(t *testing.T) {
	q := filled(t, "a.pdf", "b.pdf", "c.pdf")

	next, err := q.Reorder([]int{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"c.pdf", "a.pdf", "b.pdf"}, next.Names())
	assert.Equal(t, q.Len(), next.Len())
	assert.ElementsMatch(t, q.Names(), next.Names())
	assertDense(t, next)
}

func TestReorderRejectsNonPermutations(t *testing.T) {
	q := filled(t, "a.pdf", "b.pdf", "c.pdf")
	bad := [][]int{
		{0, 1},
		{0, 1, 2, 3},
		{0, 0, 1},
		{0, 1, 3},
		{-1, 0, 1},
		nil,
	}
	for _, order := range bad {
		same, err := q.Reorder(order)
		assert.Equal(t, apperr.KindInvalidPermutation, apperr.KindOf(err), "%v", order)
		assert.Equal(t, q.Names(), same.Names())
	}
}

func TestMove(t *testing.T) {
	q := filled(t, "a.pdf", "b.pdf", "c.pdf", "d.pdf")

	tests := []struct {
		from, to int
		want     []string
	}{
		{0, 2, []string{"b.pdf", "c.pdf", "a.pdf", "d.pdf"}},
		{3, 0, []string{"d.pdf", "a.pdf", "b.pdf", "c.pdf"}},
		{1, 1, []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"}},
		{2, 3, []string{"a.pdf", "b.pdf", "d.pdf", "c.pdf"}},
	}
	for _, tt := range tests {
		next, err := q.Move(tt.from, tt.to)
		require.NoError(t, err)
		assert.Equal(t, tt.want, next.Names(), "move %d->%d", tt.from, tt.to)
		assertDense(t, next)
	}

	_, err := q.Move(0, 4)
	assert.Equal(t, apperr.KindIndexOutOfBounds, apperr.KindOf(err))
}

func TestCanMerge(t *testing.T) {
	q := Queue{}
	assert.False(t, q.CanMerge())
	q = filled(t, "a.pdf")
	assert.False(t, q.CanMerge())
	q, _ = q.Add([]RawFile{pdf("b.pdf")})
	assert.True(t, q.CanMerge())
	q, _ = q.RemoveAt(0)
	assert.False(t, q.CanMerge())
}
