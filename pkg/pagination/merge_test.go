package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct {
	id    string
	title string
}

func (i item) ItemID() string { return i.id }

func (i item) WithItemID(id string) item {
	i.id = id
	return i
}

func items(ids ...string) []item {
	out := make([]item, 0, len(ids))
	for _, id := range ids {
		out = append(out, item{id: id, title: "t-" + id})
	}
	return out
}

func ids(list []item) []string {
	out := make([]string, 0, len(list))
	for _, it := range list {
		out = append(out, it.id)
	}
	return out
}

func TestMerge(t *testing.T) {
	t.Run("ReplaceIgnoresExisting", func(t *testing.T) {
		got := Merge(items("a", "b"), items("c", "d"), ModeReplace, DropDuplicates)
		assert.Equal(t, []string{"c", "d"}, ids(got))
	})

	t.Run("AppendKeepsExistingOrder", func(t *testing.T) {
		got := Merge(items("a", "b", "c"), items("d", "b", "e"), ModeAppend, DropDuplicates)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(got))
	})

	t.Run("OverlappingPagesDrop", func(t *testing.T) {
		pageA := items("p3", "p2", "p1")
		pageB := items("p1", "p0")

		got := Merge(pageA, pageB, ModeAppend, DropDuplicates)
		assert.Equal(t, []string{"p3", "p2", "p1", "p0"}, ids(got))
		// 保留的是 page A 中的条目
		assert.Equal(t, "t-p1", got[2].title)
	})

	t.Run("OverlappingPagesDisambiguate", func(t *testing.T) {
		pageA := items("p3", "p2", "p1")
		pageB := items("p1", "p0")

		got := Merge(pageA, pageB, ModeAppend, Disambiguate)
		assert.Equal(t, []string{"p3", "p2", "p1", "p1_2", "p0"}, ids(got))
	})

	t.Run("DisambiguateSkipsTakenSuffix", func(t *testing.T) {
		got := Merge(items("x", "x_2"), items("x", "x"), ModeAppend, Disambiguate)
		assert.Equal(t, []string{"x", "x_2", "x_3", "x_4"}, ids(got))
	})

	t.Run("ReplaceWithinPageDuplicates", func(t *testing.T) {
		got := Merge(nil, items("a", "a", "b"), ModeReplace, DropDuplicates)
		assert.Equal(t, []string{"a", "b"}, ids(got))

		got = Merge(nil, items("a", "a", "b"), ModeReplace, Disambiguate)
		assert.Equal(t, []string{"a", "a_2", "b"}, ids(got))
	})

	t.Run("DoesNotMutateInputs", func(t *testing.T) {
		existing := items("a")
		incoming := items("a", "b")
		_ = Merge(existing, incoming, ModeAppend, Disambiguate)

		assert.Equal(t, []string{"a"}, ids(existing))
		assert.Equal(t, []string{"a", "b"}, ids(incoming))
	})

	t.Run("EmptyIncoming", func(t *testing.T) {
		got := Merge(items("a"), nil, ModeAppend, DropDuplicates)
		assert.Equal(t, []string{"a"}, ids(got))

		got = Merge(items("a"), nil, ModeReplace, DropDuplicates)
		assert.Empty(t, got)
	})
}

func TestParseCollisionPolicy(t *testing.T) {
	p, ok := ParseCollisionPolicy("")
	assert.True(t, ok)
	assert.Equal(t, DropDuplicates, p)

	p, ok = ParseCollisionPolicy("disambiguate")
	assert.True(t, ok)
	assert.Equal(t, Disambiguate, p)
	assert.Equal(t, "disambiguate", p.String())

	_, ok = ParseCollisionPolicy("suffix")
	assert.False(t, ok)
}
