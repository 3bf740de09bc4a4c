package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/pkg/directory"
)

func dept(id, parent string) directory.Department {
	return directory.Department{ID: id, Name: id, ParentID: parent}
}

func ids(depts []directory.Department) []string {
	out := make([]string, len(depts))
	for i, d := range depts {
		out[i] = d.ID
	}
	return out
}

func TestMaterializeLevels(t *testing.T) {
	f := Materialize([]directory.Department{
		dept("0", ""),
		dept("C", "B"),
		dept("A", "0"),
		dept("B", "A"),
		dept("D", "0"),
	})

	assert.Equal(t, 4, f.Len())
	assert.Equal(t, 0, f.Level("0"))
	assert.Equal(t, 1, f.Level("A"))
	assert.Equal(t, 2, f.Level("B"))
	assert.Equal(t, 3, f.Level("C"))
	assert.Equal(t, 1, f.Level("D"))
	assert.Equal(t, 0, f.Level("missing"))
	assert.Empty(t, f.Reattached)
}

func TestLevelIsParentPlusOne(t *testing.T) {
	depts := []directory.Department{
		dept("a", "0"), dept("b", "a"), dept("c", "b"), dept("d", "a"), dept("e", "d"),
	}
	f := Materialize(depts)
	for _, d := range depts {
		assert.Equal(t, f.Level(f.Parent(d.ID))+1, f.Level(d.ID), d.ID)
	}
}

func TestOrderedParentsFirst(t *testing.T) {
	f := Materialize([]directory.Department{
		dept("C", "B"),
		dept("B", "A"),
		dept("X", "0"),
		dept("A", "0"),
	})
	ordered := f.Ordered()
	assert.Equal(t, []string{"X", "A", "B", "C"}, ids(ordered))

	seen := map[string]bool{directory.RootID: true}
	for _, d := range ordered {
		assert.True(t, seen[d.ParentID], "parent of %s visited first", d.ID)
		seen[d.ID] = true
	}
	assert.Equal(t, 3, ordered[3].Level)
}

func TestMaterializeUnresolvedParents(t *testing.T) {
	t.Run("self reference", func(t *testing.T) {
		f := Materialize([]directory.Department{dept("A", "A")})
		assert.Equal(t, 1, f.Level("A"))
		assert.Equal(t, directory.RootID, f.Parent("A"))
	})

	t.Run("missing parent", func(t *testing.T) {
		f := Materialize([]directory.Department{dept("A", "ghost"), dept("B", "A")})
		assert.Equal(t, 1, f.Level("A"))
		assert.Equal(t, 2, f.Level("B"))
		assert.Equal(t, []string{"A"}, f.Reattached)
	})

	t.Run("cycle terminates", func(t *testing.T) {
		f := Materialize([]directory.Department{
			dept("Y", "X"),
			dept("X", "Y"),
			dept("Z", "Y"),
		})
		assert.Equal(t, []string{"X"}, f.Reattached)
		assert.Equal(t, 1, f.Level("X"))
		assert.Equal(t, 2, f.Level("Y"))
		assert.Equal(t, 3, f.Level("Z"))
		assert.Equal(t, directory.RootID, f.Parent("X"))
		assert.Equal(t, "X", f.Parent("Y"))
	})

	t.Run("long cycle", func(t *testing.T) {
		var depts []directory.Department
		const n = 5000
		for i := 0; i < n; i++ {
			depts = append(depts, dept(name(i), name((i+1)%n)))
		}
		f := Materialize(depts)
		require.Equal(t, n, f.Len())
		assert.Len(t, f.Reattached, 1)
		for _, d := range f.Ordered() {
			assert.GreaterOrEqual(t, d.Level, 1)
		}
	})
}

func name(i int) string {
	return "d" + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26)) + string(rune('a'+(i/676)%26))
}

func TestMaterializeDuplicates(t *testing.T) {
	f := Materialize([]directory.Department{dept("A", "0"), {ID: "A", Name: "again", ParentID: "0"}})
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, 1, f.Duplicates)
	assert.Equal(t, "A", f.Ordered()[0].Name)
}

func TestPath(t *testing.T) {
	root := RootPath(100)
	assert.Equal(t, "0,100", root.String())

	child := root.Child(205)
	assert.Equal(t, "0,100,205", child.String())
	assert.Equal(t, "0,100", root.String(), "parent path unchanged")

	parsed, err := ParsePath(" 0,100,205 ")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(child))

	empty, err := ParsePath("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParsePath("0,abc")
	assert.Error(t, err)
}
