package differ

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields(t *testing.T) {
	d := New()
	changes := d.Fields(
		String("name", "Sales", "Sales"),
		String("name", "Sales", "Sales EMEA"),
		Int("parent_id", 100, 205),
		Int("level", 2, 2),
		Present("ancestors", ""),
		Present("ancestors", "0,100"),
	)
	require.Len(t, changes, 3)
	assert.Equal(t, FieldChange{Path: "name", OldValue: "Sales", NewValue: "Sales EMEA"}, changes[0])
	assert.Equal(t, FieldChange{Path: "parent_id", OldValue: "100", NewValue: "205"}, changes[1])
	assert.Equal(t, "ancestors", changes[2].Path)
	assert.Equal(t, "set", changes[2].NewValue)
}

func TestFieldsIgnored(t *testing.T) {
	d := New(WithIgnoredFields("email"))
	changes := d.Fields(String("email", "a@x", "b@x"), String("nick_name", "A", "B"))
	require.Len(t, changes, 1)
	assert.Equal(t, "nick_name", changes[0].Path)
}

func TestChangesetRecord(t *testing.T) {
	var cs Changeset
	assert.False(t, cs.HasChanges())
	assert.Equal(t, "no changes", cs.Summary())

	cs.Record(Change{Type: ChangeTypeCreate, Name: "张三", Handle: "san.zhang"})
	cs.Record(Change{Type: ChangeTypeUpdate, Name: "李四", Changes: []FieldChange{{Path: "email", OldValue: "a", NewValue: "b"}}})
	cs.Record(Change{Type: ChangeTypeDisable, Name: "王五"})
	cs.Record(Change{Type: ChangeTypeFailed, Name: "赵六", Error: "duplicate"})

	assert.True(t, cs.HasChanges())
	assert.Equal(t, 3, cs.Total())
	assert.Equal(t, "1 created, 1 updated, 1 disabled, 1 failed", cs.Summary())
	assert.Equal(t, "email: a → b", cs.Updated[0].Describe())
	assert.Equal(t, "张三 (san.zhang)", cs.Created[0].Label())

	var buf bytes.Buffer
	cs.Print(&buf, "Users")
	out := buf.String()
	assert.Contains(t, out, "Users: 1 created")
	assert.Contains(t, out, "email: a → b")
	assert.Contains(t, out, "赵六: duplicate")
}
