package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/pkg/differ"
	"github.com/agentstation/orgsync/pkg/logging"
	"github.com/agentstation/orgsync/pkg/reconcile"
	pkgsync "github.com/agentstation/orgsync/pkg/sync"
)

func userChanges(n int, typ differ.ChangeType) []differ.Change {
	out := make([]differ.Change, n)
	for i := range out {
		out[i] = differ.Change{Type: typ, Entity: differ.EntityUser, Name: fmt.Sprintf("user%d", i+1)}
	}
	return out
}

func result(created, updated, disabled int) *pkgsync.Result {
	users := &reconcile.UserResult{Created: created, Updated: updated, Disabled: disabled}
	users.Changes.Created = userChanges(created, differ.ChangeTypeCreate)
	users.Changes.Updated = userChanges(updated, differ.ChangeTypeUpdate)
	users.Changes.Disabled = userChanges(disabled, differ.ChangeTypeDisable)
	return &pkgsync.Result{
		Departments: &reconcile.DepartmentResult{},
		Users:       users,
	}
}

func TestBuildSkipsQuietRuns(t *testing.T) {
	_, ok := Build(nil)
	assert.False(t, ok)

	_, ok = Build(result(0, 0, 0))
	assert.False(t, ok, "no changes")

	r := result(1, 0, 0)
	r.DryRun = true
	_, ok = Build(r)
	assert.False(t, ok, "dry run")
}

func TestBuildPreview(t *testing.T) {
	r := result(7, 1, 2)
	r.Users.Changes.Updated[0].Handle = "san.zhang"
	r.Users.Changes.Updated[0].Changes = []differ.FieldChange{{Path: "email", OldValue: "a@x", NewValue: "b@x"}}

	msg, ok := Build(r)
	require.True(t, ok)
	assert.Equal(t, Title, msg.Title)
	assert.Contains(t, msg.Lines, "Users: 7 created, 1 updated, 2 disabled")
	assert.Contains(t, msg.Lines, "Created: user1, user2, user3, user4, user5 and 2 more")
	assert.Contains(t, msg.Lines, "Updated: user1 (san.zhang) [email: a@x → b@x]")
	assert.Contains(t, msg.Lines, "Disabled: user1, user2")
}

func TestWebhook(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"code":0}`))
	}))
	defer srv.Close()

	n, err := NewWebhook(srv.URL)
	require.NoError(t, err)
	require.NoError(t, n.Notify(context.Background(), Message{Title: "t", Lines: []string{"a", "b"}}))

	assert.Equal(t, "text", got["msg_type"])
	assert.Equal(t, map[string]any{"text": "t\na\nb"}, got["content"])
}

func TestWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":19001,"msg":"param invalid"}`))
	}))
	defer srv.Close()

	n, err := NewWebhook(srv.URL)
	require.NoError(t, err)
	err = n.Notify(context.Background(), Message{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "param invalid")

	_, err = NewWebhook("")
	assert.Error(t, err)
}

func TestLogAndMulti(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	err := Multi{Nop{}, Log{}}.Notify(ctx, Message{Title: Title, Lines: []string{"Users: 1 created"}})
	require.NoError(t, err)
	assert.True(t, tl.Contains(Title))
	assert.True(t, tl.Contains("Users: 1 created"))
}
