package identity

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/orgsync/internal/appcontext"
	"github.com/agentstation/orgsync/pkg/identity"
)

func TestIdentityCommand(t *testing.T) {
	cmd := NewCommand(&appcontext.MockContext{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"张三", "Zhang.San@example.com"})
	require.NoError(t, cmd.Execute())

	var r Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	assert.Equal(t, "san.zhang", r.LoginHandle)
	assert.Equal(t, identity.CorrelationKey("zhang.san@example.com"), r.CorrelationKey)
}

func TestIdentityCommandWithoutEmail(t *testing.T) {
	cmd := NewCommand(&appcontext.MockContext{OutputFormatFunc: func() string { return "table" }})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"单雄信"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), identity.LoginHandle("单雄信"))
	assert.NotContains(t, out.String(), "Correlation Key")
}

func TestIdentityCommandArgs(t *testing.T) {
	cmd := NewCommand(&appcontext.MockContext{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
