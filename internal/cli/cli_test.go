package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"actionhub/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleCatalog = filepath.Join("..", "..", "configs", "actions.yaml")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_ShippedCatalog(t *testing.T) {
	out, err := run(t, "validate", sampleCatalog)
	require.NoError(t, err, out)
	assert.Contains(t, out, "catalogue valid")

	out, err = run(t, "--format", "json", "validate", sampleCatalog)
	require.NoError(t, err)
	var result ValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, 5, result.Actions)
	assert.Equal(t, 6, result.Operations)
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate key": `
operations: { op: "query { a }" }
actions:
  - { key: a, operation: op }
  - { key: a, operation: op }
`,
		"bad rule tag": `
operations: { op: "query { a }" }
actions:
  - key: a
    operation: op
    params:
      n: { type: number, rules: "definitely_not_a_rule" }
`,
		"undeclared operation": `
actions:
  - { key: a, operation: missing }
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

			out, err := run(t, "validate", path)
			assert.Error(t, err)
			assert.Contains(t, out, "✗")
		})
	}
}

func TestList_JSON(t *testing.T) {
	out, err := run(t, "--format", "json", "list", sampleCatalog)
	require.NoError(t, err)

	var rows []ActionSummary
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 5)
	assert.Equal(t, "approveJoinRequest", rows[0].Key)

	var update ActionSummary
	for _, r := range rows {
		if r.Key == "updateTask" {
			update = r
		}
	}
	assert.Equal(t, []string{"credential", "relationalMembership"}, update.Auth)
	assert.Equal(t, []string{"socket", "push"}, update.Channels)
	assert.Contains(t, update.Params, "taskId:string!")
	assert.Equal(t, "30/1m0s", update.RateLimit)
}

func TestList_Text(t *testing.T) {
	out, err := run(t, "list", sampleCatalog)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "KEY"))
	assert.Contains(t, out, "updateProfile")
}

func TestCheckParams(t *testing.T) {
	out, err := run(t, "check-params", sampleCatalog, "updateTask",
		`{"taskId":"t1","projectId":"p1","data":{"name":"Roof","hoursAssigned":4}}`)
	require.NoError(t, err)
	assert.Contains(t, out, "params valid for updateTask")

	out, err = run(t, "--format", "json", "check-params", sampleCatalog, "updateTask",
		`{"projectId":"p1","data":{"hoursAssigned":5000}}`)
	require.Error(t, err)
	var result ParamsResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "Missing required parameter: taskId")
	assert.Contains(t, result.Errors, "Invalid value for data.hoursAssigned: failed lte")

	_, err = run(t, "check-params", sampleCatalog, "noSuchAction", `{}`)
	assert.Error(t, err)

	_, err = run(t, "check-params", sampleCatalog, "updateTask", `[1,2]`)
	assert.ErrorContains(t, err, "JSON object")
}

func TestToken(t *testing.T) {
	out, err := run(t, "token", "--secret", "s3cret", "--user", "42", "--username", "neo")
	require.NoError(t, err)

	claims, err := utils.ParseJWT("s3cret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID())
	assert.Equal(t, "neo", claims.Username)

	t.Setenv("JWT_SECRET", "")
	_, err = run(t, "token", "--user", "42")
	assert.ErrorContains(t, err, "no secret")
}

func TestConfig_MasksSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "top-secret-value")

	out, err := run(t, "config")
	require.NoError(t, err)
	assert.NotContains(t, out, "top-secret-value")
	assert.Contains(t, out, `"Secret": "********"`)
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	_, err := run(t, "--format", "yaml", "list", sampleCatalog)
	assert.ErrorContains(t, err, "invalid format")
}
