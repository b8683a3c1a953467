package actions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
operations:
  updateTask: |
    mutation updateTask($id: ID!, $data: MissionInput!) { updateMission(id: $id, data: $data) { data { id } } }
  projectMembers: |
    query projectMembers($id: ID!) { project(id: $id) { data { id } } }
actions:
  - key: updateTask
    operation: updateTask
    params:
      taskId: { type: string, required: true }
      projectId: { type: string, required: true }
      data:
        type: object
        shape:
          name: { type: string }
    variables:
      id: taskId
      data: data
      editor: $caller
    auth:
      - type: credential
      - type: relationalMembership
        relationIdParam: projectId
        errorMessage: not in project
      - type: custom
        predicate: isOpen
    notification:
      recipients: { type: relationMembers, relationIdParam: projectId, excludeSender: true }
      templates:
        title: { he: "משימה עודכנה", en: "Task updated" }
        body: { he: "{senderName} עדכן משימה", en: "{senderName} updated a task" }
      channels: [socket, email]
      metadata: { icon: task, priority: high }
    updateStrategy:
      type: invalidate
      keys: [tasks]
    rateLimit: { window: 1m, max: 10 }
`

func TestParseCatalog(t *testing.T) {
	predicates := PredicateSet{
		"isOpen": func(context.Context, string, map[string]interface{}, *ActionContext) (Decision, error) {
			return Allow(), nil
		},
	}

	cat, err := ParseCatalog([]byte(sampleCatalog), predicates)
	require.NoError(t, err)
	require.Len(t, cat.Actions, 1)
	assert.Len(t, cat.Operations, 2)

	cfg := cat.Actions[0]
	assert.Equal(t, "updateTask", cfg.Key)
	assert.Equal(t, TypeObject, cfg.Params["data"].Type)
	assert.Equal(t, TypeString, cfg.Params["data"].Shape["name"].Type)
	assert.Equal(t, CallerVariable, cfg.Variables["editor"])

	require.Len(t, cfg.Auth, 3)
	assert.Equal(t, AuthCredential, cfg.Auth[0].Type)
	assert.Equal(t, "projectId", cfg.Auth[1].RelationIDParam)
	assert.Equal(t, "not in project", cfg.Auth[1].ErrorMessage)
	assert.NotNil(t, cfg.Auth[2].Predicate)

	require.NotNil(t, cfg.Notification)
	assert.True(t, cfg.Notification.Recipients.ExcludeSender)
	assert.Equal(t, []Channel{ChannelSocket, ChannelEmail}, cfg.Notification.Channels)
	assert.Equal(t, PriorityHigh, cfg.Notification.Metadata.Priority)
	assert.Equal(t, "Task updated", cfg.Notification.Templates.Title.In(LocaleEnglish))

	assert.JSONEq(t, `{"type":"invalidate","keys":["tasks"]}`, string(cfg.UpdateStrategy))
	require.NotNil(t, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)

	r := NewRegistry()
	require.NoError(t, cat.RegisterInto(r))
	assert.Equal(t, 1, r.Len())
}

func TestParseCatalog_Errors(t *testing.T) {
	t.Run("unknown predicate", func(t *testing.T) {
		_, err := ParseCatalog([]byte(sampleCatalog), PredicateSet{})
		assert.ErrorContains(t, err, "unknown predicate")
	})

	t.Run("undeclared operation", func(t *testing.T) {
		doc := `
actions:
  - key: a
    operation: missing
`
		_, err := ParseCatalog([]byte(doc), nil)
		assert.ErrorContains(t, err, "not declared")
	})

	t.Run("bad window", func(t *testing.T) {
		doc := `
operations: { op: "query { x }" }
actions:
  - key: a
    operation: op
    rateLimit: { window: soon, max: 1 }
`
		_, err := ParseCatalog([]byte(doc), nil)
		assert.ErrorContains(t, err, "rateLimit.window")
	})
}
