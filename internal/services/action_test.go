package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"actionhub/internal/actions"
	"actionhub/internal/authz"
	"actionhub/internal/backend"
	"actionhub/internal/events"
	"actionhub/internal/membership"
	"actionhub/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls int
	vars  map[string]interface{}
	data  string
	err   error
	delay time.Duration
}

func (f *fakeBackend) Execute(ctx context.Context, _ string, variables map[string]interface{}, _ string) (*backend.Result, error) {
	f.mu.Lock()
	f.calls++
	f.vars = variables
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, &backend.Error{Message: ctx.Err().Error()}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Result{Data: json.RawMessage(f.data)}, nil
}

func (f *fakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type members map[string][]string

func (m members) Members(_ context.Context, relationID string) ([]membership.UserProfile, error) {
	var out []membership.UserProfile
	for _, id := range m[relationID] {
		out = append(out, membership.UserProfile{ID: id})
	}
	return out, nil
}

func (m members) IsMember(ctx context.Context, relationID, userID string) (bool, error) {
	list, _ := m.Members(ctx, relationID)
	for _, p := range list {
		if p.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []notify.Job
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job notify.Job) {
	d.mu.Lock()
	d.jobs = append(d.jobs, job)
	d.mu.Unlock()
}

func updateTask() actions.ActionConfig {
	return actions.ActionConfig{
		Key:       "updateTask",
		Operation: "updateTask",
		Params: actions.ParamSchema{
			"taskId":    {Type: actions.TypeString, Required: true},
			"projectId": {Type: actions.TypeString, Required: true},
			"data":      {Type: actions.TypeObject},
		},
		Auth:      []actions.AuthRule{actions.CredentialRule(), actions.MembershipRule("projectId")},
		Variables: map[string]string{"id": "taskId", "data": "data", "editor": actions.CallerVariable},
		Notification: &actions.NotificationConfig{
			Recipients: actions.RecipientRule{Type: actions.RecipientsRelationMembers, RelationIDParam: "projectId", ExcludeSender: true},
			Channels:   []actions.Channel{actions.ChannelSocket},
		},
		UpdateStrategy: json.RawMessage(`{"type":"invalidate"}`),
	}
}

func newService(t *testing.T, be *fakeBackend, d Dispatcher, opts ...Option) *ActionService {
	t.Helper()
	r := actions.NewRegistry()
	require.NoError(t, r.Register(updateTask()))
	engine := authz.NewEngine(members{"p1": {"u1", "u2"}})
	return NewActionService(r, be, engine, d, opts...)
}

func caller(id string) *actions.ActionContext {
	return &actions.ActionContext{CallerID: id, Credential: "jwt", Locale: "en"}
}

func TestExecute_Success(t *testing.T) {
	be := &fakeBackend{data: `{"updateMission":{"data":{"id":"t1"}}}`}
	d := &recordingDispatcher{}
	s := newService(t, be, d)

	params := map[string]interface{}{"taskId": "t1", "projectId": "p1", "data": map[string]interface{}{"name": "Roof"}}
	res := s.Execute(context.Background(), "updateTask", params, caller("u1"))

	require.True(t, res.Success, "%+v", res.Error)
	assert.JSONEq(t, `{"updateMission":{"data":{"id":"t1"}}}`, string(res.Data))
	assert.JSONEq(t, `{"type":"invalidate"}`, string(res.UpdateStrategy))
	assert.Equal(t, map[string]interface{}{
		"id":     "t1",
		"data":   map[string]interface{}{"name": "Roof"},
		"editor": "u1",
	}, be.vars)

	require.Len(t, d.jobs, 1)
	assert.Equal(t, "updateTask", d.jobs[0].ActionKey)
	assert.Equal(t, "u1", d.jobs[0].CallerID)
	assert.Equal(t, "jwt", d.jobs[0].Credential)
}

func TestExecute_UnknownAction(t *testing.T) {
	be := &fakeBackend{}
	res := newService(t, be, nil).Execute(context.Background(), "dropTables", nil, caller("u1"))
	require.NotNil(t, res.Error)
	assert.Equal(t, actions.CodeUnknownAction, res.Error.Code)
	assert.Zero(t, be.Calls())
}

func TestExecute_ValidationBeforeAuthorization(t *testing.T) {
	be := &fakeBackend{}
	d := &recordingDispatcher{}

	// Missing params and a caller who is not a member: validation wins.
	res := newService(t, be, d).Execute(context.Background(), "updateTask",
		map[string]interface{}{"projectId": "p1"}, caller("stranger"))

	require.NotNil(t, res.Error)
	assert.Equal(t, actions.CodeValidationFailed, res.Error.Code)
	assert.Equal(t, []string{"Missing required parameter: taskId"}, res.Error.Details)
	assert.Zero(t, be.Calls())
	assert.Empty(t, d.jobs)
}

func TestExecute_Unauthorized(t *testing.T) {
	be := &fakeBackend{}
	d := &recordingDispatcher{}
	res := newService(t, be, d).Execute(context.Background(), "updateTask",
		map[string]interface{}{"taskId": "t1", "projectId": "p1"}, caller("stranger"))

	require.NotNil(t, res.Error)
	assert.Equal(t, actions.CodeUnauthorized, res.Error.Code)
	assert.Equal(t, authz.ReasonNotMember, res.Error.Message)
	assert.Zero(t, be.Calls())
	assert.Empty(t, d.jobs)
}

func TestExecute_BackendErrors(t *testing.T) {
	params := map[string]interface{}{"taskId": "t1", "projectId": "p1"}

	cases := []struct {
		name    string
		err     error
		code    actions.ErrorCode
		message string
	}{
		{"reported", &backend.Error{Status: 200, Message: "Forbidden", Backend: true}, actions.CodeBackendError, "Forbidden"},
		{"transport", &backend.Error{Status: 502, Message: "bad gateway"}, actions.CodeBackendError, "Backend request failed"},
		{"other", errors.New("encode failed"), actions.CodeInternalError, "Internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &recordingDispatcher{}
			res := newService(t, &fakeBackend{err: tc.err}, d).Execute(context.Background(), "updateTask", params, caller("u1"))
			require.NotNil(t, res.Error)
			assert.Equal(t, tc.code, res.Error.Code)
			assert.Equal(t, tc.message, res.Error.Message)
			assert.Empty(t, d.jobs, "failed actions never notify")
		})
	}
}

func TestExecute_Timeout(t *testing.T) {
	be := &fakeBackend{delay: time.Second}
	d := &recordingDispatcher{}
	s := newService(t, be, d, WithTimeout(30*time.Millisecond))

	res := s.Execute(context.Background(), "updateTask", map[string]interface{}{"taskId": "t1", "projectId": "p1"}, caller("u1"))
	require.NotNil(t, res.Error)
	assert.Equal(t, actions.CodeTimeout, res.Error.Code)
	assert.Empty(t, d.jobs)
}

type stubThrottle struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubThrottle) Allow(_ context.Context, key string, _ actions.RateLimit) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func TestExecute_Throttle(t *testing.T) {
	params := map[string]interface{}{"taskId": "t1", "projectId": "p1"}
	r := actions.NewRegistry()
	cfg := updateTask()
	cfg.RateLimit = &actions.RateLimit{Window: time.Minute, Max: 1}
	require.NoError(t, r.Register(cfg))
	engine := authz.NewEngine(members{"p1": {"u1"}})

	limited := &stubThrottle{allowed: false}
	be := &fakeBackend{}
	res := NewActionService(r, be, engine, nil, WithThrottle(limited)).Execute(context.Background(), "updateTask", params, caller("u1"))
	require.NotNil(t, res.Error)
	assert.Equal(t, actions.CodeRateLimited, res.Error.Code)
	assert.Equal(t, []string{"updateTask:u1"}, limited.keys)
	assert.Zero(t, be.Calls())

	broken := &stubThrottle{err: errors.New("redis down")}
	res = NewActionService(r, be, engine, nil, WithThrottle(broken)).Execute(context.Background(), "updateTask", params, caller("u1"))
	assert.True(t, res.Success)
}

// blockingNotifier never finishes until released.
type blockingNotifier struct {
	started chan struct{}
	release chan struct{}
	done    atomic.Bool
}

func (n *blockingNotifier) Notify(context.Context, notify.Job) *notify.Report {
	close(n.started)
	<-n.release
	n.done.Store(true)
	return nil
}

func TestExecute_DoesNotAwaitNotification(t *testing.T) {
	bus := events.NewEventBus()
	n := &blockingNotifier{started: make(chan struct{}), release: make(chan struct{})}
	s := newService(t, &fakeBackend{data: `{}`}, NewInlineDispatcher(bus, n))

	returned := make(chan actions.ActionResult, 1)
	go func() {
		returned <- s.Execute(context.Background(), "updateTask", map[string]interface{}{"taskId": "t1", "projectId": "p1"}, caller("u1"))
	}()

	select {
	case res := <-returned:
		assert.True(t, res.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("Execute waited for the notifier")
	}

	<-n.started
	assert.False(t, n.done.Load())
	close(n.release)
	bus.Wait()
	assert.True(t, n.done.Load())
}

type failingSink struct{ calls atomic.Int32 }

func (f *failingSink) EnqueueNotification(context.Context, notify.Job) error {
	f.calls.Add(1)
	return errors.New("redis down")
}

func TestQueueDispatcher_SwallowsEnqueueErrors(t *testing.T) {
	bus := events.NewEventBus()
	sink := &failingSink{}
	s := newService(t, &fakeBackend{data: `{}`}, NewQueueDispatcher(bus, sink))

	res := s.Execute(context.Background(), "updateTask", map[string]interface{}{"taskId": "t1", "projectId": "p1"}, caller("u1"))
	assert.True(t, res.Success)
	bus.Wait()
	assert.Equal(t, int32(1), sink.calls.Load())
}

func TestVariables_PassThrough(t *testing.T) {
	params := map[string]interface{}{"a": 1}
	assert.Equal(t, params, Variables(actions.ActionConfig{}, params, caller("u1")))
}
