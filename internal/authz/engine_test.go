package authz

import (
	"context"
	"errors"
	"testing"

	"actionhub/internal/actions"
	"actionhub/internal/membership"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMembers struct {
	members map[string][]string
	err     error
	calls   int
}

func (f *fakeMembers) Members(_ context.Context, relationID string) ([]membership.UserProfile, error) {
	var out []membership.UserProfile
	for _, id := range f.members[relationID] {
		out = append(out, membership.UserProfile{ID: id})
	}
	return out, f.err
}

func (f *fakeMembers) IsMember(_ context.Context, relationID, userID string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	for _, id := range f.members[relationID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func counting(d actions.Decision, err error, calls *int) actions.AuthRule {
	return actions.CustomRule("counted", func(context.Context, string, map[string]interface{}, *actions.ActionContext) (actions.Decision, error) {
		*calls++
		return d, err
	})
}

func actx(caller string) *actions.ActionContext {
	return &actions.ActionContext{CallerID: caller, Credential: "jwt"}
}

func TestAuthorize_ShortCircuit(t *testing.T) {
	var first, second, third int
	rules := []actions.AuthRule{
		counting(actions.Allow(), nil, &first),
		counting(actions.Deny("nope"), nil, &second),
		counting(actions.Allow(), nil, &third),
	}

	d := NewEngine(nil).Authorize(context.Background(), "u1", rules, nil, actx("u1"))
	assert.False(t, d.Authorized)
	assert.Equal(t, "nope", d.Reason)
	assert.Equal(t, []int{1, 1, 0}, []int{first, second, third})
}

func TestAuthorize_EmptyRulesAllow(t *testing.T) {
	assert.True(t, NewEngine(nil).Authorize(context.Background(), "", nil, nil, nil).Authorized)
}

func TestAuthorize_Credential(t *testing.T) {
	e := NewEngine(nil)
	rules := []actions.AuthRule{actions.CredentialRule()}

	assert.True(t, e.Authorize(context.Background(), "u1", rules, nil, actx("u1")).Authorized)

	d := e.Authorize(context.Background(), "u1", rules, nil, &actions.ActionContext{CallerID: "u1"})
	assert.Equal(t, actions.Deny(ReasonMissingCredential), d)

	d = e.Authorize(context.Background(), "", rules, nil, actx(""))
	assert.False(t, d.Authorized)
}

func TestAuthorize_Membership(t *testing.T) {
	members := &fakeMembers{members: map[string][]string{"p1": {"u1", "u2"}}}
	e := NewEngine(members)
	params := map[string]interface{}{"data": map[string]interface{}{"projectId": "p1"}}

	t.Run("member", func(t *testing.T) {
		d := e.Authorize(context.Background(), "u2", []actions.AuthRule{actions.MembershipRule("data.projectId")}, params, actx("u2"))
		assert.True(t, d.Authorized)
	})

	t.Run("non member default message", func(t *testing.T) {
		d := e.Authorize(context.Background(), "u9", []actions.AuthRule{actions.MembershipRule("data.projectId")}, params, actx("u9"))
		assert.Equal(t, actions.Deny(ReasonNotMember), d)
	})

	t.Run("non member custom message", func(t *testing.T) {
		rule := actions.MembershipRule("data.projectId")
		rule.ErrorMessage = "Join the project first"
		d := e.Authorize(context.Background(), "u9", []actions.AuthRule{rule}, params, actx("u9"))
		assert.Equal(t, "Join the project first", d.Reason)
	})

	t.Run("missing relation id", func(t *testing.T) {
		before := members.calls
		d := e.Authorize(context.Background(), "u1", []actions.AuthRule{actions.MembershipRule("projectId")}, params, actx("u1"))
		assert.Equal(t, "Missing relation id: projectId", d.Reason)
		assert.Equal(t, before, members.calls)
	})

	t.Run("numeric relation id", func(t *testing.T) {
		d := e.Authorize(context.Background(), "u1", []actions.AuthRule{actions.MembershipRule("projectId")},
			map[string]interface{}{"projectId": 7.0}, actx("u1"))
		assert.Equal(t, actions.Deny(ReasonNotMember), d)
	})
}

func TestAuthorize_FailsClosed(t *testing.T) {
	t.Run("resolver error", func(t *testing.T) {
		e := NewEngine(&fakeMembers{err: errors.New("cms down")})
		d := e.Authorize(context.Background(), "u1", []actions.AuthRule{actions.MembershipRule("projectId")},
			map[string]interface{}{"projectId": "p1"}, actx("u1"))
		assert.Equal(t, actions.Deny(ReasonMembershipFailed), d)
	})

	t.Run("predicate error", func(t *testing.T) {
		var calls int
		d := NewEngine(nil).Authorize(context.Background(), "u1",
			[]actions.AuthRule{counting(actions.Allow(), errors.New("boom"), &calls)}, nil, actx("u1"))
		assert.False(t, d.Authorized)
		assert.Equal(t, 1, calls)
	})

	t.Run("unknown rule type", func(t *testing.T) {
		d := NewEngine(nil).Authorize(context.Background(), "u1", []actions.AuthRule{{Type: "role"}}, nil, actx("u1"))
		assert.Equal(t, actions.Deny(ReasonUnknownRule), d)
	})
}

func TestAuthorize_CustomReceivesContext(t *testing.T) {
	var seen *actions.ActionContext
	rule := actions.CustomRule("inspect", func(_ context.Context, callerID string, params map[string]interface{}, a *actions.ActionContext) (actions.Decision, error) {
		seen = a
		return actions.Allow(), nil
	})
	ac := actx("u1")
	ac.Locale = "ar"

	require.True(t, NewEngine(nil).Authorize(context.Background(), "u1", []actions.AuthRule{rule}, nil, ac).Authorized)
	assert.Same(t, ac, seen)
}

func TestBuiltins(t *testing.T) {
	ctx := context.Background()
	preds := Builtins()

	d, err := preds["isSelf"](ctx, "u1", map[string]interface{}{"userId": "u1"}, nil)
	require.NoError(t, err)
	assert.True(t, d.Authorized)

	d, _ = preds["isSelf"](ctx, "u1", map[string]interface{}{"userId": "u2"}, nil)
	assert.False(t, d.Authorized)

	d, _ = preds["notOwnRequest"](ctx, "u1", map[string]interface{}{"requesterId": []interface{}{"u3", "u1"}}, nil)
	assert.False(t, d.Authorized)

	d, _ = preds["notOwnRequest"](ctx, "u1", map[string]interface{}{"requesterId": "u3"}, nil)
	assert.True(t, d.Authorized)
}
