package authz

import (
	"context"
	"fmt"

	"actionhub/internal/actions"
	"actionhub/internal/utils"
)

// MatchesCaller allows only when the id at param equals the caller.
func MatchesCaller(param string) actions.Predicate {
	return func(_ context.Context, callerID string, params map[string]interface{}, _ *actions.ActionContext) (actions.Decision, error) {
		id, ok := utils.LookupString(params, param)
		if !ok {
			return actions.Deny(fmt.Sprintf("Missing parameter: %s", param)), nil
		}
		if id != callerID {
			return actions.Deny("Only the user themselves may perform this action"), nil
		}
		return actions.Allow(), nil
	}
}

// CallerNotIn denies when the caller appears in the id list at param, e.g.
// to stop users approving their own requests.
func CallerNotIn(param string) actions.Predicate {
	return func(_ context.Context, callerID string, params map[string]interface{}, _ *actions.ActionContext) (actions.Decision, error) {
		v, _ := utils.Lookup(params, param)
		switch ids := v.(type) {
		case []interface{}:
			for _, id := range ids {
				if utils.Stringify(id) == callerID {
					return actions.Deny("Caller may not be a party to this action"), nil
				}
			}
		default:
			if utils.Stringify(ids) == callerID {
				return actions.Deny("Caller may not be a party to this action"), nil
			}
		}
		return actions.Allow(), nil
	}
}

// Builtins are the predicates catalogue files may name without extra wiring.
func Builtins() actions.PredicateSet {
	return actions.PredicateSet{
		"isSelf":        MatchesCaller("userId"),
		"notOwnRequest": CallerNotIn("requesterId"),
	}
}
