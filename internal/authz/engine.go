// Package authz evaluates an action's ordered authorization rules.
package authz

import (
	"context"
	"fmt"

	"actionhub/internal/actions"
	"actionhub/internal/membership"
	"actionhub/internal/utils"
	"actionhub/internal/utils/logger"
)

var log = logger.New("AUTHZ")

const (
	ReasonMissingCredential  = "Missing caller credential"
	ReasonNotMember          = "User is not a member of this project"
	ReasonMembershipFailed   = "Failed to verify membership"
	ReasonPredicateFailed    = "Authorization check failed"
	ReasonUnknownRule        = "Unsupported authorization rule"
	reasonMissingRelationFmt = "Missing relation id: %s"
)

// Engine checks rules in order and stops at the first failure.
type Engine struct {
	members membership.Source
}

func NewEngine(members membership.Source) *Engine {
	return &Engine{members: members}
}

// Authorize returns the first failing rule's decision, or Allow when every
// rule passes. An empty rule list allows.
func (e *Engine) Authorize(ctx context.Context, callerID string, rules []actions.AuthRule, params map[string]interface{}, actx *actions.ActionContext) actions.Decision {
	if actx == nil {
		actx = &actions.ActionContext{CallerID: callerID}
	}
	for i, rule := range rules {
		d := e.evaluate(ctx, callerID, rule, params, actx)
		if !d.Authorized {
			log.Debug("rule %d (%s) denied %s: %s", i, rule.Type, callerID, d.Reason)
			return d
		}
	}
	return actions.Allow()
}

func (e *Engine) evaluate(ctx context.Context, callerID string, rule actions.AuthRule, params map[string]interface{}, actx *actions.ActionContext) actions.Decision {
	switch rule.Type {
	case actions.AuthCredential:
		if callerID == "" || actx.Credential == "" {
			return deny(rule, ReasonMissingCredential)
		}
		return actions.Allow()

	case actions.AuthRelationalMembership:
		relationID, ok := utils.LookupString(params, rule.RelationIDParam)
		if !ok {
			return actions.Deny(fmt.Sprintf(reasonMissingRelationFmt, rule.RelationIDParam))
		}
		if e.members == nil {
			log.Warn("membership rule on %s without a resolver", rule.RelationIDParam)
			return actions.Deny(ReasonMembershipFailed)
		}
		member, err := e.members.IsMember(membership.WithCredential(ctx, actx.Credential), relationID, callerID)
		if err != nil {
			log.Error("membership check for %s in %s", err, callerID, relationID)
			return actions.Deny(ReasonMembershipFailed)
		}
		if !member {
			return deny(rule, ReasonNotMember)
		}
		return actions.Allow()

	case actions.AuthCustom:
		if rule.Predicate == nil {
			return actions.Deny(ReasonPredicateFailed)
		}
		d, err := rule.Predicate(ctx, callerID, params, actx)
		if err != nil {
			log.Error("predicate %q", err, rule.PredicateName)
			return deny(rule, ReasonPredicateFailed)
		}
		if !d.Authorized {
			if d.Reason == "" {
				return deny(rule, ReasonPredicateFailed)
			}
			return d
		}
		return actions.Allow()

	default:
		return actions.Deny(ReasonUnknownRule)
	}
}

// deny prefers the rule's configured message over fallback.
func deny(rule actions.AuthRule, fallback string) actions.Decision {
	if rule.ErrorMessage != "" {
		return actions.Deny(rule.ErrorMessage)
	}
	return actions.Deny(fallback)
}
