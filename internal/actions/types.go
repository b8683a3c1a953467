package actions

import (
	"context"
	"encoding/json"
	"time"

	"actionhub/internal/transport"
)

// ParamType is the JSON type a parameter must carry.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

// Valid reports whether t is one of the supported parameter types.
func (t ParamType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeObject, TypeArray:
		return true
	}
	return false
}

// ParamSchema maps parameter names to their declared shape.
type ParamSchema map[string]ParamSpec

// ParamSpec describes a single parameter. Shape applies to objects and Items
// to array elements. Rules is an optional go-playground validator tag checked
// after the type matches.
type ParamSpec struct {
	Type     ParamType   `yaml:"type" json:"type"`
	Required bool        `yaml:"required" json:"required"`
	Shape    ParamSchema `yaml:"shape,omitempty" json:"shape,omitempty"`
	Items    *ParamSpec  `yaml:"items,omitempty" json:"items,omitempty"`
	Rules    string      `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// AuthRuleType tags the AuthRule variant.
type AuthRuleType string

const (
	AuthCredential           AuthRuleType = "credential"
	AuthRelationalMembership AuthRuleType = "relationalMembership"
	AuthCustom               AuthRuleType = "custom"
)

// Decision is the outcome of evaluating authorization.
type Decision struct {
	Authorized bool
	Reason     string
}

// Allow and Deny build decisions for predicates.
func Allow() Decision { return Decision{Authorized: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

// Predicate is a caller-supplied authorization check. It may perform backend
// lookups; a returned error fails the rule closed.
type Predicate func(ctx context.Context, callerID string, params map[string]interface{}, actx *ActionContext) (Decision, error)

// AuthRule is one entry of an action's ordered authorization list. Only the
// fields relevant to Type are read.
type AuthRule struct {
	Type AuthRuleType
	// RelationIDParam is a dotted path into the params (relationalMembership).
	RelationIDParam string
	// PredicateName identifies Predicate in catalogue files (custom).
	PredicateName string
	Predicate     Predicate
	ErrorMessage  string
}

// CredentialRule requires a caller identity and a bearer credential.
func CredentialRule() AuthRule {
	return AuthRule{Type: AuthCredential}
}

// MembershipRule requires the caller to be a member of the relation whose id
// is found at relationIDParam.
func MembershipRule(relationIDParam string) AuthRule {
	return AuthRule{Type: AuthRelationalMembership, RelationIDParam: relationIDParam}
}

// CustomRule wraps a predicate.
func CustomRule(name string, p Predicate) AuthRule {
	return AuthRule{Type: AuthCustom, PredicateName: name, Predicate: p}
}

// RecipientRuleType tags the RecipientRule variant.
type RecipientRuleType string

const (
	RecipientsRelationMembers RecipientRuleType = "relationMembers"
	RecipientsSpecificUsers   RecipientRuleType = "specificUsers"
	RecipientsSkillBased      RecipientRuleType = "skillBased"
	RecipientsCustom          RecipientRuleType = "custom"
)

type RecipientRule struct {
	Type            RecipientRuleType `yaml:"type" json:"type"`
	RelationIDParam string            `yaml:"relationIdParam,omitempty" json:"relationIdParam,omitempty"`
	UserIDsParam    string            `yaml:"userIdsParam,omitempty" json:"userIdsParam,omitempty"`
	ExcludeSender   bool              `yaml:"excludeSender,omitempty" json:"excludeSender,omitempty"`
}

// Supported locales. The first entry of SupportedLocales is the last-resort fallback.
const (
	LocaleHebrew  = "he"
	LocaleEnglish = "en"
	LocaleArabic  = "ar"
)

var SupportedLocales = []string{LocaleHebrew, LocaleEnglish, LocaleArabic}

// LocalizedText holds one string per supported locale; Ar is optional.
type LocalizedText struct {
	He string `yaml:"he" json:"he"`
	En string `yaml:"en" json:"en"`
	Ar string `yaml:"ar,omitempty" json:"ar,omitempty"`
}

// In returns the text for locale, falling back to English then Hebrew when
// the requested translation is empty.
func (t LocalizedText) In(locale string) string {
	var s string
	switch locale {
	case LocaleHebrew:
		s = t.He
	case LocaleEnglish:
		s = t.En
	case LocaleArabic:
		s = t.Ar
	}
	if s == "" {
		s = t.En
	}
	if s == "" {
		s = t.He
	}
	return s
}

type Templates struct {
	Title LocalizedText `yaml:"title" json:"title"`
	Body  LocalizedText `yaml:"body" json:"body"`
}

// Channel names a notification delivery channel.
type Channel string

const (
	ChannelSocket   Channel = "socket"
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelPush     Channel = "push"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelSocket, ChannelEmail, ChannelTelegram, ChannelPush:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

type Metadata struct {
	Icon     string   `yaml:"icon,omitempty" json:"icon,omitempty"`
	URL      string   `yaml:"url,omitempty" json:"url,omitempty"`
	Priority Priority `yaml:"priority,omitempty" json:"priority,omitempty"`
}

type NotificationConfig struct {
	Recipients RecipientRule `yaml:"recipients" json:"recipients"`
	Templates  Templates     `yaml:"templates" json:"templates"`
	Channels   []Channel     `yaml:"channels" json:"channels"`
	Metadata   Metadata      `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// RateLimit caps how often a single caller may invoke an action.
type RateLimit struct {
	Window time.Duration
	Max    int
}

// ActionConfig is the declarative definition of an action. Configs are
// registered once at startup and never mutated afterwards.
type ActionConfig struct {
	Key       string
	Params    ParamSchema
	Auth      []AuthRule
	Operation string
	// Variables maps backend variable names to dotted param paths; the value
	// CallerVariable injects the caller id. Empty means params are sent as-is.
	Variables      map[string]string
	Notification   *NotificationConfig
	UpdateStrategy json.RawMessage
	RateLimit      *RateLimit
}

// CallerVariable in ActionConfig.Variables resolves to ActionContext.CallerID.
const CallerVariable = "$caller"

// ActionContext carries per-request caller state. Transport, when set, is
// used for every outbound call made on behalf of the request.
type ActionContext struct {
	CallerID   string
	CallerName string
	Credential string
	Locale     string
	RequestID  string
	Transport  transport.Doer
}

// ErrorCode is the stable, client-facing failure classification.
type ErrorCode string

const (
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeUnauthenticated  ErrorCode = "UNAUTHENTICATED"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeUnknownAction    ErrorCode = "UNKNOWN_ACTION"
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodeBackendError     ErrorCode = "STRAPI_ERROR"
	CodeInternalError    ErrorCode = "INTERNAL_ERROR"
	CodeTimeout          ErrorCode = "TIMEOUT"
)

type ActionError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details []string  `json:"details,omitempty"`
}

// ActionResult is either a success carrying Data and UpdateStrategy, or a
// failure carrying Error.
type ActionResult struct {
	Success        bool            `json:"success"`
	Data           json.RawMessage `json:"data,omitempty"`
	UpdateStrategy json.RawMessage `json:"updateStrategy,omitempty"`
	Error          *ActionError    `json:"error,omitempty"`
}

func Succeeded(data, updateStrategy json.RawMessage) ActionResult {
	return ActionResult{Success: true, Data: data, UpdateStrategy: updateStrategy}
}

func Failed(code ErrorCode, message string, details ...string) ActionResult {
	return ActionResult{Error: &ActionError{Code: code, Message: message, Details: details}}
}
