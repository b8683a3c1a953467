// Package membership answers "who belongs to relation X" from the backend,
// memoised through a Cache.
package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"actionhub/internal/backend"
	"actionhub/internal/metrics"
	"actionhub/internal/utils"
	"actionhub/internal/utils/logger"
)

var log = logger.New("MEMBERSHIP")

// ErrRelationNotFound means the backend returned nothing at the members path,
// usually because the credential cannot see the relation.
var ErrRelationNotFound = errors.New("relation not found")

// Device is a push target registered by a user.
type Device struct {
	Token    string `json:"token"`
	Platform string `json:"platform,omitempty"`
}

// UserProfile is the per-recipient view used by authorization and delivery.
type UserProfile struct {
	ID          string   `json:"id"`
	Username    string   `json:"username,omitempty"`
	Email       string   `json:"email,omitempty"`
	Locale      string   `json:"locale,omitempty"`
	MessagingID string   `json:"messagingId,omitempty"`
	EmailOptOut bool     `json:"emailOptOut,omitempty"`
	Devices     []Device `json:"devices,omitempty"`
}

// Source resolves relation members. Resolver is the production implementation.
type Source interface {
	Members(ctx context.Context, relationID string) ([]UserProfile, error)
	IsMember(ctx context.Context, relationID, userID string) (bool, error)
}

type credentialKey struct{}

// WithCredential attaches the caller credential used when the resolver has
// no service token of its own.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

// Resolver loads members through a backend operation. The operation receives
// the relation id as variable "id"; members are read at resultPath.
type Resolver struct {
	backend      backend.Executor
	cache        Cache
	operation    string
	resultPath   string
	serviceToken string
}

func NewResolver(exec backend.Executor, cache Cache, operation, resultPath, serviceToken string) *Resolver {
	return &Resolver{
		backend:      exec,
		cache:        cache,
		operation:    operation,
		resultPath:   resultPath,
		serviceToken: serviceToken,
	}
}

// Cache exposes the backing cache for explicit invalidation.
func (r *Resolver) Cache() Cache {
	return r.cache
}

// Members returns the relation's members, from cache when fresh. Concurrent
// misses each hit the backend; the last Set wins.
//
// Without a service token the lookup runs as the caller and bypasses the
// cache: what one caller may see says nothing about what others may see.
func (r *Resolver) Members(ctx context.Context, relationID string) ([]UserProfile, error) {
	shared := r.serviceToken != ""
	if shared {
		if members, ok, err := r.cache.Get(ctx, relationID); err != nil {
			log.Warn("cache read for %s failed, falling back to backend: %v", relationID, err)
		} else if ok {
			metrics.MembershipLookups.WithLabelValues("cache").Inc()
			return members, nil
		}
	}
	metrics.MembershipLookups.WithLabelValues("backend").Inc()

	credential := r.serviceToken
	if !shared {
		credential, _ = ctx.Value(credentialKey{}).(string)
	}

	res, err := r.backend.Execute(ctx, r.operation, map[string]interface{}{"id": relationID}, credential)
	if err != nil {
		return nil, fmt.Errorf("load members of %s: %w", relationID, err)
	}

	members, err := parseMembers(res.Data, r.resultPath)
	if err != nil {
		return nil, fmt.Errorf("load members of %s: %w", relationID, err)
	}

	if shared {
		if err := r.cache.Set(ctx, relationID, members); err != nil {
			log.Warn("cache write for %s failed: %v", relationID, err)
		}
	}
	return members, nil
}

func (r *Resolver) IsMember(ctx context.Context, relationID, userID string) (bool, error) {
	members, err := r.Members(ctx, relationID)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

// parseMembers reads user entities at path. Entities may be flat or wrapped
// as {id, attributes}. A missing or null path is ErrRelationNotFound, never
// an empty membership.
func parseMembers(data json.RawMessage, path string) ([]UserProfile, error) {
	if len(data) == 0 {
		return nil, ErrRelationNotFound
	}
	var root interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}

	node, ok := utils.Lookup(root, path)
	if !ok {
		return nil, ErrRelationNotFound
	}
	list, ok := unwrapData(node).([]interface{})
	if !ok {
		if unwrapData(node) == nil {
			return nil, ErrRelationNotFound
		}
		return nil, fmt.Errorf("members at %q are not a list", path)
	}

	members := make([]UserProfile, 0, len(list))
	for _, item := range list {
		p, ok := parseProfile(item)
		if !ok {
			continue
		}
		members = append(members, p)
	}
	return members, nil
}

func parseProfile(item interface{}) (UserProfile, bool) {
	id, fields := flatten(item)
	if id == "" {
		return UserProfile{}, false
	}
	p := UserProfile{
		ID:          id,
		Username:    firstString(fields, "username", "name"),
		Email:       firstString(fields, "email"),
		Locale:      firstString(fields, "locale", "lang"),
		MessagingID: firstString(fields, "telegramId", "messagingId"),
	}
	if optOut, ok := fields["emailOptOut"].(bool); ok {
		p.EmailOptOut = optOut
	} else if noMail, ok := fields["noMail"].(bool); ok {
		p.EmailOptOut = noMail
	}

	if devices, ok := unwrapData(fields["devices"]).([]interface{}); ok {
		for _, d := range devices {
			_, df := flatten(d)
			if token := firstString(df, "token", "expoPushToken"); token != "" {
				p.Devices = append(p.Devices, Device{Token: token, Platform: firstString(df, "platform")})
			}
		}
	}
	return p, true
}

// flatten returns an entity's id and its attribute map.
func flatten(item interface{}) (string, map[string]interface{}) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return "", nil
	}
	id := utils.Stringify(m["id"])
	if attrs, ok := m["attributes"].(map[string]interface{}); ok {
		return id, attrs
	}
	return id, m
}

// unwrapData strips a relation's {data: ...} envelope.
func unwrapData(v interface{}) interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		if inner, ok := m["data"]; ok {
			return inner
		}
	}
	return v
}

func firstString(fields map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := utils.Stringify(fields[k]); s != "" {
			return s
		}
	}
	return ""
}
