package actions

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrDuplicateAction = errors.New("action already registered")
	ErrUnknownAction   = errors.New("unknown action")
	ErrInvalidAction   = errors.New("invalid action config")
)

// Registry maps action keys to their configuration. Keys are write-once:
// a second registration of the same key is rejected, never overwritten.
// Safe for concurrent reads; registration is expected at startup only.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*ActionConfig
}

func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]*ActionConfig)}
}

// Register validates cfg and stores it under cfg.Key.
func (r *Registry) Register(cfg ActionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[cfg.Key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateAction, cfg.Key)
	}
	c := cfg
	r.actions[cfg.Key] = &c
	return nil
}

// MustRegister panics when Register fails, surfacing misconfiguration at startup.
func (r *Registry) MustRegister(cfg ActionConfig) {
	if err := r.Register(cfg); err != nil {
		panic(fmt.Sprintf("action registry: %v", err))
	}
}

// Get returns the config registered under key.
func (r *Registry) Get(key string) (*ActionConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.actions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, key)
	}
	return cfg, nil
}

// Keys returns all registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.actions))
	for k := range r.actions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}

// Validate checks structural consistency of the config.
func (c ActionConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidAction)
	}
	if c.Operation == "" {
		return fmt.Errorf("%w: %s: missing backend operation", ErrInvalidAction, c.Key)
	}
	if err := c.Params.validate(""); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAction, c.Key, err)
	}
	for i, rule := range c.Auth {
		switch rule.Type {
		case AuthCredential:
		case AuthRelationalMembership:
			if rule.RelationIDParam == "" {
				return fmt.Errorf("%w: %s: auth rule %d: relationIdParam is required", ErrInvalidAction, c.Key, i)
			}
		case AuthCustom:
			if rule.Predicate == nil {
				return fmt.Errorf("%w: %s: auth rule %d: custom rule without predicate", ErrInvalidAction, c.Key, i)
			}
		default:
			return fmt.Errorf("%w: %s: auth rule %d: unknown type %q", ErrInvalidAction, c.Key, i, rule.Type)
		}
	}
	if n := c.Notification; n != nil {
		if len(n.Channels) == 0 {
			return fmt.Errorf("%w: %s: notification without channels", ErrInvalidAction, c.Key)
		}
		for _, ch := range n.Channels {
			if !ch.Valid() {
				return fmt.Errorf("%w: %s: unknown channel %q", ErrInvalidAction, c.Key, ch)
			}
		}
		switch n.Recipients.Type {
		case RecipientsRelationMembers:
			if n.Recipients.RelationIDParam == "" {
				return fmt.Errorf("%w: %s: relationMembers requires relationIdParam", ErrInvalidAction, c.Key)
			}
		case RecipientsSpecificUsers:
			if n.Recipients.RelationIDParam == "" || n.Recipients.UserIDsParam == "" {
				return fmt.Errorf("%w: %s: specificUsers requires relationIdParam and userIdsParam", ErrInvalidAction, c.Key)
			}
		case RecipientsSkillBased, RecipientsCustom:
		default:
			return fmt.Errorf("%w: %s: unknown recipient rule %q", ErrInvalidAction, c.Key, n.Recipients.Type)
		}
	}
	if rl := c.RateLimit; rl != nil && (rl.Max < 1 || rl.Window <= 0) {
		return fmt.Errorf("%w: %s: rate limit needs a positive window and max", ErrInvalidAction, c.Key)
	}
	return nil
}

func (s ParamSchema) validate(prefix string) error {
	for name, spec := range s {
		if err := spec.validate(prefix + name); err != nil {
			return err
		}
	}
	return nil
}

func (p ParamSpec) validate(name string) error {
	if !p.Type.Valid() {
		return fmt.Errorf("param %s: unknown type %q", name, p.Type)
	}
	if len(p.Shape) > 0 && p.Type != TypeObject {
		return fmt.Errorf("param %s: shape is only allowed on objects", name)
	}
	if p.Items != nil {
		if p.Type != TypeArray {
			return fmt.Errorf("param %s: items is only allowed on arrays", name)
		}
		if err := p.Items.validate(name + "[]"); err != nil {
			return err
		}
	}
	return p.Shape.validate(name + ".")
}
