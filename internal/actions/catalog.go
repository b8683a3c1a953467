package actions

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PredicateSet resolves custom authorization predicates referenced by name
// from catalogue files.
type PredicateSet map[string]Predicate

// Catalog is the parsed form of an actions YAML file: backend operation
// documents plus the action definitions that use them.
type Catalog struct {
	Operations map[string]string
	Actions    []ActionConfig
}

type catalogFile struct {
	Operations map[string]string `yaml:"operations"`
	Actions    []actionEntry     `yaml:"actions"`
}

type actionEntry struct {
	Key            string              `yaml:"key"`
	Operation      string              `yaml:"operation"`
	Params         ParamSchema         `yaml:"params"`
	Variables      map[string]string   `yaml:"variables"`
	Auth           []authEntry         `yaml:"auth"`
	Notification   *NotificationConfig `yaml:"notification"`
	UpdateStrategy interface{}         `yaml:"updateStrategy"`
	RateLimit      *rateLimitEntry     `yaml:"rateLimit"`
}

type authEntry struct {
	Type            AuthRuleType `yaml:"type"`
	RelationIDParam string       `yaml:"relationIdParam"`
	Predicate       string       `yaml:"predicate"`
	ErrorMessage    string       `yaml:"errorMessage"`
}

type rateLimitEntry struct {
	Window string `yaml:"window"`
	Max    int    `yaml:"max"`
}

// LoadCatalog reads and parses the catalogue at path.
func LoadCatalog(path string, predicates PredicateSet) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cat, err := ParseCatalog(data, predicates)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog decodes catalogue YAML. Every action must reference a declared
// operation and every custom rule a known predicate.
func ParseCatalog(data []byte, predicates PredicateSet) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	cat := &Catalog{Operations: file.Operations}
	if cat.Operations == nil {
		cat.Operations = map[string]string{}
	}

	for _, entry := range file.Actions {
		cfg, err := entry.toConfig(predicates)
		if err != nil {
			return nil, err
		}
		if _, ok := cat.Operations[cfg.Operation]; !ok {
			return nil, fmt.Errorf("action %s: operation %q is not declared", cfg.Key, cfg.Operation)
		}
		cat.Actions = append(cat.Actions, cfg)
	}
	return cat, nil
}

func (e actionEntry) toConfig(predicates PredicateSet) (ActionConfig, error) {
	cfg := ActionConfig{
		Key:          e.Key,
		Operation:    e.Operation,
		Params:       e.Params,
		Variables:    e.Variables,
		Notification: e.Notification,
	}

	for i, a := range e.Auth {
		rule := AuthRule{
			Type:            a.Type,
			RelationIDParam: a.RelationIDParam,
			PredicateName:   a.Predicate,
			ErrorMessage:    a.ErrorMessage,
		}
		if a.Type == AuthCustom {
			p, ok := predicates[a.Predicate]
			if !ok {
				return cfg, fmt.Errorf("action %s: auth rule %d: unknown predicate %q", e.Key, i, a.Predicate)
			}
			rule.Predicate = p
		}
		cfg.Auth = append(cfg.Auth, rule)
	}

	if e.UpdateStrategy != nil {
		raw, err := json.Marshal(e.UpdateStrategy)
		if err != nil {
			return cfg, fmt.Errorf("action %s: updateStrategy: %w", e.Key, err)
		}
		cfg.UpdateStrategy = raw
	}

	if e.RateLimit != nil {
		window, err := time.ParseDuration(e.RateLimit.Window)
		if err != nil {
			return cfg, fmt.Errorf("action %s: rateLimit.window: %w", e.Key, err)
		}
		cfg.RateLimit = &RateLimit{Window: window, Max: e.RateLimit.Max}
	}
	return cfg, nil
}

// RegisterInto registers every catalogue action; the first failure aborts.
func (c *Catalog) RegisterInto(r *Registry) error {
	for _, cfg := range c.Actions {
		if err := r.Register(cfg); err != nil {
			return err
		}
	}
	return nil
}
