package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"actionhub/internal/actions"

	playgroundvalidator "github.com/go-playground/validator/v10"
)

// Result is the outcome of ValidateParams: either Valid or Invalid.
type Result interface {
	isResult()
}

// Valid means every declared parameter matched its spec.
type Valid struct{}

// Invalid lists every problem found, not just the first.
type Invalid struct {
	Errors []string
}

func (Valid) isResult()   {}
func (Invalid) isResult() {}

var paramRules = newPlayground()

// ValidateParams checks params against schema. Unknown parameters are ignored.
// It has no side effects.
func ValidateParams(schema actions.ParamSchema, params map[string]interface{}) Result {
	var errs []string
	checkObject(schema, params, "", &errs)
	if len(errs) == 0 {
		return Valid{}
	}
	return Invalid{Errors: errs}
}

func checkObject(schema actions.ParamSchema, obj map[string]interface{}, prefix string, errs *[]string) {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := schema[name]
		value, present := obj[name]
		checkValue(spec, value, present && value != nil, prefix+name, errs)
	}
}

func checkValue(spec actions.ParamSpec, value interface{}, present bool, name string, errs *[]string) {
	if !present {
		if spec.Required {
			*errs = append(*errs, fmt.Sprintf("Missing required parameter: %s", name))
		}
		return
	}

	if !hasType(spec.Type, value) {
		*errs = append(*errs, fmt.Sprintf("Invalid type for %s: expected %s", name, spec.Type))
		return
	}

	if spec.Rules != "" {
		if msg := applyRules(value, spec.Rules, name); msg != "" {
			*errs = append(*errs, msg)
		}
	}

	switch spec.Type {
	case actions.TypeObject:
		if len(spec.Shape) > 0 {
			checkObject(spec.Shape, value.(map[string]interface{}), name+".", errs)
		}
	case actions.TypeArray:
		if spec.Items != nil {
			for i, item := range value.([]interface{}) {
				// Array elements are positional, so a null element counts as absent.
				checkValue(*spec.Items, item, item != nil, fmt.Sprintf("%s[%d]", name, i), errs)
			}
		}
	}
}

func hasType(t actions.ParamType, value interface{}) bool {
	switch t {
	case actions.TypeString:
		_, ok := value.(string)
		return ok
	case actions.TypeNumber:
		return isNumber(value)
	case actions.TypeBoolean:
		_, ok := value.(bool)
		return ok
	case actions.TypeObject:
		_, ok := value.(map[string]interface{})
		return ok
	case actions.TypeArray:
		_, ok := value.([]interface{})
		return ok
	}
	return false
}

func isNumber(value interface{}) bool {
	switch value.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}

func applyRules(value interface{}, rules, name string) (msg string) {
	defer func() {
		// go-playground panics on unknown tags.
		if r := recover(); r != nil {
			msg = fmt.Sprintf("Invalid value for %s: unsupported rule %q", name, rules)
		}
	}()

	if n, ok := value.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return fmt.Sprintf("Invalid type for %s: expected number", name)
		}
		value = f
	}

	err := paramRules.Var(value, rules)
	if err == nil {
		return ""
	}
	var fieldErrs playgroundvalidator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Sprintf("Invalid value for %s: failed %s", name, fieldErrs[0].Tag())
	}
	return fmt.Sprintf("Invalid value for %s: %v", name, err)
}

// CheckSchema verifies that every Rules tag in schema is understood by the
// validator. Run it at startup so a bad catalogue fails before serving.
func CheckSchema(schema actions.ParamSchema) error {
	for name, spec := range schema {
		if err := checkSpec(spec, name); err != nil {
			return err
		}
	}
	return nil
}

func checkSpec(spec actions.ParamSpec, name string) (err error) {
	if spec.Rules != "" {
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("param %s: invalid rules %q: %v", name, spec.Rules, r)
				}
			}()
			_ = paramRules.Var(zeroFor(spec.Type), spec.Rules)
		}()
		if err != nil {
			return err
		}
	}
	for child, s := range spec.Shape {
		if err := checkSpec(s, name+"."+child); err != nil {
			return err
		}
	}
	if spec.Items != nil {
		return checkSpec(*spec.Items, name+"[]")
	}
	return nil
}

func zeroFor(t actions.ParamType) interface{} {
	switch t {
	case actions.TypeNumber:
		return float64(0)
	case actions.TypeBoolean:
		return false
	case actions.TypeObject:
		return map[string]interface{}{}
	case actions.TypeArray:
		return []interface{}{}
	default:
		return ""
	}
}
