package validator

import (
	"encoding/json"
	"testing"

	"actionhub/internal/actions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorsOf(t *testing.T, r Result) []string {
	t.Helper()
	inv, ok := r.(Invalid)
	require.True(t, ok, "expected Invalid, got %T", r)
	return inv.Errors
}

func TestValidateParams_AllMissingFieldsReported(t *testing.T) {
	schema := actions.ParamSchema{
		"taskId":    {Type: actions.TypeString, Required: true},
		"projectId": {Type: actions.TypeString, Required: true},
		"amount":    {Type: actions.TypeNumber, Required: true},
		"note":      {Type: actions.TypeString},
	}
	full := map[string]interface{}{"taskId": "t1", "projectId": "p1", "amount": 3.0}
	required := []string{"amount", "projectId", "taskId"}

	// Every subset of required fields removed must be reported in full.
	for mask := 1; mask < 1<<len(required); mask++ {
		params := map[string]interface{}{}
		for k, v := range full {
			params[k] = v
		}
		var want []string
		for i, name := range required {
			if mask&(1<<i) != 0 {
				delete(params, name)
				want = append(want, "Missing required parameter: "+name)
			}
		}
		assert.Equal(t, want, errorsOf(t, ValidateParams(schema, params)))
	}

	assert.Equal(t, Valid{}, ValidateParams(schema, full))
}

func TestValidateParams_NullCountsAsMissing(t *testing.T) {
	schema := actions.ParamSchema{"taskId": {Type: actions.TypeString, Required: true}}
	errs := errorsOf(t, ValidateParams(schema, map[string]interface{}{"taskId": nil}))
	assert.Equal(t, []string{"Missing required parameter: taskId"}, errs)
}

func TestValidateParams_TypeMismatch(t *testing.T) {
	schema := actions.ParamSchema{
		"count":  {Type: actions.TypeNumber},
		"done":   {Type: actions.TypeBoolean},
		"data":   {Type: actions.TypeObject},
		"tags":   {Type: actions.TypeArray},
		"title":  {Type: actions.TypeString},
		"weight": {Type: actions.TypeNumber},
	}
	params := map[string]interface{}{
		"count":  "3",
		"done":   "yes",
		"data":   []interface{}{},
		"tags":   map[string]interface{}{},
		"title":  12.0,
		"weight": json.Number("1.5"),
	}
	assert.Equal(t, []string{
		"Invalid type for count: expected number",
		"Invalid type for data: expected object",
		"Invalid type for done: expected boolean",
		"Invalid type for tags: expected array",
		"Invalid type for title: expected string",
	}, errorsOf(t, ValidateParams(schema, params)))
}

func TestValidateParams_NestedShapes(t *testing.T) {
	schema := actions.ParamSchema{
		"data": {
			Type:     actions.TypeObject,
			Required: true,
			Shape: actions.ParamSchema{
				"projectId": {Type: actions.TypeString, Required: true},
				"hours":     {Type: actions.TypeNumber},
			},
		},
		"members": {
			Type: actions.TypeArray,
			Items: &actions.ParamSpec{
				Type:  actions.TypeObject,
				Shape: actions.ParamSchema{"id": {Type: actions.TypeString, Required: true}},
			},
		},
	}
	params := map[string]interface{}{
		"data": map[string]interface{}{"hours": "two"},
		"members": []interface{}{
			map[string]interface{}{"id": "u1"},
			map[string]interface{}{},
			"u3",
		},
	}
	assert.Equal(t, []string{
		"Invalid type for data.hours: expected number",
		"Missing required parameter: data.projectId",
		"Missing required parameter: members[1].id",
		"Invalid type for members[2]: expected object",
	}, errorsOf(t, ValidateParams(schema, params)))
}

func TestValidateParams_UnknownParamsIgnored(t *testing.T) {
	schema := actions.ParamSchema{"taskId": {Type: actions.TypeString, Required: true}}
	params := map[string]interface{}{"taskId": "t1", "extra": 1, "more": map[string]interface{}{}}
	assert.Equal(t, Valid{}, ValidateParams(schema, params))
}

func TestValidateParams_Rules(t *testing.T) {
	schema := actions.ParamSchema{
		"email": {Type: actions.TypeString, Rules: "email"},
		"hours": {Type: actions.TypeNumber, Rules: "gte=0,lte=24"},
		"tags":  {Type: actions.TypeArray, Rules: "min=1"},
	}

	ok := map[string]interface{}{"email": "a@b.co", "hours": json.Number("8"), "tags": []interface{}{"x"}}
	assert.Equal(t, Valid{}, ValidateParams(schema, ok))

	bad := map[string]interface{}{"email": "nope", "hours": 30.0, "tags": []interface{}{}}
	assert.Equal(t, []string{
		"Invalid value for email: failed email",
		"Invalid value for hours: failed lte",
		"Invalid value for tags: failed min",
	}, errorsOf(t, ValidateParams(schema, bad)))
}

func TestValidateParams_UnknownRuleDoesNotPanic(t *testing.T) {
	schema := actions.ParamSchema{"x": {Type: actions.TypeString, Rules: "no_such_rule"}}
	errs := errorsOf(t, ValidateParams(schema, map[string]interface{}{"x": "v"}))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "unsupported rule")
}

func TestCheckSchema(t *testing.T) {
	good := actions.ParamSchema{
		"data": {Type: actions.TypeObject, Shape: actions.ParamSchema{"id": {Type: actions.TypeString, Rules: "uuid"}}},
	}
	assert.NoError(t, CheckSchema(good))

	bad := actions.ParamSchema{
		"list": {Type: actions.TypeArray, Items: &actions.ParamSpec{Type: actions.TypeString, Rules: "bogus_tag"}},
	}
	assert.ErrorContains(t, CheckSchema(bad), "list[]")
}

func TestCustomValidator_ActionRequest(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&ActionRequest{ActionKey: "updateTask", Params: map[string]interface{}{}}))

	err := v.Validate(&ActionRequest{ActionKey: "9bad key"})
	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t, []string{
		"actionKey must be a valid action key",
		"params is required",
	}, ve.Messages())
}
