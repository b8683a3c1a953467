package notify

import (
	"encoding/json"
	"io"
	"strings"

	"actionhub/internal/utils"

	"github.com/valyala/fasttemplate"
)

// renderVars resolves {placeholder} tags in notification templates.
type renderVars struct {
	senderName string
	actionKey  string
	params     map[string]interface{}
	result     interface{}
}

func newRenderVars(job Job) renderVars {
	v := renderVars{senderName: job.CallerName, actionKey: job.ActionKey, params: job.Params}
	if v.senderName == "" {
		v.senderName = job.CallerID
	}
	if len(job.Result) > 0 {
		_ = json.Unmarshal(job.Result, &v.result)
	}
	return v
}

func (v renderVars) lookup(tag string) (string, bool) {
	tag = strings.TrimSpace(tag)
	switch tag {
	case "senderName":
		return v.senderName, true
	case "actionKey":
		return v.actionKey, true
	}
	if s, ok := utils.LookupString(v.params, tag); ok {
		return s, true
	}
	if s, ok := utils.LookupString(v.result, tag); ok {
		return s, true
	}
	return "", false
}

// render fills placeholders from params, then the backend result. Unknown
// placeholders are left verbatim.
func (v renderVars) render(text string) string {
	if !strings.Contains(text, "{") {
		return text
	}
	return fasttemplate.ExecuteFuncString(text, "{", "}", func(w io.Writer, tag string) (int, error) {
		if s, ok := v.lookup(tag); ok {
			return w.Write([]byte(s))
		}
		return w.Write([]byte("{" + tag + "}"))
	})
}
