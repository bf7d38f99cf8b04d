package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"rbac-console/internal/domain"
)

// messageKeys are checked in order on error bodies.
var messageKeys = []string{"message", "error", "detail", "msg", "errors"}

// HandleError normalizes a non-2xx response into the console's error taxonomy.
func HandleError(status int, body []byte) *domain.APIError {
	msg := extractMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("Error %d: %s", status, http.StatusText(status))
	}
	return &domain.APIError{Kind: domain.KindForStatus(status), Status: status, Message: msg}
}

func extractMessage(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	return messageFrom(v)
}

func messageFrom(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		msgs := make([]string, 0, len(t))
		for _, item := range t {
			msgs = append(msgs, messageFrom(item))
		}
		return domain.JoinMessages(msgs)
	case map[string]any:
		for _, k := range messageKeys {
			if inner, ok := t[k]; ok {
				if s := messageFrom(inner); s != "" {
					return withLocation(t, s)
				}
			}
		}
		return fieldMessages(t)
	default:
		return ""
	}
}

// withLocation prefixes FastAPI style {"loc": [...], "msg": ...} items with the field name.
func withLocation(m map[string]any, msg string) string {
	loc, ok := m["loc"].([]any)
	if !ok || len(loc) == 0 {
		return msg
	}
	field, ok := loc[len(loc)-1].(string)
	if !ok || field == "" {
		return msg
	}
	return field + ": " + msg
}

// fieldMessages flattens {"field": ["msg", ...]} validation objects.
func fieldMessages(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		if s := messageFrom(m[k]); s != "" {
			msgs = append(msgs, k+": "+s)
		}
	}
	return domain.JoinMessages(msgs)
}
