package redact

import (
	"encoding/json"
	"strings"
)

const Mask = "***"

var sensitiveKeys = []string{"authorization", "cookie", "access_token", "id_token", "apikey", "token", "authtoken", "auth"}

// RedactJSON masks sensitive fields in a JSON string best-effort.
func RedactJSON(s string) string {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	redactNode(&v)
	b, err := json.Marshal(v)
	if err != nil {
		return s
	}
	return string(b)
}

// Packet masks the JSON body of a socket.io packet such as `40{"token":"x"}`,
// keeping the type prefix.
func Packet(p string) string {
	i := strings.IndexAny(p, "{[")
	if i < 0 {
		return p
	}
	return p[:i] + RedactJSON(p[i:])
}

// Map returns a copy of m with sensitive non-empty values masked.
func Map(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v != "" && IsSensitiveKey(k) {
			v = Mask
		}
		out[k] = v
	}
	return out
}

func redactNode(n *any) {
	switch t := (*n).(type) {
	case map[string]any:
		for k, v := range t {
			if IsSensitiveKey(k) {
				t[k] = Mask
				continue
			}
			vv := any(v)
			redactNode(&vv)
			t[k] = vv
		}
	case []any:
		for i := range t {
			vv := any(t[i])
			redactNode(&vv)
			t[i] = vv
		}
	}
}

func IsSensitiveKey(k string) bool {
	k = strings.ToLower(k)
	for _, s := range sensitiveKeys {
		if k == s {
			return true
		}
	}
	return false
}
