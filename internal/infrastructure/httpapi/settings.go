package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"interview-monitor/internal/infrastructure/config"
	"interview-monitor/pkg/shared/redact"
)

// handleSettings reads and writes the raw settings store. Values are
// strings as stored; the token is masked on read.
func (d *Deps) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		d.writeSettings(w, r)
	case http.MethodPost:
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid json", nil)
			return
		}
		values := make(map[string]string, len(in))
		for k, v := range in {
			s, err := settingString(v)
			if err == nil {
				err = config.Validate(k, s)
			}
			if err != nil {
				writeError(w, http.StatusBadRequest, "BAD_VALUE", err.Error(), map[string]any{"key": k})
				return
			}
			values[k] = s
		}
		// every value is valid here, so a bad request never leaves a partial write
		for _, k := range config.Keys {
			v, ok := values[k]
			if !ok {
				continue
			}
			if err := d.Settings.Set(r.Context(), k, v); err != nil {
				writeError(w, http.StatusInternalServerError, "SETTINGS_WRITE_FAILED", err.Error(), map[string]any{"key": k})
				return
			}
		}
		d.Logger.Info().Interface("settings", redact.Map(values)).Msg("settings updated")
		d.writeSettings(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (d *Deps) writeSettings(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]string, len(config.Keys))
	for _, k := range config.Keys {
		v, _, err := d.Settings.Get(r.Context(), k)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SETTINGS_READ_FAILED", err.Error(), map[string]any{"key": k})
			return
		}
		out[k] = v
	}
	writeJSON(w, http.StatusOK, redact.Map(out))
}

func settingString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
