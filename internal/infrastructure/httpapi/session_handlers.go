package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
}

func (d *Deps) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, d.Session.Snapshot())
}

// handleSelection: POST enters selection mode, DELETE cancels it.
func (d *Deps) handleSelection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if err := d.Session.RequestSelection(); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session": d.Session.Snapshot(), "sources": d.Session.Sources()})
	case http.MethodDelete:
		d.Session.CancelSelection()
		writeJSON(w, http.StatusOK, d.Session.Snapshot())
	default:
		methodNotAllowed(w)
	}
}

type targetDTO struct {
	SourceID string `json:"sourceId"`
	Auto     bool   `json:"auto"`
}

func (d *Deps) handleTarget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in targetDTO
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid json", nil)
		return
	}
	var err error
	switch {
	case in.Auto:
		_, err = d.Session.AutoSelect()
	case strings.TrimSpace(in.SourceID) != "":
		err = d.Session.Select(strings.TrimSpace(in.SourceID))
	default:
		writeError(w, http.StatusBadRequest, "BAD_VALUE", "sourceId or auto is required", nil)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Session.Snapshot())
}

func (d *Deps) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := d.Session.Start(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, d.Session.Snapshot())
}

func (d *Deps) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	d.Session.Stop()
	writeJSON(w, http.StatusOK, d.Session.Snapshot())
}

func (d *Deps) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": d.Session.Sources()})
}

func (d *Deps) handleAlerts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items := d.Session.Alerts()
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
	case http.MethodDelete:
		d.Session.ClearAlerts()
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// handleAlertByID serves /api/alerts/{id}/ack.
func (d *Deps) handleAlertByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "ack" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := d.Session.Acknowledge(parts[0]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type clientAlertDTO struct {
	Alert       string `json:"alert"`
	Description string `json:"description"`
}

func (d *Deps) handleClientAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in clientAlertDTO
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid json", nil)
		return
	}
	if strings.TrimSpace(in.Alert) == "" {
		writeError(w, http.StatusBadRequest, "BAD_VALUE", "alert is required", nil)
		return
	}
	if err := d.Session.ReportClientAlert(in.Alert, in.Description); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (d *Deps) handleScanRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := d.Session.RequestScan(); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
