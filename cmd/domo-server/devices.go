package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"domo/internal/db"
	"domo/internal/domain"
	"domo/internal/interp"
	"domo/internal/mqtt"
)

// deviceAPI serves the registry CRUD. Writes go to the store only; the live
// vocabulary picks them up on the next reload, so a half-finished batch of
// edits never leaks into interpretation.
type deviceAPI struct {
	store  *db.Store
	svc    *interp.Service
	pub    *mqtt.Publisher
	logger *slog.Logger
}

func (a *deviceAPI) list(w http.ResponseWriter, req *http.Request) {
	devices, err := a.store.ListDevices(req.Context())
	if err != nil {
		a.logger.Error("list devices failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, domain.DeviceListResponse{
		Success: true,
		Total:   len(devices),
		Devices: devices,
	})
}

func (a *deviceAPI) get(w http.ResponseWriter, req *http.Request) {
	rec, err := a.store.GetDevice(req.Context(), chi.URLParam(req, "deviceKey"))
	if errors.Is(err, db.ErrDeviceNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "device not found"})
		return
	}
	if err != nil {
		a.logger.Error("get device failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}

	resp := map[string]any{"success": true, "device": rec}
	if st, ok := a.pub.LastState(rec.DeviceKey); ok {
		resp["last_state"] = map[string]any{"payload": st.Payload, "seen_at": st.SeenAt}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *deviceAPI) create(w http.ResponseWriter, req *http.Request) {
	var in domain.DeviceCreateRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	rec, err := a.store.CreateDevice(req.Context(), domain.DeviceRecord{
		DeviceKey: in.DeviceKey,
		Name:      in.Name,
		Category:  domain.ParseCategory(in.Category),
		Room:      in.Room,
		Aliases:   in.Aliases,
		Endpoints: in.Endpoints,
	})
	if errors.Is(err, db.ErrDeviceExists) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "device_key already exists"})
		return
	}
	if err != nil {
		a.logger.Error("create device failed", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "device": rec})
}

func (a *deviceAPI) update(w http.ResponseWriter, req *http.Request) {
	var in domain.DeviceUpdateRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	rec, err := a.store.UpdateDevice(req.Context(), chi.URLParam(req, "deviceKey"), in)
	if errors.Is(err, db.ErrDeviceNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "device not found"})
		return
	}
	if err != nil {
		a.logger.Error("update device failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "device": rec})
}

func (a *deviceAPI) remove(w http.ResponseWriter, req *http.Request) {
	err := a.store.DeleteDevice(req.Context(), chi.URLParam(req, "deviceKey"))
	if errors.Is(err, db.ErrDeviceNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "device not found"})
		return
	}
	if err != nil {
		a.logger.Error("delete device failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// endpoint resolves the control URL a device exposes for one action.
func (a *deviceAPI) endpoint(w http.ResponseWriter, req *http.Request) {
	rec, err := a.store.GetDevice(req.Context(), chi.URLParam(req, "deviceKey"))
	if errors.Is(err, db.ErrDeviceNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "device not found"})
		return
	}
	if err != nil {
		a.logger.Error("get device failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}

	action := chi.URLParam(req, "action")
	url := rec.Endpoints.ForAction(action)
	if url == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no endpoint for action " + action})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "device_key": rec.DeviceKey, "action": action, "url": url})
}

// reload rebuilds the in-memory vocabulary from the store in one atomic swap.
func (a *deviceAPI) reload(w http.ResponseWriter, req *http.Request) {
	devices, rooms, err := a.store.Snapshot(req.Context())
	if err != nil {
		a.logger.Error("snapshot for reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	if err := a.svc.Reload(devices, rooms); err != nil {
		a.logger.Error("vocabulary reload rejected", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		return
	}
	a.logger.Info("vocabulary reloaded", "devices", len(devices), "rooms", len(rooms))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "devices": len(devices), "rooms": len(rooms)})
}
