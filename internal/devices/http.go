package devices

import (
	"encoding/json"
	"errors"
	"net/http"

	"homehub/internal/logs"
	"homehub/internal/models"

	"github.com/gorilla/mux"
)

const (
	msgInvalidJSON = "invalid JSON body"
	msgInternal    = "internal server error"
	msgNotFound    = "device not found"
)

type HTTP struct{ svc *Service }

func NewHTTP(svc *Service) *HTTP { return &HTTP{svc: svc} }

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	// пути как у прошивки клиентов, без /api/v1
	r.HandleFunc("/register_device", h.registerDevice).Methods(http.MethodPost)
	r.HandleFunc("/update_eqp", h.updateEquipment).Methods(http.MethodPost)

	r.HandleFunc("/devices/{devices_id}", h.getDevice).Methods(http.MethodGet)
}

func (h *HTTP) registerDevice(w http.ResponseWriter, r *http.Request) {
	var in RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	res, err := h.svc.Register(r.Context(), in)
	if err != nil {
		logs.FromContext(r.Context()).Errorf("register_device %s: %v", in.DevicesID, err)
		models.WriteError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	models.WriteMessage(w, res.Message)
}

func (h *HTTP) updateEquipment(w http.ResponseWriter, r *http.Request) {
	var in UpdateEquipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	res, err := h.svc.UpdateEquipment(r.Context(), in)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			models.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{
				Error:         verr.Message,
				MissingFields: verr.MissingFields,
			})
			return
		}
		logs.FromContext(r.Context()).Errorf("update_eqp %v/%v: %v", in.DevicesID, in.EqpNo, err)
		models.WriteError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	models.WriteMessage(w, res.Message)
}

func (h *HTTP) getDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["devices_id"]
	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrDeviceNotFound) {
			models.WriteError(w, http.StatusNotFound, msgNotFound)
			return
		}
		logs.FromContext(r.Context()).Errorf("get device %s: %v", id, err)
		models.WriteError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	models.WriteJSON(w, http.StatusOK, d)
}
