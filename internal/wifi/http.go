package wifi

import (
	"encoding/json"
	"errors"
	"net/http"

	"homehub/internal/logs"
	"homehub/internal/models"

	"github.com/gorilla/mux"
)

const msgSaved = "Wi-Fi credentials saved successfully"

type HTTP struct{ store Store }

func NewHTTP(s Store) *HTTP { return &HTTP{store: s} }

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/wifi", h.saveCredentials).Methods(http.MethodPost)
}

func (h *HTTP) saveCredentials(w http.ResponseWriter, r *http.Request) {
	var in Credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := in.Validate(); err != nil {
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Save(in); err != nil {
		if errors.Is(err, ErrCredentialsRequired) {
			models.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		logs.FromContext(r.Context()).Errorf("wifi: %v", err)
		models.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	// пароль в лог не пишем
	logs.FromContext(r.Context()).Infof("wifi credentials updated (ssid=%q)", in.SSID)
	models.WriteMessage(w, msgSaved)
}
