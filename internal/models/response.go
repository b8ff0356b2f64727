package models

import (
	"encoding/json"
	"net/http"
)

// MessageResponse — {"message": "..."}; так отвечают все успешные POST.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse — тело ошибки. MissingFields только для ошибки валидации /update_eqp.
type ErrorResponse struct {
	Error         string   `json:"error"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteMessage(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}
