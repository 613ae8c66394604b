package pkg

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

var ContentType = struct {
	JSON string
	Text string
}{
	JSON: "application/json",
	Text: "text/plain",
}

// ApiResponse is the uniform envelope used by all platform endpoints.
// Handlers embed it in their response structs to add payload fields.
type ApiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WriteApiFailure writes the failure envelope. The web client inspects the
// "success" field and expects HTTP 200 even for failures, so the status code
// stays 200 here.
func WriteApiFailure(w http.ResponseWriter, message string) {
	WriteApiResponse(w, ApiResponse{Success: false, Message: message})
}

func WriteApiSuccess(w http.ResponseWriter, message string) {
	WriteApiResponse(w, ApiResponse{Success: true, Message: message})
}

func WriteApiResponse(w http.ResponseWriter, payload interface{}) {
	respBytes, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("failed to marshal api response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	WriteResponseBytes(w, ContentType.JSON, respBytes, http.StatusOK)
}

func WriteResponse(w http.ResponseWriter, contentType, message string, statusCode int) {
	WriteResponseBytes(w, contentType, []byte(message), statusCode)
}

func WriteTextResponseOK(w http.ResponseWriter, message string) {
	WriteResponseBytes(w, ContentType.Text, []byte(message), http.StatusOK)
}

func WriteJSONResponseOK(w http.ResponseWriter, message string) {
	WriteResponseBytes(w, ContentType.JSON, []byte(message), http.StatusOK)
}

func WriteResponseBytesOK(w http.ResponseWriter, contentType string, message []byte) {
	WriteResponseBytes(w, contentType, message, http.StatusOK)
}

func WriteResponseBytes(w http.ResponseWriter, contentType string, message []byte, statusCode int) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(statusCode)
	if _, err := w.Write(message); err != nil {
		log.Errorf("failed to write response [%s]: %s", message, err)
	}
}
