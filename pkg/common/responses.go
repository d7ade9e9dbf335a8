package common

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "recall-backend/pkg/errors"
)

// APIResponse represents a standard API response envelope
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// RespondRaw sends data without the envelope, for responses whose shape is
// part of the public contract.
func RespondRaw(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError maps an error onto the envelope using the AppError taxonomy
func RespondError(w http.ResponseWriter, err error) {
	status := pkgerrors.HTTPStatusOf(err)
	info := &ErrorInfo{
		Type:    string(pkgerrors.ErrorTypeInternal),
		Message: "internal error",
	}
	var appErr *pkgerrors.AppError
	if errors.As(err, &appErr) {
		info.Type = string(appErr.Type)
		info.Message = appErr.Message
		info.Details = appErr.Details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Error: info})
}
