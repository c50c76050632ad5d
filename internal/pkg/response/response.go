// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the common wire envelope.
type APIResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedData wraps a listing with its pagination cursor.
type PaginatedData struct {
	Items any   `json:"items"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// Paginated builds the listing envelope. Items must be non-nil so empty
// pages serialize as [] rather than null.
func Paginated(items any, page, limit int, total int64) PaginatedData {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return PaginatedData{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}
}

// JSON writes a success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Status: "success",
		Data:   data,
	})
}

// Error writes an error envelope without a machine-readable kind.
func Error(w http.ResponseWriter, status int, msg string) {
	ErrorKind(w, status, "", msg)
}

// ErrorKind writes an error envelope. kind lets clients distinguish
// retryable failures from permanent rejections.
func ErrorKind(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Status:  "error",
		Kind:    kind,
		Message: msg,
	})
}
