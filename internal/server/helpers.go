package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Vicistar-V/vin-stock-ai/internal/models"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/analysis"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/market"
	"github.com/Vicistar-V/vin-stock-ai/internal/services/updater"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithDetails writes a fixed message plus the underlying cause.
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message, details string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Details: details})
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// bindRequest decodes an optional JSON body into v. GET requests and empty
// bodies leave v untouched so handlers can fall back to query parameters.
func bindRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method == http.MethodGet || r.Body == nil || r.ContentLength == 0 {
		return true
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// orQuery returns v, or the named query parameter when v is empty.
func orQuery(r *http.Request, v, name string) string {
	if v != "" {
		return v
	}
	return r.URL.Query().Get(name)
}

// clientMessages is the response text for known service errors
var clientMessages = []struct {
	err error
	msg string
}{
	{analysis.ErrNotConfigured, "Missing required API keys"},
	{analysis.ErrMissingOutlookParams, "Missing required parameters: ticker and analysisType"},
	{analysis.ErrEmptyReply, "No analysis content received from AI"},
	{analysis.ErrNoHoldings, "No valid holdings found in input"},
	{analysis.ErrNoHoldingData, "Could not fetch data for any holdings"},
	{market.ErrNotConfigured, "Missing API keys"},
	{market.ErrMissingTicker, "Missing ticker"},
	{updater.ErrNoStocks, "No stocks found in database"},
	{updater.ErrNoQuotes, "No valid quotes retrieved"},
}

// clientMessage returns the response text for err, falling back to its
// own message.
func clientMessage(err error) string {
	for _, m := range clientMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return err.Error()
}

// inputMessage returns the client-facing message of a validation error.
func inputMessage(err error) (string, bool) {
	var inputErr *models.InputError
	if errors.As(err, &inputErr) {
		return inputErr.Message, true
	}
	return "", false
}
