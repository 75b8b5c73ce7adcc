package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/easelhq/easel/internal/claim"
)

// JSON-RPC 2.0 error codes.
const (
	ErrParseCode      = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603

	// ErrRegistry carries a rejected registry transition; the data field
	// names the taxonomy reason.
	ErrRegistry = -32000
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ParseRequest parses and validates a JSON-RPC request payload.
func ParseRequest(body io.Reader) (Request, error) {
	var req Request
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("parse error: %w", err)
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return Request{}, fmt.Errorf("invalid request")
	}
	return req, nil
}

// WriteResult writes a JSON-RPC success response.
func WriteResult(w http.ResponseWriter, id any, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		WriteError(w, id, ErrInternal, "encoding result", nil)
		return
	}
	writeJSON(w, Response{JSONRPC: "2.0", Result: raw, ID: id})
}

// WriteError writes a JSON-RPC error response.
func WriteError(w http.ResponseWriter, id any, code int, message string, data any) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message, Data: data},
		ID:      id,
	})
}

func writeJSON(w http.ResponseWriter, payload Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}

// reasons maps the registry error taxonomy to stable wire identifiers so
// the UI can render the specific rejection.
var reasons = []struct {
	err    error
	reason string
}{
	{claim.ErrInsufficientPayment, "insufficient_payment"},
	{claim.ErrClaimAlreadyExists, "claim_already_exists"},
	{claim.ErrNoPendingClaim, "no_pending_claim"},
	{claim.ErrStillInChallengePeriod, "still_in_challenge_period"},
	{claim.ErrNotOwner, "not_owner"},
	{claim.ErrNoActiveClaim, "no_active_claim"},
	{claim.ErrNoActiveInfringedClaim, "no_active_infringed_claim"},
	{claim.ErrInvalidOrdering, "invalid_ordering"},
	{claim.ErrTooManyDiffEntries, "too_many_diff_entries"},
	{claim.ErrDoesNotProveInfringement, "does_not_prove_infringement"},
	{claim.ErrDurationOverflow, "duration_overflow"},
	{claim.ErrEditBufferTooLarge, "edit_buffer_too_large"},
}

// Reason returns the wire identifier for a registry rejection, or "" when
// the error is not part of the taxonomy.
func Reason(err error) string {
	for _, entry := range reasons {
		if errors.Is(err, entry.err) {
			return entry.reason
		}
	}
	return ""
}

// ReasonError resolves a wire identifier back to its sentinel, for clients.
func ReasonError(reason string) error {
	for _, entry := range reasons {
		if entry.reason == reason {
			return entry.err
		}
	}
	return nil
}
