// Package transport exposes the registry as a fixed, closed set of typed
// JSON-RPC operations plus a websocket event stream, and provides the
// client used by mirrors to consume both.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/claim"
	"github.com/go-chi/chi/v5"
)

// Method names of the registry call surface. Dispatch is a closed set;
// there is no generic named-call forwarding.
const (
	MethodSubmitClaim    = "submitClaim"
	MethodRetractClaim   = "retractClaim"
	MethodAcceptClaim    = "acceptClaim"
	MethodChallengeClaim = "challengeClaim"
	MethodExtendDuration = "extendClaimDuration"
	MethodGetClaim       = "getClaim"
	MethodGetClaimCost   = "getClaimCost"
	MethodGetDiffIndices = "getDiffIndices"
	MethodListClaims     = "listClaims"
	MethodGetEvents      = "getEvents"
	MethodGetParams      = "getParams"
)

// Server dispatches JSON-RPC requests to the registry.
type Server struct {
	registry *claim.Registry
	logger   *slog.Logger
}

// NewServer wires the HTTP router: JSON-RPC at /rpc, the event stream at
// /ws and a health check.
func NewServer(registry *claim.Registry, hub *Hub, resolver AccountResolver, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(resolver))

	srv := &Server{registry: registry, logger: logger}
	r.Post("/rpc", srv.handleRPC)
	r.Get("/ws", hub.HandleUpgrade)
	r.Get("/health", srv.handleHealth)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		WriteError(w, nil, ErrInvalidReq, "invalid request", nil)
		return
	}

	result, err := s.dispatch(r.Context(), req.Method, req.Params)
	switch {
	case errors.Is(err, ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case err != nil:
		if reason := Reason(err); reason != "" {
			WriteError(w, req.ID, ErrRegistry, err.Error(), map[string]string{"reason": reason})
			return
		}
		var badParams *paramError
		if errors.As(err, &badParams) {
			WriteError(w, req.ID, ErrInvalidParams, err.Error(), nil)
			return
		}
		if errors.Is(err, errMethodNotFound) {
			WriteError(w, req.ID, ErrMethodNotFound, err.Error(), nil)
			return
		}
		s.logger.Error("rpc call failed", "method", req.Method, "error", err)
		WriteError(w, req.ID, ErrInternal, err.Error(), nil)
	default:
		WriteResult(w, req.ID, result)
	}
}

var errMethodNotFound = errors.New("method not found")

type paramError struct{ err error }

func (e *paramError) Error() string { return "invalid params: " + e.err.Error() }
func (e *paramError) Unwrap() error { return e.err }

// SubmitParams are the arguments of submitClaim.
type SubmitParams struct {
	TokenID    canvas.Token `json:"token_id"`
	Duration   uint16       `json:"duration"`
	EditBuffer uint8        `json:"edit_buffer"`
	Style      canvas.Style `json:"style"`
	Payment    uint64       `json:"payment"`
}

// TokenParams name a single token.
type TokenParams struct {
	TokenID canvas.Token `json:"token_id"`
}

// ChallengeParams are the arguments of challengeClaim.
type ChallengeParams struct {
	ChallengedTokenID canvas.Token `json:"challenged_token_id"`
	InfringedTokenID  canvas.Token `json:"infringed_token_id"`
	DiffIndices       []byte       `json:"diff_indices"`
}

// ExtendParams are the arguments of extendClaimDuration.
type ExtendParams struct {
	TokenID   canvas.Token `json:"token_id"`
	Extension uint16       `json:"extension"`
	Payment   uint64       `json:"payment"`
}

// CostParams are the arguments of getClaimCost.
type CostParams struct {
	Duration   uint16 `json:"duration"`
	EditBuffer uint8  `json:"edit_buffer"`
}

// DiffParams are the arguments of getDiffIndices.
type DiffParams struct {
	TokenID1 canvas.Token `json:"token_id_1"`
	TokenID2 canvas.Token `json:"token_id_2"`
}

// EventsParams are the arguments of getEvents.
type EventsParams struct {
	FromBlock uint64 `json:"from_block"`
}

// ClaimResult carries a claim and its display style.
type ClaimResult struct {
	Claim claim.Claim  `json:"claim"`
	Style canvas.Style `json:"style"`
}

// AmountResult carries a single payment amount.
type AmountResult struct {
	Amount uint64 `json:"amount"`
}

// DiffResult carries a diff-index proof list.
type DiffResult struct {
	DiffIndices []byte `json:"diff_indices"`
}

func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case MethodSubmitClaim:
		var p SubmitParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		account, err := requireAccount(ctx)
		if err != nil {
			return nil, err
		}
		c, err := s.registry.Submit(ctx, claim.SubmitRequest{
			Account:    account,
			TokenID:    p.TokenID,
			Duration:   p.Duration,
			EditBuffer: p.EditBuffer,
			Style:      p.Style,
			Payment:    p.Payment,
		})
		if err != nil {
			return nil, err
		}
		return ClaimResult{Claim: *c, Style: p.Style}, nil

	case MethodRetractClaim:
		var p TokenParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		account, err := requireAccount(ctx)
		if err != nil {
			return nil, err
		}
		refund, err := s.registry.Retract(ctx, account, p.TokenID)
		if err != nil {
			return nil, err
		}
		return AmountResult{Amount: refund}, nil

	case MethodAcceptClaim:
		var p TokenParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if _, err := requireAccount(ctx); err != nil {
			return nil, err
		}
		c, err := s.registry.Accept(ctx, p.TokenID)
		if err != nil {
			return nil, err
		}
		return ClaimResult{Claim: *c}, nil

	case MethodChallengeClaim:
		var p ChallengeParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		account, err := requireAccount(ctx)
		if err != nil {
			return nil, err
		}
		reward, err := s.registry.Challenge(ctx, account, p.ChallengedTokenID, p.InfringedTokenID, p.DiffIndices)
		if err != nil {
			return nil, err
		}
		return AmountResult{Amount: reward}, nil

	case MethodExtendDuration:
		var p ExtendParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		account, err := requireAccount(ctx)
		if err != nil {
			return nil, err
		}
		c, err := s.registry.ExtendDuration(ctx, account, p.TokenID, p.Extension, p.Payment)
		if err != nil {
			return nil, err
		}
		return ClaimResult{Claim: *c}, nil

	case MethodGetClaim:
		var p TokenParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		c, style, err := s.registry.GetClaim(ctx, p.TokenID)
		if err != nil {
			return nil, err
		}
		return ClaimResult{Claim: *c, Style: style}, nil

	case MethodGetClaimCost:
		var p CostParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return AmountResult{Amount: s.registry.Cost(p.Duration, p.EditBuffer)}, nil

	case MethodGetDiffIndices:
		var p DiffParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return DiffResult{DiffIndices: s.registry.DiffIndices(p.TokenID1, p.TokenID2)}, nil

	case MethodListClaims:
		claims, err := s.registry.ListClaims(ctx)
		if err != nil {
			return nil, err
		}
		return claims, nil

	case MethodGetEvents:
		var p EventsParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		events, err := s.registry.EventsFrom(ctx, p.FromBlock)
		if err != nil {
			return nil, err
		}
		return events, nil

	case MethodGetParams:
		return s.registry.Params(), nil
	}
	return nil, errMethodNotFound
}

func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &paramError{err: err}
	}
	return nil
}

func requireAccount(ctx context.Context) (string, error) {
	account, ok := AccountFromContext(ctx)
	if !ok || account == "" {
		return "", ErrUnauthorized
	}
	return account, nil
}
