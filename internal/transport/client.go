package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/claim"
	"github.com/gorilla/websocket"
)

// Client calls the registry over JSON-RPC and subscribes to its event
// stream over websocket. It satisfies mirror.Source and is safe for
// concurrent use: user-initiated calls run alongside the mirror's
// lookups. Calls are fire-and-forget from the mirror's point of view:
// the authoritative map reflects a request only once the corresponding
// event is observed.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
	nextID  atomic.Int64
}

// NewClient creates a client for a registry at baseURL (http or https).
// token, if non-empty, authenticates mutating calls.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    http.DefaultClient,
		dialer:  websocket.DefaultDialer,
	}
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	id := c.nextID.Add(1)
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	body, err := json.Marshal(Request{JSONRPC: "2.0", Method: method, Params: rawParams, ID: id})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calling %s: status %d", method, resp.StatusCode)
	}

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		if data, ok := rpcResp.Error.Data.(map[string]any); ok {
			if reason, ok := data["reason"].(string); ok {
				if sentinel := ReasonError(reason); sentinel != nil {
					return sentinel
				}
			}
		}
		return fmt.Errorf("%s: %s", method, rpcResp.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// Submit submits a claim.
func (c *Client) Submit(ctx context.Context, p SubmitParams) (*claim.Claim, error) {
	var result ClaimResult
	if err := c.call(ctx, MethodSubmitClaim, p, &result); err != nil {
		return nil, err
	}
	return &result.Claim, nil
}

// Retract retracts a claim, returning the refund.
func (c *Client) Retract(ctx context.Context, token canvas.Token) (uint64, error) {
	var result AmountResult
	if err := c.call(ctx, MethodRetractClaim, TokenParams{TokenID: token}, &result); err != nil {
		return 0, err
	}
	return result.Amount, nil
}

// Accept accepts a pending claim.
func (c *Client) Accept(ctx context.Context, token canvas.Token) (*claim.Claim, error) {
	var result ClaimResult
	if err := c.call(ctx, MethodAcceptClaim, TokenParams{TokenID: token}, &result); err != nil {
		return nil, err
	}
	return &result.Claim, nil
}

// Challenge submits an infringement proof, returning the reward.
func (c *Client) Challenge(ctx context.Context, p ChallengeParams) (uint64, error) {
	var result AmountResult
	if err := c.call(ctx, MethodChallengeClaim, p, &result); err != nil {
		return 0, err
	}
	return result.Amount, nil
}

// ExtendDuration extends an active claim.
func (c *Client) ExtendDuration(ctx context.Context, p ExtendParams) (*claim.Claim, error) {
	var result ClaimResult
	if err := c.call(ctx, MethodExtendDuration, p, &result); err != nil {
		return nil, err
	}
	return &result.Claim, nil
}

// Cost returns the registry's price for a claim shape.
func (c *Client) Cost(ctx context.Context, duration uint16, editBuffer uint8) (uint64, error) {
	var result AmountResult
	if err := c.call(ctx, MethodGetClaimCost, CostParams{Duration: duration, EditBuffer: editBuffer}, &result); err != nil {
		return 0, err
	}
	return result.Amount, nil
}

// DiffIndices returns the proof list for two tokens.
func (c *Client) DiffIndices(ctx context.Context, a, b canvas.Token) ([]byte, error) {
	var result DiffResult
	if err := c.call(ctx, MethodGetDiffIndices, DiffParams{TokenID1: a, TokenID2: b}, &result); err != nil {
		return nil, err
	}
	return result.DiffIndices, nil
}

// Params fetches the registry's configuration constants, read once per
// session.
func (c *Client) Params(ctx context.Context) (claim.Params, error) {
	var params claim.Params
	if err := c.call(ctx, MethodGetParams, struct{}{}, &params); err != nil {
		return claim.Params{}, err
	}
	return params, nil
}

// Claim implements mirror.Source.
func (c *Client) Claim(ctx context.Context, token canvas.Token) (*claim.Claim, canvas.Style, error) {
	var result ClaimResult
	if err := c.call(ctx, MethodGetClaim, TokenParams{TokenID: token}, &result); err != nil {
		return nil, canvas.Style{}, err
	}
	return &result.Claim, result.Style, nil
}

// Events implements mirror.Source.
func (c *Client) Events(ctx context.Context, fromBlock uint64) ([]claim.Event, error) {
	var events []claim.Event
	if err := c.call(ctx, MethodGetEvents, EventsParams{FromBlock: fromBlock}, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Subscribe implements mirror.Source, dialing the websocket event stream.
func (c *Client) Subscribe(ctx context.Context) (<-chan claim.Event, func(), error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws"
	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing event stream: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	events := make(chan claim.Event, 64)
	go func() {
		defer close(events)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if err := json.Unmarshal(payload, &env); err != nil {
				continue
			}
			select {
			case events <- env.Event:
			case <-ctx.Done():
				return
			}
		}
	}()
	cancel := func() { _ = conn.Close() }
	return events, cancel, nil
}
