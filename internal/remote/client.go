package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	logx "mimicbot/pkg/logx"
)

const (
	defaultTimeout = 10 * time.Second
	defaultPort    = 3000

	// maxResponseBytes caps how much of a response we read. Member info and
	// group lists are small; anything bigger is a misbehaving endpoint.
	maxResponseBytes = 1 << 20
)

// Config points the client at the group-management API.
type Config struct {
	Address string
	Port    int
	Timeout time.Duration // per call; default 10s

	// RatePerSec throttles outbound calls; 0 disables throttling.
	RatePerSec int
}

// Client speaks the Napcat-compatible HTTP/JSON protocol: every operation is
// a POST of a JSON body to /<action>, answered with a JSON envelope.
type Client struct {
	base    string
	httpc   *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	var lim *rate.Limiter
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return &Client{
		base:    fmt.Sprintf("http://%s:%d", strings.TrimSpace(cfg.Address), port),
		httpc:   &http.Client{},
		timeout: timeout,
		limiter: lim,
		log:     log,
	}
}

// BaseURL returns the HTTP endpoint the client talks to.
func (c *Client) BaseURL() string { return c.base }

type envelope struct {
	Status  string          `json:"status"`
	Retcode int             `json:"retcode"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) post(ctx context.Context, action string, payload any) (*envelope, *CallError) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &CallError{Kind: FailNetwork, Action: action, Err: err}
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &CallError{Kind: FailNetwork, Action: action, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+action, bytes.NewReader(body))
	if err != nil {
		return nil, &CallError{Kind: FailNetwork, Action: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &CallError{Kind: FailNetwork, Action: action, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &CallError{Kind: FailNetwork, Action: action, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CallError{Kind: FailNetwork, Action: action, Err: fmt.Errorf("http status %d", resp.StatusCode)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &CallError{Kind: FailDecode, Action: action, Err: err}
	}
	return &env, nil
}

// Poke sends a group poke to the user. Only transport-level failures are
// reported; the API acks pokes without a meaningful status.
func (c *Client) Poke(ctx context.Context, groupID, userID string) error {
	payload := map[string]any{"group_id": groupID, "user_id": userID}
	if _, cerr := c.post(ctx, "group_poke", payload); cerr != nil {
		return cerr
	}
	return nil
}

// SetCard sets a member's per-group display card. A non-"ok" body status is
// a failure.
func (c *Client) SetCard(ctx context.Context, groupID, userID, card string) error {
	payload := map[string]any{"group_id": groupID, "user_id": userID, "card": card}
	env, cerr := c.post(ctx, "set_group_card", payload)
	if cerr != nil {
		return cerr
	}
	if env.Status != "ok" {
		return &CallError{Kind: FailStatus, Action: "set_group_card", Message: env.Message}
	}
	return nil
}

// flexID accepts both numeric and string identifiers; the API emits numbers,
// but some gateways re-encode them as strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type memberWire struct {
	UserID   flexID `json:"user_id"`
	Card     string `json:"card"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

// MemberInfo fetches a member's current card, nickname and role, bypassing
// the server-side cache. An absent data payload is a failure.
func (c *Client) MemberInfo(ctx context.Context, groupID, userID string) (MemberInfo, error) {
	payload := map[string]any{"group_id": groupID, "user_id": userID, "no_cache": true}
	env, cerr := c.post(ctx, "get_group_member_info", payload)
	if cerr != nil {
		return MemberInfo{}, cerr
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return MemberInfo{}, &CallError{Kind: FailEmpty, Action: "get_group_member_info"}
	}
	var w memberWire
	if err := json.Unmarshal(env.Data, &w); err != nil {
		return MemberInfo{}, &CallError{Kind: FailDecode, Action: "get_group_member_info", Err: err}
	}
	return MemberInfo{
		UserID:   string(w.UserID),
		Card:     w.Card,
		Nickname: w.Nickname,
		Role:     w.Role,
	}, nil
}

type groupWire struct {
	GroupID   flexID `json:"group_id"`
	GroupName string `json:"group_name"`
}

// Groups lists all groups the bot is a member of. Used as the directory for
// spawning per-group loops.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	env, cerr := c.post(ctx, "get_group_list", map[string]any{})
	if cerr != nil {
		return nil, cerr
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &CallError{Kind: FailEmpty, Action: "get_group_list"}
	}
	var ws []groupWire
	if err := json.Unmarshal(env.Data, &ws); err != nil {
		return nil, &CallError{Kind: FailDecode, Action: "get_group_list", Err: err}
	}
	out := make([]Group, 0, len(ws))
	for _, w := range ws {
		out = append(out, Group{GroupID: string(w.GroupID), GroupName: w.GroupName})
	}
	return out, nil
}
