// Package events subscribes to the remote API's WebSocket event stream and
// records group messages into the history store, which is what the activity
// ranker counts. Without the feed, every group ranks empty and the swap
// loops have nothing to do.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/coder/websocket"

	"mimicbot/internal/history"
	logx "mimicbot/pkg/logx"
)

type Config struct {
	// URL of the event stream, e.g. "ws://napcat:3000".
	URL string

	// BotAccountID marks the bot's own messages so ranking can exclude them.
	BotAccountID string

	// CommandPrefixes mark command messages. Default: "/".
	CommandPrefixes []string
}

type Listener struct {
	cfg  Config
	repo history.Repo
	log  logx.Logger
}

func New(cfg Config, repo history.Repo, log logx.Logger) *Listener {
	if log.IsZero() {
		log = logx.Nop()
	}
	if len(cfg.CommandPrefixes) == 0 {
		cfg.CommandPrefixes = []string{"/"}
	}
	return &Listener{cfg: cfg, repo: repo, log: log}
}

// Run connects and consumes events until the connection breaks or ctx is
// canceled. It returns the connection error so the supervisor's restart
// loop handles reconnect backoff.
func (l *Listener) Run(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, l.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Message events carry the raw message text; allow generous frames.
	conn.SetReadLimit(1 << 20)

	l.log.Info("event feed connected", logx.String("url", l.cfg.URL))

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		l.handle(ctx, data)
	}
}

// wireEvent is the subset of the event envelope we care about. Identifiers
// arrive as JSON numbers.
type wireEvent struct {
	PostType    string      `json:"post_type"`
	MessageType string      `json:"message_type"`
	GroupID     json.Number `json:"group_id"`
	UserID      json.Number `json:"user_id"`
	SelfID      json.Number `json:"self_id"`
	Time        int64       `json:"time"`
	RawMessage  string      `json:"raw_message"`
}

func (l *Listener) handle(ctx context.Context, data []byte) {
	var ev wireEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		l.log.Debug("event decode failed; skipping", logx.Err(err))
		return
	}
	if ev.PostType != "message" || ev.MessageType != "group" {
		return
	}
	userID := ev.UserID.String()
	if userID == "" || ev.GroupID.String() == "" {
		return
	}

	sentAt := time.Unix(ev.Time, 0)
	if ev.Time == 0 {
		sentAt = time.Now()
	}

	msg := history.Message{
		ChatID:    ev.GroupID.String(),
		UserID:    userID,
		SentAt:    sentAt,
		IsBot:     userID == l.cfg.BotAccountID || userID == ev.SelfID.String(),
		IsCommand: l.isCommand(ev.RawMessage),
	}
	if err := l.repo.Record(ctx, msg); err != nil {
		l.log.Warn("message record failed", logx.String("chat", msg.ChatID), logx.Err(err))
	}
}

func (l *Listener) isCommand(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	for _, p := range l.cfg.CommandPrefixes {
		if p != "" && strings.HasPrefix(raw, p) {
			return true
		}
	}
	return false
}
