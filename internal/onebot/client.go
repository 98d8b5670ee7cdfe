// Package onebot is a OneBot v11 websocket client: the warden's connection
// to the chat platform. Inbound frames carrying a post_type are platform
// events and are handed to a dispatch callback; frames carrying an echo are
// API responses matched to pending calls on the same socket.
package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxFrameSize     = 1 << 20
	reconnectBackoff = time.Second
	maxBackoff       = 30 * time.Second
)

// ErrNotConnected is returned by API calls while the socket is down.
var ErrNotConnected = errors.New("onebot: not connected")

// Client is a OneBot v11 client speaking the websocket API.
type Client struct {
	url         string
	accessToken string
	callTimeout time.Duration
	logger      *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	pending sync.Map // echo string -> chan apiResponse
}

type apiRequest struct {
	Action string `json:"action"`
	Params any    `json:"params,omitempty"`
	Echo   string `json:"echo"`
}

type apiResponse struct {
	Status  string          `json:"status"`
	Retcode int             `json:"retcode"`
	Data    json.RawMessage `json:"data"`
	Echo    string          `json:"echo"`
}

// New creates a Client for the given websocket endpoint.
func New(url, accessToken string, callTimeout time.Duration, logger *zap.Logger) *Client {
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	return &Client{
		url:         url,
		accessToken: accessToken,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Run connects to the platform and reads frames until ctx is canceled,
// reconnecting with capped backoff after failures. Every event frame is
// passed to dispatch.
func (c *Client) Run(ctx context.Context, dispatch func([]byte)) error {
	backoff := reconnectBackoff
	for {
		err := c.runOnce(ctx, dispatch)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("onebot connection lost, reconnecting",
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *Client) runOnce(ctx context.Context, dispatch func([]byte)) error {
	opts := &websocket.DialOptions{}
	if c.accessToken != "" {
		opts.HTTPHeader = http.Header{
			"Authorization": []string{"Bearer " + c.accessToken},
		}
	}

	conn, _, err := websocket.Dial(ctx, c.url, opts)
	if err != nil {
		return fmt.Errorf("onebot dial: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.logger.Info("onebot connected", zap.String("url", c.url))

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("onebot read: %w", err)
		}
		c.route(data, dispatch)
	}
}

// route classifies one inbound frame. API responses carry an echo and no
// post_type; everything else goes to the event dispatcher.
func (c *Client) route(data []byte, dispatch func([]byte)) {
	var head struct {
		PostType string `json:"post_type"`
		Echo     string `json:"echo"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		c.logger.Debug("onebot frame is not a JSON object, dropping")
		return
	}

	if head.PostType == "" && head.Echo != "" {
		var resp apiResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			c.logger.Warn("onebot malformed api response", zap.Error(err))
			return
		}
		if ch, ok := c.pending.Load(head.Echo); ok {
			// Buffered to 1; a duplicate response for the same echo is
			// discarded instead of blocking the read loop.
			select {
			case ch.(chan apiResponse) <- resp:
			default:
			}
		}
		return
	}

	dispatch(data)
}

// call performs one API action and waits for its echoed response.
func (c *Client) call(ctx context.Context, action string, params any) (json.RawMessage, error) {
	echo := uuid.New().String()
	ch := make(chan apiResponse, 1)
	c.pending.Store(echo, ch)
	defer c.pending.Delete(echo)

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	if err := c.write(ctx, apiRequest{Action: action, Params: params, Echo: echo}); err != nil {
		return nil, fmt.Errorf("onebot %s: %w", action, err)
	}

	select {
	case resp := <-ch:
		if resp.Retcode != 0 {
			return nil, fmt.Errorf("onebot %s: retcode %d (%s)", action, resp.Retcode, resp.Status)
		}
		return resp.Data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("onebot %s: %w", action, ctx.Err())
	}
}

func (c *Client) write(ctx context.Context, v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, v)
}

// Level is an account level. Platform implementations disagree on whether
// it is serialized as a number or a numeric string, so it unmarshals both.
type Level int

func (l *Level) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*l = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("onebot: bad level %q: %w", s, err)
	}
	*l = Level(n)
	return nil
}

// StrangerInfo is the platform's view of an account.
type StrangerInfo struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Level    Level  `json:"level"`
}

// GetStrangerInfo fetches account info for a user.
func (c *Client) GetStrangerInfo(ctx context.Context, userID int64) (StrangerInfo, error) {
	data, err := c.call(ctx, "get_stranger_info", map[string]any{"user_id": userID})
	if err != nil {
		return StrangerInfo{}, err
	}
	var info StrangerInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return StrangerInfo{}, fmt.Errorf("onebot get_stranger_info: %w", err)
	}
	return info, nil
}

// AccountLevel fetches just the account level for a user.
func (c *Client) AccountLevel(ctx context.Context, userID int64) (int, error) {
	info, err := c.GetStrangerInfo(ctx, userID)
	if err != nil {
		return 0, err
	}
	return int(info.Level), nil
}

// SetGroupAddRequest answers a pending join request.
func (c *Client) SetGroupAddRequest(ctx context.Context, flag, subType string, approve bool, reason string) error {
	params := map[string]any{
		"flag":     flag,
		"sub_type": subType,
		"approve":  approve,
	}
	if reason != "" {
		params["reason"] = reason
	}
	_, err := c.call(ctx, "set_group_add_request", params)
	return err
}

// SendGroupMsg sends a plain-text message into a group.
func (c *Client) SendGroupMsg(ctx context.Context, groupID int64, text string) error {
	_, err := c.call(ctx, "send_group_msg", map[string]any{
		"group_id": groupID,
		"message":  text,
	})
	return err
}
