package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/retro-tactics/api/internal/model"
	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

// WSEvent mirrors handler.WSEvent for client-side deserialization.
type WSEvent struct {
	Type   string          `json:"type"`
	GameID string          `json:"game_id"`
	Data   json.RawMessage `json:"data"`
}

// RemoteGame is the server's view of one game.
type RemoteGame struct {
	Game      model.Game         `json:"game"`
	State     *tactics.GameState `json:"state"`
	BoardSize int                `json:"board_size"`
}

// RemoteTurn is the server's answer to a move or attack.
type RemoteTurn struct {
	TurnReport
	State        *tactics.GameState `json:"state"`
	Status       model.GameStatus   `json:"status"`
	ReplyDelayMs int64              `json:"reply_delay_ms"`
}

// Client is an HTTP+WebSocket client for a single bot player.
type Client struct {
	name     string
	baseURL  string
	token    string
	userID   string
	wsConn   *websocket.Conn
	events   chan WSEvent
	httpC    *http.Client
	mu       sync.Mutex
	closedWS bool
}

// NewClient creates a new bot client targeting the given server URL.
func NewClient(name, baseURL string) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		events:  make(chan WSEvent, 64),
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the bot name.
func (c *Client) Name() string { return c.name }

// UserID returns the bot's user ID after login.
func (c *Client) UserID() string { return c.userID }

// Login authenticates via the dev login endpoint.
func (c *Client) Login(ctx context.Context) error {
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/dev?name="+url.QueryEscape(c.name), nil, &tokens); err != nil {
		return fmt.Errorf("dev login: %w", err)
	}
	c.token = tokens.AccessToken

	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, &user); err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	c.userID = user.ID
	log.Debug().Str("bot", c.name).Str("userId", c.userID).Msg("Bot logged in")
	return nil
}

// CreateGame starts a new game owned by the bot.
func (c *Client) CreateGame(ctx context.Context) (*RemoteGame, error) {
	var g RemoteGame
	if err := c.do(ctx, http.MethodPost, "/api/v1/games", nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGame fetches a game and its live state.
func (c *Client) GetGame(ctx context.Context, gameID string) (*RemoteGame, error) {
	var g RemoteGame
	if err := c.do(ctx, http.MethodGet, "/api/v1/games/"+gameID, nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Act submits a move or attack for the allied side.
func (c *Client) Act(ctx context.Context, gameID string, a tactics.Action) (*RemoteTurn, error) {
	var verb string
	switch a.Kind {
	case tactics.ActionMove:
		verb = "move"
	case tactics.ActionAttack:
		verb = "attack"
	default:
		return nil, fmt.Errorf("%w %q", tactics.ErrUnknownAction, a.Kind)
	}
	body := map[string]int{"from": a.From, "to": a.To}
	var turn RemoteTurn
	if err := c.do(ctx, http.MethodPost, "/api/v1/games/"+gameID+"/"+verb, body, &turn); err != nil {
		return nil, err
	}
	return &turn, nil
}

// Retire ends the game and books its score.
func (c *Client) Retire(ctx context.Context, gameID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/games/"+gameID+"/retire", nil, nil)
}

// ConnectWS opens a WebSocket connection and starts listening for events.
func (c *Client) ConnectWS(ctx context.Context) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/ws?token=" + url.QueryEscape(c.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.wsConn = conn

	go c.readWSLoop()
	return nil
}

// SubscribeGame sends a subscribe message for the given game.
func (c *Client) SubscribeGame(gameID string) error {
	msg := map[string]string{"action": "subscribe", "game_id": gameID}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsConn.WriteJSON(msg)
}

// Events returns the channel of incoming WebSocket events.
func (c *Client) Events() <-chan WSEvent { return c.events }

// CloseWS closes the WebSocket connection.
func (c *Client) CloseWS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}

func (c *Client) readWSLoop() {
	defer close(c.events)
	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closedWS
			c.mu.Unlock()
			if !closed {
				log.Debug().Err(err).Str("bot", c.name).Msg("WS read error")
			}
			return
		}
		var event WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}
		select {
		case c.events <- event:
		default:
			log.Debug().Str("bot", c.name).Str("type", event.Type).Msg("Dropping WS event")
		}
	}
}

// do sends a request and decodes the JSON response into out when out is
// non-nil. Responses with status 400 and above become errors.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if method == http.MethodPost {
		data := []byte("{}")
		if payload != nil {
			var err error
			if data, err = json.Marshal(payload); err != nil {
				return err
			}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
