package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const sampleRate = 16000

// turnMessage is the incremental transcript frame sent by the streaming
// transcription backend.
type turnMessage struct {
	Type       string `json:"type"`
	TurnOrder  int    `json:"turn_order"`
	Transcript string `json:"transcript"`
}

// RealtimeChannel streams audio to a websocket transcription backend and
// delivers keyed turn transcripts to a Listener.
type RealtimeChannel struct {
	baseURL string
	tokens  TokenSource

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewRealtimeChannel(baseURL string, tokens TokenSource) *RealtimeChannel {
	return &RealtimeChannel{baseURL: baseURL, tokens: tokens}
}

// Open obtains a streaming token, dials the backend, and starts the read
// loop. A token failure is surfaced as ErrNoToken so the caller can treat it
// as an unrecoverable environment failure.
func (c *RealtimeChannel) Open(ctx context.Context, listener Listener) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoToken, err)
	}

	wsURL := fmt.Sprintf("%s?sample_rate=%d&formatted_finals=true&token=%s",
		c.baseURL, sampleRate, url.QueryEscape(token))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("speech: dial stream: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.closed = false
	c.mu.Unlock()

	go c.readLoop(conn, listener)
	return nil
}

func (c *RealtimeChannel) readLoop(conn *websocket.Conn, listener Listener) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			wasClosed := c.closed
			c.mu.Unlock()
			if !wasClosed {
				listener.OnError(err)
			}
			return
		}

		var msg turnMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "Turn" {
			listener.OnFragment(msg.TurnOrder, msg.Transcript)
		}
	}
}

// SendAudio forwards one chunk of raw PCM audio to the backend.
func (c *RealtimeChannel) SendAudio(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()

	if conn == nil || closed {
		return fmt.Errorf("speech: channel not open")
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close sends the terminate signal and tears the connection down. The
// connection must be fully released before any reasoning call begins.
func (c *RealtimeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.closed {
		return nil
	}
	c.closed = true

	// best effort: tell the backend we are done before closing
	terminate, _ := json.Marshal(map[string]string{"type": "Terminate"})
	_ = c.conn.WriteMessage(websocket.TextMessage, terminate)

	err := c.conn.Close()
	c.conn = nil
	return err
}

// HTTPTokenSource fetches short-lived streaming tokens from the provider's
// token endpoint using the long-lived API key.
type HTTPTokenSource struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func (s *HTTPTokenSource) Token(ctx context.Context) (string, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", s.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Token == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}
	return body.Token, nil
}
