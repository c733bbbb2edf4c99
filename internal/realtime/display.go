// Package realtime pushes status snapshots and announcement commands to the
// public display screens over websocket.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"backend-booking/internal/announce"
	"backend-booking/internal/models"
)

const (
	pingInterval    = 20 * time.Second
	readTimeout     = 60 * time.Second
	writeTimeout    = 3 * time.Second
	staleAfter      = 90 * time.Second
	cleanupInterval = 30 * time.Second
	maxWorkers      = 20
)

// Conn is the part of *websocket.Conn the hub uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

/*
|--------------------------------------------------------------------------
| Wire Messages
|--------------------------------------------------------------------------
*/

const (
	TypeSnapshot = "snapshot"
	TypeTone     = "tone"
	TypeSpeak    = "speak"
	TypeCancel   = "cancel"
	TypeAck      = "ack"
	TypeError    = "error"
)

type outbound struct {
	Type      string                 `json:"type"`
	ID        string                 `json:"id,omitempty"`
	Data      *models.StatusSnapshot `json:"data,omitempty"`
	Path      string                 `json:"path,omitempty"`
	Text      string                 `json:"text,omitempty"`
	Locale    string                 `json:"locale,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

type inbound struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Error string `json:"error"`
}

/*
|--------------------------------------------------------------------------
| Client Registry
|--------------------------------------------------------------------------
*/

type client struct {
	id        string
	conn      Conn
	writeMux  sync.Mutex
	closeChan chan struct{}
	closed    bool
	lastPong  time.Time
}

type DisplayHub struct {
	tonePath   string
	ackTimeout time.Duration
	log        zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*client

	lastMsgMu sync.RWMutex
	lastMsg   []byte

	pendingMu sync.Mutex
	pending   map[string]chan inbound
}

func NewDisplayHub(tonePath string) *DisplayHub {
	return &DisplayHub{
		tonePath: tonePath,
		log:      log.With().Str("component", "display").Logger(),
		clients:  make(map[string]*client),
		pending:  make(map[string]chan inbound),
	}
}

// SetAckTimeout bounds how long one stage command waits for display replies.
// Zero leaves only the caller's context as the bound.
func (h *DisplayHub) SetAckTimeout(d time.Duration) {
	h.ackTimeout = d
}

func (h *DisplayHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve runs one display connection until it closes.
func (h *DisplayHub) Serve(conn Conn) {
	c := &client{
		id:        uuid.NewString(),
		conn:      conn,
		closeChan: make(chan struct{}),
		lastPong:  time.Now(),
	}

	h.register(c)
	defer h.unregister(c)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		c.writeMux.Lock()
		c.lastPong = time.Now()
		c.writeMux.Unlock()
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure,
			) {
				h.log.Warn().Err(err).Str("client_id", c.id).Msg("unexpected close")
			}
			return
		}
		h.handleInbound(c, data)
	}
}

// register adds c and sends it the cached snapshot. Holding the cache lock
// keeps a concurrent PublishSnapshot from overtaking the cached message.
func (h *DisplayHub) register(c *client) {
	h.lastMsgMu.RLock()
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()
	if len(h.lastMsg) > 0 {
		h.write(c, h.lastMsg)
	}
	h.lastMsgMu.RUnlock()

	h.log.Info().Str("client_id", c.id).Int("total", total).Msg("display connected")
}

func (h *DisplayHub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	total := len(h.clients)
	h.mu.Unlock()

	h.markClosed(c)
	_ = c.conn.Close()
	h.log.Info().Str("client_id", c.id).Int("total", total).Msg("display disconnected")
}

func (h *DisplayHub) markClosed(c *client) {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closeChan)
	}
}

func (h *DisplayHub) pingLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMux.Lock()
			if c.closed {
				c.writeMux.Unlock()
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMux.Unlock()
			if err != nil {
				h.log.Warn().Err(err).Str("client_id", c.id).Msg("ping failed")
				return
			}
		case <-c.closeChan:
			return
		}
	}
}

// Run drops displays that stopped answering pings until ctx is done.
func (h *DisplayHub) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.cleanup(now)
		}
	}
}

func (h *DisplayHub) cleanup(now time.Time) int {
	var stale []*client

	h.mu.RLock()
	for _, c := range h.clients {
		c.writeMux.Lock()
		if now.Sub(c.lastPong) > staleAfter {
			stale = append(stale, c)
		}
		c.writeMux.Unlock()
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.log.Warn().Str("client_id", c.id).Msg("display stale, removing")
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		h.markClosed(c)
		_ = c.conn.Close()
	}
	return len(stale)
}

/*
|--------------------------------------------------------------------------
| Broadcast
|--------------------------------------------------------------------------
*/

// PublishSnapshot sends snap to every display and caches it for displays
// that connect later. Unchanged snapshots are not re-sent.
func (h *DisplayHub) PublishSnapshot(snap models.StatusSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal snapshot")
		return
	}

	h.lastMsgMu.Lock()
	if prev := h.lastMsg; len(prev) > 0 && sameSnapshot(prev, data) {
		h.lastMsgMu.Unlock()
		return
	}
	msg, err := json.Marshal(outbound{
		Type:      TypeSnapshot,
		Data:      &snap,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		h.lastMsgMu.Unlock()
		h.log.Error().Err(err).Msg("marshal snapshot message")
		return
	}
	h.lastMsg = msg
	clients := h.clientList()
	h.lastMsgMu.Unlock()

	h.broadcastTo(clients, msg)
}

// sameSnapshot compares the data section of a cached message with a freshly
// marshalled snapshot.
func sameSnapshot(cachedMsg, snapJSON []byte) bool {
	var cached struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(cachedMsg, &cached); err != nil {
		return false
	}
	return string(cached.Data) == string(snapJSON)
}

func (h *DisplayHub) clientList() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *DisplayHub) broadcast(msg []byte) int {
	return h.broadcastTo(h.clientList(), msg)
}

// broadcastTo writes msg to clients through a bounded worker pool and
// returns how many writes succeeded.
func (h *DisplayHub) broadcastTo(clients []*client, msg []byte) int {
	if len(clients) == 0 {
		return 0
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)
	sem := make(chan struct{}, maxWorkers)

	for _, c := range clients {
		wg.Add(1)
		sem <- struct{}{}
		go func(c *client) {
			defer wg.Done()
			defer func() { <-sem }()
			if h.write(c, msg) {
				mu.Lock()
				sent++
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()
	return sent
}

func (h *DisplayHub) write(c *client, msg []byte) bool {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()

	if c.closed {
		return false
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		h.log.Warn().Err(err).Str("client_id", c.id).Msg("write failed, dropping display")
		c.closed = true
		close(c.closeChan)

		go func() {
			h.mu.Lock()
			delete(h.clients, c.id)
			h.mu.Unlock()
			_ = c.conn.Close()
		}()
		return false
	}
	return true
}

/*
|--------------------------------------------------------------------------
| Announcement Backend
|--------------------------------------------------------------------------
| Tone dan speech dijalankan di browser display. Tiap command punya id,
| display membalas ack atau error dengan id yang sama.
*/

func (h *DisplayHub) PlayTone(ctx context.Context) error {
	return h.command(ctx, outbound{Type: TypeTone, Path: h.tonePath})
}

func (h *DisplayHub) Speak(ctx context.Context, text string, locale language.Tag) error {
	return h.command(ctx, outbound{Type: TypeSpeak, Text: text, Locale: locale.String()})
}

// Cancel tells every display to stop playing.
func (h *DisplayHub) Cancel() {
	msg, _ := json.Marshal(outbound{Type: TypeCancel, Timestamp: time.Now().Format(time.RFC3339)})
	h.broadcast(msg)
}

// command sends a stage command and waits for the first display to finish
// it. It fails when every display reported an error, or when no ack arrived
// within the ack budget. A display that accepts the write and never replies
// holds the stage until then.
func (h *DisplayHub) command(ctx context.Context, cmd outbound) error {
	if h.ClientCount() == 0 {
		return announce.ErrBackendUnavailable
	}
	if h.ackTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.ackTimeout)
		defer cancel()
	}

	cmd.ID = uuid.NewString()
	cmd.Timestamp = time.Now().Format(time.RFC3339)
	msg, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	replies := make(chan inbound, h.ClientCount()+1)
	h.pendingMu.Lock()
	h.pending[cmd.ID] = replies
	h.pendingMu.Unlock()
	defer func() {
		h.pendingMu.Lock()
		delete(h.pending, cmd.ID)
		h.pendingMu.Unlock()
	}()

	sent := h.broadcast(msg)
	if sent == 0 {
		return announce.ErrBackendUnavailable
	}

	var lastErr error
	for i := 0; i < sent && i < cap(replies); i++ {
		select {
		case r := <-replies:
			if r.Type == TypeAck {
				return nil
			}
			lastErr = errors.New(r.Error)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("display %s failed: %w", cmd.Type, lastErr)
}

func (h *DisplayHub) handleInbound(c *client, data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Debug().Err(err).Str("client_id", c.id).Msg("ignoring malformed message")
		return
	}
	if msg.Type != TypeAck && msg.Type != TypeError {
		return
	}
	if msg.Type == TypeError && msg.Error == "" {
		msg.Error = "display reported an error"
	}

	h.pendingMu.Lock()
	replies, ok := h.pending[msg.ID]
	h.pendingMu.Unlock()
	if !ok {
		return
	}
	select {
	case replies <- msg:
	default:
	}
}

var _ announce.Backend = (*DisplayHub)(nil)
