package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/sharesathi/internal/events"
	"github.com/aristath/sharesathi/internal/modules/market"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamBuffer       = 32
	streamWriteTimeout = 5 * time.Second
	inspectTimeout     = 20 * time.Second
	maxInspectSymbols  = 50
)

// streamEventTypes are forwarded to connected clients
var streamEventTypes = []events.EventType{
	events.WatchlistChanged,
	events.SettingsChanged,
	events.QuotesRefreshed,
	events.BackupCompleted,
	events.JobCompleted,
	events.JobFailed,
}

// QuoteLookup fetches quotes for an inspect request, satisfied by market.Service
type QuoteLookup interface {
	Quotes(ctx context.Context, symbols []string) market.BatchQuotes
}

// StreamMessage is the envelope for everything sent over the stream
type StreamMessage struct {
	Type       string              `json:"type"`
	ClientID   string              `json:"clientId,omitempty"`
	Generation uint64              `json:"generation,omitempty"`
	Event      *events.Event       `json:"event,omitempty"`
	Quotes     *market.BatchQuotes `json:"quotes,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// clientMessage is what clients send: {"type":"inspect","symbols":["TCS"]} or {"type":"ping"}
type clientMessage struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// StreamHandler serves the websocket that pushes events to the browser
// and answers inspect requests
type StreamHandler struct {
	bus     *events.Bus
	quotes  QuoteLookup
	log     zerolog.Logger
	clients atomic.Int64
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(bus *events.Bus, quotes QuoteLookup, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		bus:    bus,
		quotes: quotes,
		log:    log.With().Str("component", "stream").Logger(),
	}
}

// Clients returns the number of connected clients
func (h *StreamHandler) Clients() int64 {
	return h.clients.Load()
}

// streamConn is one websocket client. generation increases with every
// inspect request; a result is only sent while its generation is current,
// so a slow earlier lookup never overwrites a newer one.
type streamConn struct {
	id   string
	conn *websocket.Conn
	log  zerolog.Logger

	generation atomic.Uint64
	mu         sync.Mutex
	cancel     context.CancelFunc
}

// ServeHTTP handles GET /api/stream
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &streamConn{id: uuid.NewString(), conn: conn}
	c.log = h.log.With().Str("client_id", c.id).Logger()

	h.clients.Add(1)
	defer h.clients.Add(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var sub *events.Subscription
	if h.bus != nil {
		sub = h.bus.Subscribe(streamBuffer, streamEventTypes...)
		defer h.bus.Unsubscribe(sub)
		go c.forward(ctx, sub)
	}

	c.log.Info().Msg("Stream client connected")
	if err := c.send(ctx, StreamMessage{Type: "connected", ClientID: c.id}); err != nil {
		conn.Close(websocket.StatusInternalError, "write failed")
		return
	}

	err = h.readLoop(ctx, c)
	c.stopInspect()

	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
		c.log.Info().Msg("Stream client disconnected")
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	c.log.Warn().Err(err).Msg("Stream closed with error")
	conn.Close(websocket.StatusInternalError, "stream error")
}

func (h *StreamHandler) readLoop(ctx context.Context, c *streamConn) error {
	for {
		msgType, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(ctx, StreamMessage{Type: "error", Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case "ping":
			c.reply(ctx, StreamMessage{Type: "pong"})
		case "inspect":
			h.inspect(ctx, c, msg.Symbols)
		default:
			c.reply(ctx, StreamMessage{Type: "error", Error: "unknown message type"})
		}
	}
}

// inspect starts a quote lookup under a new generation and cancels the
// previous one
func (h *StreamHandler) inspect(ctx context.Context, c *streamConn, symbols []string) {
	lookupCtx, cancel := context.WithTimeout(ctx, inspectTimeout)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	gen := c.generation.Add(1)
	c.mu.Unlock()

	symbols = cleanSymbols(symbols)
	if len(symbols) == 0 {
		cancel()
		c.reply(ctx, StreamMessage{Type: "error", Generation: gen, Error: "no symbols to inspect"})
		return
	}

	go func() {
		defer cancel()
		batch := h.quotes.Quotes(lookupCtx, symbols)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation.Load() != gen {
			c.log.Debug().Uint64("generation", gen).Msg("Dropping superseded inspect result")
			return
		}
		c.reply(ctx, StreamMessage{Type: "inspect", Generation: gen, Quotes: &batch})
	}()
}

func (c *streamConn) stopInspect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// forward relays bus events until the connection ends
func (c *streamConn) forward(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := c.send(ctx, StreamMessage{Type: "event", Event: &ev}); err != nil {
				c.log.Debug().Err(err).Msg("Failed to forward event")
				return
			}
		}
	}
}

func (c *streamConn) send(ctx context.Context, msg StreamMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, c.conn, msg)
}

// reply sends msg and logs a failed write. The read loop notices a dead
// connection on its own.
func (c *streamConn) reply(ctx context.Context, msg StreamMessage) {
	if err := c.send(ctx, msg); err != nil {
		c.log.Debug().Err(err).Str("type", msg.Type).Msg("Failed to send stream reply")
	}
}

func cleanSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxInspectSymbols {
			break
		}
	}
	return out
}
