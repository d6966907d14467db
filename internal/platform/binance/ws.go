// Package binance wraps the Binance spot market data surface: the raw
// WebSocket stream API for trades and partial book depth, and the REST API
// for the 24h ticker and candlesticks.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/whalewatch/engine/internal/domain"
	"github.com/whalewatch/engine/internal/metrics"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// TradeHandler is called for every trade received on a <symbol>@trade stream.
type TradeHandler func(domain.Trade)

// DepthHandler is called for every partial book snapshot received on a
// <symbol>@depth<N> stream.
type DepthHandler func(domain.OrderBookSnapshot)

// WSClient is a WebSocket client for the Binance spot stream API. It manages
// the connection lifecycle, stream subscriptions, and dispatches messages to
// registered handlers.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// Streams to restore on reconnect.
	streams []string

	cmdID atomic.Int64

	// Handlers
	tradeHandlers []TradeHandler
	depthHandlers []DepthHandler
	handlerMu     sync.RWMutex

	// done is closed when the client is shut down.
	done chan struct{}
}

// NewWSClient creates a client for the given stream host,
// e.g. "wss://stream.binance.com:9443".
func NewWSClient(wsHost string) *WSClient {
	return &WSClient{
		wsURL: strings.TrimRight(wsHost, "/") + "/ws",
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("binance/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("binance/ws: connect: %w", err)
	}

	w.conn = conn

	// Set up pong handler for keep-alive.
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Start the read loop and ping loop.
	go w.readLoop()
	go w.pingLoop()

	// Restore any previous subscriptions after reconnect.
	if len(w.streams) > 0 {
		if err := w.sendCommand(wsCommand{
			Method: "SUBSCRIBE",
			Params: w.streams,
			ID:     w.cmdID.Add(1),
		}); err != nil {
			return fmt.Errorf("binance/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// Subscribe subscribes to the given raw stream names, e.g. "btcusdt@trade"
// or "btcusdt@depth20@1000ms".
func (w *WSClient) Subscribe(ctx context.Context, streams ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("binance/ws: not connected")
	}

	cmd := wsCommand{
		Method: "SUBSCRIBE",
		Params: streams,
		ID:     w.cmdID.Add(1),
	}
	if err := w.sendCommand(cmd); err != nil {
		return fmt.Errorf("binance/ws: subscribe: %w", err)
	}

	// Track streams for reconnection.
	w.streams = append(w.streams, streams...)

	return nil
}

// Unsubscribe unsubscribes from the given raw stream names.
func (w *WSClient) Unsubscribe(ctx context.Context, streams ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("binance/ws: not connected")
	}

	cmd := wsCommand{
		Method: "UNSUBSCRIBE",
		Params: streams,
		ID:     w.cmdID.Add(1),
	}
	if err := w.sendCommand(cmd); err != nil {
		return fmt.Errorf("binance/ws: unsubscribe: %w", err)
	}

	drop := make(map[string]struct{}, len(streams))
	for _, s := range streams {
		drop[s] = struct{}{}
	}
	kept := w.streams[:0]
	for _, s := range w.streams {
		if _, found := drop[s]; !found {
			kept = append(kept, s)
		}
	}
	w.streams = kept

	return nil
}

// Close shuts down the WebSocket connection and stops the read loop.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		// Send a close message to the server.
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// OnTrade registers a handler that is called for every trade event.
func (w *WSClient) OnTrade(handler TradeHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.tradeHandlers = append(w.tradeHandlers, handler)
}

// OnDepth registers a handler that is called for every partial book snapshot.
func (w *WSClient) OnDepth(handler DepthHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.depthHandlers = append(w.depthHandlers, handler)
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// sendCommand sends a JSON command to the WebSocket. Caller must hold w.mu.
func (w *WSClient) sendCommand(cmd wsCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads messages from the WebSocket and dispatches
// them to the appropriate handlers. It runs in its own goroutine.
// On disconnect, it attempts to reconnect with exponential backoff.
func (w *WSClient) readLoop() {
	defer func() {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			// Check if we've been shut down.
			select {
			case <-w.done:
				return
			default:
			}

			// Attempt reconnection.
			w.reconnect()
			return // readLoop will be restarted by reconnect -> Connect
		}

		w.handleMessage(message)
	}
}

// pingLoop sends periodic ping messages to keep the WebSocket alive.
func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.RLock()
			conn := w.conn
			w.mu.RUnlock()

			if conn == nil {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw WebSocket message and routes it to the
// appropriate handler. Trade events carry an "e" marker; partial depth
// frames are identified by lastUpdateId.
func (w *WSClient) handleMessage(raw []byte) {
	var envelope struct {
		EventType    string `json:"e"`
		LastUpdateID int64  `json:"lastUpdateId"`
	}

	if err := json.Unmarshal(raw, &envelope); err != nil {
		return // Silently drop unparseable messages.
	}

	switch {
	case envelope.EventType == "trade":
		var msg tradeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		trade := TradeToDomain(&msg)

		w.handlerMu.RLock()
		handlers := w.tradeHandlers
		w.handlerMu.RUnlock()

		for _, h := range handlers {
			h(trade)
		}

	case envelope.LastUpdateID > 0:
		var msg depthMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		snap := DepthToDomain(&msg)

		w.handlerMu.RLock()
		handlers := w.depthHandlers
		w.handlerMu.RUnlock()

		for _, h := range handlers {
			h(snap)
		}
	}
	// Subscribe acks ({"result":null,"id":N}) fall through and are dropped.
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff. It blocks until successful or the client is closed.
func (w *WSClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		metrics.FeedReconnectsTotal.Inc()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		// Exponential backoff.
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
