// Package stream tails a wallet's on-chain activity over a WebSocket log
// subscription, feeding new transaction signatures into the same
// reconstruction path used for historical runs.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config configures WebSocket client behavior.
type Config struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

// DefaultConfig returns default WebSocket configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// SignatureEvent is one confirmed transaction mentioning the wallet.
type SignatureEvent struct {
	Signature string
	Slot      int64
	Failed    bool
}

// Tailer maintains a logs subscription for a single wallet, reconnecting
// and resubscribing on connection loss.
type Tailer struct {
	endpoint string
	wallet   string
	config   Config
	logger   *zap.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	events chan SignatureEvent

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewTailer connects to the endpoint and subscribes to logs mentioning
// the wallet. Events are delivered until Close.
func NewTailer(ctx context.Context, endpoint, wallet string, config *Config, logger *zap.Logger) (*Tailer, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Tailer{
		endpoint: endpoint,
		wallet:   wallet,
		config:   cfg,
		logger:   logger,
		events:   make(chan SignatureEvent, 1024),
		done:     make(chan struct{}),
	}

	if err := t.connect(ctx); err != nil {
		return nil, err
	}
	if err := t.subscribe(); err != nil {
		t.conn.Close()
		return nil, err
	}

	t.wg.Add(2)
	go t.readLoop()
	go t.pingLoop()

	return t, nil
}

// Events returns the stream of confirmed signatures for the wallet.
func (t *Tailer) Events() <-chan SignatureEvent {
	return t.events
}

// Close shuts the connection down. Safe to call multiple times.
func (t *Tailer) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.done)

	t.connMu.Lock()
	if t.conn != nil {
		t.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.conn.Close()
	}
	t.connMu.Unlock()

	t.wg.Wait()
	close(t.events)
	return nil
}

func (t *Tailer) connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, t.endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "websocket dial")
	}
	t.conn = conn
	return nil
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// subscribe issues a logsSubscribe for transactions mentioning the
// wallet. The confirmation reply is consumed by the read loop.
func (t *Tailer) subscribe() error {
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      t.requestID.Add(1),
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{t.wallet}},
			map[string]string{"commitment": "confirmed"},
		},
	}

	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn == nil {
		return errors.New("not connected")
	}
	t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	return errors.Wrap(t.conn.WriteJSON(req), "write subscribe")
}

// logsNotification is the wire shape of a logsNotification message.
type logsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Context struct {
				Slot int64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string      `json:"signature"`
				Err       interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

func (t *Tailer) readLoop() {
	defer t.wg.Done()

	reconnectDelay := t.config.ReconnectDelay

	for !t.closed.Load() {
		t.connMu.Lock()
		conn := t.conn
		t.connMu.Unlock()

		if conn == nil {
			select {
			case <-t.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if t.closed.Load() {
				return
			}

			if !t.reconnecting.Swap(true) {
				go t.reconnect(reconnectDelay)
			}
			reconnectDelay *= 2
			if reconnectDelay > t.config.MaxReconnectDelay {
				reconnectDelay = t.config.MaxReconnectDelay
			}

			select {
			case <-t.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = t.config.ReconnectDelay
		t.handleMessage(message)
	}
}

func (t *Tailer) handleMessage(message []byte) {
	var note logsNotification
	if err := json.Unmarshal(message, &note); err != nil {
		return
	}
	if note.Method != "logsNotification" || note.Params.Result.Value.Signature == "" {
		return
	}

	event := SignatureEvent{
		Signature: note.Params.Result.Value.Signature,
		Slot:      note.Params.Result.Context.Slot,
		Failed:    note.Params.Result.Value.Err != nil,
	}

	select {
	case t.events <- event:
	case <-t.done:
	}
}

// reconnect re-establishes the connection and resubscribes.
func (t *Tailer) reconnect(delay time.Duration) {
	defer t.reconnecting.Store(false)

	if t.closed.Load() {
		return
	}

	select {
	case <-t.done:
		return
	case <-time.After(delay):
	}

	t.connMu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := t.connect(ctx); err != nil {
		t.logger.Warn("reconnect failed, will retry", zap.Error(err))
		return
	}
	if err := t.subscribe(); err != nil {
		t.logger.Warn("resubscribe failed", zap.Error(err))
		return
	}
	t.logger.Info("reconnected and resubscribed", zap.String("wallet", t.wallet))
}

func (t *Tailer) pingLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.connMu.Lock()
			if t.conn != nil {
				t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
				t.conn.WriteMessage(websocket.PingMessage, nil)
			}
			t.connMu.Unlock()
		}
	}
}
