package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"solana-wallet-ledger/internal/domain"
	"solana-wallet-ledger/internal/observability"
	"solana-wallet-ledger/internal/pubkey"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 1024
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// SnapshotMessage is the JSON frame pushed to websocket clients for every
// committed score snapshot.
type SnapshotMessage struct {
	Type          string   `json:"type"`
	WalletID      string   `json:"walletId"`
	ComputedAt    int64    `json:"computedAt"`
	Score         float64  `json:"score"`
	ScoringWindow string   `json:"scoringWindow"`
	ClosedTrades  int      `json:"closedTrades"`
	RealizedPnL   float64  `json:"realizedPnl"`
	WinRate       *float64 `json:"winRate"`
	Empty         bool     `json:"empty"`
}

type broadcastMsg struct {
	walletID string
	data     []byte
}

// client is one websocket connection. An empty wallet receives every snapshot.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	wallet string
}

// Hub fans committed score snapshots out to websocket clients.
// It implements orchestrator.Publisher.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	logger     *log.Logger
}

// NewHub creates a new Hub. Run must be started before clients connect.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger,
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing
// every client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			observability.SetWSClients(0)
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			observability.SetWSClients(n)
			h.logger.Printf("[ws] client connected (wallet=%q, total=%d)", c.wallet, n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			observability.SetWSClients(n)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.wallet != "" && c.wallet != msg.walletID {
					continue
				}
				select {
				case c.send <- msg.data:
					observability.RecordWSMessage()
				default:
					h.logger.Printf("[ws] dropping message for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish queues a snapshot for broadcast. It never blocks the caller; when
// the queue is full the snapshot is dropped.
func (h *Hub) Publish(m *domain.WalletMetrics) {
	msg := SnapshotMessage{
		Type:          "score_snapshot",
		WalletID:      m.WalletID,
		ComputedAt:    m.ComputedAt,
		Score:         m.Score,
		ScoringWindow: m.ScoringWindow,
		Empty:         m.Empty,
	}
	p := m.HistoryPoint()
	msg.ClosedTrades = p.ClosedTrades
	msg.RealizedPnL = p.RealizedPnL
	msg.WinRate = p.WinRate
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- broadcastMsg{walletID: m.WalletID, data: data}:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades GET /api/v1/ws. The optional wallet query parameter
// restricts the stream to one wallet.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet != "" {
		if err := pubkey.Validate(wallet); err != nil {
			writeError(w, "invalid wallet address", http.StatusBadRequest)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[ws] upgrade failed: %v", err)
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		wallet: wallet,
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump only tracks liveness; clients do not send commands.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Printf("[ws] unexpected close: %v", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
