package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/akinalp/relay/pkg"
)

const (
	// writeWait: bir mesajı yazmak için maksimum süre.
	writeWait = 10 * time.Second

	// pongWait: client'ın heartbeat göndermesi için beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// maxMessageSize: client'ın gönderebileceği maksimum mesaj boyutu (byte).
	// Mesajlar HTTP ile gönderilir; WS'ten sadece heartbeat ve typing gelir.
	maxMessageSize = 4096

	// sendBufferSize: her client'ın send kanalının buffer boyutu.
	// Dolarsa client yavaş kabul edilir ve bağlantısı kapatılır.
	sendBufferSize = 256
)

// Client, tek bir WebSocket bağlantısı.
//
// Her bağlantı için iki goroutine çalışır: ReadPump client'tan gelen event'leri
// işler, WritePump send kanalındaki event'leri sırayla sokete yazar.
// gorilla/websocket aynı anda tek okuyucu ve tek yazıcıya izin verir.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
	mu     sync.Mutex // conn.WriteMessage çağrılarını korur
	seqMu  sync.Mutex // seq ataması + buffer'a yazma
	log    *zap.Logger
}

// NewClient, soket bağlantısı için yeni bir Client oluşturur.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
		log:    hub.log.Named("client").With(zap.String("user_id", userID)),
	}
}

// UserID, bağlantının sahibi olan kullanıcı.
func (c *Client) UserID() string {
	return c.userID
}

// ReadPump, bağlantı kapanana kadar client event'lerini okur.
// Çıkışta bağlantı Hub'dan kaydı silinir; offline yayını bundan sonra olur.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("failed to set read deadline", zap.Error(err))
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("unexpected close", zap.Error(err))
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.log.Debug("invalid message", zap.Error(err))
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent, client'tan gelen event'i türüne göre işler.
func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		if c.conn != nil {
			if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
				c.log.Warn("failed to set read deadline", zap.Error(err))
				return
			}
		}
		c.hub.deliver([]*Client{c}, Event{Op: OpHeartbeatAck})

	case OpTyping:
		c.handleTyping(event)

	default:
		c.log.Debug("unknown op", zap.String("op", event.Op))
	}
}

// handleTyping, typing event'ini parse eder ve Hub'a bağlanan işleyiciye verir.
// Reddedilirse sadece bu bağlantıya error event'i gider.
func (c *Client) handleTyping(event Event) {
	// event.Data tipi any; JSON üzerinden TypingData'ya çevrilir.
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return
	}

	var data TypingData
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		c.log.Debug("invalid typing payload", zap.Error(err))
		return
	}

	if c.hub.onTyping == nil {
		return
	}
	if err := c.hub.onTyping(c.userID, data); err != nil {
		c.log.Debug("typing rejected", zap.Error(err))
		c.hub.deliver([]*Client{c}, Event{
			Op:   OpError,
			Data: ErrorData{Op: OpTyping, Reason: pkg.Reason(err)},
		})
	}
}

// enqueue, event'e hub sayacından seq verip buffer'a bırakır. Buffer doluysa false döner.
// seqMu altında yapıldığı için aynı bağlantıya giden event'ler artan seq ile sıraya girer.
func (c *Client) enqueue(event Event) (bool, error) {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()

	event.Seq = c.hub.seq.Add(1)
	data, err := json.Marshal(event)
	if err != nil {
		return false, err
	}

	select {
	case c.send <- data:
		return true, nil
	default:
		return false, nil
	}
}

// WritePump, send kanalındaki event'leri sokete yazar.
// Kanal kapandığında (Hub client'ı çıkardı) close frame gönderip çıkar.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.writeMessage(websocket.CloseMessage, nil)
}

// writeMessage, WebSocket'e mesaj yazar (mutex ile korunur).
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
