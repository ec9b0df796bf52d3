package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/drujensen/meowwchat/internal/domain/events"
	"github.com/drujensen/meowwchat/internal/domain/services"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TranscriptFrame is what a client receives for every transcript change.
type TranscriptFrame struct {
	Type string `json:"type"`
	events.TranscriptEventData
}

func newTranscriptFrame(data events.TranscriptEventData) TranscriptFrame {
	return TranscriptFrame{Type: "transcript", TranscriptEventData: data}
}

// TranscriptHub fans transcript events out to the websocket clients watching
// each thread. Only Run writes to a connection.
type TranscriptHub struct {
	connections map[string][]*websocket.Conn
	register    chan registration
	unregister  chan unregistration
	broadcast   chan events.TranscriptEventData
	done        chan struct{}
	logger      *zap.Logger
}

type registration struct {
	threadID string
	conn     *websocket.Conn
	snapshot events.TranscriptEventData
}

type unregistration struct {
	threadID string
	conn     *websocket.Conn
}

func NewTranscriptHub(logger *zap.Logger) *TranscriptHub {
	return &TranscriptHub{
		connections: make(map[string][]*websocket.Conn),
		register:    make(chan registration),
		unregister:  make(chan unregistration),
		broadcast:   make(chan events.TranscriptEventData),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run serves the hub until ctx is cancelled, then closes every connection.
func (h *TranscriptHub) Run(ctx context.Context) {
	cancel := events.SubscribeToTranscriptEvents(func(data events.TranscriptEventData) {
		select {
		case h.broadcast <- data:
		case <-h.done:
		}
	})
	defer func() {
		close(h.done)
		cancel()
		for threadID, conns := range h.connections {
			for _, conn := range conns {
				conn.Close()
			}
			delete(h.connections, threadID)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case reg := <-h.register:
			h.connections[reg.threadID] = append(h.connections[reg.threadID], reg.conn)
			if err := h.write(reg.conn, reg.snapshot); err != nil {
				h.remove(reg.threadID, reg.conn)
			}
		case unreg := <-h.unregister:
			h.remove(unreg.threadID, unreg.conn)
		case data := <-h.broadcast:
			for _, conn := range h.connections[data.ThreadID] {
				if err := h.write(conn, data); err != nil {
					h.remove(data.ThreadID, conn)
				}
			}
		}
	}
}

func (h *TranscriptHub) write(conn *websocket.Conn, data events.TranscriptEventData) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(newTranscriptFrame(data)); err != nil {
		h.logger.Warn("Failed to write transcript frame, dropping client", zap.String("thread_id", data.ThreadID), zap.Error(err))
		return err
	}
	return nil
}

func (h *TranscriptHub) remove(threadID string, conn *websocket.Conn) {
	conns := h.connections[threadID]
	for i, c := range conns {
		if c == conn {
			conn.Close()
			h.connections[threadID] = append(conns[:i:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[threadID]) == 0 {
		delete(h.connections, threadID)
	}
}

// TranscriptHandler upgrades the request to a websocket that receives the
// thread's current transcript followed by every change to it.
func TranscriptHandler(hub *TranscriptHub, threadService services.ThreadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threadID := r.URL.Query().Get("thread_id")
		if threadID == "" {
			http.Error(w, "Missing thread_id", http.StatusBadRequest)
			return
		}

		session, err := threadService.Session(threadID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("Websocket upgrade failed", zap.Error(err))
			return
		}

		snapshot := events.TranscriptEventData{
			ThreadID: threadID,
			Messages: session.Transcript(),
			Running:  session.Running(),
		}
		select {
		case hub.register <- registration{threadID: threadID, conn: conn, snapshot: snapshot}:
		case <-hub.done:
			conn.Close()
			return
		}
		logger.Debug("Websocket client connected", zap.String("thread_id", threadID))

		defer func() {
			select {
			case hub.unregister <- unregistration{threadID: threadID, conn: conn}:
			case <-hub.done:
			}
			logger.Debug("Websocket client disconnected", zap.String("thread_id", threadID))
		}()

		// Clients only listen; reads detect the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
