package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/services/bus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Дисплей ходит с другого origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamEvents отдает события шины дисплею по WebSocket: смены параметров,
// спектры сегментов, статусы скана и ошибки. Один сокет - одна подписка.
func (h *Handler) StreamEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err, "remote_addr", c.Request.RemoteAddr)
		return
	}

	events, unsubscribe := h.bus.Subscribe("#", 256)
	h.logger.Info("Display attached", "remote_addr", conn.RemoteAddr().String())

	go h.writePump(conn, events, unsubscribe)
	go h.readPump(conn)
}

// writePump пишет события в сокет и поддерживает его ping-ами.
// Завершается при любой ошибке записи.
func (h *Handler) writePump(conn *websocket.Conn, events <-chan models.Event, unsubscribe func()) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		unsubscribe()
		conn.Close()
		h.logger.Info("Display detached", "remote_addr", conn.RemoteAddr().String())
	}()

	for {
		select {
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump принимает команды дисплея и раскладывает их по топикам шины.
// Дисплей управляет прибором и сканом через тот же сокет, по которому
// получает события.
func (h *Handler) readPump(conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var cmd models.DisplayCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.logger.Warn("Malformed display command", "error", err)
			continue
		}
		h.dispatchDisplayCommand(cmd)
	}
}

// dispatchDisplayCommand публикует команду дисплея на шину:
// set/get уходят на cmd/<параметр>/set|get, управление сканом - на scan/control
func (h *Handler) dispatchDisplayCommand(cmd models.DisplayCommand) {
	switch cmd.Action {
	case "set":
		if cmd.Parameter == "" {
			h.logger.Warn("Display command without parameter", "action", cmd.Action)
			return
		}
		h.bus.Publish(bus.TopicCmdSet(cmd.Parameter), "", models.AbstractCommand{
			Action:    models.ActionSet,
			Parameter: cmd.Parameter,
			Values:    cmd.Values,
		})
	case "get":
		if cmd.Parameter == "" {
			h.logger.Warn("Display command without parameter", "action", cmd.Action)
			return
		}
		h.bus.Publish(bus.TopicCmdGet(cmd.Parameter), "", models.AbstractCommand{
			Action:    models.ActionGet,
			Parameter: cmd.Parameter,
		})
	case "pause", "resume", "stop":
		h.bus.Publish(bus.TopicScanControl, "", cmd.Action)
	default:
		h.logger.Warn("Unknown display command", "action", cmd.Action)
	}
}
