package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/emryou/solar-log-hub/internal/bus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// LiveHandler WebSocket 实时订阅端点
// 每个连接在总线上注册一个订阅，断连即注销；不提供错过事件的回放
type LiveHandler struct {
	bus      *bus.Bus
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewLiveHandler(b *bus.Bus, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{
		bus: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 鉴权由外部认证方在上游完成
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Subscribe GET /data/api/v1/live
// 订阅范围由租户头决定：admin 角色收到全部租户的事件
func (h *LiveHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	orgID := tenantScope(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.bus.Subscribe(orgID)
	h.logger.Info("live subscriber connected",
		zap.Uint64("sub_id", sub.ID),
		zap.String("org_id", orgID))

	// 读循环只用于断连检测（客户端不发业务消息）
	go func() {
		defer h.bus.Unsubscribe(sub)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go h.writeLoop(conn, sub)
}

func (h *LiveHandler) writeLoop(conn *websocket.Conn, sub *bus.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.bus.Unsubscribe(sub)
		_ = conn.Close()
		h.logger.Info("live subscriber disconnected", zap.Uint64("sub_id", sub.ID))
	}()

	for {
		select {
		case evt, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 总线侧剔除（慢订阅者或进程停止）
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
