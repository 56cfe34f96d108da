package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/game"
	"github.com/wfunc/adventure-server/internal/middleware"
	"go.uber.org/zap"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 1024
)

// WebSocketHandler 游戏WebSocket处理器
// 每个连接绑定一个已认证的游戏会话，客户端逐条发送命令，
// 服务端逐条回推状态。同一玩家的命令在引擎层已经串行化，
// 多开连接不会产生并发写入。
type WebSocketHandler struct {
	engine   *game.Engine
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(engine *game.Engine, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 在生产环境中应该检查Origin
				return true
			},
		},
		logger: logger,
	}
}

// wsCommand 客户端命令消息
type wsCommand struct {
	Input    string `json:"input"`
	Command  string `json:"command"`
	Argument string `json:"argument"`
}

// wsFailure 失败消息
type wsFailure struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GameWebSocket 游戏WebSocket连接
// 握手通过认证中间件（令牌放在query参数），连接建立后先推一次
// 当前状态，然后进入命令循环。
func (h *WebSocketHandler) GameWebSocket(c *gin.Context) {
	token, ok := middleware.GetSessionToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "UNAUTHORIZED",
			Message: "未登录",
		})
		return
	}
	userID, _ := middleware.GetUserID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.Uint("user_id", userID),
			zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket连接建立",
		zap.Uint("user_id", userID),
		zap.String("ip", c.ClientIP()))

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	// 连接建立即推一次当前状态
	state, err := h.engine.Restore(c.Request.Context(), token)
	if err != nil {
		h.writeFailure(conn, err)
		return
	}
	if err := h.writeJSON(conn, state); err != nil {
		return
	}

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket连接异常断开",
					zap.Uint("user_id", userID),
					zap.Error(err))
			}
			return
		}

		command, argument := cmd.Command, cmd.Argument
		if cmd.Input != "" {
			command, argument = game.ParseCommand(cmd.Input)
		}

		state, err := h.engine.Execute(c.Request.Context(), token, command, argument)
		if err != nil {
			if !apperrors.IsRecoverable(err) {
				h.logger.Error("命令执行失败",
					zap.Uint("user_id", userID),
					zap.Error(err))
			}
			if werr := h.writeFailure(conn, err); werr != nil {
				return
			}
			// 会话失效后连接没有继续的意义
			if code := apperrors.GetCode(err); code >= 2000 && code < 3000 {
				return
			}
			continue
		}

		if err := h.writeJSON(conn, state); err != nil {
			return
		}
	}
}

// pingLoop 保活
func (h *WebSocketHandler) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// writeJSON 带写超时的JSON推送
func (h *WebSocketHandler) writeJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}

// writeFailure 推送失败消息
func (h *WebSocketHandler) writeFailure(conn *websocket.Conn, err error) error {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		return h.writeJSON(conn, wsFailure{Code: int(apperrors.ErrUnknown), Message: "服务器内部错误"})
	}
	return h.writeJSON(conn, wsFailure{
		Code:    int(appErr.Code),
		Message: appErr.UserMessage(),
	})
}
