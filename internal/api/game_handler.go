package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/game"
	"github.com/wfunc/adventure-server/internal/middleware"
	"github.com/wfunc/adventure-server/internal/utils"
	"go.uber.org/zap"
)

// GameHandler 游戏处理器
type GameHandler struct {
	engine     *game.Engine
	jwtManager *utils.JWTManager
	log        *zap.Logger
}

// NewGameHandler 创建游戏处理器
func NewGameHandler(engine *game.Engine, jwtManager *utils.JWTManager, log *zap.Logger) *GameHandler {
	return &GameHandler{
		engine:     engine,
		jwtManager: jwtManager,
		log:        log,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CommandRequest 游戏命令请求
// 既接受整行输入，也接受拆好的命令字和参数。
type CommandRequest struct {
	Input    string `json:"input"`
	Command  string `json:"command"`
	Argument string `json:"argument"`
}

// AuthResponse 登录响应
type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	State       *game.Response `json:"state"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// FailureResponse 命令失败响应
// 可恢复的游戏错误以200返回给玩家，命令之外的状态不受影响。
type FailureResponse struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Login 玩家登录
// @Summary 玩家登录
// @Description 验证凭据并建立新的游戏会话，旧会话令牌随之失效
// @Tags Game
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *GameHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	state, err := h.engine.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	accessToken, err := h.jwtManager.GenerateToken(state.User.ID, state.User.Username, state.SessionToken)
	if err != nil {
		h.log.Error("生成访问令牌失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "TOKEN_FAILED",
			Message: "生成访问令牌失败",
		})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		State:       state,
	})
}

// Restore 恢复游戏会话
// @Summary 恢复游戏
// @Description 用现有令牌恢复游戏状态，重复调用返回相同结果
// @Tags Game
// @Security Bearer
// @Produce json
// @Success 200 {object} game.Response
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/game/restore [post]
func (h *GameHandler) Restore(c *gin.Context) {
	token, ok := middleware.GetSessionToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "UNAUTHORIZED",
			Message: "未登录",
		})
		return
	}

	state, err := h.engine.Restore(c.Request.Context(), token)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// Command 执行游戏命令
// @Summary 执行游戏命令
// @Description 执行一条游戏命令（go/look/back/take/drop/eat/items）
// @Tags Game
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body CommandRequest true "命令"
// @Success 200 {object} game.Response
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/game/command [post]
func (h *GameHandler) Command(c *gin.Context) {
	token, ok := middleware.GetSessionToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "UNAUTHORIZED",
			Message: "未登录",
		})
		return
	}

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	command, argument := req.Command, req.Argument
	if req.Input != "" {
		command, argument = game.ParseCommand(req.Input)
	}

	state, err := h.engine.Execute(c.Request.Context(), token, command, argument)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// writeError 错误响应分流
// 可恢复错误（会话、游戏规则）作为失败结果返回给玩家；
// 其余错误按错误码映射HTTP状态。
func (h *GameHandler) writeError(c *gin.Context, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		h.log.Error("未分类的错误", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "服务器内部错误",
		})
		return
	}

	if code := apperrors.GetCode(err); code >= 2000 && code < 3000 ||
		code == apperrors.ErrAuthentication {
		// 会话/认证失败要求客户端重新登录
		c.JSON(appErr.HTTPStatus(), FailureResponse{
			Success: false,
			Code:    int(appErr.Code),
			Message: appErr.UserMessage(),
		})
		return
	}

	if apperrors.IsRecoverable(err) {
		c.JSON(http.StatusOK, FailureResponse{
			Success: false,
			Code:    int(appErr.Code),
			Message: appErr.UserMessage(),
		})
		return
	}

	h.log.Error("命令执行失败",
		zap.Int("code", int(appErr.Code)),
		zap.Error(err))
	c.JSON(appErr.HTTPStatus(), ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: appErr.Message,
	})
}
