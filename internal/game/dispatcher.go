package game

import (
	"context"
	"strings"

	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/logger"
	"github.com/wfunc/adventure-server/internal/models"
)

// 命令字
const (
	CommandGo    = "go"
	CommandLook  = "look"
	CommandBack  = "back"
	CommandTake  = "take"
	CommandDrop  = "drop"
	CommandEat   = "eat"
	CommandItems = "items"
)

// ParseCommand 把一行输入拆成命令字和参数
// 命令字大小写不敏感，参数保留原样（物品名匹配时再归一化）。
func ParseCommand(input string) (command, argument string) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return "", ""
	}
	command = strings.ToLower(fields[0])
	argument = strings.Join(fields[1:], " ")
	return command, argument
}

// Execute 执行一条游戏命令
// 会话验证 -> 加锁 -> 分发。锁覆盖整条命令，同一会话的命令严格串行，
// 不同会话互不阻塞。
func (e *Engine) Execute(ctx context.Context, token, command, argument string) (*Response, error) {
	user, session, err := e.validateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	session.Lock()
	defer session.Unlock()

	if session.GameOver {
		return nil, apperrors.New(apperrors.ErrGameOver, "游戏已结束")
	}

	resp, err := e.dispatch(ctx, user, session, strings.ToLower(strings.TrimSpace(command)), argument)
	logger.LogCommand(user.ID, command, argument, err == nil)
	return resp, err
}

// dispatch 按命令字分发
func (e *Engine) dispatch(ctx context.Context, user *models.User, session *Session, command, argument string) (*Response, error) {
	switch command {
	case CommandGo:
		return e.handleGo(ctx, user, session, argument)
	case CommandLook:
		return e.handleLook(ctx, user, session)
	case CommandBack:
		return e.handleBack(ctx, user, session)
	case CommandTake:
		return e.handleTake(ctx, user, session, argument)
	case CommandDrop:
		return e.handleDrop(ctx, user, session, argument)
	case CommandEat:
		return e.handleEat(ctx, user, session, argument)
	case CommandItems:
		return e.handleItems(ctx, user, session)
	default:
		return nil, apperrors.Newf(apperrors.ErrUnknownCommand, "未知命令: %s", command)
	}
}
