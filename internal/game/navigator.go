package game

import (
	"context"
	"strings"

	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/models"
	"go.uber.org/zap"
)

// handleGo 处理移动命令
// 普通出口：原房间入历史栈，目标房间成为当前房间。
// 传送房间：先解析并校验目的地，全部有效后才落库——传送房间本身
// 永远不会成为当前房间，也不进历史栈，历史记录的是出发房间。
func (e *Engine) handleGo(ctx context.Context, user *models.User, session *Session, direction string) (*Response, error) {
	if strings.TrimSpace(direction) == "" {
		return nil, apperrors.New(apperrors.ErrMissingArgument, "必须指定方向")
	}

	current, err := e.rooms.FindByID(ctx, session.CurrentRoomID)
	if err != nil {
		return nil, err
	}

	next := current.Exit(direction)
	if next == nil {
		return nil, apperrors.Newf(apperrors.ErrDirectionInvalid, "无法向 %s 移动", direction)
	}

	full, err := e.rooms.FindByID(ctx, next.ID)
	if err != nil {
		return nil, err
	}

	if full.IsTeleportRoom {
		return e.teleportThrough(ctx, user, session, current, full)
	}

	if err := e.users.UpdatePosition(ctx, user.ID, full.ID); err != nil {
		return nil, err
	}

	session.PushHistory(current)
	session.CurrentRoomID = full.ID

	return e.buildState(ctx, user, session, full, "你移动到了："+full.Description)
}

// teleportThrough 穿过传送房间
// 目的地先选定并加载成功，才更新玩家位置；任何一步失败玩家位置不变。
func (e *Engine) teleportThrough(ctx context.Context, user *models.User, session *Session, origin, teleportRoom *models.Room) (*Response, error) {
	destID, err := e.teleporter.Pick(teleportRoom.DestinationIDs())
	if err != nil {
		return nil, err
	}

	dest, err := e.rooms.FindByID(ctx, destID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRoomNotFound) {
			return nil, apperrors.Newf(apperrors.ErrTeleportMisconfigured, "传送目的地不存在: %d", destID)
		}
		return nil, err
	}

	if err := e.users.UpdatePosition(ctx, user.ID, dest.ID); err != nil {
		return nil, err
	}

	session.PushHistory(origin)
	session.CurrentRoomID = dest.ID

	e.logger.Debug("传送完成",
		zap.Uint("user_id", user.ID),
		zap.String("from", origin.Name),
		zap.String("via", teleportRoom.Name),
		zap.String("to", dest.Name))

	return e.buildState(ctx, user, session, dest, "嗡！你被传送到："+dest.Description)
}

// handleLook 查看当前房间
func (e *Engine) handleLook(ctx context.Context, user *models.User, session *Session) (*Response, error) {
	room, err := e.rooms.FindByID(ctx, session.CurrentRoomID)
	if err != nil {
		return nil, err
	}

	return e.buildState(ctx, user, session, room, DescribeRoom(room))
}

// handleBack 返回历史栈中的上一个房间
// 快照只带身份信息，返回时按ID重新加载最新房间数据；
// 加载成功后才真正弹栈，房间已消失时历史保持原样。
func (e *Engine) handleBack(ctx context.Context, user *models.User, session *Session) (*Response, error) {
	snap, ok := session.PeekHistory()
	if !ok {
		return nil, apperrors.New(apperrors.ErrNoHistory, "没有可返回的路径")
	}

	full, err := e.rooms.FindByID(ctx, snap.ID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRoomNotFound) {
			return nil, apperrors.Newf(apperrors.ErrRoomNotFound, "无法返回: 房间 %s 已不存在", snap.Name)
		}
		return nil, err
	}

	if err := e.users.UpdatePosition(ctx, user.ID, full.ID); err != nil {
		return nil, err
	}

	session.PopHistory()
	session.CurrentRoomID = full.ID

	return e.buildState(ctx, user, session, full, "返回成功："+full.Description)
}
