package game

import (
	"context"
	"strings"

	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// handleTake 拾取房间中的物品
// 负重校验基于台账SQL聚合而不是缓存求和；库存转移（房间减、台账加）
// 在一个事务里完成，提交成功后才更新会话缓存。
func (e *Engine) handleTake(ctx context.Context, user *models.User, session *Session, itemName string) (*Response, error) {
	if strings.TrimSpace(itemName) == "" {
		return nil, apperrors.New(apperrors.ErrMissingArgument, "必须指定物品名称")
	}

	room, err := e.rooms.FindByID(ctx, session.CurrentRoomID)
	if err != nil {
		return nil, err
	}

	stock := room.FindStock(itemName)
	if stock == nil {
		return nil, apperrors.Newf(apperrors.ErrItemNotFound, "房间中没有 %s", itemName)
	}
	item := stock.Item

	currentWeight, err := e.inventory.TotalWeight(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if currentWeight+item.Weight > user.MaxCarryWeight {
		return nil, apperrors.Newf(apperrors.ErrCapacityExceeded,
			"太重了！无法拾取 %s\n当前负重: %skg/%skg",
			itemName, formatWeight(currentWeight), formatWeight(user.MaxCarryWeight))
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.rooms.WithTx(tx).RemoveStock(ctx, room.ID, item.ID); err != nil {
			return err
		}
		return e.inventory.WithTx(tx).AddItem(ctx, user.ID, item.ID)
	})
	if err != nil {
		return nil, err
	}

	session.AddItem(item)

	// 展示拾取后的房间
	room, err = e.rooms.FindByID(ctx, session.CurrentRoomID)
	if err != nil {
		return nil, err
	}

	return e.buildState(ctx, user, session, room, "获得物品: "+item.Name)
}

// handleDrop 丢弃背包中的物品
// 台账减一件、房间加一件跑在一个事务里；缓存数量减到0才算真正失去该物品。
func (e *Engine) handleDrop(ctx context.Context, user *models.User, session *Session, itemName string) (*Response, error) {
	if strings.TrimSpace(itemName) == "" {
		return nil, apperrors.New(apperrors.ErrMissingArgument, "必须指定物品名称")
	}

	held, ok := session.FindItem(itemName)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrItemNotFound, "您的背包中没有该物品: %s", itemName)
	}
	item := held.Item

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if _, err := e.inventory.WithTx(tx).RemoveItem(ctx, user.ID, item.ID); err != nil {
			return err
		}
		return e.rooms.WithTx(tx).AddStock(ctx, session.CurrentRoomID, item.ID)
	})
	if err != nil {
		return nil, err
	}

	session.RemoveItem(item.ID)

	room, err := e.rooms.FindByID(ctx, session.CurrentRoomID)
	if err != nil {
		return nil, err
	}

	return e.buildState(ctx, user, session, room, "您丢弃了物品: "+itemName)
}

// handleEat 吃掉背包中的可食用物品
// 特殊物品额外提升负重上限，提升是永久的，写在users表上。
func (e *Engine) handleEat(ctx context.Context, user *models.User, session *Session, itemName string) (*Response, error) {
	if strings.TrimSpace(itemName) == "" {
		return nil, apperrors.New(apperrors.ErrMissingArgument, "必须指定物品名称")
	}

	held, ok := session.FindItem(itemName)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrItemNotFound, "您没有该物品: %s", itemName)
	}
	item := held.Item

	if !item.Edible {
		return nil, apperrors.Newf(apperrors.ErrNotEdible, "%s不可食用", item.Name)
	}

	special := strings.EqualFold(strings.TrimSpace(item.Name), strings.TrimSpace(e.cfg.SpecialItemName))
	newMaxWeight := user.MaxCarryWeight + e.cfg.WeightBoost

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if _, err := e.inventory.WithTx(tx).RemoveItem(ctx, user.ID, item.ID); err != nil {
			return err
		}
		if special {
			return e.users.WithTx(tx).UpdateMaxCarryWeight(ctx, user.ID, newMaxWeight)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session.RemoveItem(item.ID)

	var message string
	if special {
		user.MaxCarryWeight = newMaxWeight
		message = "你感到一股神奇的力量涌入体内！最大负重能力提升了 " + formatWeight(e.cfg.WeightBoost) + "kg"

		e.logger.Info("特殊物品已消耗",
			zap.Uint("user_id", user.ID),
			zap.String("item", item.Name),
			zap.Float64("new_max_weight", newMaxWeight))

		if e.onSpecialConsumed != nil {
			e.onSpecialConsumed(ctx)
		}
	} else {
		message = "你吃掉了 " + item.Name
	}

	room, err := e.rooms.FindByID(ctx, session.CurrentRoomID)
	if err != nil {
		return nil, err
	}

	return e.buildState(ctx, user, session, room, message)
}

// handleItems 物品清单：房间物品总重量和背包总重量
func (e *Engine) handleItems(ctx context.Context, user *models.User, session *Session) (*Response, error) {
	room, err := e.rooms.FindByID(ctx, session.CurrentRoomID)
	if err != nil {
		return nil, err
	}

	roomTotal := room.TotalItemWeight()
	playerTotal, err := e.inventory.TotalWeight(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	resp, err := e.buildState(ctx, user, session, room, "物品清单")
	if err != nil {
		return nil, err
	}
	resp.RoomTotalWeight = &roomTotal
	resp.PlayerTotalWeight = &playerTotal
	return resp, nil
}
