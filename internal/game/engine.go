package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/adventure-server/internal/config"
	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/models"
	"github.com/wfunc/adventure-server/internal/repository"
	"github.com/wfunc/adventure-server/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine 游戏引擎
// 持有仓储、会话存储和传送器，是所有游戏操作的唯一入口。
// 每条命令在会话锁内执行，涉及多条持久化写入的命令跑在一个事务里，
// 会话缓存只在事务提交成功后更新。
type Engine struct {
	db         *gorm.DB
	users      repository.UserRepository
	rooms      repository.RoomRepository
	items      repository.ItemRepository
	inventory  repository.InventoryRepository
	store      *SessionStore
	teleporter *Teleporter
	cfg        *config.GameConfig
	logger     *zap.Logger

	// 特殊物品被吃掉后的回调（用于重新投放）
	onSpecialConsumed func(ctx context.Context)
}

// NewEngine 创建游戏引擎
func NewEngine(db *gorm.DB, cfg *config.GameConfig, logger *zap.Logger) *Engine {
	return &Engine{
		db:         db,
		users:      repository.NewUserRepository(db),
		rooms:      repository.NewRoomRepository(db),
		items:      repository.NewItemRepository(db),
		inventory:  repository.NewInventoryRepository(db),
		store:      NewSessionStore(logger),
		teleporter: NewTeleporter(cfg.TeleportSeed),
		cfg:        cfg,
		logger:     logger,
	}
}

// SetTeleporter 替换传送器（测试注入固定种子用）
func (e *Engine) SetTeleporter(t *Teleporter) {
	e.teleporter = t
}

// OnSpecialItemConsumed 注册特殊物品被消耗后的回调
func (e *Engine) OnSpecialItemConsumed(fn func(ctx context.Context)) {
	e.onSpecialConsumed = fn
}

// SessionStore 获取会话存储
func (e *Engine) SessionStore() *SessionStore {
	return e.store
}

// Login 玩家登录：验证凭据、轮换会话令牌、建立新会话
// 登录总是替换该玩家已有的会话，旧令牌随之失效。
func (e *Engine) Login(ctx context.Context, username, password string) (*Response, error) {
	user, err := e.users.FindByUsername(ctx, username)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.New(apperrors.ErrAuthentication)
		}
		return nil, err
	}

	ok, err := utils.VerifyPassword(password, user.Password)
	if err != nil || !ok {
		return nil, apperrors.New(apperrors.ErrAuthentication)
	}

	token := uuid.NewString()
	now := time.Now()
	if err := e.users.UpdateSessionToken(ctx, user.ID, token, now); err != nil {
		return nil, err
	}
	user.SessionToken = token
	user.Touch(now)

	room, err := e.loadUserRoom(ctx, user)
	if err != nil {
		return nil, err
	}

	entries, err := e.inventory.FindByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	session := NewSession(user.ID, token, room.ID, entries)
	e.store.Put(user.ID, session)

	e.logger.Info("玩家登录",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("room", room.Name))

	session.Lock()
	defer session.Unlock()
	resp, err := e.buildState(ctx, user, session, room, "欢迎回来, "+user.Username+"!")
	if err != nil {
		return nil, err
	}
	resp.SessionToken = token
	return resp, nil
}

// Restore 恢复游戏会话
// 幂等：会话还在内存时直接返回当前状态，不在时从数据库重建。
func (e *Engine) Restore(ctx context.Context, token string) (*Response, error) {
	user, session, err := e.validateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	session.Lock()
	defer session.Unlock()

	room, err := e.rooms.FindByID(ctx, session.CurrentRoomID)
	if err != nil {
		return nil, err
	}

	resp, err := e.buildState(ctx, user, session, room, "已恢复游戏")
	if err != nil {
		return nil, err
	}
	resp.SessionToken = token
	return resp, nil
}

// validateSession 会话前置验证：令牌 -> 用户 -> 超时判定 -> 会话
// 超时惰性判定：超过不活跃窗口的会话在这里被移除并拒绝。
func (e *Engine) validateSession(ctx context.Context, token string) (*models.User, *Session, error) {
	user, err := e.users.FindBySessionToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if user.IsExpired(now, e.cfg.SessionTimeout) {
		e.store.Remove(user.ID)
		return nil, nil, apperrors.New(apperrors.ErrSessionExpired, "会话已过期，请重新登录")
	}

	if err := e.users.TouchLastActive(ctx, user.ID, now); err != nil {
		return nil, nil, err
	}
	user.Touch(now)

	session, err := e.store.GetOrCreate(user.ID, func() (*Session, error) {
		room, err := e.loadUserRoom(ctx, user)
		if err != nil {
			return nil, err
		}
		entries, err := e.inventory.FindByUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return NewSession(user.ID, token, room.ID, entries), nil
	})
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// loadUserRoom 加载玩家当前房间，无效时回退到出生房间
func (e *Engine) loadUserRoom(ctx context.Context, user *models.User) (*models.Room, error) {
	if user.CurrentRoomID != nil {
		room, err := e.rooms.FindByID(ctx, *user.CurrentRoomID)
		if err == nil {
			return room, nil
		}
		if !apperrors.Is(err, apperrors.ErrRoomNotFound) {
			return nil, err
		}
		e.logger.Warn("玩家所在房间已不存在，回退到出生房间",
			zap.Uint("user_id", user.ID),
			zap.Uint("room_id", *user.CurrentRoomID))
	}

	room, err := e.rooms.FindByName(ctx, e.cfg.StartRoom)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRoomNotFound) {
			return nil, apperrors.Newf(apperrors.ErrRoomNotFound, "起始房间未配置: %s", e.cfg.StartRoom)
		}
		return nil, err
	}

	// 回填位置，下次直接命中
	if err := e.users.UpdatePosition(ctx, user.ID, room.ID); err != nil {
		return nil, err
	}
	roomID := room.ID
	user.CurrentRoomID = &roomID
	return room, nil
}

// buildState 构建当前状态的完整响应
// 负重从台账SQL聚合计算，背包列表来自会话缓存。
func (e *Engine) buildState(ctx context.Context, user *models.User, session *Session, room *models.Room, message string) (*Response, error) {
	weight, err := e.inventory.TotalWeight(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &Response{
		Success:       true,
		Message:       message,
		Room:          NewRoomView(room),
		Inventory:     inventoryViews(session.Items()),
		User:          &UserView{ID: user.ID, Username: user.Username, MaxCarryWeight: user.MaxCarryWeight},
		CurrentWeight: weight,
		MaxWeight:     user.MaxCarryWeight,
		GameOver:      session.GameOver,
	}, nil
}
