package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/adventure-server/internal/config"
	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/game"
	"github.com/wfunc/adventure-server/internal/models"
	"github.com/wfunc/adventure-server/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeedService 特殊物品投放服务
// 启动时把特殊物品投放到随机房间；物品被吃掉后重新投放。
// 投放是幂等的：世界里（任意房间或任意玩家背包）已存在该物品时不再投放。
type SeedService struct {
	db        *gorm.DB
	itemRepo  repository.ItemRepository
	roomRepo  repository.RoomRepository
	cfg       *config.GameConfig
	log       *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeedService 创建投放服务
func NewSeedService(db *gorm.DB, cfg *config.GameConfig, log *zap.Logger) *SeedService {
	seed := cfg.TeleportSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SeedService{
		db:       db,
		itemRepo: repository.NewItemRepository(db),
		roomRepo: repository.NewRoomRepository(db),
		cfg:      cfg,
		log:      log,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Attach 挂接到游戏引擎：特殊物品被吃掉后重新投放
func (s *SeedService) Attach(engine *game.Engine) {
	engine.OnSpecialItemConsumed(func(ctx context.Context) {
		if err := s.PlaceSpecialItem(ctx); err != nil {
			s.log.Error("重新投放特殊物品失败", zap.Error(err))
		}
	})
}

// PlaceSpecialItem 投放特殊物品到随机的非传送房间
func (s *SeedService) PlaceSpecialItem(ctx context.Context) error {
	item, err := s.itemRepo.FindByName(ctx, s.cfg.SpecialItemName)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrItemNotFound) {
			s.log.Warn("物品表中找不到特殊物品，请确保已添加该物品",
				zap.String("item", s.cfg.SpecialItemName))
			return nil
		}
		return err
	}

	placed, err := s.alreadyInWorld(ctx, item.ID)
	if err != nil {
		return err
	}
	if placed {
		s.log.Debug("特殊物品已存在于世界中，跳过投放",
			zap.String("item", item.Name))
		return nil
	}

	room, err := s.pickRoom(ctx)
	if err != nil {
		return err
	}
	if room == nil {
		s.log.Warn("找不到可投放的房间，无法投放特殊物品")
		return nil
	}

	if err := s.roomRepo.AddStock(ctx, room.ID, item.ID); err != nil {
		return err
	}

	s.log.Info("特殊物品已投放",
		zap.String("item", item.Name),
		zap.String("room", room.Name),
		zap.Uint("room_id", room.ID))
	return nil
}

// alreadyInWorld 检查物品是否已在某个房间或某个玩家背包里
func (s *SeedService) alreadyInWorld(ctx context.Context, itemID uint) (bool, error) {
	stock, err := s.roomRepo.FindStockByItem(ctx, itemID)
	if err != nil {
		return false, err
	}
	if len(stock) > 0 {
		return true, nil
	}

	var held int64
	err = s.db.WithContext(ctx).
		Model(&models.PlayerInventory{}).
		Where("item_id = ?", itemID).
		Count(&held).Error
	if err != nil {
		return false, err
	}
	return held > 0, nil
}

// pickRoom 随机选择一个非传送房间
// 传送房间不可停留，投放进去玩家永远拿不到。
func (s *SeedService) pickRoom(ctx context.Context) (*models.Room, error) {
	rooms, err := s.roomRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Room, 0, len(rooms))
	for _, r := range rooms {
		if !r.IsTeleportRoom {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	idx := s.rng.Intn(len(candidates))
	s.mu.Unlock()
	return &candidates[idx], nil
}
