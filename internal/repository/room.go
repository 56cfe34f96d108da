package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/models"
	"gorm.io/gorm"
)

// RoomRepository 房间仓储接口
// FindByID/FindByName 总是带全量关联：四个出口、库存（含物品）、传送目的地。
type RoomRepository interface {
	BaseRepository
	WithTx(tx *gorm.DB) RoomRepository
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id uint) (*models.Room, error)
	FindByName(ctx context.Context, name string) (*models.Room, error)
	FindAll(ctx context.Context) ([]models.Room, error)
	AddStock(ctx context.Context, roomID, itemID uint) error
	RemoveStock(ctx context.Context, roomID, itemID uint) error
	FindStockByItem(ctx context.Context, itemID uint) ([]models.RoomItem, error)
}

// roomRepo 房间仓储实现
type roomRepo struct {
	*BaseRepo
}

// NewRoomRepository 创建房间仓储
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// WithTx 使用事务
func (r *roomRepo) WithTx(tx *gorm.DB) RoomRepository {
	return &roomRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// withFullData 预加载房间全量关联
func (r *roomRepo) withFullData(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("ExitEast").
		Preload("ExitWest").
		Preload("ExitNorth").
		Preload("ExitSouth").
		Preload("RoomItems.Item").
		Preload("TeleportDestinations")
}

// Create 创建房间
func (r *roomRepo) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// FindByID 根据ID查找房间（带全量关联）
func (r *roomRepo) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := r.withFullData(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrRoomNotFound, "房间不存在: %d", id)
		}
		return nil, err
	}
	return &room, nil
}

// FindByName 根据名称查找房间（带全量关联）
func (r *roomRepo) FindByName(ctx context.Context, name string) (*models.Room, error) {
	var room models.Room
	err := r.withFullData(ctx).Where("name = ?", name).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrRoomNotFound, "房间不存在: %s", name)
		}
		return nil, err
	}
	return &room, nil
}

// FindAll 查找所有房间
func (r *roomRepo) FindAll(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).Find(&rooms).Error
	return rooms, err
}

// AddStock 向房间添加一件物品（已有条目则数量+1）
func (r *roomRepo) AddStock(ctx context.Context, roomID, itemID uint) error {
	var entry models.RoomItem
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND item_id = ?", roomID, itemID).
		First(&entry).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = models.RoomItem{
			RoomID:   roomID,
			ItemID:   itemID,
			Quantity: 1,
		}
		return r.db.WithContext(ctx).Create(&entry).Error
	}
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&entry).
		Update("quantity", gorm.Expr("quantity + ?", 1)).Error
}

// RemoveStock 从房间移除一件物品（数量减到0则删除条目）
func (r *roomRepo) RemoveStock(ctx context.Context, roomID, itemID uint) error {
	var entry models.RoomItem
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND item_id = ?", roomID, itemID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.ErrItemNotFound, "物品不存在于房间")
		}
		return err
	}

	if entry.Quantity > 1 {
		return r.db.WithContext(ctx).
			Model(&entry).
			Update("quantity", entry.Quantity-1).Error
	}
	return r.db.WithContext(ctx).Unscoped().Delete(&entry).Error
}

// FindStockByItem 查找持有指定物品的所有房间库存条目
func (r *roomRepo) FindStockByItem(ctx context.Context, itemID uint) ([]models.RoomItem, error) {
	var entries []models.RoomItem
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Find(&entries).Error
	return entries, err
}
