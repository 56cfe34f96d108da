package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/models"
	"gorm.io/gorm"
)

// InventoryRepository 玩家库存仓储接口
// 台账是持有数量的权威来源，负重用 TotalWeight 的SQL聚合计算。
type InventoryRepository interface {
	BaseRepository
	WithTx(tx *gorm.DB) InventoryRepository
	FindByUser(ctx context.Context, userID uint) ([]models.PlayerInventory, error)
	FindEntry(ctx context.Context, userID, itemID uint) (*models.PlayerInventory, error)
	AddItem(ctx context.Context, userID, itemID uint) error
	RemoveItem(ctx context.Context, userID, itemID uint) (remaining int, err error)
	TotalWeight(ctx context.Context, userID uint) (float64, error)
}

// inventoryRepo 玩家库存仓储实现
type inventoryRepo struct {
	*BaseRepo
}

// NewInventoryRepository 创建玩家库存仓储
func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// WithTx 使用事务
func (r *inventoryRepo) WithTx(tx *gorm.DB) InventoryRepository {
	return &inventoryRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// FindByUser 查找玩家全部库存（带物品信息）
func (r *inventoryRepo) FindByUser(ctx context.Context, userID uint) ([]models.PlayerInventory, error) {
	var entries []models.PlayerInventory
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("user_id = ?", userID).
		Find(&entries).Error
	return entries, err
}

// FindEntry 查找指定物品的库存条目
func (r *inventoryRepo) FindEntry(ctx context.Context, userID, itemID uint) (*models.PlayerInventory, error) {
	var entry models.PlayerInventory
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("user_id = ? AND item_id = ?", userID, itemID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrItemNotFound, "背包中没有该物品")
		}
		return nil, err
	}
	return &entry, nil
}

// AddItem 向玩家库存添加一件物品（已有条目则数量+1）
func (r *inventoryRepo) AddItem(ctx context.Context, userID, itemID uint) error {
	var entry models.PlayerInventory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		First(&entry).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = models.PlayerInventory{
			UserID:   userID,
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

// RemoveItem 从玩家库存移除一件物品，返回剩余数量（条目被删除时为0）
func (r *inventoryRepo) RemoveItem(ctx context.Context, userID, itemID uint) (int, error) {
	var entry models.PlayerInventory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.New(apperrors.ErrItemNotFound, "背包中没有该物品")
		}
		return 0, err
	}

	if entry.Quantity > 1 {
		remaining := entry.Quantity - 1
		err = r.db.WithContext(ctx).
			Model(&entry).
			Update("quantity", remaining).Error
		return remaining, err
	}

	return 0, r.db.WithContext(ctx).Unscoped().Delete(&entry).Error
}

// TotalWeight 计算玩家负重（SQL聚合：重量×数量求和）
func (r *inventoryRepo) TotalWeight(ctx context.Context, userID uint) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.PlayerInventory{}).
		Select("COALESCE(SUM(items.weight * player_inventories.quantity), 0)").
		Joins("JOIN items ON items.id = player_inventories.item_id").
		Where("player_inventories.user_id = ?", userID).
		Scan(&total).Error
	return total, err
}
