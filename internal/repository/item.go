package repository

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/models"
	"gorm.io/gorm"
)

// ItemRepository 物品仓储接口
type ItemRepository interface {
	BaseRepository
	WithTx(tx *gorm.DB) ItemRepository
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id uint) (*models.Item, error)
	FindByName(ctx context.Context, name string) (*models.Item, error)
	FindAll(ctx context.Context) ([]models.Item, error)
}

// itemRepo 物品仓储实现
type itemRepo struct {
	*BaseRepo
}

// NewItemRepository 创建物品仓储
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// WithTx 使用事务
func (r *itemRepo) WithTx(tx *gorm.DB) ItemRepository {
	return &itemRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// Create 创建物品
func (r *itemRepo) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID 根据ID查找物品
func (r *itemRepo) FindByID(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrItemNotFound, "物品不存在: %d", id)
		}
		return nil, err
	}
	return &item, nil
}

// FindByName 根据名称查找物品（去空格、大小写不敏感）
func (r *itemRepo) FindByName(ctx context.Context, name string) (*models.Item, error) {
	var item models.Item
	target := strings.ToLower(strings.TrimSpace(name))
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(name)) = ?", target).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrItemNotFound, "物品不存在: %s", name)
		}
		return nil, err
	}
	return &item, nil
}

// FindAll 查找所有物品
func (r *itemRepo) FindAll(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).Find(&items).Error
	return items, err
}
