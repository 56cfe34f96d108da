package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/models"
	"gorm.io/gorm"
)

// UserRepository 用户仓储接口
type UserRepository interface {
	BaseRepository
	WithTx(tx *gorm.DB) UserRepository
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindBySessionToken(ctx context.Context, token string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	UpdateSessionToken(ctx context.Context, userID uint, token string, lastActive time.Time) error
	UpdatePosition(ctx context.Context, userID uint, roomID uint) error
	UpdateMaxCarryWeight(ctx context.Context, userID uint, maxWeight float64) error
	TouchLastActive(ctx context.Context, userID uint, at time.Time) error
}

// userRepo 用户仓储实现
type userRepo struct {
	*BaseRepo
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// WithTx 使用事务
func (r *userRepo) WithTx(tx *gorm.DB) UserRepository {
	return &userRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// Create 创建用户
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID 根据ID查找用户
func (r *userRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrUserNotFound, "用户不存在")
		}
		return nil, err
	}
	return &user, nil
}

// FindByUsername 根据用户名查找用户
func (r *userRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrUserNotFound, "用户不存在")
		}
		return nil, err
	}
	return &user, nil
}

// FindBySessionToken 根据会话令牌查找用户
func (r *userRepo) FindBySessionToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("session_token = ?", token).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrSessionNotFound, "会话不存在或已过期")
		}
		return nil, err
	}
	return &user, nil
}

// Save 保存用户
func (r *userRepo) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// UpdateSessionToken 更新会话令牌并刷新活跃时间
func (r *userRepo) UpdateSessionToken(ctx context.Context, userID uint, token string, lastActive time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"session_token":  token,
			"last_active_at": lastActive,
		}).Error
}

// UpdatePosition 更新用户当前房间
func (r *userRepo) UpdatePosition(ctx context.Context, userID uint, roomID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("current_room_id", roomID).Error
}

// UpdateMaxCarryWeight 更新负重上限
func (r *userRepo) UpdateMaxCarryWeight(ctx context.Context, userID uint, maxWeight float64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("max_carry_weight", maxWeight).Error
}

// TouchLastActive 刷新最后活跃时间
func (r *userRepo) TouchLastActive(ctx context.Context, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_active_at", at).Error
}
