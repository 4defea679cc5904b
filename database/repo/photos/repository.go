package photos

import (
	"context"
	"fmt"

	"github.com/anoixa/photo-relay/database"
	"github.com/anoixa/photo-relay/database/models"
	"gorm.io/gorm"
)

// RepositoryInterface 照片仓库接口
type RepositoryInterface interface {
	First(ctx context.Context) (*models.Photo, error)
	List(ctx context.Context) ([]models.Photo, error)
	Count(ctx context.Context) (int64, error)
	ReplaceAll(ctx context.Context, photo *models.Photo) ([]models.Photo, error)
}

// Repository 照片仓库 - 封装照片表的数据库操作
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的照片仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// First 返回 ID 最小的一条记录，表为空时返回 gorm.ErrRecordNotFound
func (r *Repository) First(ctx context.Context) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).Order("id asc").First(&photo).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

// List 返回全部记录
func (r *Repository) List(ctx context.Context) ([]models.Photo, error) {
	var photos []models.Photo
	if err := r.db.WithContext(ctx).Order("id asc").Find(&photos).Error; err != nil {
		return nil, err
	}
	return photos, nil
}

// Count 返回记录数
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Photo{}).Count(&count).Error
	return count, err
}

// ReplaceAll 在同一事务中删除全部记录并写入新记录
// 返回被删除的旧记录，供调用方清理对应的存储文件
func (r *Repository) ReplaceAll(ctx context.Context, photo *models.Photo) ([]models.Photo, error) {
	var previous []models.Photo

	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Find(&previous).Error; err != nil {
			return fmt.Errorf("failed to load existing photos in transaction: %w", err)
		}

		if len(previous) > 0 {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Photo{}).Error; err != nil {
				return fmt.Errorf("failed to delete existing photos in transaction: %w", err)
			}
		}

		if err := tx.Create(photo).Error; err != nil {
			return fmt.Errorf("failed to create photo in transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return previous, nil
}
