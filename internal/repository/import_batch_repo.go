package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"maintenance-tracker/internal/model"
	pkgerrors "maintenance-tracker/pkg/errors"
)

// ImportBatchRepository 导入批次数据访问接口
// 批次与其活动始终在同一事务内写入或删除
type ImportBatchRepository interface {
	// CreateWithActivities 新建批次并写入活动
	CreateWithActivities(ctx context.Context, batch *model.ImportBatch, activities []model.Activity) error
	// ReplaceWithActivities 更新批次（乐观锁），删除前缀下全部旧活动并写入新活动
	ReplaceWithActivities(ctx context.Context, batch *model.ImportBatch, activities []model.Activity) error
	// DeleteWithActivities 删除批次及前缀下全部活动，返回删除的活动数
	DeleteWithActivities(ctx context.Context, id string) (int64, error)
	GetByID(ctx context.Context, id string) (*model.ImportBatch, error)
	// List 不加载原始行数据
	List(ctx context.Context, offset, limit int) ([]model.ImportBatch, int64, error)
}

type importBatchRepo struct {
	db *gorm.DB
}

// NewImportBatchRepo 创建 ImportBatchRepository 实例
func NewImportBatchRepo(db *gorm.DB) ImportBatchRepository {
	return &importBatchRepo{db: db}
}

func (r *importBatchRepo) CreateWithActivities(ctx context.Context, batch *model.ImportBatch, activities []model.Activity) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		if len(activities) > 0 {
			if err := upsertActivities(tx, activities); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *importBatchRepo) ReplaceWithActivities(ctx context.Context, batch *model.ImportBatch, activities []model.Activity) error {
	oldVersion := batch.Version
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ImportBatch{}).
			Where("id = ? AND version = ?", batch.ID, oldVersion).
			Updates(map[string]interface{}{
				"count":      batch.Count,
				"mapping":    batch.Mapping,
				"updated_at": time.Now(),
				"updated_by": batch.UpdatedBy,
				"version":    oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}

		// 全量替换：该批次的旧活动一律删除
		if _, err := deleteByIDPrefix(tx, batch.ActivityIDPrefix()); err != nil {
			return err
		}
		if len(activities) > 0 {
			if err := upsertActivities(tx, activities); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	batch.Version = oldVersion + 1
	return nil
}

func (r *importBatchRepo) DeleteWithActivities(ctx context.Context, id string) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&model.ImportBatch{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		n, err := deleteByIDPrefix(tx, model.BatchActivityIDPrefix(id))
		removed = n
		return err
	})
	return removed, err
}

func (r *importBatchRepo) GetByID(ctx context.Context, id string) (*model.ImportBatch, error) {
	var b model.ImportBatch
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *importBatchRepo) List(ctx context.Context, offset, limit int) ([]model.ImportBatch, int64, error) {
	var (
		list  []model.ImportBatch
		total int64
	)
	q := r.db.WithContext(ctx).Model(&model.ImportBatch{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q = q.Omit("rows").Order("imported_at DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
