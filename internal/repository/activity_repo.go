package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"maintenance-tracker/internal/model"
)

const upsertBatchSize = 200

// ActivityRepository 活动数据访问接口
type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	// CreateBatch 单事务插入，任一 id 已存在时整体失败并返回 gorm.ErrDuplicatedKey
	CreateBatch(ctx context.Context, activities []model.Activity) error
	GetByID(ctx context.Context, id string) (*model.Activity, error)
	// List limit<=0 时返回全部
	List(ctx context.Context, filter ActivityFilter, offset, limit int) ([]model.Activity, int64, error)
	Update(ctx context.Context, activity *model.Activity) error
	// UpdateWithInstances 单事务内更新模板并插入新生成的周期实例
	UpdateWithInstances(ctx context.Context, template *model.Activity, instances []model.Activity) error
	UpdateStatus(ctx context.Context, id string, status model.Status, updatedBy string) error
	Delete(ctx context.Context, id string) error
	// DeleteByIDPrefix 按 id 前缀批量删除，返回删除条数
	DeleteByIDPrefix(ctx context.Context, prefix string) (int64, error)
}

type activityRepo struct {
	db *gorm.DB
}

// NewActivityRepo 创建 ActivityRepository 实例
func NewActivityRepo(db *gorm.DB) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) Create(ctx context.Context, activity *model.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *activityRepo) CreateBatch(ctx context.Context, activities []model.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&activities, upsertBatchSize).Error
	})
}

// upsertActivities 导入批次按 id 整体替换时使用

func upsertActivities(tx *gorm.DB, activities []model.Activity) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(&activities, upsertBatchSize).Error
}

func (r *activityRepo) GetByID(ctx context.Context, id string) (*model.Activity, error) {
	var a model.Activity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *activityRepo) List(ctx context.Context, filter ActivityFilter, offset, limit int) ([]model.Activity, int64, error) {
	var (
		list  []model.Activity
		total int64
	)
	q := filter.Apply(r.db.WithContext(ctx).Model(&model.Activity{}))
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("hora_inicio ASC, id ASC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *activityRepo) Update(ctx context.Context, activity *model.Activity) error {
	return updateActivity(r.db.WithContext(ctx), activity)
}

func (r *activityRepo) UpdateWithInstances(ctx context.Context, template *model.Activity, instances []model.Activity) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateActivity(tx, template); err != nil {
			return err
		}
		if len(instances) == 0 {
			return nil
		}
		return tx.CreateInBatches(&instances, upsertBatchSize).Error
	})
}

func updateActivity(tx *gorm.DB, activity *model.Activity) error {
	result := tx.
		Model(&model.Activity{}).
		Where("id = ?", activity.ID).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(activity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *activityRepo) UpdateStatus(ctx context.Context, id string, status model.Status, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Activity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": updatedBy,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *activityRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Activity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *activityRepo) DeleteByIDPrefix(ctx context.Context, prefix string) (int64, error) {
	return deleteByIDPrefix(r.db.WithContext(ctx), prefix)
}

func deleteByIDPrefix(tx *gorm.DB, prefix string) (int64, error) {
	if prefix == "" {
		return 0, nil
	}
	result := tx.Where("id LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").Delete(&model.Activity{})
	return result.RowsAffected, result.Error
}
