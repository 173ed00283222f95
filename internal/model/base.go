package model

import "time"

// BaseModel 通用审计字段（所有业务模型嵌入）
// CreatedBy / UpdatedBy 记录外部身份服务中的用户名
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(128)"                  json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(128)"                  json:"updated_by,omitempty"`
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// StampCreated 写入创建人与更新人
func (b *BaseModel) StampCreated(user string, now time.Time) {
	b.CreatedAt = now
	b.UpdatedAt = now
	if user != "" {
		b.CreatedBy = &user
		b.UpdatedBy = &user
	}
}

// StampUpdated 写入更新人
func (b *BaseModel) StampUpdated(user string, now time.Time) {
	b.UpdatedAt = now
	if user != "" {
		b.UpdatedBy = &user
	}
}
