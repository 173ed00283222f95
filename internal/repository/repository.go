package repository

import (
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Activity    ActivityRepository
	ImportBatch ImportBatchRepository
	AuditLog    AuditLogRepository
}

// NewRepository 基于 PostgreSQL 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Activity:    NewActivityRepo(db),
		ImportBatch: NewImportBatchRepo(db),
		AuditLog:    NewAuditLogRepo(db),
	}
}

// NewKVRepository 基于 Redis 创建降级 Repository 聚合（数据库不可用时使用）
func NewKVRepository(rdb goredis.UniversalClient) *Repository {
	store := newKVStore(rdb)
	return &Repository{
		Activity:    &kvActivityRepo{store},
		ImportBatch: &kvImportBatchRepo{store},
		AuditLog:    &kvAuditLogRepo{store},
	}
}
