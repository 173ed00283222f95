package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrStoreUnavailable 存储后端不可用（数据库与降级存储均无法访问）
var ErrStoreUnavailable = errors.New("存储服务不可用，请稍后重试")
