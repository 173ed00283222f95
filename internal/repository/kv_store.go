package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"maintenance-tracker/internal/model"
	pkgerrors "maintenance-tracker/pkg/errors"
	"maintenance-tracker/pkg/sheetcell"
)

// ── Redis 降级存储 ──
//
// 键布局：
//   maint:activity:{id}        活动 JSON
//   maint:activities:by_start  ZSET，score = hora_inicio 毫秒，用于排序列表
//   maint:activities:ids       ZSET，score 恒为 0，按字典序做前缀检索
//   maint:batch:{id}           批次 JSON（含原始行）
//   maint:batches              ZSET，score = imported_at 毫秒
//   maint:audit                LIST，最新在前

const (
	kvActivityKey   = "maint:activity:"
	kvActivityStart = "maint:activities:by_start"
	kvActivityIDs   = "maint:activities:ids"
	kvBatchKey      = "maint:batch:"
	kvBatchIndex    = "maint:batches"
	kvAuditList     = "maint:audit"
)

type kvStore struct {
	rdb goredis.UniversalClient
}

func newKVStore(rdb goredis.UniversalClient) *kvStore {
	return &kvStore{rdb: rdb}
}

func putActivities(ctx context.Context, pipe goredis.Pipeliner, activities []model.Activity) error {
	for i := range activities {
		a := &activities[i]
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		pipe.Set(ctx, kvActivityKey+a.ID, data, 0)
		pipe.ZAdd(ctx, kvActivityStart, goredis.Z{Score: float64(a.HoraInicio.UnixMilli()), Member: a.ID})
		pipe.ZAdd(ctx, kvActivityIDs, goredis.Z{Score: 0, Member: a.ID})
	}
	return nil
}

func removeActivities(ctx context.Context, pipe goredis.Pipeliner, ids []string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = kvActivityKey + id
		members[i] = id
	}
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, kvActivityStart, members...)
	pipe.ZRem(ctx, kvActivityIDs, members...)
}

type lexRanger interface {
	ZRangeByLex(ctx context.Context, key string, opt *goredis.ZRangeBy) *goredis.StringSliceCmd
}

// idsWithPrefix 利用字典序 ZSET 做前缀检索
func idsWithPrefix(ctx context.Context, c lexRanger, prefix string) ([]string, error) {
	if prefix == "" {
		return nil, nil
	}
	return c.ZRangeByLex(ctx, kvActivityIDs, &goredis.ZRangeBy{
		Min: "[" + prefix,
		Max: "[" + prefix + "\xff",
	}).Result()
}

func (s *kvStore) getActivity(ctx context.Context, id string) (*model.Activity, error) {
	data, err := s.rdb.Get(ctx, kvActivityKey+id).Bytes()
	if err != nil {
		return nil, notFound(err)
	}
	var a model.Activity
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *kvStore) saveActivity(ctx context.Context, a *model.Activity) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		return putActivities(ctx, pipe, []model.Activity{*a})
	})
	return err
}

// sortActivities 与 SQL 排序一致：hora_inicio ASC, id ASC
func sortActivities(list []model.Activity) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].HoraInicio.Equal(list[j].HoraInicio) {
			return list[i].HoraInicio.Before(list[j].HoraInicio)
		}
		return list[i].ID < list[j].ID
	})
}

// notFound 将 redis.Nil 转为 gorm.ErrRecordNotFound，连接类错误转为 ErrStoreUnavailable
func notFound(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, goredis.Nil):
		return gorm.ErrRecordNotFound
	case errors.Is(err, goredis.ErrClosed), errors.Is(err, io.EOF), errors.As(err, &netErr):
		return fmt.Errorf("%w: %v", pkgerrors.ErrStoreUnavailable, err)
	}
	return err
}

// ── 活动 ──

type kvActivityRepo struct {
	s *kvStore
}

func (r *kvActivityRepo) Create(ctx context.Context, activity *model.Activity) error {
	return r.CreateBatch(ctx, []model.Activity{*activity})
}

func (r *kvActivityRepo) CreateBatch(ctx context.Context, activities []model.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	keys := make([]string, len(activities))
	for i := range activities {
		keys[i] = kvActivityKey + activities[i].ID
	}
	err := r.s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, keys...).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return gorm.ErrDuplicatedKey
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			return putActivities(ctx, pipe, activities)
		})
		return err
	}, keys...)
	// 检查与写入之间键被其他写入占用
	if errors.Is(err, goredis.TxFailedErr) {
		return gorm.ErrDuplicatedKey
	}
	return err
}

func (r *kvActivityRepo) GetByID(ctx context.Context, id string) (*model.Activity, error) {
	return r.s.getActivity(ctx, id)
}

func (r *kvActivityRepo) List(ctx context.Context, filter ActivityFilter, offset, limit int) ([]model.Activity, int64, error) {
	var (
		ids []string
		err error
	)
	if filter.IDPrefix != "" {
		ids, err = idsWithPrefix(ctx, r.s.rdb, filter.IDPrefix)
	} else {
		ids, err = r.s.rdb.ZRange(ctx, kvActivityStart, 0, -1).Result()
	}
	if err != nil {
		return nil, 0, err
	}

	all, err := r.load(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	matched := make([]model.Activity, 0, len(all))
	for i := range all {
		if filter.Match(&all[i]) {
			matched = append(matched, all[i])
		}
	}
	if filter.IDPrefix != "" {
		sortActivities(matched)
	}

	total := int64(len(matched))
	if limit <= 0 {
		return matched, total, nil
	}
	if offset >= len(matched) {
		return []model.Activity{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *kvActivityRepo) load(ctx context.Context, ids []string) ([]model.Activity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = kvActivityKey + id
	}
	vals, err := r.s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.Activity, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // 索引与数据不一致时跳过
		}
		var a model.Activity
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *kvActivityRepo) Update(ctx context.Context, activity *model.Activity) error {
	return r.UpdateWithInstances(ctx, activity, nil)
}

func (r *kvActivityRepo) UpdateWithInstances(ctx context.Context, template *model.Activity, instances []model.Activity) error {
	key := kvActivityKey + template.ID
	keys := make([]string, 0, len(instances)+1)
	keys = append(keys, key)
	for i := range instances {
		keys = append(keys, kvActivityKey+instances[i].ID)
	}
	err := r.s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return notFound(err)
		}
		var existing model.Activity
		if err := json.Unmarshal(data, &existing); err != nil {
			return err
		}
		if len(instances) > 0 {
			n, err := tx.Exists(ctx, keys[1:]...).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return gorm.ErrDuplicatedKey
			}
		}

		template.CreatedAt = existing.CreatedAt
		template.CreatedBy = existing.CreatedBy
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if err := putActivities(ctx, pipe, []model.Activity{*template}); err != nil {
				return err
			}
			return putActivities(ctx, pipe, instances)
		})
		return err
	}, keys...)
	if errors.Is(err, goredis.TxFailedErr) {
		return pkgerrors.ErrOptimisticLock
	}
	return err
}

func (r *kvActivityRepo) UpdateStatus(ctx context.Context, id string, status model.Status, updatedBy string) error {
	a, err := r.s.getActivity(ctx, id)
	if err != nil {
		return err
	}
	a.Status = status
	a.StampUpdated(updatedBy, time.Now())
	return r.s.saveActivity(ctx, a)
}

func (r *kvActivityRepo) Delete(ctx context.Context, id string) error {
	n, err := r.s.rdb.Exists(ctx, kvActivityKey+id).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	_, err = r.s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		removeActivities(ctx, pipe, []string{id})
		return nil
	})
	return err
}

func (r *kvActivityRepo) DeleteByIDPrefix(ctx context.Context, prefix string) (int64, error) {
	ids, err := idsWithPrefix(ctx, r.s.rdb, prefix)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	_, err = r.s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		removeActivities(ctx, pipe, ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// ── 导入批次 ──

// kvBatch 批次序列化结构：ImportBatch.Rows 不参与 API JSON，此处单独保存
type kvBatch struct {
	*model.ImportBatch
	Rows datatypes.JSONSlice[sheetcell.Row] `json:"rows"`
}

func encodeBatch(b *model.ImportBatch) ([]byte, error) {
	return json.Marshal(kvBatch{ImportBatch: b, Rows: b.Rows})
}

func decodeBatch(data []byte) (*model.ImportBatch, error) {
	var b model.ImportBatch
	kb := kvBatch{ImportBatch: &b}
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, err
	}
	b.Rows = kb.Rows
	return &b, nil
}

type kvImportBatchRepo struct {
	s *kvStore
}

func (r *kvImportBatchRepo) CreateWithActivities(ctx context.Context, batch *model.ImportBatch, activities []model.Activity) error {
	key := kvBatchKey + batch.ID
	n, err := r.s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return gorm.ErrDuplicatedKey
	}
	if batch.Version == 0 {
		batch.Version = 1
	}
	data, err := encodeBatch(batch)
	if err != nil {
		return err
	}
	_, err = r.s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.ZAdd(ctx, kvBatchIndex, goredis.Z{Score: float64(batch.ImportedAt.UnixMilli()), Member: batch.ID})
		return putActivities(ctx, pipe, activities)
	})
	return err
}

func (r *kvImportBatchRepo) ReplaceWithActivities(ctx context.Context, batch *model.ImportBatch, activities []model.Activity) error {
	key := kvBatchKey + batch.ID
	var newVersion int
	err := r.s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return pkgerrors.ErrOptimisticLock
			}
			return err
		}
		stored, err := decodeBatch(data)
		if err != nil {
			return err
		}
		if stored.Version != batch.Version {
			return pkgerrors.ErrOptimisticLock
		}

		stored.Count = batch.Count
		stored.Mapping = batch.Mapping
		stored.UpdatedAt = time.Now()
		stored.UpdatedBy = batch.UpdatedBy
		stored.Version++
		newVersion = stored.Version
		encoded, err := encodeBatch(stored)
		if err != nil {
			return err
		}

		oldIDs, err := idsWithPrefix(ctx, tx, batch.ActivityIDPrefix())
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			removeActivities(ctx, pipe, oldIDs)
			return putActivities(ctx, pipe, activities)
		})
		return err
	}, key, kvActivityIDs)
	if errors.Is(err, goredis.TxFailedErr) {
		return pkgerrors.ErrOptimisticLock
	}
	if err != nil {
		return err
	}
	batch.Version = newVersion
	return nil
}

func (r *kvImportBatchRepo) DeleteWithActivities(ctx context.Context, id string) (int64, error) {
	key := kvBatchKey + id
	n, err := r.s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	ids, err := idsWithPrefix(ctx, r.s.rdb, model.BatchActivityIDPrefix(id))
	if err != nil {
		return 0, err
	}
	_, err = r.s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, kvBatchIndex, id)
		removeActivities(ctx, pipe, ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (r *kvImportBatchRepo) GetByID(ctx context.Context, id string) (*model.ImportBatch, error) {
	data, err := r.s.rdb.Get(ctx, kvBatchKey+id).Bytes()
	if err != nil {
		return nil, notFound(err)
	}
	return decodeBatch(data)
}

func (r *kvImportBatchRepo) List(ctx context.Context, offset, limit int) ([]model.ImportBatch, int64, error) {
	total, err := r.s.rdb.ZCard(ctx, kvBatchIndex).Result()
	if err != nil {
		return nil, 0, err
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	ids, err := r.s.rdb.ZRevRange(ctx, kvBatchIndex, int64(offset), stop).Result()
	if err != nil {
		return nil, 0, err
	}
	list := make([]model.ImportBatch, 0, len(ids))
	for _, id := range ids {
		b, err := r.GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		b.Rows = nil
		list = append(list, *b)
	}
	return list, total, nil
}

// ── 审计日志 ──

type kvAuditLogRepo struct {
	s *kvStore
}

func (r *kvAuditLogRepo) Create(ctx context.Context, log *model.AuditLog) error {
	data, err := json.Marshal(log)
	if err != nil {
		return err
	}
	return r.s.rdb.LPush(ctx, kvAuditList, data).Err()
}

func (r *kvAuditLogRepo) List(ctx context.Context, offset, limit int) ([]model.AuditLog, int64, error) {
	total, err := r.s.rdb.LLen(ctx, kvAuditList).Result()
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = int(total)
	}
	raws, err := r.s.rdb.LRange(ctx, kvAuditList, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, err
	}
	list := make([]model.AuditLog, 0, len(raws))
	for _, raw := range raws {
		var l model.AuditLog
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			return nil, 0, err
		}
		list = append(list, l)
	}
	return list, total, nil
}
