package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"maintenance-tracker/internal/model"
	"maintenance-tracker/internal/repository"
	pkgerrors "maintenance-tracker/pkg/errors"
)

// ── Mock ActivityRepository ──

type mockActivityRepo struct {
	activities map[string]*model.Activity
	failWith   error
}

func newMockActivityRepo() *mockActivityRepo {
	return &mockActivityRepo{activities: make(map[string]*model.Activity)}
}

func (m *mockActivityRepo) Create(_ context.Context, a *model.Activity) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.activities[a.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *a
	m.activities[a.ID] = &cp
	return nil
}

func (m *mockActivityRepo) CreateBatch(_ context.Context, list []model.Activity) error {
	if m.failWith != nil {
		return m.failWith
	}
	for i := range list {
		if _, ok := m.activities[list[i].ID]; ok {
			return gorm.ErrDuplicatedKey
		}
	}
	m.put(list)
	return nil
}

func (m *mockActivityRepo) put(list []model.Activity) {
	for i := range list {
		cp := list[i]
		m.activities[cp.ID] = &cp
	}
}

func (m *mockActivityRepo) GetByID(_ context.Context, id string) (*model.Activity, error) {
	if a, ok := m.activities[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockActivityRepo) List(_ context.Context, filter repository.ActivityFilter, offset, limit int) ([]model.Activity, int64, error) {
	if m.failWith != nil {
		return nil, 0, m.failWith
	}
	var result []model.Activity
	for _, a := range m.activities {
		if filter.Match(a) {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].HoraInicio.Equal(result[j].HoraInicio) {
			return result[i].HoraInicio.Before(result[j].HoraInicio)
		}
		return result[i].ID < result[j].ID
	})
	total := int64(len(result))
	if limit <= 0 {
		return result, total, nil
	}
	if offset >= len(result) {
		return []model.Activity{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockActivityRepo) Update(_ context.Context, a *model.Activity) error {
	if _, ok := m.activities[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *a
	m.activities[a.ID] = &cp
	return nil
}

func (m *mockActivityRepo) UpdateWithInstances(_ context.Context, tpl *model.Activity, list []model.Activity) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.activities[tpl.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range list {
		if _, ok := m.activities[list[i].ID]; ok {
			return gorm.ErrDuplicatedKey
		}
	}
	m.put(append([]model.Activity{*tpl}, list...))
	return nil
}

func (m *mockActivityRepo) UpdateStatus(_ context.Context, id string, status model.Status, updatedBy string) error {
	a, ok := m.activities[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Status = status
	a.UpdatedBy = &updatedBy
	return nil
}

func (m *mockActivityRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.activities[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.activities, id)
	return nil
}

func (m *mockActivityRepo) DeleteByIDPrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for id := range m.activities {
		if prefix != "" && strings.HasPrefix(id, prefix) {
			delete(m.activities, id)
			n++
		}
	}
	return n, nil
}

// ── Mock ImportBatchRepository ──

type mockImportBatchRepo struct {
	batches    map[string]*model.ImportBatch
	activities *mockActivityRepo
}

func newMockImportBatchRepo(activities *mockActivityRepo) *mockImportBatchRepo {
	return &mockImportBatchRepo{batches: make(map[string]*model.ImportBatch), activities: activities}
}

func (m *mockImportBatchRepo) CreateWithActivities(ctx context.Context, batch *model.ImportBatch, list []model.Activity) error {
	if _, ok := m.batches[batch.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if m.activities.failWith != nil {
		return m.activities.failWith
	}
	m.activities.put(list)
	cp := *batch
	m.batches[batch.ID] = &cp
	return nil
}

func (m *mockImportBatchRepo) ReplaceWithActivities(ctx context.Context, batch *model.ImportBatch, list []model.Activity) error {
	stored, ok := m.batches[batch.ID]
	if !ok || stored.Version != batch.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if m.activities.failWith != nil {
		return m.activities.failWith
	}
	_, _ = m.activities.DeleteByIDPrefix(ctx, batch.ActivityIDPrefix())
	m.activities.put(list)
	batch.Version++
	cp := *batch
	m.batches[batch.ID] = &cp
	return nil
}

func (m *mockImportBatchRepo) DeleteWithActivities(ctx context.Context, id string) (int64, error) {
	if _, ok := m.batches[id]; !ok {
		return 0, gorm.ErrRecordNotFound
	}
	delete(m.batches, id)
	return m.activities.DeleteByIDPrefix(ctx, model.BatchActivityIDPrefix(id))
}

func (m *mockImportBatchRepo) GetByID(_ context.Context, id string) (*model.ImportBatch, error) {
	if b, ok := m.batches[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockImportBatchRepo) List(_ context.Context, offset, limit int) ([]model.ImportBatch, int64, error) {
	var result []model.ImportBatch
	for _, b := range m.batches {
		cp := *b
		cp.Rows = nil
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ImportedAt.After(result[j].ImportedAt) })
	total := int64(len(result))
	if offset >= len(result) {
		return []model.ImportBatch{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

// ── Mock AuditLogRepository ──

type mockAuditLogRepo struct {
	logs     []model.AuditLog
	failWith error
}

func newMockAuditLogRepo() *mockAuditLogRepo {
	return &mockAuditLogRepo{}
}

func (m *mockAuditLogRepo) Create(_ context.Context, log *model.AuditLog) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockAuditLogRepo) List(_ context.Context, offset, limit int) ([]model.AuditLog, int64, error) {
	if m.failWith != nil {
		return nil, 0, m.failWith
	}
	result := make([]model.AuditLog, 0, len(m.logs))
	for i := len(m.logs) - 1; i >= 0; i-- {
		result = append(result, m.logs[i])
	}
	total := int64(len(result))
	if offset >= len(result) {
		return []model.AuditLog{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

// last 最近一条审计日志
func (m *mockAuditLogRepo) last() *model.AuditLog {
	if len(m.logs) == 0 {
		return nil
	}
	return &m.logs[len(m.logs)-1]
}

// ── Mock MessageWriter ──

// 投递在后台 goroutine 中进行，字段访问需加锁；release 非 nil 时写入阻塞到其关闭或 ctx 到期
type mockMessageWriter struct {
	mu       sync.Mutex
	topics   []string
	messages []kafka.Message
	failWith error
	release  chan struct{}
}

func (m *mockMessageWriter) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for range msgs {
		m.topics = append(m.topics, topic)
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockMessageWriter) Close() error { return nil }

func (m *mockMessageWriter) sent() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kafka.Message(nil), m.messages...)
}

var errMockStore = errors.New("mock store failure")

// ── 测试装配 ──

type testRepos struct {
	activity *mockActivityRepo
	batch    *mockImportBatchRepo
	audit    *mockAuditLogRepo
}

func newTestRepository() (*repository.Repository, *testRepos) {
	activity := newMockActivityRepo()
	mocks := &testRepos{
		activity: activity,
		batch:    newMockImportBatchRepo(activity),
		audit:    newMockAuditLogRepo(),
	}
	repo := &repository.Repository{
		Activity:    mocks.activity,
		ImportBatch: mocks.batch,
		AuditLog:    mocks.audit,
	}
	return repo, mocks
}
