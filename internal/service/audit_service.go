package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"maintenance-tracker/internal/dto"
	"maintenance-tracker/internal/model"
	"maintenance-tracker/internal/observability"
	"maintenance-tracker/internal/repository"
	pkgkafka "maintenance-tracker/pkg/kafka"
)

// AuditService 审计日志业务接口
//
// Record 不返回错误：审计失败只记录日志，不影响业务操作本身
// Kafka 投递在后台进行，Flush 等待已发起的投递结束（关闭 writer 前调用）
type AuditService interface {
	Record(ctx context.Context, user string, action model.AuditAction, details, entityID string)
	List(ctx context.Context, req *dto.AuditLogListRequest) ([]model.AuditLog, int64, error)
	Flush(ctx context.Context) error
}

// auditPublishTimeout 单条事件投递的最长耗时，与请求生命周期无关
const auditPublishTimeout = 5 * time.Second

type auditService struct {
	repo           *repository.Repository
	writer         pkgkafka.MessageWriter // 为 nil 时不投递
	topic          string
	publishTimeout time.Duration
	inflight       sync.WaitGroup
	now            func() time.Time
	logger         *zap.Logger
}

// NewAuditService 创建 AuditService 实例
func NewAuditService(repo *repository.Repository, writer pkgkafka.MessageWriter, topic string, logger *zap.Logger) AuditService {
	return &auditService{
		repo:           repo,
		writer:         writer,
		topic:          topic,
		publishTimeout: auditPublishTimeout,
		now:            time.Now,
		logger:         logger,
	}
}

// ────────────────────── Record ──────────────────────

func (s *auditService) Record(ctx context.Context, user string, action model.AuditAction, details, entityID string) {
	entry := &model.AuditLog{
		ID:        uuid.New().String(),
		Timestamp: s.now(),
		User:      user,
		Action:    action,
		Details:   details,
		EntityID:  entityID,
	}

	if err := s.repo.AuditLog.Create(ctx, entry); err != nil {
		s.logger.Error("写入审计日志失败",
			zap.String("action", string(action)),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}

	if s.writer == nil {
		return
	}

	// 请求结束后 ctx 会被取消，投递使用脱离请求的限时 context
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()
		s.publish(pubCtx, entry)
	}()
}

// Flush 等待后台投递结束，ctx 到期时返回 ctx.Err()
func (s *auditService) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *auditService) publish(ctx context.Context, entry *model.AuditLog) {
	payload, err := json.Marshal(entry)
	if err != nil {
		s.logger.Error("序列化审计事件失败", zap.Error(err))
		observability.AuditPublished(false)
		return
	}

	key := entry.EntityID
	if key == "" {
		key = entry.ID
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(entry.Action)},
		},
		Time: entry.Timestamp,
	}
	if err := s.writer.WriteMessages(ctx, s.topic, msg); err != nil {
		s.logger.Warn("投递审计事件失败",
			zap.String("topic", s.topic),
			zap.String("audit_id", entry.ID),
			zap.Error(err),
		)
		observability.AuditPublished(false)
		return
	}
	observability.AuditPublished(true)
}

// ────────────────────── List ──────────────────────

func (s *auditService) List(ctx context.Context, req *dto.AuditLogListRequest) ([]model.AuditLog, int64, error) {
	logs, total, err := s.repo.AuditLog.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询审计日志失败", zap.Error(err))
		return nil, 0, err
	}
	return logs, total, nil
}
