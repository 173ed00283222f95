package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"maintenance-tracker/internal/dto"
	"maintenance-tracker/internal/model"
	"maintenance-tracker/internal/observability"
	"maintenance-tracker/internal/repository"
	pkgerrors "maintenance-tracker/pkg/errors"
)

// ── 活动模块业务错误 ──

var (
	ErrActivityNotFound            = errors.New("活动不存在")
	ErrActivityInvalidTimeRange    = errors.New("结束时间必须晚于开始时间")
	ErrActivityInvalidStatus       = errors.New("无效的活动状态")
	ErrActivityInvalidPeriodicity  = errors.New("无效的周期")
	ErrActivityInvalidDate         = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrActivityInvalidRealRange    = errors.New("实际结束时间必须晚于实际开始时间")
	ErrActivityConflict            = errors.New("活动 ID 冲突或已被其他操作修改，请重试")
	ErrRecurrenceLimitRequired     = errors.New("预览周期实例需要指定截止日期")
	ErrRecurrencePeriodicityNotSet = errors.New("周期为 \"Não há\" 时无法生成实例")
)

const dateLayout = "2006-01-02"

// ActivityService 活动业务接口
type ActivityService interface {
	Create(ctx context.Context, req *dto.ActivityRequest, caller Caller) (*dto.ActivityBatchResponse, error)
	Get(ctx context.Context, id string) (*model.Activity, error)
	List(ctx context.Context, req *dto.ActivityListRequest, caller Caller) ([]model.Activity, int64, error)
	Update(ctx context.Context, id string, req *dto.ActivityRequest, caller Caller) (*dto.ActivityBatchResponse, error)
	// UpdateStatus 仅修改状态，不改动任何日期
	UpdateStatus(ctx context.Context, id, status string, caller Caller) (*model.Activity, error)
	// Reschedule 移动到新日期，保持时刻与时长
	Reschedule(ctx context.Context, id, date string, caller Caller) (*model.Activity, error)
	AddComment(ctx context.Context, id, text string, caller Caller) (*model.Comment, error)
	Delete(ctx context.Context, id string, caller Caller) error
	// PreviewRecurrence 展开周期实例但不持久化
	PreviewRecurrence(ctx context.Context, req *dto.ActivityRequest) (*dto.RecurrencePreviewResponse, error)
}

type activityService struct {
	repo   *repository.Repository
	audit  AuditService
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewActivityService 创建 ActivityService 实例
func NewActivityService(repo *repository.Repository, audit AuditService, loc *time.Location, logger *zap.Logger) ActivityService {
	if loc == nil {
		loc = time.Local
	}
	return &activityService{
		repo:   repo,
		audit:  audit,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *activityService) Create(ctx context.Context, req *dto.ActivityRequest, caller Caller) (*dto.ActivityBatchResponse, error) {
	act, err := s.buildActivity(req, StatusFromRequest(req.Status, model.StatusOpen))
	if err != nil {
		return nil, err
	}

	now := s.now()
	millis := now.UnixMilli()
	act.ID = fmt.Sprintf("act_%d_0", millis)
	act.StampCreated(caller.Username, now)

	generated := s.expand(act, req.RecurrenceLimit, func(n int) string {
		return fmt.Sprintf("act_%d_%d", millis, n)
	})
	for i := range generated {
		generated[i].StampCreated(caller.Username, now)
	}

	// 仅插入：同一毫秒内的并发创建以冲突失败，不覆盖已有活动
	if len(generated) == 0 {
		err = s.repo.Activity.Create(ctx, act)
	} else {
		err = s.repo.Activity.CreateBatch(ctx, append([]model.Activity{*act}, generated...))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Warn("活动 ID 冲突", zap.String("id", act.ID))
			return nil, ErrActivityConflict
		}
		s.logger.Error("创建活动失败", zap.String("id", act.ID), zap.Error(err))
		return nil, err
	}

	observability.AddRecurrenceInstances(len(generated))
	s.audit.Record(ctx, caller.DisplayName(), model.AuditCreate,
		fmt.Sprintf("Criou %d atividade(s): %s - %s", len(generated)+1, act.Tag, act.Descricao), act.ID)

	return &dto.ActivityBatchResponse{Activity: *act, Generated: generated}, nil
}

// StatusFromRequest 空字符串取默认值
func StatusFromRequest(raw string, fallback model.Status) model.Status {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	return model.Status(strings.TrimSpace(raw))
}

// buildActivity 请求 → 活动（不含 ID 与审计字段）
func (s *activityService) buildActivity(req *dto.ActivityRequest, status model.Status) (*model.Activity, error) {
	if !status.Valid() {
		return nil, ErrActivityInvalidStatus
	}
	periodicity, ok := model.ParsePeriodicity(req.Periodicidade)
	if !ok {
		return nil, ErrActivityInvalidPeriodicity
	}

	start := req.HoraInicio.In(s.loc)
	end := req.HoraFim.In(s.loc)
	if !end.After(start) {
		return nil, ErrActivityInvalidTimeRange
	}
	realStart := s.inLoc(req.HoraInicioReal)
	realEnd := s.inLoc(req.HoraFimReal)
	if realStart != nil && realEnd != nil && !realEnd.After(*realStart) {
		return nil, ErrActivityInvalidRealRange
	}

	act := &model.Activity{
		IDMp:           strings.TrimSpace(req.IDMp),
		Tag:            strings.TrimSpace(req.Tag),
		Tipo:           strings.TrimSpace(req.Tipo),
		Periodicidade:  periodicity,
		Area:           strings.TrimSpace(req.Area),
		Descricao:      strings.TrimSpace(req.Descricao),
		Jornada:        req.Jornada,
		Turno:          strings.TrimSpace(req.Turno),
		Empresa:        strings.TrimSpace(req.Empresa),
		Efetivo:        req.Efetivo,
		Responsavel:    NormalizeResponsible(req.Responsavel, model.ResponsibleSeparator),
		Supervisor:     strings.TrimSpace(req.Supervisor),
		HoraInicio:     start,
		HoraFim:        end,
		HoraInicioReal: realStart,
		HoraFimReal:    realEnd,
		REletrico:      req.REletrico,
		Labapet:        req.Labapet,
		Criticidade:    model.ParseCriticality(req.Criticidade),
		Observacoes:    req.Observacoes,
		Status:         status,
		Attachments:    req.Attachments,
		BeforeImage:    req.BeforeImage,
		AfterImage:     req.AfterImage,
	}
	if act.Tag == "" {
		act.Tag = DefaultTag
	}
	if act.Tipo == "" {
		act.Tipo = DefaultActivityType
	}
	act.SyncDuracao()
	act.EnsureCollections()
	return act, nil
}

func (s *activityService) inLoc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.In(s.loc)
	return &v
}

// expand 按截止日期展开周期实例并重新编号
func (s *activityService) expand(tpl *model.Activity, limit *time.Time, idFor func(n int) string) []model.Activity {
	if limit == nil || tpl.Periodicidade == model.PeriodicityNone {
		return nil
	}
	instances := ExpandRecurrence(*tpl, limit.In(s.loc))
	for i := range instances {
		instances[i].ID = idFor(i + 1)
	}
	return instances
}

// ────────────────────── Get ──────────────────────

func (s *activityService) Get(ctx context.Context, id string) (*model.Activity, error) {
	act, err := s.repo.Activity.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		s.logger.Error("查询活动失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	act.EnsureCollections()
	return act, nil
}

// ────────────────────── List ──────────────────────

func (s *activityService) List(ctx context.Context, req *dto.ActivityListRequest, caller Caller) ([]model.Activity, int64, error) {
	filter := repository.ActivityFilter{
		Turno:       req.Turno,
		Responsavel: req.Responsavel,
		Supervisor:  req.Supervisor,
		IDMp:        req.IDMp,
	}
	if req.Mine {
		filter.Responsavel = caller.DisplayName()
	}
	if req.Status != "" {
		filter.Status = model.Status(req.Status)
		if !filter.Status.Valid() {
			return nil, 0, ErrActivityInvalidStatus
		}
	}
	from, to, err := parseDateRange(req.From, req.To, s.loc)
	if err != nil {
		return nil, 0, err
	}
	filter.From, filter.To = from, to

	list, total, err := s.repo.Activity.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出活动失败", zap.Error(err))
		return nil, 0, err
	}
	for i := range list {
		list[i].EnsureCollections()
	}
	return list, total, nil
}

// parseDateRange "YYYY-MM-DD" → [当天 00:00, 当天 23:59:59.999999999]
func parseDateRange(from, to string, loc *time.Location) (*time.Time, *time.Time, error) {
	var fromT, toT *time.Time
	if from != "" {
		t, err := time.ParseInLocation(dateLayout, from, loc)
		if err != nil {
			return nil, nil, ErrActivityInvalidDate
		}
		fromT = &t
	}
	if to != "" {
		t, err := time.ParseInLocation(dateLayout, to, loc)
		if err != nil {
			return nil, nil, ErrActivityInvalidDate
		}
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		toT = &t
	}
	return fromT, toT, nil
}

// ────────────────────── Update ──────────────────────

func (s *activityService) Update(ctx context.Context, id string, req *dto.ActivityRequest, caller Caller) (*dto.ActivityBatchResponse, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	act, err := s.buildActivity(req, StatusFromRequest(req.Status, existing.Status))
	if err != nil {
		return nil, err
	}
	act.ID = existing.ID
	act.Comments = existing.Comments
	act.BaseModel = existing.BaseModel
	now := s.now()
	act.StampUpdated(caller.Username, now)

	millis := now.UnixMilli()
	generated := s.expand(act, req.RecurrenceLimit, func(n int) string {
		return fmt.Sprintf("act_gen_%d_%d", millis, n)
	})
	for i := range generated {
		generated[i].StampCreated(caller.Username, now)
	}

	if err := s.repo.Activity.UpdateWithInstances(ctx, act, generated); err != nil {
		return nil, s.translateWriteError(id, err)
	}
	observability.AddRecurrenceInstances(len(generated))

	details := fmt.Sprintf("Atualizou atividade %s - %s", act.Tag, act.Descricao)
	if len(generated) > 0 {
		details += fmt.Sprintf(" (+%d recorrências)", len(generated))
	}
	s.audit.Record(ctx, caller.DisplayName(), model.AuditUpdate, details, id)

	return &dto.ActivityBatchResponse{Activity: *act, Generated: generated}, nil
}

// translateWriteError 存储层错误 → 活动业务错误
func (s *activityService) translateWriteError(id string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrActivityNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, pkgerrors.ErrOptimisticLock):
		s.logger.Warn("活动写入冲突", zap.String("id", id), zap.Error(err))
		return ErrActivityConflict
	}
	s.logger.Error("更新活动失败", zap.String("id", id), zap.Error(err))
	return err
}

// ────────────────────── UpdateStatus ──────────────────────

func (s *activityService) UpdateStatus(ctx context.Context, id, status string, caller Caller) (*model.Activity, error) {
	st := model.Status(strings.TrimSpace(status))
	if !st.Valid() {
		return nil, ErrActivityInvalidStatus
	}

	if err := s.repo.Activity.UpdateStatus(ctx, id, st, caller.Username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		s.logger.Error("更新活动状态失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.audit.Record(ctx, caller.DisplayName(), model.AuditStatus,
		fmt.Sprintf("Alterou status de %s para %s", id, st), id)
	return s.Get(ctx, id)
}

// ────────────────────── Reschedule ──────────────────────

func (s *activityService) Reschedule(ctx context.Context, id, date string, caller Caller) (*model.Activity, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), s.loc)
	if err != nil {
		return nil, ErrActivityInvalidDate
	}

	act, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	span := act.Span()
	start := act.HoraInicio.In(s.loc)
	act.HoraInicio = time.Date(day.Year(), day.Month(), day.Day(),
		start.Hour(), start.Minute(), start.Second(), 0, s.loc)
	act.HoraFim = act.HoraInicio.Add(span)
	act.SyncDuracao()
	act.StampUpdated(caller.Username, s.now())

	if err := s.repo.Activity.Update(ctx, act); err != nil {
		return nil, s.translateWriteError(id, err)
	}

	s.audit.Record(ctx, caller.DisplayName(), model.AuditReschedule,
		fmt.Sprintf("Reagendou %s para %s", id, day.Format("02/01/2006")), id)
	return act, nil
}

// ────────────────────── AddComment ──────────────────────

func (s *activityService) AddComment(ctx context.Context, id, text string, caller Caller) (*model.Comment, error) {
	act, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	comment := model.Comment{
		ID:        uuid.New().String(),
		User:      caller.DisplayName(),
		Text:      strings.TrimSpace(text),
		Timestamp: s.now(),
	}
	act.Comments = append(act.Comments, comment)
	act.StampUpdated(caller.Username, comment.Timestamp)

	if err := s.repo.Activity.Update(ctx, act); err != nil {
		return nil, s.translateWriteError(id, err)
	}

	s.audit.Record(ctx, caller.DisplayName(), model.AuditComment,
		fmt.Sprintf("Comentou em %s", id), id)
	return &comment, nil
}

// ────────────────────── Delete ──────────────────────

func (s *activityService) Delete(ctx context.Context, id string, caller Caller) error {
	if err := s.repo.Activity.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrActivityNotFound
		}
		s.logger.Error("删除活动失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.audit.Record(ctx, caller.DisplayName(), model.AuditDelete,
		fmt.Sprintf("Excluiu atividade %s", id), id)
	return nil
}

// ────────────────────── PreviewRecurrence ──────────────────────

func (s *activityService) PreviewRecurrence(_ context.Context, req *dto.ActivityRequest) (*dto.RecurrencePreviewResponse, error) {
	if req.RecurrenceLimit == nil {
		return nil, ErrRecurrenceLimitRequired
	}
	tpl, err := s.buildActivity(req, model.StatusOpen)
	if err != nil {
		return nil, err
	}
	if tpl.Periodicidade == model.PeriodicityNone {
		return nil, ErrRecurrencePeriodicityNotSet
	}
	tpl.ID = "preview"

	instances := ExpandRecurrence(*tpl, req.RecurrenceLimit.In(s.loc))
	return &dto.RecurrencePreviewResponse{
		Count:     len(instances),
		Truncated: len(instances) == MaxRecurrenceInstances,
		Instances: instances,
	}, nil
}
