package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"maintenance-tracker/internal/dto"
	"maintenance-tracker/internal/model"
	"maintenance-tracker/internal/observability"
	"maintenance-tracker/internal/repository"
	pkgerrors "maintenance-tracker/pkg/errors"
)

// ── 导入模块业务错误 ──

var (
	ErrImportBatchNotFound  = errors.New("导入批次不存在")
	ErrImportMappingInvalid = errors.New("列映射无效")
	ErrImportBatchConflict  = errors.New("导入批次已被其他操作修改，请刷新后重试")
)

const previewRows = 10

// ImportOptions 导入配置
type ImportOptions struct {
	Sheet    string
	MaxRows  int
	Defaults ImportDefaults
	Location *time.Location
}

// ImportService 表格导入业务接口
//
// 批次 ID 为导入时刻的毫秒时间戳，批次内活动 ID 为 imported_{批次ID}_{行号}。
// 重新导入时以新映射重新归一化保存的原始行，并整体替换该批次的全部活动。
type ImportService interface {
	Preview(ctx context.Context, reader io.Reader) (*dto.ImportPreviewResponse, error)
	Import(ctx context.Context, reader io.Reader, fileName string, mapping model.ColumnMapping, caller Caller) (*dto.ImportResultResponse, error)
	Reimport(ctx context.Context, batchID string, req *dto.ReimportRequest, caller Caller) (*dto.ImportResultResponse, error)
	DeleteBatch(ctx context.Context, batchID string, caller Caller) (*dto.DeleteBatchResponse, error)
	ListBatches(ctx context.Context, req *dto.ImportBatchListRequest) ([]model.ImportBatch, int64, error)
	GetBatch(ctx context.Context, batchID string) (*model.ImportBatch, error)
}

type importService struct {
	repo   *repository.Repository
	audit  AuditService
	opts   ImportOptions
	now    func() time.Time
	logger *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(repo *repository.Repository, audit AuditService, opts ImportOptions, logger *zap.Logger) ImportService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &importService{
		repo:   repo,
		audit:  audit,
		opts:   opts,
		now:    time.Now,
		logger: logger,
	}
}

func (s *importService) parse(reader io.Reader) (*Workbook, error) {
	return ParseWorkbook(reader, WorkbookOptions{
		Sheet:    s.opts.Sheet,
		MaxRows:  s.opts.MaxRows,
		Location: s.opts.Location,
	})
}

func (s *importService) normalizer() *ImportNormalizer {
	return NewImportNormalizer(s.opts.Defaults, WithClock(s.now), WithLocation(s.opts.Location))
}

// ────────────────────── Preview ──────────────────────

func (s *importService) Preview(_ context.Context, reader io.Reader) (*dto.ImportPreviewResponse, error) {
	wb, err := s.parse(reader)
	if err != nil {
		return nil, err
	}

	n := len(wb.Rows)
	if n > previewRows {
		n = previewRows
	}
	return &dto.ImportPreviewResponse{
		Sheet:            wb.Sheet,
		Headers:          wb.Headers,
		RowCount:         len(wb.Rows),
		Rows:             wb.Rows[:n],
		SuggestedMapping: SuggestMapping(wb.Headers),
	}, nil
}

// ────────────────────── Import ──────────────────────

func (s *importService) Import(ctx context.Context, reader io.Reader, fileName string, mapping model.ColumnMapping, caller Caller) (*dto.ImportResultResponse, error) {
	wb, err := s.parse(reader)
	if err != nil {
		return nil, err
	}
	if err := ValidateMapping(mapping, wb.Headers); err != nil {
		return nil, err
	}

	now := s.now()
	batch := &model.ImportBatch{
		ID:         strconv.FormatInt(now.UnixMilli(), 10),
		FileName:   fileName,
		ImportedAt: now,
		RowCount:   len(wb.Rows),
		Headers:    datatypes.JSONSlice[string](wb.Headers),
		Rows:       wb.Rows,
		Mapping:    datatypes.NewJSONType(mapping),
	}
	batch.Version = 1
	batch.StampCreated(caller.Username, now)

	activities := s.normalizer().Normalize(wb.Rows, mapping, batch.ID)
	for i := range activities {
		activities[i].StampCreated(caller.Username, now)
	}
	batch.Count = len(activities)

	if err := s.repo.ImportBatch.CreateWithActivities(ctx, batch, activities); err != nil {
		s.logger.Error("保存导入批次失败", zap.String("batch_id", batch.ID), zap.Error(err))
		return nil, err
	}

	dropped := len(wb.Rows) - len(activities)
	s.logSummary("import", batch, len(wb.Rows), len(activities))
	observability.ObserveImport("import", len(activities), dropped)
	s.audit.Record(ctx, caller.DisplayName(), model.AuditImport,
		fmt.Sprintf("Importou %d atividades de %s (%d linhas)", len(activities), fileName, len(wb.Rows)), batch.ID)

	return &dto.ImportResultResponse{
		Batch:    *batch,
		RowCount: len(wb.Rows),
		Imported: len(activities),
		Dropped:  dropped,
	}, nil
}

func (s *importService) logSummary(kind string, batch *model.ImportBatch, rows, imported int) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("batch_id", batch.ID),
		zap.String("file", batch.FileName),
		zap.Int("rows", rows),
		zap.Int("imported", imported),
		zap.Int("dropped", rows-imported),
	}
	if (rows-imported)*2 > rows {
		s.logger.Warn("超过半数表格行被丢弃，请检查列映射", fields...)
		return
	}
	s.logger.Info("表格导入完成", fields...)
}

// ────────────────────── Reimport ──────────────────────

func (s *importService) Reimport(ctx context.Context, batchID string, req *dto.ReimportRequest, caller Caller) (*dto.ImportResultResponse, error) {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Version != req.Version {
		return nil, ErrImportBatchConflict
	}
	if err := ValidateMapping(req.Mapping, batch.Headers); err != nil {
		return nil, err
	}

	_, before, err := s.repo.Activity.List(ctx, repository.ActivityFilter{IDPrefix: batch.ActivityIDPrefix()}, 0, 1)
	if err != nil {
		s.logger.Error("统计批次活动失败", zap.String("batch_id", batchID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	activities := s.normalizer().Normalize(batch.Rows, req.Mapping, batch.ID)
	for i := range activities {
		activities[i].StampCreated(caller.Username, now)
	}
	batch.Mapping = datatypes.NewJSONType(req.Mapping)
	batch.Count = len(activities)
	batch.StampUpdated(caller.Username, now)

	if err := s.repo.ImportBatch.ReplaceWithActivities(ctx, batch, activities); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrImportBatchConflict
		}
		s.logger.Error("重新导入失败", zap.String("batch_id", batchID), zap.Error(err))
		return nil, err
	}

	rows := len(batch.Rows)
	s.logSummary("reimport", batch, rows, len(activities))
	observability.ObserveImport("reimport", len(activities), rows-len(activities))
	s.audit.Record(ctx, caller.DisplayName(), model.AuditReimport,
		fmt.Sprintf("Reimportou %s: %d atividades substituídas por %d", batch.FileName, before, len(activities)), batch.ID)

	return &dto.ImportResultResponse{
		Batch:    *batch,
		RowCount: rows,
		Imported: len(activities),
		Dropped:  rows - len(activities),
		Removed:  before,
	}, nil
}

// ────────────────────── DeleteBatch ──────────────────────

func (s *importService) DeleteBatch(ctx context.Context, batchID string, caller Caller) (*dto.DeleteBatchResponse, error) {
	removed, err := s.repo.ImportBatch.DeleteWithActivities(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImportBatchNotFound
		}
		s.logger.Error("删除导入批次失败", zap.String("batch_id", batchID), zap.Error(err))
		return nil, err
	}

	s.audit.Record(ctx, caller.DisplayName(), model.AuditDelete,
		fmt.Sprintf("Excluiu importação %s e %d atividades", batchID, removed), batchID)
	return &dto.DeleteBatchResponse{Removed: removed}, nil
}

// ────────────────────── ListBatches ──────────────────────

func (s *importService) ListBatches(ctx context.Context, req *dto.ImportBatchListRequest) ([]model.ImportBatch, int64, error) {
	list, total, err := s.repo.ImportBatch.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出导入批次失败", zap.Error(err))
		return nil, 0, err
	}
	return list, total, nil
}

// ────────────────────── GetBatch ──────────────────────

func (s *importService) GetBatch(ctx context.Context, batchID string) (*model.ImportBatch, error) {
	batch, err := s.repo.ImportBatch.GetByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImportBatchNotFound
		}
		s.logger.Error("查询导入批次失败", zap.String("batch_id", batchID), zap.Error(err))
		return nil, err
	}
	return batch, nil
}
