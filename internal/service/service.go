package service

import (
	"time"

	"go.uber.org/zap"

	"maintenance-tracker/config"
	"maintenance-tracker/internal/repository"
	pkgkafka "maintenance-tracker/pkg/kafka"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Activity ActivityService
	Import   ImportService
	Report   ReportService
	Audit    AuditService
}

// NewService 创建 Service 聚合
// writer 为 nil 时审计事件只落库不投递
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	writer pkgkafka.MessageWriter,
	loc *time.Location,
	logger *zap.Logger,
) *Service {
	audit := NewAuditService(repo, writer, cfg.Audit.KafkaTopic, logger)
	return &Service{
		Activity: NewActivityService(repo, audit, loc, logger),
		Import: NewImportService(repo, audit, ImportOptions{
			Sheet:    cfg.Import.Sheet,
			MaxRows:  cfg.Import.MaxRows,
			Defaults: ImportDefaults{Company: cfg.Import.DefaultCompany},
			Location: loc,
		}, logger),
		Report: NewReportService(repo, loc, logger),
		Audit:  audit,
	}
}
