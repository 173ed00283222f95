package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"maintenance-tracker/config"
	"maintenance-tracker/internal/service"
	pkgerrors "maintenance-tracker/pkg/errors"
	"maintenance-tracker/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Activity *ActivityHandler
	Import   *ImportHandler
	Report   *ReportHandler
	Audit    *AuditHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Activity: NewActivityHandler(svc.Activity),
		Import:   NewImportHandler(svc.Import, cfg.Import.MaxFileBytes),
		Report:   NewReportHandler(svc.Report),
		Audit:    NewAuditHandler(svc.Audit),
	}
}

// handleStoreError 各模块未识别的错误：存储不可用返回 503，其余 500
func handleStoreError(c *gin.Context, err error) {
	if errors.Is(err, pkgerrors.ErrStoreUnavailable) {
		response.ServiceUnavailable(c, 50001, "存储服务不可用，请稍后重试")
		return
	}
	response.InternalError(c)
}
