package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"maintenance-tracker/internal/dto"
	"maintenance-tracker/internal/service"
	"maintenance-tracker/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ReportHandler 报表模块 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// ManPower 人工时汇总
// GET /api/v1/reports/manpower
func (h *ReportHandler) ManPower(c *gin.Context) {
	var req dto.ReportFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	report, err := h.reportSvc.ManPower(c.Request.Context(), &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// ExportManPower 导出人工时 Excel
// GET /api/v1/reports/manpower/export
func (h *ReportHandler) ExportManPower(c *gin.Context) {
	var req dto.ReportFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.reportSvc.ExportManPower(c.Request.Context(), &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.Attachment(c, contentTypeXLSX, filename, buf.Bytes())
}

// ExportCalendar 导出 iCalendar
// GET /api/v1/reports/calendar.ics
func (h *ReportHandler) ExportCalendar(c *gin.Context) {
	var req dto.ReportFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.reportSvc.ExportCalendar(c.Request.Context(), &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.Attachment(c, contentTypeICS, filename, buf.Bytes())
}

// handleReportError 统一处理报表模块业务错误
func (h *ReportHandler) handleReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrActivityInvalidStatus):
		response.BadRequest(c, 19001, err.Error())
	case errors.Is(err, service.ErrActivityInvalidDate):
		response.BadRequest(c, 19002, err.Error())
	case errors.Is(err, service.ErrReportGenerateFail):
		response.InternalError(c)
	default:
		handleStoreError(c, err)
	}
}
