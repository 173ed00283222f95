package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"maintenance-tracker/internal/dto"
	"maintenance-tracker/internal/service"
	"maintenance-tracker/pkg/response"
)

// ActivityHandler 活动模块 HTTP 处理器
type ActivityHandler struct {
	activitySvc service.ActivityService
}

// NewActivityHandler 创建 ActivityHandler
func NewActivityHandler(activitySvc service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activitySvc: activitySvc}
}

// ListActivities 获取活动列表
// GET /api/v1/activities
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	var req dto.ActivityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, total, err := h.activitySvc.List(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetActivity 获取活动详情
// GET /api/v1/activities/:id
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "活动ID不能为空")
		return
	}

	act, err := h.activitySvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OK(c, act)
}

// CreateActivity 创建活动（可按周期一并生成后续实例）
// POST /api/v1/activities
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var req dto.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	resp, err := h.activitySvc.Create(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.Created(c, resp)
}

// UpdateActivity 更新活动
// PUT /api/v1/activities/:id
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "活动ID不能为空")
		return
	}

	var req dto.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	resp, err := h.activitySvc.Update(c.Request.Context(), id, &req, caller)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OK(c, resp)
}

// UpdateStatus 修改活动状态
// PATCH /api/v1/activities/:id/status
func (h *ActivityHandler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	act, err := h.activitySvc.UpdateStatus(c.Request.Context(), id, req.Status, caller)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OK(c, act)
}

// Reschedule 活动改期
// PUT /api/v1/activities/:id/schedule
func (h *ActivityHandler) Reschedule(c *gin.Context) {
	id := c.Param("id")

	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	act, err := h.activitySvc.Reschedule(c.Request.Context(), id, req.Date, caller)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OK(c, act)
}

// AddComment 添加评论
// POST /api/v1/activities/:id/comments
func (h *ActivityHandler) AddComment(c *gin.Context) {
	id := c.Param("id")

	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	comment, err := h.activitySvc.AddComment(c.Request.Context(), id, req.Text, caller)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.Created(c, comment)
}

// DeleteActivity 删除活动
// DELETE /api/v1/activities/:id
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "活动ID不能为空")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.activitySvc.Delete(c.Request.Context(), id, caller); err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OK(c, nil)
}

// PreviewRecurrence 预览周期实例（不保存）
// POST /api/v1/activities/recurrence/preview
func (h *ActivityHandler) PreviewRecurrence(c *gin.Context) {
	var req dto.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.activitySvc.PreviewRecurrence(c.Request.Context(), &req)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OK(c, resp)
}

// handleActivityError 统一处理活动模块业务错误
func (h *ActivityHandler) handleActivityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrActivityNotFound):
		response.NotFound(c, 17001, "活动不存在")
	case errors.Is(err, service.ErrActivityInvalidTimeRange):
		response.BadRequest(c, 17002, err.Error())
	case errors.Is(err, service.ErrActivityInvalidStatus):
		response.BadRequest(c, 17003, err.Error())
	case errors.Is(err, service.ErrActivityInvalidPeriodicity):
		response.BadRequest(c, 17004, err.Error())
	case errors.Is(err, service.ErrActivityInvalidDate):
		response.BadRequest(c, 17005, err.Error())
	case errors.Is(err, service.ErrRecurrenceLimitRequired):
		response.BadRequest(c, 17006, err.Error())
	case errors.Is(err, service.ErrRecurrencePeriodicityNotSet):
		response.BadRequest(c, 17007, err.Error())
	case errors.Is(err, service.ErrActivityInvalidRealRange):
		response.BadRequest(c, 17008, err.Error())
	case errors.Is(err, service.ErrActivityConflict):
		response.Conflict(c, 17009, err.Error())
	default:
		handleStoreError(c, err)
	}
}
