package dto

import (
	"time"

	"maintenance-tracker/internal/model"
)

// ── 活动模块 DTO ──

// ActivityRequest 创建 / 更新活动请求
// JSON 键与活动持久化结构一致
type ActivityRequest struct {
	IDMp          string               `json:"idMp"          binding:"max=128"`
	Tag           string               `json:"tag"           binding:"max=128"`
	Tipo          string               `json:"tipo"          binding:"max=64"`
	Periodicidade string               `json:"periodicidade" binding:"max=32"`
	Area          string               `json:"area"          binding:"max=255"`
	Descricao     string               `json:"descricao"     binding:"required"`
	Jornada       string               `json:"jornada"       binding:"max=64"`
	Turno         string               `json:"turno"         binding:"max=64"`
	Empresa       string               `json:"empresa"       binding:"max=128"`
	Efetivo       string               `json:"efetivo"       binding:"max=64"`
	Responsavel   string               `json:"responsavel"`
	Supervisor    string               `json:"supervisor"    binding:"max=255"`
	HoraInicio    time.Time            `json:"horaInicio"    binding:"required"`
	HoraFim       time.Time            `json:"horaFim"       binding:"required"`
	REletrico     bool                 `json:"r eletrico"`
	Labapet       bool                 `json:"labapet"`
	Criticidade   string               `json:"criticidade"`
	Observacoes   string               `json:"observacoes"`
	Status        string               `json:"status"`
	Attachments   model.AttachmentList `json:"attachments"`
	BeforeImage   model.AttachmentList `json:"beforeImage"`
	AfterImage    model.AttachmentList `json:"afterImage"`

	// HoraInicioReal / HoraFimReal 实际执行时间，更新时整体替换（缺省即清空）
	HoraInicioReal *time.Time `json:"horaInicioReal"`
	HoraFimReal    *time.Time `json:"horaFimReal"`

	// RecurrenceLimit 非空且周期不为 "Não há" 时，按周期生成后续实例直至该日期（含）
	RecurrenceLimit *time.Time `json:"recurrenceLimit"`
}

// ActivityListRequest 活动列表查询参数
type ActivityListRequest struct {
	PaginationRequest
	Turno       string `form:"turno"       binding:"omitempty,max=64"`
	Responsavel string `form:"responsavel" binding:"omitempty,max=255"`
	Supervisor  string `form:"supervisor"  binding:"omitempty,max=255"`
	IDMp        string `form:"id_mp"       binding:"omitempty,max=128"`
	Status      string `form:"status"`
	From        string `form:"from"` // YYYY-MM-DD（含）
	To          string `form:"to"`   // YYYY-MM-DD（含当天）
	Mine        bool   `form:"mine"` // 仅当前用户作为责任人的活动
}

// UpdateStatusRequest 修改状态请求（不改动日期）
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RescheduleRequest 改期请求：保持时刻与时长，仅移动日期
type RescheduleRequest struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD
}

// CommentRequest 添加评论请求
type CommentRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// ── 响应 ──

// ActivityBatchResponse 创建 / 更新活动响应（含周期实例）
type ActivityBatchResponse struct {
	Activity  model.Activity   `json:"activity"`
	Generated []model.Activity `json:"generated"`
}

// RecurrencePreviewResponse 周期展开预览
type RecurrencePreviewResponse struct {
	Count     int              `json:"count"`
	Truncated bool             `json:"truncated"` // 达到实例上限
	Instances []model.Activity `json:"instances"`
}
