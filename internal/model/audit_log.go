package model

import "time"

// AuditAction 审计动作
type AuditAction string

const (
	AuditCreate     AuditAction = "CRIAR"
	AuditUpdate     AuditAction = "ATUALIZAR"
	AuditStatus     AuditAction = "STATUS"
	AuditDelete     AuditAction = "EXCLUIR"
	AuditImport     AuditAction = "IMPORTAR"
	AuditReimport   AuditAction = "REIMPORTAR"
	AuditComment    AuditAction = "COMENTAR"
	AuditReschedule AuditAction = "REAGENDAR"
)

// AuditLog 审计日志，对应 audit_logs（只追加）
type AuditLog struct {
	ID        string      `gorm:"type:uuid;primaryKey"          json:"id"`
	Timestamp time.Time   `gorm:"not null"                      json:"timestamp"`
	User      string      `gorm:"column:user;type:varchar(255)" json:"user"`
	Action    AuditAction `gorm:"type:varchar(32);not null"     json:"action"`
	Details   string      `gorm:"type:text"                     json:"details"`
	EntityID  string      `gorm:"type:varchar(128)"             json:"entityId,omitempty"`
}

func (AuditLog) TableName() string { return "audit_logs" }
