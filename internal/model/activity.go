package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ── 枚举 ──

// Status 活动执行状态
type Status string

const (
	StatusOpen              Status = "OPEN"
	StatusNotExecuted       Status = "NÃO EXECUTADO"
	StatusInProgress        Status = "EM PROGRESSO"
	StatusPartiallyExecuted Status = "EXECUTADO PARCIALMENTE"
	StatusClosed            Status = "CLOSED"
)

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusNotExecuted, StatusInProgress, StatusPartiallyExecuted, StatusClosed:
		return true
	}
	return false
}

// Criticality 关键程度
type Criticality string

const (
	CriticalityLow    Criticality = "baixa"
	CriticalityNormal Criticality = "normal"
	CriticalityHigh   Criticality = "alta"
	CriticalityUrgent Criticality = "urgente"
)

// Valid 是否为已知关键程度
func (c Criticality) Valid() bool {
	switch c {
	case CriticalityLow, CriticalityNormal, CriticalityHigh, CriticalityUrgent:
		return true
	}
	return false
}

var criticalityAliases = map[string]Criticality{
	"baixa":   CriticalityLow,
	"low":     CriticalityLow,
	"normal":  CriticalityNormal,
	"alta":    CriticalityHigh,
	"high":    CriticalityHigh,
	"urgente": CriticalityUrgent,
	"urgent":  CriticalityUrgent,
}

// ParseCriticality 忽略大小写解析，缺失或非法时返回 normal
func ParseCriticality(s string) Criticality {
	if c, ok := criticalityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return CriticalityNormal
}

// Periodicity 重复周期
type Periodicity string

const (
	PeriodicityNone       Periodicity = "Não há"
	PeriodicityDaily      Periodicity = "Diário"
	PeriodicityWeekly     Periodicity = "Semanal"
	PeriodicityBiweekly   Periodicity = "Quinzenal"
	PeriodicityMonthly    Periodicity = "Mensal"
	PeriodicityQuarterly  Periodicity = "Trimestral"
	PeriodicitySemiannual Periodicity = "Semestral"
)

var periodicityAliases = map[string]Periodicity{
	"não há":     PeriodicityNone,
	"none":       PeriodicityNone,
	"":           PeriodicityNone,
	"diário":     PeriodicityDaily,
	"daily":      PeriodicityDaily,
	"semanal":    PeriodicityWeekly,
	"weekly":     PeriodicityWeekly,
	"quinzenal":  PeriodicityBiweekly,
	"biweekly":   PeriodicityBiweekly,
	"mensal":     PeriodicityMonthly,
	"monthly":    PeriodicityMonthly,
	"trimestral": PeriodicityQuarterly,
	"quarterly":  PeriodicityQuarterly,
	"semestral":  PeriodicitySemiannual,
	"semiannual": PeriodicitySemiannual,
}

// Valid 是否为已知周期
func (p Periodicity) Valid() bool {
	switch p {
	case PeriodicityNone, PeriodicityDaily, PeriodicityWeekly, PeriodicityBiweekly,
		PeriodicityMonthly, PeriodicityQuarterly, PeriodicitySemiannual:
		return true
	}
	return false
}

// ParsePeriodicity 解析周期（葡语取值或英文标记）
func ParsePeriodicity(s string) (Periodicity, bool) {
	p, ok := periodicityAliases[strings.ToLower(strings.TrimSpace(s))]
	return p, ok
}

// ── 评论与附件 ──

// Comment 活动评论
type Comment struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Attachment 附件元数据（文件本体存放在外部对象存储）
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // image | video | file
	URL  string `json:"url"`
}

// AttachmentList 附件列表
// 历史数据中该字段可能是单个对象，解码时统一为数组
type AttachmentList []Attachment

// UnmarshalJSON 接受 null、单个对象或数组
func (l *AttachmentList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*l = AttachmentList{}
		return nil
	case data[0] == '{':
		var one Attachment
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = AttachmentList{one}
		return nil
	}
	var many []Attachment
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	if many == nil {
		many = []Attachment{}
	}
	*l = many
	return nil
}

// MarshalJSON 始终编码为数组
func (l AttachmentList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Attachment(l))
}

// Scan 读取 jsonb 列
func (l *AttachmentList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = AttachmentList{}
		return nil
	case []byte:
		return l.UnmarshalJSON(v)
	case string:
		return l.UnmarshalJSON([]byte(v))
	}
	return fmt.Errorf("AttachmentList.Scan: unsupported type %T", src)
}

// Value 写入 jsonb 列
func (l AttachmentList) Value() (driver.Value, error) {
	b, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// GormDataType 列类型
func (AttachmentList) GormDataType() string { return "jsonb" }

// ── Activity ──

// Activity 维护活动，对应 activities
// JSON 字段名沿用前端与历史数据的交换格式
type Activity struct {
	ID             string                       `gorm:"type:varchar(128);primaryKey"                      json:"id"`
	IDMp           string                       `gorm:"column:id_mp;type:varchar(128);not null"           json:"idMp"`
	Tag            string                       `gorm:"type:varchar(128);not null"                        json:"tag"`
	Tipo           string                       `gorm:"type:varchar(64);not null"                         json:"tipo"`
	Periodicidade  Periodicity                  `gorm:"type:varchar(32);not null"                         json:"periodicidade"`
	Area           string                       `gorm:"type:varchar(255);not null"                        json:"area"`
	Descricao      string                       `gorm:"type:text;not null"                                json:"descricao"`
	Jornada        string                       `gorm:"type:varchar(64);not null"                         json:"jornada"`
	Turno          string                       `gorm:"type:varchar(64);not null"                         json:"turno"`
	Empresa        string                       `gorm:"type:varchar(128);not null"                        json:"empresa"`
	Efetivo        string                       `gorm:"type:varchar(64);not null"                         json:"efetivo"`
	Responsavel    string                       `gorm:"type:text;not null"                                json:"responsavel"`
	Supervisor     string                       `gorm:"type:varchar(255);not null"                        json:"supervisor"`
	HoraInicio     time.Time                    `gorm:"column:hora_inicio;not null"                       json:"horaInicio"`
	HoraFim        time.Time                    `gorm:"column:hora_fim;not null"                          json:"horaFim"`
	HoraInicioReal *time.Time                   `gorm:"column:hora_inicio_real"                           json:"horaInicioReal,omitempty"`
	HoraFimReal    *time.Time                   `gorm:"column:hora_fim_real"                              json:"horaFimReal,omitempty"`
	Duracao        string                       `gorm:"type:varchar(16);not null"                         json:"duracao"`
	REletrico      bool                         `gorm:"column:r_eletrico;not null"                        json:"r eletrico"`
	Labapet        bool                         `gorm:"not null"                                          json:"labapet"`
	Criticidade    Criticality                  `gorm:"type:varchar(16);not null"                         json:"criticidade"`
	Observacoes    string                       `gorm:"type:text;not null"                                json:"observacoes"`
	Status         Status                       `gorm:"type:varchar(32);not null"                         json:"status"`
	Comments       datatypes.JSONSlice[Comment] `gorm:"type:jsonb;not null"                               json:"comments"`
	Attachments    AttachmentList               `gorm:"type:jsonb;not null"                               json:"attachments"`
	BeforeImage    AttachmentList               `gorm:"column:before_image;type:jsonb;not null"           json:"beforeImage"`
	AfterImage     AttachmentList               `gorm:"column:after_image;type:jsonb;not null"            json:"afterImage"`
	BaseModel
}

func (Activity) TableName() string { return "activities" }

// Span 计划时长
func (a *Activity) Span() time.Duration {
	return a.HoraFim.Sub(a.HoraInicio)
}

// SyncDuracao 按起止时间重算 duracao
func (a *Activity) SyncDuracao() {
	a.Duracao = FormatDuration(a.Span())
}

// EnsureCollections 空集合统一为长度为 0 的切片
func (a *Activity) EnsureCollections() {
	if a.Comments == nil {
		a.Comments = datatypes.JSONSlice[Comment]{}
	}
	if a.Attachments == nil {
		a.Attachments = AttachmentList{}
	}
	if a.BeforeImage == nil {
		a.BeforeImage = AttachmentList{}
	}
	if a.AfterImage == nil {
		a.AfterImage = AttachmentList{}
	}
}

// People 拆分负责人列表（规范分隔符 " / "）
func (a *Activity) People() []string {
	return SplitResponsible(a.Responsavel)
}

// ResponsibleSeparator 负责人规范分隔符
const ResponsibleSeparator = " / "

// SplitResponsible 按规范分隔符拆分，去除空白与空项
func SplitResponsible(s string) []string {
	parts := strings.Split(s, strings.TrimSpace(ResponsibleSeparator))
	people := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			people = append(people, p)
		}
	}
	return people
}
