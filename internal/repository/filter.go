package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"maintenance-tracker/internal/model"
)

// ActivityFilter 活动查询条件（空值表示不过滤）
type ActivityFilter struct {
	Turno       string
	Responsavel string // 包含匹配，忽略大小写
	Supervisor  string // 包含匹配，忽略大小写
	IDMp        string // 包含匹配，忽略大小写
	Status      model.Status
	From        *time.Time // hora_inicio >= From
	To          *time.Time // hora_inicio <= To
	IDPrefix    string
}

// Apply 转为 SQL 条件
func (f ActivityFilter) Apply(q *gorm.DB) *gorm.DB {
	if f.Turno != "" {
		q = q.Where("turno = ?", f.Turno)
	}
	if f.Responsavel != "" {
		q = q.Where("responsavel ILIKE ? ESCAPE '\\'", "%"+escapeLike(f.Responsavel)+"%")
	}
	if f.Supervisor != "" {
		q = q.Where("supervisor ILIKE ? ESCAPE '\\'", "%"+escapeLike(f.Supervisor)+"%")
	}
	if f.IDMp != "" {
		q = q.Where("id_mp ILIKE ? ESCAPE '\\'", "%"+escapeLike(f.IDMp)+"%")
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("hora_inicio >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("hora_inicio <= ?", *f.To)
	}
	if f.IDPrefix != "" {
		q = q.Where("id LIKE ? ESCAPE '\\'", escapeLike(f.IDPrefix)+"%")
	}
	return q
}

// Match 内存匹配，与 Apply 语义一致（降级存储与测试替身使用）
func (f ActivityFilter) Match(a *model.Activity) bool {
	if f.Turno != "" && a.Turno != f.Turno {
		return false
	}
	if f.Responsavel != "" && !containsFold(a.Responsavel, f.Responsavel) {
		return false
	}
	if f.Supervisor != "" && !containsFold(a.Supervisor, f.Supervisor) {
		return false
	}
	if f.IDMp != "" && !containsFold(a.IDMp, f.IDMp) {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.From != nil && a.HoraInicio.Before(*f.From) {
		return false
	}
	if f.To != nil && a.HoraInicio.After(*f.To) {
		return false
	}
	if f.IDPrefix != "" && !strings.HasPrefix(a.ID, f.IDPrefix) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike 转义 LIKE 通配符（批次前缀 imported_xxx_ 本身含有下划线）
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
