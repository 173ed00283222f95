package service

import (
	"strconv"
	"strings"
	"time"

	"maintenance-tracker/internal/model"
	"maintenance-tracker/pkg/sheetcell"
)

// ── 导入归一化 ──────────────────────────────────────────────
//
// 职责：把表格行（表头 → 弱类型单元格）按列映射转换为活动记录。
//
// 每行处理顺序：
//   1. 参考日期：日期列 → 开始列中的完整日期 → 今天
//   2. 开始时间：开始列的时刻落到参考日期
//   3. 结束时间：时长列优先，其次结束列，缺省为开始 + 1 小时；结束不晚于开始时改为开始 + 1 小时
//   4. 负责人按配置的分隔符拆分后以 " / " 重新拼接
//   5. 描述为空或为占位符的行直接丢弃
//
// 解析失败一律回退到默认值，不返回错误。
// ─────────────────────────────────────────────────────────────

const (
	// MissingDescription 表示"缺少描述"的占位符
	MissingDescription = "SEM DESCRIÇÃO"
	// DefaultActivityType 导入活动的类型
	DefaultActivityType = "PLANO"
	// DefaultTag 未映射或为空时的位号
	DefaultTag = "SEM TAG"
	// DefaultCompany 未配置时的执行公司
	DefaultCompany = "FOSPAR"

	defaultImportSpan = time.Hour
)

// ImportDefaults 导入时未映射字段的默认值
type ImportDefaults struct {
	Company string
	Tag     string
	Tipo    string
}

func (d ImportDefaults) withFallbacks() ImportDefaults {
	if d.Company == "" {
		d.Company = DefaultCompany
	}
	if d.Tag == "" {
		d.Tag = DefaultTag
	}
	if d.Tipo == "" {
		d.Tipo = DefaultActivityType
	}
	return d
}

// NormalizerOption 归一化器选项
type NormalizerOption func(*ImportNormalizer)

// WithClock 注入当前时间（用于"今天"的回退）
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *ImportNormalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// WithLocation 指定挂钟时间所在时区
func WithLocation(loc *time.Location) NormalizerOption {
	return func(n *ImportNormalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// ImportNormalizer 表格行 → 活动
type ImportNormalizer struct {
	defaults ImportDefaults
	now      func() time.Time
	loc      *time.Location
}

// NewImportNormalizer 创建归一化器
func NewImportNormalizer(defaults ImportDefaults, opts ...NormalizerOption) *ImportNormalizer {
	n := &ImportNormalizer{
		defaults: defaults.withFallbacks(),
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ImportedActivityID "imported_{batchID}_{rowIndex}"，rowIndex 为输入行位置
func ImportedActivityID(batchID string, rowIndex int) string {
	return model.BatchActivityIDPrefix(batchID) + strconv.Itoa(rowIndex)
}

// Normalize 逐行转换，被丢弃的行不影响其余行的 ID
func (n *ImportNormalizer) Normalize(rows []sheetcell.Row, mapping model.ColumnMapping, batchID string) []model.Activity {
	today := n.now().In(n.loc)
	out := make([]model.Activity, 0, len(rows))
	for i, row := range rows {
		if a, ok := n.normalizeRow(row, i, mapping, batchID, today); ok {
			out = append(out, a)
		}
	}
	return out
}

func (n *ImportNormalizer) normalizeRow(row sheetcell.Row, index int, m model.ColumnMapping, batchID string, today time.Time) (model.Activity, bool) {
	desc := row.Get(m.Descricao).Text()
	if desc == "" || desc == MissingDescription {
		return model.Activity{}, false
	}

	ref := n.referenceDate(row, m, today)
	start := sheetcell.ResolveTime(row.Get(m.HoraInicio), ref, n.loc)
	end := n.resolveEnd(row, m, start, ref)

	tag := row.Get(m.Tag).Text()
	if tag == "" {
		tag = n.defaults.Tag
	}

	a := model.Activity{
		ID:            ImportedActivityID(batchID, index),
		IDMp:          row.Get(m.IDMp).Text(),
		Tag:           tag,
		Tipo:          n.defaults.Tipo,
		Periodicidade: model.PeriodicityNone,
		Area:          row.Get(m.Area).Text(),
		Descricao:     desc,
		Turno:         row.Get(m.Turno).Text(),
		Empresa:       n.defaults.Company,
		Responsavel:   NormalizeResponsible(row.Get(m.Responsavel).Text(), m.ResponsavelSeparator),
		Supervisor:    row.Get(m.Supervisor).Text(),
		HoraInicio:    start,
		HoraFim:       end,
		Criticidade:   model.ParseCriticality(row.Get(m.Criticidade).Text()),
		Status:        model.StatusOpen,
	}
	a.EnsureCollections()
	a.SyncDuracao()
	return a, true
}

func (n *ImportNormalizer) referenceDate(row sheetcell.Row, m model.ColumnMapping, today time.Time) time.Time {
	if m.Data != "" {
		if d, ok := sheetcell.ParseDate(row.Get(m.Data), m.DateFormat, n.loc); ok {
			return d
		}
	}
	if startCell := row.Get(m.HoraInicio); startCell.Kind == sheetcell.Time {
		if d, ok := sheetcell.ParseDate(startCell, m.DateFormat, n.loc); ok {
			return d
		}
	}
	y, mo, d := today.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, n.loc)
}

func (n *ImportNormalizer) resolveEnd(row sheetcell.Row, m model.ColumnMapping, start, ref time.Time) time.Time {
	end := start.Add(defaultImportSpan)

	durationCell := row.Get(m.Duracao)
	endCell := row.Get(m.HoraFim)
	if mins, ok := sheetcell.ParseDurationMinutes(durationCell); m.Duracao != "" && ok {
		end = start.Add(time.Duration(mins) * time.Minute)
	} else if m.HoraFim != "" && !endCell.IsEmpty() {
		end = sheetcell.ResolveTime(endCell, ref, n.loc)
	}

	if !end.After(start) {
		end = start.Add(defaultImportSpan)
	}
	return end
}

// NormalizeResponsible 按分隔符拆分负责人，去空白、去空项后用 " / " 拼接
// 已有的 "/" 同样视为分隔，因此对规范格式的字符串重复调用结果不变
func NormalizeResponsible(raw, separator string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || separator == "" {
		return raw
	}

	people := make([]string, 0, 4)
	for _, chunk := range strings.Split(raw, "/") {
		var parts []string
		if strings.TrimSpace(separator) == "" {
			parts = strings.Fields(chunk)
		} else {
			parts = strings.Split(chunk, separator)
		}
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				people = append(people, p)
			}
		}
	}
	return strings.Join(people, model.ResponsibleSeparator)
}
