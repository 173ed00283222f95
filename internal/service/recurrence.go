package service

import (
	"fmt"
	"slices"
	"time"

	"maintenance-tracker/internal/model"
)

// ── 周期活动展开 ──────────────────────────────────────────────
//
// 职责：把一个模板活动按周期展开为截止日期之前的后续实例。
//
// 规则：
//   - 游标从模板开始时间出发，每次按日历步长前进（AddDate，月末溢出按 Go 日期规范化）
//   - 游标所在日期晚于截止日期所在日期时停止，最多生成 MaxRecurrenceInstances 个实例
//   - 模板本身不会再次输出，也不会被修改
//   - 实例状态重置为 OPEN，实际执行时间清空，其余字段原样复制
// ─────────────────────────────────────────────────────────────

// MaxRecurrenceInstances 单个模板最多生成的实例数
const MaxRecurrenceInstances = 365

type calendarStep struct {
	years, months, days int
}

var recurrenceSteps = map[model.Periodicity]calendarStep{
	model.PeriodicityDaily:      {days: 1},
	model.PeriodicityWeekly:     {days: 7},
	model.PeriodicityBiweekly:   {days: 15},
	model.PeriodicityMonthly:    {months: 1},
	model.PeriodicityQuarterly:  {months: 3},
	model.PeriodicitySemiannual: {months: 6},
}

// RecurrenceInstanceID 实例 ID："{模板ID}_rec_{序号}"，序号从 1 开始
func RecurrenceInstanceID(templateID string, n int) string {
	return fmt.Sprintf("%s_rec_%d", templateID, n)
}

// ExpandRecurrence 展开周期活动
// 周期为 Não há 时返回空切片；未知周期属于调用方错误，直接 panic
func ExpandRecurrence(template model.Activity, limit time.Time) []model.Activity {
	if template.Periodicidade == model.PeriodicityNone {
		return []model.Activity{}
	}
	step, ok := recurrenceSteps[template.Periodicidade]
	if !ok {
		panic(fmt.Sprintf("recurrence: 未知周期 %q", template.Periodicidade))
	}

	span := template.Span()
	limitDay := dayKey(limit)

	instances := make([]model.Activity, 0)
	cursor := template.HoraInicio
	for n := 1; n <= MaxRecurrenceInstances; n++ {
		cursor = cursor.AddDate(step.years, step.months, step.days)
		if dayKey(cursor) > limitDay {
			break
		}
		instances = append(instances, newInstance(template, n, cursor, span))
	}
	return instances
}

func newInstance(template model.Activity, n int, start time.Time, span time.Duration) model.Activity {
	inst := template
	inst.ID = RecurrenceInstanceID(template.ID, n)
	inst.HoraInicio = start
	inst.HoraFim = start.Add(span)
	inst.HoraInicioReal = nil
	inst.HoraFimReal = nil
	inst.Status = model.StatusOpen
	inst.Comments = slices.Clone(template.Comments)
	inst.Attachments = slices.Clone(template.Attachments)
	inst.BeforeImage = slices.Clone(template.BeforeImage)
	inst.AfterImage = slices.Clone(template.AfterImage)
	inst.EnsureCollections()
	inst.SyncDuracao()
	return inst
}

// dayKey 按自身时区的日历日期比较
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
