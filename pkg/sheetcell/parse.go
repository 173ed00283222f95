package sheetcell

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// IsTimeOnly 年份早于 1970 的日期值只携带时刻（表格的纯时间单元格）
func IsTimeOnly(t time.Time) bool {
	return t.Year() < 1970
}

// ParseDate 按格式解析参考日期，返回当天零点
// 数字、纯时间值、无法解析的文本都视为"无日期"
func ParseDate(v Value, format DateFormat, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	switch v.Kind {
	case Time:
		if IsTimeOnly(v.Time) {
			return time.Time{}, false
		}
		return dateOf(v.Time, loc), true
	case String:
		return parseDateString(strings.TrimSpace(v.Str), format, loc)
	}
	return time.Time{}, false
}

func parseDateString(s string, format DateFormat, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	// "05/03/2024 08:00"、"2024-03-05T08:00"：去掉附带的时刻部分
	if date, _, ok := splitDateTime(s); ok {
		s = date
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '-' || r == '.' || r == ' ' || r == '\t'
	})
	if len(parts) != 3 {
		return time.Time{}, false
	}

	var d, m, y int
	var ok1, ok2, ok3 bool
	switch format {
	case MDY:
		m, ok1 = atoi(parts[0])
		d, ok2 = atoi(parts[1])
		y, ok3 = atoi(parts[2])
	case YMD:
		y, ok1 = atoi(parts[0])
		m, ok2 = atoi(parts[1])
		d, ok3 = atoi(parts[2])
	case DMonY:
		d, ok1 = atoi(parts[0])
		m, ok2 = monthFromAbbrev(parts[1])
		y, ok3 = atoi(parts[2])
	default:
		d, ok1 = atoi(parts[0])
		m, ok2 = atoi(parts[1])
		y, ok3 = atoi(parts[2])
	}
	if !ok1 || !ok2 || !ok3 || y < 0 {
		return time.Time{}, false
	}
	if y < 100 {
		y += 2000
	}
	if m < 1 || m > 12 || d < 1 || d > daysIn(time.Month(m), y) {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc), true
}

// splitDateTime 拆分 "日期 时刻" 或 ISO "日期T时刻" 形式的文本
// 日期部分须含 / - . 分隔符，时刻部分须含 ":"，否则 ok 为 false
func splitDateTime(s string) (date, clock string, ok bool) {
	for i := 1; i < len(s); i++ {
		c := s[i]
		isSep := c == ' ' || c == '\t' ||
			(c == 'T' && isDigit(s[i-1]) && i+1 < len(s) && isDigit(s[i+1]))
		if !isSep {
			continue
		}
		date = strings.TrimSpace(s[:i])
		clock = strings.TrimSpace(s[i+1:])
		if !strings.ContainsAny(date, "/-.") || !strings.Contains(clock, ":") {
			return "", "", false
		}
		return date, clock, true
	}
	return "", "", false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func monthFromAbbrev(s string) (int, bool) {
	r := []rune(strings.ToLower(strings.TrimSpace(s)))
	if len(r) < 3 {
		return 0, false
	}
	m, ok := monthAbbrev[string(r[:3])]
	return m, ok
}

// ResolveTime 把单元格中的时刻落到参考日期上
//
//   - 数字：一天的比例（0.5 = 12:00），只取小数部分
//   - 文本："H:MM"，无法解析的部分按 0 处理
//   - 纯时间值：取 UTC 时分，避免本地时区偏移
//   - 完整日期值：直接使用其自身的日期和时分，丢弃秒
//   - 空值：参考日期零点
func ResolveTime(v Value, ref time.Time, loc *time.Location) time.Time {
	base := dateOf(ref, loc)
	loc = base.Location()

	var hours, minutes int
	switch v.Kind {
	case Number:
		frac := v.Num - math.Floor(v.Num)
		secs := int(math.Round(frac * 86400))
		hours = secs / 3600
		minutes = (secs % 3600) / 60
	case String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return base
		}
		if _, clock, ok := splitDateTime(s); ok {
			s = clock
		}
		parts := strings.Split(s, ":")
		if len(parts) >= 2 {
			hours, _ = leadingInt(parts[0])
			minutes, _ = leadingInt(parts[1])
		}
	case Time:
		if IsTimeOnly(v.Time) {
			u := v.Time.UTC()
			hours, minutes = u.Hour(), u.Minute()
		} else {
			t := v.Time
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		}
	default:
		return base
	}

	return time.Date(base.Year(), base.Month(), base.Day(), hours, minutes, 0, 0, loc)
}

// ParseDurationMinutes 解析时长单元格
// 数字按一天的比例换算（round(v*1440)），文本按 "H:MM"，纯时间值取 UTC 时分
func ParseDurationMinutes(v Value) (int, bool) {
	switch v.Kind {
	case Number:
		if v.Num < 0 || math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return 0, false
		}
		return int(math.Round(v.Num * 1440)), true
	case String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0, false
		}
		parts := strings.Split(s, ":")
		h, ok := atoi(parts[0])
		if !ok || h < 0 {
			return 0, false
		}
		m := 0
		if len(parts) > 1 {
			if m, ok = atoi(parts[1]); !ok || m < 0 {
				return 0, false
			}
		}
		return h*60 + m, true
	case Time:
		if !IsTimeOnly(v.Time) {
			return 0, false
		}
		u := v.Time.UTC()
		return u.Hour()*60 + u.Minute(), true
	}
	return 0, false
}

// ── helpers ──

func dateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil
}

// leadingInt 读取开头的数字（"08h" → 8）
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}
