package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatDuration 按分钟四舍五入格式化为 "H:MM"
func FormatDuration(d time.Duration) string {
	mins := int(math.Round(d.Minutes()))
	sign := ""
	if mins < 0 {
		sign = "-"
		mins = -mins
	}
	return fmt.Sprintf("%s%d:%02d", sign, mins/60, mins%60)
}

// ParseDuration 解析 "H:MM" 为分钟数
func ParseDuration(s string) (int, error) {
	s = strings.TrimSpace(s)
	h, m, found := strings.Cut(s, ":")
	hours, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("无效的时长 %q", s)
	}
	mins := 0
	if found {
		mins, err = strconv.Atoi(strings.TrimSpace(m))
		if err != nil || mins < 0 || mins > 59 {
			return 0, fmt.Errorf("无效的时长 %q", s)
		}
	}
	return hours*60 + mins, nil
}

// DurationMinutes 起止时间间隔的分钟数（四舍五入）
func DurationMinutes(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Minutes()))
}
