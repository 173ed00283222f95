package sheetcell

import "strings"

// DateFormat 日期列的书写顺序
type DateFormat uint8

const (
	DMY   DateFormat = iota // DD/MM/AAAA
	MDY                     // MM/DD/AAAA
	YMD                     // AAAA-MM-DD
	DMonY                   // DD/MMM/AA，例如 11/Dez/25
)

var formatTokens = map[DateFormat]string{
	DMY:   "DD/MM/AAAA",
	MDY:   "MM/DD/AAAA",
	YMD:   "AAAA-MM-DD",
	DMonY: "DD/MMM/AA",
}

// ParseDateFormat 解析格式标记，空值或未知标记按 DMY 处理
func ParseDateFormat(token string) DateFormat {
	t := strings.ToUpper(strings.TrimSpace(token))
	t = strings.ReplaceAll(t, "Y", "A")
	switch t {
	case "MM/DD/AAAA", "MM-DD-AAAA":
		return MDY
	case "AAAA-MM-DD", "AAAA/MM/DD":
		return YMD
	case "DD/MMM/AA", "DD-MMM-AA", "DD/MMM/AAAA":
		return DMonY
	}
	return DMY
}

// Token 格式标记
func (f DateFormat) Token() string {
	if tok, ok := formatTokens[f]; ok {
		return tok
	}
	return formatTokens[DMY]
}

func (f DateFormat) String() string { return f.Token() }

// MarshalText 以标记形式写入 JSON
func (f DateFormat) MarshalText() ([]byte, error) {
	return []byte(f.Token()), nil
}

// UnmarshalText 从标记读取
func (f *DateFormat) UnmarshalText(b []byte) error {
	*f = ParseDateFormat(string(b))
	return nil
}

// 葡语月份缩写
var monthAbbrev = map[string]int{
	"jan": 1, "fev": 2, "mar": 3, "abr": 4, "mai": 5, "jun": 6,
	"jul": 7, "ago": 8, "set": 9, "out": 10, "nov": 11, "dez": 12,
}
