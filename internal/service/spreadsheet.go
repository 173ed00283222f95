package service

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"maintenance-tracker/pkg/sheetcell"
)

// ── 表格解析 ──────────────────────────────────────────────
//
// 职责：把 xlsx 文件转为表头 + 保留原生类型的行数据。
//
//   - 首行为表头，空表头列忽略
//   - 文本单元格 → String；数字单元格 → Number
//   - 带日期/时间数字格式的数字单元格 → Time（序列号小于 1 的为纯时间值，年份为 1899）
//   - 完全空白的数据行跳过
// ─────────────────────────────────────────────────────────────

var (
	ErrImportUnreadable   = errors.New("无法解析表格文件")
	ErrImportNoData       = errors.New("表格无数据行（第一行为表头）")
	ErrImportSheetMissing = errors.New("工作表不存在")
)

// ErrImportTooManyRows 超出行数上限
type ErrImportTooManyRows struct {
	Limit int
}

func (e *ErrImportTooManyRows) Error() string {
	return fmt.Sprintf("数据行数超过上限 %d 行", e.Limit)
}

// WorkbookOptions 解析选项
type WorkbookOptions struct {
	Sheet    string // 为空时读取第一个工作表
	MaxRows  int    // <=0 不限制
	Location *time.Location
}

// Workbook 解析结果
type Workbook struct {
	Sheet   string
	Headers []string
	Rows    []sheetcell.Row
}

// ParseWorkbook 读取 xlsx
func ParseWorkbook(reader io.Reader, opts WorkbookOptions) (*Workbook, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}
	defer f.Close()

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrImportSheetMissing, sheet)
	}

	rawRows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(rawRows) < 2 {
		return nil, ErrImportNoData
	}

	headers := make([]string, len(rawRows[0]))
	for i, h := range rawRows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	r := &cellReader{f: f, sheet: sheet, loc: loc, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}

	rows := make([]sheetcell.Row, 0, len(rawRows)-1)
	for ri := 1; ri < len(rawRows); ri++ {
		row := make(sheetcell.Row, len(headers))
		for ci, header := range headers {
			if header == "" || ci >= len(rawRows[ri]) || strings.TrimSpace(rawRows[ri][ci]) == "" {
				continue
			}
			cellName, _ := excelize.CoordinatesToCellName(ci+1, ri+1)
			row[header] = r.value(cellName, rawRows[ri][ci])
		}
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
		if opts.MaxRows > 0 && len(rows) > opts.MaxRows {
			return nil, &ErrImportTooManyRows{Limit: opts.MaxRows}
		}
	}
	if len(rows) == 0 {
		return nil, ErrImportNoData
	}

	return &Workbook{Sheet: sheet, Headers: compactHeaders(headers), Rows: rows}, nil
}

func compactHeaders(headers []string) []string {
	out := make([]string, 0, len(headers))
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if h != "" && !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

type cellReader struct {
	f          *excelize.File
	sheet      string
	loc        *time.Location
	date1904   bool
	dateStyles map[int]bool
}

func (r *cellReader) value(cellName, raw string) sheetcell.Value {
	typ, _ := r.f.GetCellType(r.sheet, cellName)
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool, excelize.CellTypeError:
		return sheetcell.StringValue(raw)
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return sheetcell.TimeValue(r.wallClock(t))
		}
		return sheetcell.StringValue(raw)
	}

	num, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return sheetcell.StringValue(raw)
	}
	if r.isDateStyled(cellName) {
		if t, err := excelize.ExcelDateToTime(num, r.date1904); err == nil {
			return sheetcell.TimeValue(r.wallClock(t.Round(time.Second)))
		}
	}
	return sheetcell.NumberValue(num)
}

// wallClock 完整日期转为本地挂钟时间；纯时间值保持 UTC
func (r *cellReader) wallClock(t time.Time) time.Time {
	if sheetcell.IsTimeOnly(t) {
		return t.UTC()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, r.loc)
}

func (r *cellReader) isDateStyled(cellName string) bool {
	idx, err := r.f.GetCellStyle(r.sheet, cellName)
	if err != nil || idx == 0 {
		return false
	}
	if v, ok := r.dateStyles[idx]; ok {
		return v
	}
	isDate := false
	if style, err := r.f.GetStyle(idx); err == nil && style != nil {
		isDate = isDateNumFmt(style.NumFmt)
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	r.dateStyles[idx] = isDate
	return isDate
}

// 内置日期/时间格式 ID
func isDateNumFmt(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

// isDateFormatCode 自定义格式中出现日期/时间占位符（忽略引号内文本与方括号内的颜色、区域设置）
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, ch := range strings.ToLower(code) {
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '[':
			inBracket = true
			b.WriteRune(ch)
		case ch == ']':
			inBracket = false
			b.WriteRune(ch)
		case inBracket:
			// [h] [mm] [ss] 为累计时长，其余为颜色或区域
			if ch == 'h' || ch == 'm' || ch == 's' {
				b.WriteRune(ch)
			}
		default:
			b.WriteRune(ch)
		}
	}
	clean := b.String()
	if clean == "general" || clean == "@" {
		return false
	}
	return strings.ContainsAny(clean, "ydhs") || strings.Contains(clean, "m")
}
