// Package sheetcell 表格单元格的弱类型取值，以及日期、时刻、时长的解析规则。
//
// 表格库会把单元格呈现为数字、字符串或日期三类原生类型，
// 导入规则依赖这种区分，因此 Value 保留原生类型而不是统一转成字符串。
package sheetcell

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind 单元格原生类型
type Kind uint8

const (
	Empty Kind = iota
	Number
	String
	Time
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Number:
		return "number"
	case String:
		return "string"
	case Time:
		return "time"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value 单元格取值
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Time time.Time
}

// NumberValue 数字单元格
func NumberValue(f float64) Value { return Value{Kind: Number, Num: f} }

// StringValue 文本单元格
func StringValue(s string) Value { return Value{Kind: String, Str: s} }

// TimeValue 日期/时间单元格
func TimeValue(t time.Time) Value { return Value{Kind: Time, Time: t} }

// IsEmpty 空单元格或仅含空白的文本
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case Empty:
		return true
	case String:
		return strings.TrimSpace(v.Str) == ""
	}
	return false
}

// Text 单元格的文本表示，用于描述、位号等自由文本字段
func (v Value) Text() string {
	switch v.Kind {
	case Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case String:
		return strings.TrimSpace(v.Str)
	case Time:
		if IsTimeOnly(v.Time) {
			return v.Time.UTC().Format("15:04")
		}
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 {
			return v.Time.Format("02/01/2006")
		}
		return v.Time.Format("02/01/2006 15:04")
	}
	return ""
}

// ── JSON ──

type wireValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

// MarshalJSON 编码为 {"t":"n|s|d","v":...}，空值编码为 null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case Number:
		return json.Marshal(struct {
			T string  `json:"t"`
			V float64 `json:"v"`
		}{"n", v.Num})
	case String:
		return json.Marshal(struct {
			T string `json:"t"`
			V string `json:"v"`
		}{"s", v.Str})
	case Time:
		return json.Marshal(struct {
			T string `json:"t"`
			V string `json:"v"`
		}{"d", v.Time.Format(time.RFC3339Nano)})
	}
	return []byte("null"), nil
}

// UnmarshalJSON 同时接受带类型标记的对象，以及裸数字 / 裸字符串
func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*v = Value{}
		return nil
	}

	switch s[0] {
	case '{':
		var w wireValue
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		return v.decodeTagged(w)
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*v = StringValue(str)
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("sheetcell: 无法解析单元格 %s", s)
		}
		*v = NumberValue(f)
		return nil
	}
}

func (v *Value) decodeTagged(w wireValue) error {
	switch w.T {
	case "n":
		var f float64
		if err := json.Unmarshal(w.V, &f); err != nil {
			return fmt.Errorf("sheetcell: 数字单元格无效: %w", err)
		}
		*v = NumberValue(f)
	case "s":
		var str string
		if err := json.Unmarshal(w.V, &str); err != nil {
			return fmt.Errorf("sheetcell: 文本单元格无效: %w", err)
		}
		*v = StringValue(str)
	case "d":
		var str string
		if err := json.Unmarshal(w.V, &str); err != nil {
			return fmt.Errorf("sheetcell: 日期单元格无效: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return fmt.Errorf("sheetcell: 日期单元格无效: %w", err)
		}
		*v = TimeValue(t)
	case "":
		*v = Value{}
	default:
		return fmt.Errorf("sheetcell: 未知单元格类型 %q", w.T)
	}
	return nil
}

// Row 一行数据：表头 → 单元格
type Row map[string]Value

// Get 读取指定列，未映射（空表头）或缺失时返回空值
func (r Row) Get(header string) Value {
	if header == "" {
		return Value{}
	}
	return r[header]
}
