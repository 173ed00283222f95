package logger

import (
	"testing"

	"maintenance-tracker/config"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger(&config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("格式 %s 初始化应成功: %v", format, err)
		}
		if !l.Core().Enabled(-1) {
			t.Errorf("格式 %s 应启用 debug 级别", format)
		}
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(&config.LogConfig{Level: "verbose", Format: "json"}); err == nil {
		t.Fatal("无效日志级别应返回错误")
	}
}
