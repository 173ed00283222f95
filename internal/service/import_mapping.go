package service

import (
	"fmt"
	"strings"

	"maintenance-tracker/internal/model"
	"maintenance-tracker/pkg/sheetcell"
)

// ── 列映射 ──

// headerKeywords 逻辑字段 → 表头关键字（小写，包含匹配）
var headerKeywords = []struct {
	set      func(m *model.ColumnMapping, header string)
	keywords []string
}{
	{func(m *model.ColumnMapping, h string) { m.IDMp = h }, []string{"id mp", "id da mp"}},
	{func(m *model.ColumnMapping, h string) { m.Tag = h }, []string{"tag", "equipamento"}},
	{func(m *model.ColumnMapping, h string) { m.Descricao = h }, []string{"descrição", "descricao", "atividade"}},
	{func(m *model.ColumnMapping, h string) { m.Responsavel = h }, []string{"efetivo", "executante"}},
	{func(m *model.ColumnMapping, h string) { m.Supervisor = h }, []string{"responsável", "responsavel", "supervisor"}},
	{func(m *model.ColumnMapping, h string) { m.Area = h }, []string{"área", "area", "setor"}},
	{func(m *model.ColumnMapping, h string) { m.Turno = h }, []string{"turno"}},
	{func(m *model.ColumnMapping, h string) { m.Data = h }, []string{"data"}},
	{func(m *model.ColumnMapping, h string) { m.HoraInicio = h }, []string{"início", "inicio", "hora inicio"}},
	{func(m *model.ColumnMapping, h string) { m.HoraFim = h }, []string{"fim", "término", "termino", "hora fim"}},
	{func(m *model.ColumnMapping, h string) { m.Duracao = h }, []string{"duração", "duracao", "tempo", "estimado"}},
	{func(m *model.ColumnMapping, h string) { m.Criticidade = h }, []string{"criticidade", "prioridade"}},
}

// SuggestMapping 按表头关键字猜测列映射，每个字段取第一个命中的表头
func SuggestMapping(headers []string) model.ColumnMapping {
	m := model.ColumnMapping{
		ResponsavelSeparator: "/",
		DateFormat:           sheetcell.DMY,
	}
	for _, hk := range headerKeywords {
		if h := findHeader(headers, hk.keywords); h != "" {
			hk.set(&m, h)
		}
	}
	return m
}

func findHeader(headers, keywords []string) string {
	for _, h := range headers {
		lower := strings.ToLower(strings.TrimSpace(h))
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return h
			}
		}
	}
	return ""
}

// ValidateMapping 映射引用的表头必须存在，且必须映射描述列（无描述的行会被全部丢弃）
func ValidateMapping(m model.ColumnMapping, headers []string) error {
	if m.Descricao == "" {
		return fmt.Errorf("%w: 未映射描述列", ErrImportMappingInvalid)
	}
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	for _, h := range m.MappedHeaders() {
		if !known[h] {
			return fmt.Errorf("%w: 表头 %q 不存在", ErrImportMappingInvalid, h)
		}
	}
	return nil
}
