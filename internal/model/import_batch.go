package model

import (
	"time"

	"gorm.io/datatypes"

	"maintenance-tracker/pkg/sheetcell"
)

// ImportedIDPrefix 导入活动 ID 前缀
const ImportedIDPrefix = "imported_"

// ImportBatch 表格导入批次，对应 import_batches
// Rows 保留原始单元格类型，重新编辑映射时按同一份输入重新归一化
type ImportBatch struct {
	ID         string                             `gorm:"type:varchar(32);primaryKey" json:"id"`
	FileName   string                             `gorm:"type:varchar(255);not null"  json:"file_name"`
	ImportedAt time.Time                          `gorm:"not null"                    json:"imported_at"`
	Count      int                                `gorm:"not null"                    json:"count"`
	RowCount   int                                `gorm:"not null"                    json:"row_count"`
	Headers    datatypes.JSONSlice[string]        `gorm:"type:jsonb;not null"         json:"headers"`
	Rows       datatypes.JSONSlice[sheetcell.Row] `gorm:"type:jsonb;not null"         json:"-"`
	Mapping    datatypes.JSONType[ColumnMapping]  `gorm:"type:jsonb;not null"         json:"mapping"`
	VersionedModel
}

func (ImportBatch) TableName() string { return "import_batches" }

// ActivityIDPrefix 该批次下活动 ID 的公共前缀
func (b *ImportBatch) ActivityIDPrefix() string {
	return BatchActivityIDPrefix(b.ID)
}

// BatchActivityIDPrefix "imported_{batchID}_"
func BatchActivityIDPrefix(batchID string) string {
	return ImportedIDPrefix + batchID + "_"
}

// ColumnMapping 逻辑字段 → 表头（空字符串表示未映射）
type ColumnMapping struct {
	IDMp                 string               `json:"idMp"`
	Tag                  string               `json:"tag"`
	Descricao            string               `json:"descricao"`
	Responsavel          string               `json:"responsavel"`
	ResponsavelSeparator string               `json:"responsavelSeparator,omitempty"`
	Supervisor           string               `json:"supervisor"`
	Area                 string               `json:"area"`
	Turno                string               `json:"turno"`
	Data                 string               `json:"data,omitempty"`
	DateFormat           sheetcell.DateFormat `json:"dateFormat"`
	HoraInicio           string               `json:"horaInicio"`
	HoraFim              string               `json:"horaFim"`
	Duracao              string               `json:"duracao"`
	Criticidade          string               `json:"criticidade"`
}

// MappedHeaders 已映射的表头（用于校验映射是否引用了不存在的列）
func (m ColumnMapping) MappedHeaders() []string {
	all := []string{m.IDMp, m.Tag, m.Descricao, m.Responsavel, m.Supervisor, m.Area,
		m.Turno, m.Data, m.HoraInicio, m.HoraFim, m.Duracao, m.Criticidade}
	out := make([]string, 0, len(all))
	for _, h := range all {
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}
