package dto

import (
	"maintenance-tracker/internal/model"
	"maintenance-tracker/pkg/sheetcell"
)

// ── 导入模块 DTO ──

// ReimportRequest 以新的列映射重新导入批次
type ReimportRequest struct {
	Mapping model.ColumnMapping `json:"mapping"`
	Version int                 `json:"version" binding:"required,min=1"`
}

// ImportBatchListRequest 批次列表查询参数
type ImportBatchListRequest struct {
	PaginationRequest
}

// ── 响应 ──

// ImportPreviewResponse 表格预览（用于前端配置列映射）
type ImportPreviewResponse struct {
	Sheet            string              `json:"sheet"`
	Headers          []string            `json:"headers"`
	RowCount         int                 `json:"row_count"`
	Rows             []sheetcell.Row     `json:"rows"`
	SuggestedMapping model.ColumnMapping `json:"suggested_mapping"`
}

// ImportResultResponse 导入 / 重新导入结果
type ImportResultResponse struct {
	Batch    model.ImportBatch `json:"batch"`
	RowCount int               `json:"row_count"`
	Imported int               `json:"imported"`
	Dropped  int               `json:"dropped"`
	Removed  int64             `json:"removed,omitempty"` // 重新导入时删除的旧活动数
}

// DeleteBatchResponse 删除批次结果
type DeleteBatchResponse struct {
	Removed int64 `json:"removed"`
}
