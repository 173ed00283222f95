package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"maintenance-tracker/internal/dto"
	"maintenance-tracker/internal/model"
)

// ── 测试辅助 ──

var importClock = at(2024, 6, 15, 14, 37)

func setupTestImportService() (*importService, *testRepos) {
	repo, mocks := newTestRepository()
	logger := zap.NewNop()
	audit := NewAuditService(repo, nil, "", logger)
	svc := NewImportService(repo, audit, ImportOptions{MaxRows: 100, Location: testLoc}, logger).(*importService)
	svc.now = func() time.Time { return importClock }
	return svc, mocks
}

// planWorkbook 表头 + 4 行：第 3 行无描述会被丢弃
func planWorkbook(t *testing.T) *bytes.Buffer {
	return buildWorkbook(t, func(f *excelize.File, s string) {
		rows := [][]interface{}{
			{"Descrição", "Data", "Hora Início", "Hora Fim", "Executante", "Responsável", "TAG"},
			{"Troca de óleo", "04/03/2024", "08:00", "10:30", "Ana; Bruno", "Carla", "M-01"},
			{"Inspeção visual", "05/03/2024", "13:00", "", "Bruno", "Carla", ""},
			{"", "05/03/2024", "13:00", "14:00", "Bruno", "Carla", "M-03"},
			{"Lubrificação", "06/03/2024", "22:00", "01:00", "Davi", "Carla", "M-04"},
		}
		for ri, r := range rows {
			for ci, v := range r {
				cellName, _ := excelize.CoordinatesToCellName(ci+1, ri+1)
				if err := f.SetCellValue(s, cellName, v); err != nil {
					t.Fatalf("写入单元格失败: %v", err)
				}
			}
		}
	})
}

func planMapping() model.ColumnMapping {
	return model.ColumnMapping{
		Descricao:            "Descrição",
		Data:                 "Data",
		HoraInicio:           "Hora Início",
		HoraFim:              "Hora Fim",
		Responsavel:          "Executante",
		ResponsavelSeparator: ";",
		Supervisor:           "Responsável",
		Tag:                  "TAG",
	}
}

// ── Preview 测试 ──

func TestImportService_Preview_SuggestsMapping(t *testing.T) {
	svc, _ := setupTestImportService()

	preview, err := svc.Preview(context.Background(), planWorkbook(t))
	if err != nil {
		t.Fatalf("Preview 应成功: %v", err)
	}
	if preview.RowCount != 4 {
		t.Errorf("期望 4 行数据，实际=%d", preview.RowCount)
	}
	m := preview.SuggestedMapping
	if m.Descricao != "Descrição" || m.HoraInicio != "Hora Início" || m.HoraFim != "Hora Fim" {
		t.Errorf("时间与描述列映射错误: %+v", m)
	}
	if m.Responsavel != "Executante" || m.Supervisor != "Responsável" || m.Tag != "TAG" || m.Data != "Data" {
		t.Errorf("人员列映射错误: %+v", m)
	}
}

// ── Import 测试 ──

func TestImportService_Import_Success(t *testing.T) {
	svc, mocks := setupTestImportService()

	result, err := svc.Import(context.Background(), planWorkbook(t), "plano.xlsx", planMapping(), testCaller)
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	batchID := strconv.FormatInt(importClock.UnixMilli(), 10)
	if result.Batch.ID != batchID {
		t.Errorf("期望批次ID=%s，实际=%s", batchID, result.Batch.ID)
	}
	if result.RowCount != 4 || result.Imported != 3 || result.Dropped != 1 {
		t.Errorf("统计错误: rows=%d imported=%d dropped=%d", result.RowCount, result.Imported, result.Dropped)
	}

	// 被丢弃的第 2 行（下标）不影响其余行的 ID
	for _, idx := range []int{0, 1, 3} {
		id := fmt.Sprintf("imported_%s_%d", batchID, idx)
		if _, ok := mocks.activity.activities[id]; !ok {
			t.Errorf("缺少活动 %s", id)
		}
	}

	first := mocks.activity.activities[fmt.Sprintf("imported_%s_0", batchID)]
	if !first.HoraInicio.Equal(at(2024, 3, 4, 8, 0)) || first.Duracao != "2:30" {
		t.Errorf("第一行时间错误: %v %s", first.HoraInicio, first.Duracao)
	}
	if first.Responsavel != "Ana / Bruno" {
		t.Errorf("负责人应按 ; 拆分后规范化，实际=%q", first.Responsavel)
	}

	second := mocks.activity.activities[fmt.Sprintf("imported_%s_1", batchID)]
	if second.Duracao != "1:00" || second.Tag != DefaultTag {
		t.Errorf("缺省结束时间与位号错误: %s %s", second.Duracao, second.Tag)
	}

	last := mocks.activity.activities[fmt.Sprintf("imported_%s_3", batchID)]
	if !last.HoraFim.Equal(at(2024, 3, 6, 23, 0)) {
		t.Errorf("结束早于开始时应回退为开始+1h，实际=%v", last.HoraFim)
	}

	stored := mocks.batch.batches[batchID]
	if stored == nil || len(stored.Rows) != 4 || stored.Version != 1 {
		t.Fatalf("批次应保存原始行与初始版本: %+v", stored)
	}
	if mocks.audit.last().Action != model.AuditImport {
		t.Errorf("期望 IMPORTAR 审计，实际=%s", mocks.audit.last().Action)
	}
}

func TestImportService_Import_InvalidMapping(t *testing.T) {
	svc, mocks := setupTestImportService()

	m := planMapping()
	m.Turno = "Turno"
	_, err := svc.Import(context.Background(), planWorkbook(t), "plano.xlsx", m, testCaller)
	if !errors.Is(err, ErrImportMappingInvalid) {
		t.Errorf("期望 ErrImportMappingInvalid，实际: %v", err)
	}

	m = planMapping()
	m.Descricao = ""
	_, err = svc.Import(context.Background(), planWorkbook(t), "plano.xlsx", m, testCaller)
	if !errors.Is(err, ErrImportMappingInvalid) {
		t.Errorf("未映射描述列应失败，实际: %v", err)
	}
	if len(mocks.batch.batches) != 0 {
		t.Error("映射无效时不应写入批次")
	}
}

func TestImportService_Import_Unreadable(t *testing.T) {
	svc, _ := setupTestImportService()

	_, err := svc.Import(context.Background(), bytes.NewBufferString("not a workbook"), "x.xlsx", planMapping(), testCaller)
	if !errors.Is(err, ErrImportUnreadable) {
		t.Errorf("期望 ErrImportUnreadable，实际: %v", err)
	}
}

// ── Reimport 测试 ──

func TestImportService_Reimport_ReplacesAllActivities(t *testing.T) {
	svc, mocks := setupTestImportService()
	ctx := context.Background()

	imported, err := svc.Import(ctx, planWorkbook(t), "plano.xlsx", planMapping(), testCaller)
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}
	batchID := imported.Batch.ID

	// 一条无关活动不应受影响
	other := model.Activity{ID: "act_1_0"}
	mocks.activity.activities[other.ID] = &other

	// 新映射：不再映射结束时间，全部使用默认 1 小时
	m := planMapping()
	m.HoraFim = ""
	result, err := svc.Reimport(ctx, batchID, &dto.ReimportRequest{Mapping: m, Version: 1}, testCaller)
	if err != nil {
		t.Fatalf("Reimport 应成功: %v", err)
	}
	if result.Imported != 3 || result.Removed != 3 {
		t.Errorf("期望替换 3 条为 3 条，实际 imported=%d removed=%d", result.Imported, result.Removed)
	}
	if result.Batch.Version != 2 {
		t.Errorf("期望版本递增到 2，实际=%d", result.Batch.Version)
	}
	first := mocks.activity.activities[fmt.Sprintf("imported_%s_0", batchID)]
	if first.Duracao != "1:00" {
		t.Errorf("重新导入应使用新映射，实际 Duracao=%s", first.Duracao)
	}
	if _, ok := mocks.activity.activities[other.ID]; !ok {
		t.Error("其他活动不应被删除")
	}
	if mocks.audit.last().Action != model.AuditReimport {
		t.Errorf("期望 REIMPORTAR 审计，实际=%s", mocks.audit.last().Action)
	}

	// 旧版本号的请求被拒绝
	_, err = svc.Reimport(ctx, batchID, &dto.ReimportRequest{Mapping: m, Version: 1}, testCaller)
	if !errors.Is(err, ErrImportBatchConflict) {
		t.Errorf("期望 ErrImportBatchConflict，实际: %v", err)
	}
}

func TestImportService_Reimport_NotFound(t *testing.T) {
	svc, _ := setupTestImportService()

	_, err := svc.Reimport(context.Background(), "404", &dto.ReimportRequest{Mapping: planMapping(), Version: 1}, testCaller)
	if !errors.Is(err, ErrImportBatchNotFound) {
		t.Errorf("期望 ErrImportBatchNotFound，实际: %v", err)
	}
}

// ── DeleteBatch / ListBatches 测试 ──

func TestImportService_DeleteBatch(t *testing.T) {
	svc, mocks := setupTestImportService()
	ctx := context.Background()

	imported, err := svc.Import(ctx, planWorkbook(t), "plano.xlsx", planMapping(), testCaller)
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	list, total, err := svc.ListBatches(ctx, &dto.ImportBatchListRequest{})
	if err != nil || total != 1 || list[0].Rows != nil {
		t.Fatalf("列表应返回 1 个不含原始行的批次: total=%d err=%v", total, err)
	}

	result, err := svc.DeleteBatch(ctx, imported.Batch.ID, testCaller)
	if err != nil {
		t.Fatalf("DeleteBatch 应成功: %v", err)
	}
	if result.Removed != 3 {
		t.Errorf("期望删除 3 条活动，实际=%d", result.Removed)
	}
	if len(mocks.activity.activities) != 0 || len(mocks.batch.batches) != 0 {
		t.Error("批次与活动应全部删除")
	}

	if _, err := svc.DeleteBatch(ctx, imported.Batch.ID, testCaller); !errors.Is(err, ErrImportBatchNotFound) {
		t.Errorf("期望 ErrImportBatchNotFound，实际: %v", err)
	}
}
