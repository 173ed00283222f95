package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"maintenance-tracker/internal/dto"
	"maintenance-tracker/internal/model"
	"maintenance-tracker/internal/repository"
)

// ── 报表模块业务错误 ──

var (
	ErrReportGenerateFail = errors.New("生成报表文件失败")
)

// ReportService 报表业务接口
//
//   - ManPower：人工时 = 活动时长 × 负责人数量（负责人按 " / " 拆分）
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ReportService interface {
	ManPower(ctx context.Context, req *dto.ReportFilterRequest) (*dto.ManPowerReport, error)
	ExportManPower(ctx context.Context, req *dto.ReportFilterRequest) (*bytes.Buffer, string, error)
	ExportCalendar(ctx context.Context, req *dto.ReportFilterRequest) (*bytes.Buffer, string, error)
}

type reportService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewReportService 创建 ReportService 实例
func NewReportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &reportService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

func (s *reportService) activities(ctx context.Context, req *dto.ReportFilterRequest) ([]model.Activity, error) {
	filter := repository.ActivityFilter{
		Turno:       req.Turno,
		Responsavel: req.Responsavel,
		Supervisor:  req.Supervisor,
	}
	if req.Status != "" {
		filter.Status = model.Status(req.Status)
		if !filter.Status.Valid() {
			return nil, ErrActivityInvalidStatus
		}
	}
	from, to, err := parseDateRange(req.From, req.To, s.loc)
	if err != nil {
		return nil, err
	}
	filter.From, filter.To = from, to

	list, _, err := s.repo.Activity.List(ctx, filter, 0, 0)
	if err != nil {
		s.logger.Error("查询报表活动失败", zap.Error(err))
		return nil, err
	}
	return list, nil
}

// ═══════════════════════════════════════════════════════════
// ManPower，人工时汇总
// ═══════════════════════════════════════════════════════════

func (s *reportService) ManPower(ctx context.Context, req *dto.ReportFilterRequest) (*dto.ManPowerReport, error) {
	list, err := s.activities(ctx, req)
	if err != nil {
		return nil, err
	}
	return BuildManPowerReport(list, s.loc), nil
}

// BuildManPowerReport 纯计算，便于单独测试
func BuildManPowerReport(list []model.Activity, loc *time.Location) *dto.ManPowerReport {
	report := &dto.ManPowerReport{
		Items:    make([]dto.ManPowerItem, 0, len(list)),
		ByPerson: []dto.PersonHours{},
	}
	byPerson := make(map[string]*dto.PersonHours)

	for i := range list {
		a := &list[i]
		people := a.People()
		minutes := ActivityMinutes(a)
		manMinutes := minutes * len(people)

		report.Items = append(report.Items, dto.ManPowerItem{
			ID:              a.ID,
			IDMp:            a.IDMp,
			Tag:             a.Tag,
			Descricao:       a.Descricao,
			Turno:           a.Turno,
			HoraInicio:      a.HoraInicio.In(loc).Format("02/01/2006 15:04"),
			Duracao:         a.Duracao,
			People:          people,
			Headcount:       len(people),
			DurationMinutes: minutes,
			ManMinutes:      manMinutes,
			ManHours:        FormatHHMM(manMinutes),
		})
		report.TotalManMinutes += manMinutes

		for _, p := range people {
			ph, ok := byPerson[p]
			if !ok {
				ph = &dto.PersonHours{Name: p}
				byPerson[p] = ph
			}
			ph.Activities++
			ph.Minutes += minutes
		}
	}

	for _, ph := range byPerson {
		ph.Hours = FormatHHMM(ph.Minutes)
		report.ByPerson = append(report.ByPerson, *ph)
	}
	sort.Slice(report.ByPerson, func(i, j int) bool {
		if report.ByPerson[i].Minutes != report.ByPerson[j].Minutes {
			return report.ByPerson[i].Minutes > report.ByPerson[j].Minutes
		}
		return report.ByPerson[i].Name < report.ByPerson[j].Name
	})

	report.TotalActivities = len(list)
	report.TotalManHours = FormatHHMM(report.TotalManMinutes)
	return report
}

// ActivityMinutes duracao 优先（"H:MM" 或小时小数），无法解析时按起止时间计算
func ActivityMinutes(a *model.Activity) int {
	d := strings.TrimSpace(a.Duracao)
	if strings.Contains(d, ":") {
		if m, err := model.ParseDuration(d); err == nil {
			return m
		}
	} else if d != "" {
		if h, err := strconv.ParseFloat(strings.Replace(d, ",", ".", 1), 64); err == nil && h >= 0 {
			return int(h*60 + 0.5)
		}
	}
	if m := model.DurationMinutes(a.HoraInicio, a.HoraFim); m > 0 {
		return m
	}
	return 0
}

// FormatHHMM 分钟 → "HH:MM"（小时不足两位补零）
func FormatHHMM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ═══════════════════════════════════════════════════════════
// ExportManPower，导出人工时 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Homem x Hora"：每行一个活动，末行合计
//   - Sheet "Por Pessoa"：按人员汇总

func (s *reportService) ExportManPower(ctx context.Context, req *dto.ReportFilterRequest) (*bytes.Buffer, string, error) {
	report, err := s.ManPower(ctx, req)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Homem x Hora"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"ID MP", "TAG", "Descrição", "Turno", "Início", "Duração", "Responsáveis", "Qtd.", "HH"}
	widths := []float64{14, 14, 48, 8, 18, 10, 36, 6, 10}

	// 标题行
	f.SetCellValue(sheetName, "A1", "Cálculo Homem x Hora")
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range headers {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, widths[i])
		f.SetCellValue(sheetName, cell(col, row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(headers)-1), row), headerStyle)

	// 数据行
	row = 3
	for _, it := range report.Items {
		values := []interface{}{
			it.IDMp, it.Tag, it.Descricao, it.Turno, it.HoraInicio, it.Duracao,
			strings.Join(it.People, model.ResponsibleSeparator), it.Headcount, it.ManHours,
		}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		row++
	}

	// 合计
	f.SetCellValue(sheetName, cell("A", row), "Total Geral")
	f.SetCellValue(sheetName, cell(colName(len(headers)-1), row), report.TotalManHours)

	// 按人员汇总
	personSheet := "Por Pessoa"
	f.NewSheet(personSheet)
	f.SetColWidth(personSheet, "A", "A", 32)
	for i, h := range []string{"Responsável", "Atividades", "Horas"} {
		f.SetCellValue(personSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(personSheet, "A1", "C1", headerStyle)
	for i, ph := range report.ByPerson {
		f.SetCellValue(personSheet, cell("A", i+2), ph.Name)
		f.SetCellValue(personSheet, cell("B", i+2), ph.Activities)
		f.SetCellValue(personSheet, cell("C", i+2), ph.Hours)
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrReportGenerateFail
	}

	filename := fmt.Sprintf("homem_hora_%s.xlsx", s.now().In(s.loc).Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar，导出 iCalendar 订阅
// ═══════════════════════════════════════════════════════════
//
// 时间写为不带时区的本地时间（floating time），与活动的挂钟语义一致

const icsLocalLayout = "20060102T150405"

func (s *reportService) ExportCalendar(ctx context.Context, req *dto.ReportFilterRequest) (*bytes.Buffer, string, error) {
	list, err := s.activities(ctx, req)
	if err != nil {
		return nil, "", err
	}

	cal := BuildCalendar(list, s.loc, s.now())
	return bytes.NewBufferString(cal.Serialize()), "atividades.ics", nil
}

// BuildCalendar 活动 → VEVENT
func BuildCalendar(list []model.Activity, loc *time.Location, stamp time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//maintenance-tracker//atividades//PT")
	cal.SetXWRCalName("Atividades de manutenção")

	for i := range list {
		a := &list[i]
		event := cal.AddEvent(a.ID + "@maintenance-tracker")
		event.SetDtStampTime(stamp)
		event.SetProperty(ics.ComponentPropertyDtStart, a.HoraInicio.In(loc).Format(icsLocalLayout))
		event.SetProperty(ics.ComponentPropertyDtEnd, a.HoraFim.In(loc).Format(icsLocalLayout))
		event.SetSummary(fmt.Sprintf("[%s] %s", a.Tag, a.Descricao))
		if a.Area != "" {
			event.SetLocation(a.Area)
		}
		event.SetDescription(calendarDescription(a))
		event.AddProperty(ics.ComponentPropertyCategories, string(a.Status))
		if a.Status == model.StatusNotExecuted {
			event.SetStatus(ics.ObjectStatusCancelled)
		} else {
			event.SetStatus(ics.ObjectStatusConfirmed)
		}
	}
	return cal
}

func calendarDescription(a *model.Activity) string {
	lines := []string{
		"ID MP: " + a.IDMp,
		"Responsável: " + a.Responsavel,
		"Supervisor: " + a.Supervisor,
		"Turno: " + a.Turno,
		"Criticidade: " + string(a.Criticidade),
		"Status: " + string(a.Status),
	}
	return strings.Join(lines, "\n")
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
