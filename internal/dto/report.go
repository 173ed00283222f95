package dto

// ── 报表模块 DTO ──

// ReportFilterRequest 报表过滤参数
type ReportFilterRequest struct {
	Turno       string `form:"turno"       binding:"omitempty,max=64"`
	Responsavel string `form:"responsavel" binding:"omitempty,max=255"`
	Supervisor  string `form:"supervisor"  binding:"omitempty,max=255"`
	Status      string `form:"status"`
	From        string `form:"from"` // YYYY-MM-DD
	To          string `form:"to"`   // YYYY-MM-DD
}

// ManPowerItem 单个活动的人工时
type ManPowerItem struct {
	ID              string   `json:"id"`
	IDMp            string   `json:"idMp"`
	Tag             string   `json:"tag"`
	Descricao       string   `json:"descricao"`
	Turno           string   `json:"turno"`
	HoraInicio      string   `json:"horaInicio"`
	Duracao         string   `json:"duracao"`
	People          []string `json:"people"`
	Headcount       int      `json:"headcount"`
	DurationMinutes int      `json:"durationMinutes"`
	ManMinutes      int      `json:"totalManMinutes"`
	ManHours        string   `json:"totalManHours"`
}

// PersonHours 按人员汇总
type PersonHours struct {
	Name       string `json:"name"`
	Activities int    `json:"activities"`
	Minutes    int    `json:"minutes"`
	Hours      string `json:"hours"`
}

// ManPowerReport 人工时报表
type ManPowerReport struct {
	Items           []ManPowerItem `json:"items"`
	ByPerson        []PersonHours  `json:"byPerson"`
	TotalActivities int            `json:"totalActivities"`
	TotalManMinutes int            `json:"totalManMinutes"`
	TotalManHours   string         `json:"totalManHours"`
}
