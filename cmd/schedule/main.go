package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/ed-residency/resident-scheduler/internal/roster"
	"github.com/ed-residency/resident-scheduler/internal/scheduler"
	"github.com/ed-residency/resident-scheduler/internal/utils"
)

func main() {
	var residentsPath, shiftsPath string
	var start, end string
	var demo int
	var hospitals, constraints, backendName string
	var maxTime time.Duration
	var seed int64
	var workers int
	var asJSON, list, verbose bool

	flag.StringVar(&residentsPath, "residents", "", "住院医名单 CSV（Resident, PGY, Service, Hours/Block Goal, Requests）")
	flag.StringVar(&shiftsPath, "shifts", "", "每周班次表 CSV（表头为 MONDAY 到 SUNDAY）")
	flag.StringVar(&start, "start", "", "排班开始日期 (YYYY-MM-DD)")
	flag.StringVar(&end, "end", "", "排班结束日期 (YYYY-MM-DD)，包含当天")
	flag.IntVar(&demo, "demo", 0, "不读取文件，为每个 PGY 等级随机生成 n 名住院医和一套演示班次")
	flag.StringVar(&hospitals, "hospitals", "L,M", "医院系统中的医院，以逗号分隔")
	flag.StringVar(&constraints, "constraints", "", "启用的约束，以逗号分隔，为空时全部启用")
	flag.DurationVar(&maxTime, "max-time", scheduler.DefaultMaxTime, "求解时间上限")
	flag.Int64Var(&seed, "seed", -1, "随机种子，负数表示随机选取")
	flag.IntVar(&workers, "workers", 0, "并行搜索的 worker 数量，0 表示使用 CPU 核数")
	flag.StringVar(&backendName, "backend", scheduler.BackendSearch, "求解后端：cp（分支定界搜索）或 pb（gophersat 伪布尔求解）")
	flag.BoolVar(&asJSON, "json", false, "以 JSON 输出排班结果")
	flag.BoolVar(&list, "list", false, "列出所有约束后退出")
	flag.BoolVar(&verbose, "v", false, "输出每条约束的添加情况")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if list {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND")
		for _, c := range scheduler.Constraints() {
			fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Kind)
		}
		_ = w.Flush()
		return
	}

	startDate, err := domain.ParseDate(start)
	if err != nil {
		logger.Error("开始日期无效", "error", err)
		os.Exit(1)
	}
	endDate, err := domain.ParseDate(end)
	if err != nil {
		logger.Error("结束日期无效", "error", err)
		os.Exit(1)
	}
	if err := utils.ValidateHorizon(startDate, endDate); err != nil {
		logger.Error("排班范围无效", "error", err)
		os.Exit(1)
	}

	system := domain.HospitalSystem{Name: "ED Residency"}
	for _, name := range splitList(hospitals) {
		system.Hospitals = append(system.Hospitals, domain.Hospital{Name: name})
	}

	residents, templates, err := loadInput(demo, residentsPath, shiftsPath, system, startDate, endDate)
	if err != nil {
		logger.Error("无法读取输入", "error", err)
		os.Exit(1)
	}

	req := &domain.ScheduleRequest{
		HospitalSystem: system,
		Residents:      residents,
		Shifts:         domain.GenerateShifts(templates, startDate, endDate),
		Days:           domain.DateRange(startDate, endDate),
		Constraints:    splitList(constraints),
	}
	backend, err := scheduler.BackendByName(backendName)
	if err != nil {
		logger.Error("求解后端无效", "error", err)
		os.Exit(1)
	}

	opts := scheduler.SolveOptions{MaxTime: maxTime, Workers: workers, Backend: backend}
	if seed >= 0 {
		opts.Seed = &seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := scheduler.CreateSchedule(ctx, req, opts)
	if err != nil {
		logger.Error("排班失败", "error", err)
		os.Exit(1)
	}

	if !result.Found() {
		logger.Error("没有找到可行的排班", "status", result.Status.String(), "seed", result.Seed)
		os.Exit(2)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Schedule.Entries()); err != nil {
			logger.Error("无法输出排班结果", "error", err)
			os.Exit(1)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tDAY\tSHIFT\tTEAM\tRESIDENT\tPGY")
	for _, e := range result.Schedule.Entries() {
		team := ""
		for _, s := range req.Shifts {
			if s.Date == e.Date && s.Code == e.ShiftCode {
				team = s.Team.Name()
				break
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.Date, domain.DayOfWeekFromDate(e.Date).FullName(), e.ShiftCode, team, e.Resident, e.PGYLevel)
	}
	_ = w.Flush()

	fmt.Printf("\nstatus=%s objective=%d seed=%d wall=%s\n", result.Status, result.Objective, result.Seed, result.WallTime.Round(time.Millisecond))
}

func loadInput(demo int, residentsPath, shiftsPath string, system domain.HospitalSystem, start, end domain.Date) ([]domain.Resident, []domain.ShiftTemplate, error) {
	if demo > 0 {
		templates, err := utils.GenerateDemoShiftTemplates(system.Hospitals)
		if err != nil {
			return nil, nil, err
		}
		return utils.GenerateRandomRoster(demo, start, end), templates, nil
	}

	if residentsPath == "" || shiftsPath == "" {
		return nil, nil, fmt.Errorf("需要同时指定 -residents 和 -shifts，或者使用 -demo")
	}

	rf, err := os.Open(residentsPath)
	if err != nil {
		return nil, nil, err
	}
	defer rf.Close()

	residents, err := roster.ReadResidents(rf)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", residentsPath, err)
	}

	sf, err := os.Open(shiftsPath)
	if err != nil {
		return nil, nil, err
	}
	defer sf.Close()

	templates, err := roster.ReadShiftTemplates(sf)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", shiftsPath, err)
	}

	return residents, templates, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
