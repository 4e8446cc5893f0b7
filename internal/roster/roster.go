// Package roster 从排班办公室导出的 CSV 表格中读取住院医名单和每周班次模板
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ed-residency/resident-scheduler/internal/domain"
)

const requestDateLayout = "1/2/2006"

var residentColumns = []string{"Resident", "PGY", "Service", "Hours/Block Goal"}

const requestsColumn = "Requests"

// ReadResidents 读取住院医名单，表头至少包含 Resident、PGY、Service、Hours/Block Goal 四列，
// 可选的 Requests 列是以逗号分隔的 M/D/YYYY 日期，无法解析的日期会被跳过
func ReadResidents(r io.Reader) ([]domain.Resident, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	column := make(map[string]int, len(headers))
	for i, header := range headers {
		column[strings.TrimSpace(header)] = i
	}
	for _, name := range residentColumns {
		if _, ok := column[name]; !ok {
			return nil, fmt.Errorf("缺少 %s 列", name)
		}
	}

	get := func(row []string, name string) string {
		i, ok := column[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var residents []domain.Resident
	line := 1
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("读取第 %d 行失败: %w", line+1, err)
		}
		line++

		name := get(row, "Resident")
		if name == "" {
			continue
		}

		pgy, err := strconv.Atoi(get(row, "PGY"))
		if err != nil {
			return nil, fmt.Errorf("第 %d 行住院医 %s 的 PGY 格式错误: %w", line, name, err)
		}
		level, err := domain.ParsePGYLevel(pgy)
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}

		service, err := domain.ParseServiceType(get(row, "Service"))
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}

		goal, err := strconv.Atoi(get(row, "Hours/Block Goal"))
		if err != nil {
			return nil, fmt.Errorf("第 %d 行住院医 %s 的目标工时格式错误: %w", line, name, err)
		}

		residents = append(residents, domain.Resident{
			Name:        name,
			PGYLevel:    level,
			ServiceType: service,
			HoursGoal:   goal,
			RequestsOff: parseRequests(name, get(row, requestsColumn)),
		})
	}

	return residents, nil
}

func parseRequests(resident, raw string) []domain.Date {
	requests := []domain.Date{}
	if raw == "" {
		return requests
	}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		t, err := time.Parse(requestDateLayout, part)
		if err != nil {
			slog.Warn("无法解析休息申请日期", "resident", resident, "date", part, "error", err)
			continue
		}
		requests = append(requests, domain.DateOf(t))
	}

	return requests
}

// ReadShiftTemplates 读取每周班次表。表头必须恰好是 MONDAY 到 SUNDAY 七列（顺序不限），
// 每个非空单元格是一个旧版班次代码，括号表示可选班次，没有星期后缀时使用所在列的星期。
// 无法解析的单元格会被记录并跳过。
func ReadShiftTemplates(r io.Reader) ([]domain.ShiftTemplate, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	days := make([]domain.DayOfWeek, len(headers))
	seen := make(map[domain.DayOfWeek]bool, len(headers))
	for i, header := range headers {
		d, err := domain.ParseDayName(header)
		if err != nil || strings.TrimSpace(header) != d.FullName() {
			return nil, fmt.Errorf("表头 %q 不是大写的星期名称", header)
		}
		if seen[d] {
			return nil, fmt.Errorf("表头中的 %s 重复", header)
		}
		seen[d] = true
		days[i] = d
	}
	if len(seen) != len(domain.DaysOfWeek) {
		return nil, fmt.Errorf("表头应当包含 7 天，实际只有 %d 天", len(seen))
	}

	// 按列读取，保证同一天的班次连续出现
	var rows [][]string
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("读取班次表失败: %w", err)
		}
		rows = append(rows, row)
	}

	var templates []domain.ShiftTemplate
	for col, day := range days {
		for _, row := range rows {
			if col >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				continue
			}

			code, err := domain.ConvertLegacyCode(withDaySuffix(cell, day))
			if err != nil {
				slog.Warn("无法解析班次代码", "cell", cell, "day", day.FullName(), "error", err)
				continue
			}

			t, err := domain.ParseShiftTemplate(code)
			if err != nil {
				slog.Warn("无法解析班次代码", "cell", cell, "code", code, "error", err)
				continue
			}
			templates = append(templates, *t)
		}
	}

	return templates, nil
}

// withDaySuffix 在没有星期后缀的旧版代码后面补上所在列的星期
func withDaySuffix(cell string, day domain.DayOfWeek) string {
	optional := strings.HasPrefix(cell, "(") && strings.HasSuffix(cell, ")")
	inner := cell
	if optional {
		inner = cell[1 : len(cell)-1]
	}
	if inner == "" {
		return cell
	}

	if !domain.IsDayLetter(strings.ToUpper(inner[len(inner)-1:])) {
		inner += strings.ToLower(string(day))
	}

	if optional {
		return "(" + inner + ")"
	}
	return inner
}
