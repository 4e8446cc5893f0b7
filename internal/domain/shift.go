package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type DayOfWeek string

const (
	Monday    DayOfWeek = "M"
	Tuesday   DayOfWeek = "T"
	Wednesday DayOfWeek = "W"
	Thursday  DayOfWeek = "R"
	Friday    DayOfWeek = "F"
	Saturday  DayOfWeek = "S"
	Sunday    DayOfWeek = "U"
)

// 按周一到周日排列
var DaysOfWeek = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var dayOfWeekNames = map[DayOfWeek]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

func DayOfWeekFromDate(d Date) DayOfWeek {
	return DaysOfWeek[(int(d.Weekday())+6)%7]
}

func ParseDayOfWeek(letter string) (DayOfWeek, error) {
	d := DayOfWeek(letter)
	if _, ok := dayOfWeekNames[d]; !ok {
		return "", fmt.Errorf("未知的星期代码 %q", letter)
	}
	return d, nil
}

// ParseDayName 将 "Monday"、"MONDAY" 等完整名称解析为 DayOfWeek
func ParseDayName(name string) (DayOfWeek, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for d, n := range dayOfWeekNames {
		if n == upper {
			return d, nil
		}
	}
	return "", fmt.Errorf("未知的星期名称 %q", name)
}

func IsDayLetter(letter string) bool {
	_, ok := dayOfWeekNames[DayOfWeek(letter)]
	return ok
}

func (d DayOfWeek) FullName() string {
	return dayOfWeekNames[d]
}

// 两个旧版班次代码有固定时长：LIdw（14:00-19:00）和 LB11w（14:00-23:00）
const (
	LegacyInternWednesdayCode = "m-L-I-14-W"
	LegacyBlueWednesdayCode   = "m-L-B-14-W"
)

// ShiftDuration 计算某个班次对指定 PGY 等级的时长（小时）
func ShiftDuration(templateCode string, team Team, level PGYLevel) int {
	switch templateCode {
	case LegacyInternWednesdayCode:
		return 5
	case LegacyBlueWednesdayCode:
		return 9
	}

	if team == TeamPeds || team == TeamEval {
		return 10
	}

	if level == PGY1 {
		return 12
	}
	return 10
}

// ShiftTemplate 表示每周重复的班次模式
// 代码格式为 "{m|o}-{医院}-{团队}-{两位24小时制开始时间}-{星期}"，例如 m-L-R-07-M
type ShiftTemplate struct {
	Hospital    Hospital  `json:"hospital"`
	Team        Team      `json:"team"`
	StartHour   int       `json:"startHour"`
	DayOfWeek   DayOfWeek `json:"dayOfWeek"`
	Code        string    `json:"code"`
	IsMandatory bool      `json:"isMandatory"`
}

func ParseShiftTemplate(code string) (*ShiftTemplate, error) {
	components := strings.Split(code, "-")
	if len(components) != 5 {
		return nil, fmt.Errorf("班次代码 %q 被拆分为 %d 段，应为 5 段", code, len(components))
	}

	mandatory, hospital, teamCode, startTime, dayCode := components[0], components[1], components[2], components[3], components[4]

	team, err := ParseTeam(teamCode)
	if err != nil {
		return nil, err
	}

	hour, err := strconv.Atoi(startTime)
	if err != nil {
		return nil, fmt.Errorf("班次代码 %q 的开始时间格式错误", code)
	}
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("班次代码 %q 的开始时间 %d 超出范围", code, hour)
	}

	day, err := ParseDayOfWeek(dayCode)
	if err != nil {
		return nil, err
	}

	return &ShiftTemplate{
		Hospital:    Hospital{Name: hospital},
		Team:        team,
		StartHour:   hour,
		DayOfWeek:   day,
		Code:        code,
		IsMandatory: mandatory == "m",
	}, nil
}

func (t *ShiftTemplate) Duration(level PGYLevel) int {
	return ShiftDuration(t.Code, t.Team, level)
}

// CreateShift 根据模板在指定日期生成具体班次，日期的星期必须与模板一致
func (t *ShiftTemplate) CreateShift(date Date) (*Shift, error) {
	if actual := DayOfWeekFromDate(date); actual != t.DayOfWeek {
		return nil, fmt.Errorf("日期 %s 不是 %s", date, t.DayOfWeek.FullName())
	}

	return &Shift{
		Code:         fmt.Sprintf("%s-%s", t.Code, date.Time().Format("20060102")),
		TemplateCode: t.Code,
		Date:         date,
		Hospital:     t.Hospital,
		Team:         t.Team,
		StartHour:    t.StartHour,
		IsMandatory:  t.IsMandatory,
	}, nil
}

// Shift 表示某一天的具体班次
type Shift struct {
	Code         string   `json:"code"`
	TemplateCode string   `json:"templateCode"`
	Date         Date     `json:"date"`
	Hospital     Hospital `json:"hospital"`
	Team         Team     `json:"team"`
	StartHour    int      `json:"startHour"`
	IsMandatory  bool     `json:"isMandatory"`
}

func (s *Shift) Duration(level PGYLevel) int {
	return ShiftDuration(s.TemplateCode, s.Team, level)
}

func (s *Shift) StartTime() time.Time {
	return s.Date.Time().Add(time.Duration(s.StartHour) * time.Hour)
}

// GenerateShifts 在 [start, end] 范围内把模板展开为具体班次
func GenerateShifts(templates []ShiftTemplate, start, end Date) []Shift {
	var shifts []Shift

	for _, day := range DateRange(start, end) {
		dow := DayOfWeekFromDate(day)
		for i := range templates {
			if templates[i].DayOfWeek != dow {
				continue
			}
			shift, err := templates[i].CreateShift(day)
			if err != nil {
				// 上面已经按星期过滤过，理论上不会出错
				continue
			}
			shifts = append(shifts, *shift)
		}
	}

	return shifts
}

// ConvertLegacyCode 将旧版班次代码转换为新格式，例如：
//
//	(LR7m) -> o-L-R-07-M
//	LR4t   -> m-L-R-16-T
//	LIdw   -> m-L-I-14-W
//	LB11w  -> m-L-B-14-W
func ConvertLegacyCode(oldCode string) (string, error) {
	isOptional := strings.HasPrefix(oldCode, "(") && strings.HasSuffix(oldCode, ")")
	prefix := "m"
	if isOptional {
		prefix = "o"
		oldCode = oldCode[1 : len(oldCode)-1]
	}

	switch oldCode {
	case "LIdw":
		return prefix + "-L-I-14-W", nil
	case "LB11w":
		return prefix + "-L-B-14-W", nil
	}

	if len(oldCode) < 4 {
		return "", fmt.Errorf("旧版班次代码 %q 格式错误", oldCode)
	}

	hospital := oldCode[:1]
	team := oldCode[1:2]
	timeSpec := oldCode[2 : len(oldCode)-1]
	day := strings.ToUpper(oldCode[len(oldCode)-1:])

	var startTime string
	switch timeSpec {
	case "d":
		startTime = "07"
	case "n":
		startTime = "19"
	default:
		hour, err := strconv.Atoi(timeSpec)
		if err != nil {
			return "", fmt.Errorf("旧版班次代码 %q 的时间 %q 无法解析", oldCode, timeSpec)
		}
		// 只有 7、9、11 点是上午班，其余都是下午或晚上
		if hour == 7 || hour == 9 || hour == 11 {
			startTime = fmt.Sprintf("%02d", hour)
		} else {
			startTime = fmt.Sprintf("%02d", hour%12+12)
		}
	}

	return fmt.Sprintf("%s-%s-%s-%s-%s", prefix, hospital, team, startTime, day), nil
}
