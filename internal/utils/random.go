package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/ed-residency/resident-scheduler/internal/domain"
	"github.com/mozillazg/go-pinyin"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "庆",
	"建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

// RomanizeName 把中文姓名转为 "Wang Weiming" 形式的拼音名
func RomanizeName(chineseName string) string {
	syllables := pinyin.LazyConvert(chineseName, nil)
	if len(syllables) == 0 {
		return chineseName
	}

	surname := capitalize(syllables[0])
	given := capitalize(strings.Join(syllables[1:], ""))
	if given == "" {
		return surname
	}
	return surname + " " + given
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// 除了保底的两名 ED 住院医之外，其余住院医随机分配的轮转类别
var randomServices = []domain.ServiceType{
	domain.ServiceED,
	domain.ServiceED,
	domain.ServiceED,
	domain.ServicePeds,
	domain.ServiceOffService,
	domain.ServiceVacation,
}

// GenerateRandomRoster 为每个 PGY 等级生成 perLevel 名住院医，用于演示和压测。
// 每个等级的前两名一定是 ED，保证演示用的班次模板有解。
func GenerateRandomRoster(perLevel int, start, end domain.Date) []domain.Resident {
	days := domain.DateRange(start, end)
	weeks := (len(days) + 6) / 7

	used := make(map[string]struct{})
	var roster []domain.Resident

	for _, level := range domain.PGYLevels {
		for i := 0; i < perLevel; i++ {
			name := RomanizeName(GenerateRandomChineseName())
			for {
				if _, exists := used[name]; !exists {
					break
				}
				name = RomanizeName(GenerateRandomChineseName())
			}
			used[name] = struct{}{}

			service := domain.ServiceED
			if i >= 2 {
				service = randomServices[rand.Intn(len(randomServices))]
			}

			var requests []domain.Date
			if len(days) > 0 {
				for n := rand.Intn(3); n > 0; n-- {
					requests = append(requests, days[rand.Intn(len(days))])
				}
			}

			roster = append(roster, domain.Resident{
				Name:        name,
				PGYLevel:    level,
				ServiceType: service,
				HoursGoal:   weeks * (30 + 5*rand.Intn(4)),
				RequestsOff: requests,
			})
		}
	}

	return roster
}

// GenerateDemoShiftTemplates 生成一套每天都有的演示班次：
// 第一家医院的红组早班、实习组早班和绿组夜班，以及（如果有）第二家医院的可选评估班
func GenerateDemoShiftTemplates(hospitals []domain.Hospital) ([]domain.ShiftTemplate, error) {
	if len(hospitals) == 0 {
		return nil, fmt.Errorf("至少需要一家医院")
	}

	var codes []string
	for _, d := range domain.DaysOfWeek {
		codes = append(codes,
			fmt.Sprintf("m-%s-R-07-%s", hospitals[0].Name, d),
			fmt.Sprintf("m-%s-I-07-%s", hospitals[0].Name, d),
			fmt.Sprintf("m-%s-G-19-%s", hospitals[0].Name, d),
		)
		if len(hospitals) > 1 {
			codes = append(codes, fmt.Sprintf("o-%s-E-11-%s", hospitals[1].Name, d))
		}
	}

	templates := make([]domain.ShiftTemplate, 0, len(codes))
	for _, code := range codes {
		t, err := domain.ParseShiftTemplate(code)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}

	return templates, nil
}
