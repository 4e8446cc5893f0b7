package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertLegacyCode(t *testing.T) {
	tests := []struct {
		old  string
		want string
	}{
		{"(LR7m)", "o-L-R-07-M"},
		{"LR4t", "m-L-R-16-T"},
		{"LIdw", "m-L-I-14-W"},
		{"LB11w", "m-L-B-14-W"},
		{"LR7m", "m-L-R-07-M"},
		{"LR9m", "m-L-R-09-M"},
		{"LR11m", "m-L-R-11-M"},
		{"LR1m", "m-L-R-13-M"},
		{"LR4m", "m-L-R-16-M"},
		{"LGnm", "m-L-G-19-M"},
		{"LEdu", "m-L-E-07-U"},
		{"(LRnt)", "o-L-R-19-T"},
	}

	for _, tt := range tests {
		t.Run(tt.old, func(t *testing.T) {
			got, err := ConvertLegacyCode(tt.old)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertLegacyCodeInvalid(t *testing.T) {
	for _, old := range []string{"LR", "LRxm", "()"} {
		_, err := ConvertLegacyCode(old)
		assert.Error(t, err, old)
	}
}

func TestParseShiftTemplate(t *testing.T) {
	tmpl, err := ParseShiftTemplate("o-W-B-19-S")
	require.NoError(t, err)
	assert.Equal(t, &ShiftTemplate{
		Hospital:    Hospital{Name: "W"},
		Team:        TeamBlue,
		StartHour:   19,
		DayOfWeek:   Saturday,
		Code:        "o-W-B-19-S",
		IsMandatory: false,
	}, tmpl)

	for _, code := range []string{"m-L-R-07", "m-L-Z-07-M", "m-L-R-xx-M", "m-L-R-24-M", "m-L-R-07-X"} {
		_, err := ParseShiftTemplate(code)
		assert.Error(t, err, code)
	}
}

func TestShiftDuration(t *testing.T) {
	tests := []struct {
		code  string
		level PGYLevel
		want  int
	}{
		{"m-L-R-07-M", PGY3, 10},
		{"m-L-I-07-M", PGY1, 12},
		{"m-L-B-07-M", PGY2, 10},
		{"m-L-E-11-M", PGY1, 10},
		{"m-M-P-07-M", PGY1, 10},
		{LegacyInternWednesdayCode, PGY1, 5},
		{LegacyBlueWednesdayCode, PGY1, 9},
	}

	for _, tt := range tests {
		tmpl, err := ParseShiftTemplate(tt.code)
		require.NoError(t, err)
		assert.Equal(t, tt.want, tmpl.Duration(tt.level), tt.code)
	}
}

func TestCreateShift(t *testing.T) {
	tmpl, err := ParseShiftTemplate("m-L-R-07-M")
	require.NoError(t, err)

	monday := NewDate(2024, time.July, 1)
	s, err := tmpl.CreateShift(monday)
	require.NoError(t, err)
	assert.Equal(t, "m-L-R-07-M-20240701", s.Code)
	assert.Equal(t, tmpl.Code, s.TemplateCode)
	assert.Equal(t, monday, s.Date)
	assert.Equal(t, time.Date(2024, time.July, 1, 7, 0, 0, 0, time.UTC), s.StartTime())

	_, err = tmpl.CreateShift(monday.AddDays(1))
	assert.Error(t, err)
}

func TestGenerateShifts(t *testing.T) {
	var templates []ShiftTemplate
	for _, code := range []string{"m-L-R-07-M", "m-L-I-07-W", "o-M-E-11-U"} {
		tmpl, err := ParseShiftTemplate(code)
		require.NoError(t, err)
		templates = append(templates, *tmpl)
	}

	start := NewDate(2024, time.July, 1)
	shifts := GenerateShifts(templates, start, start.AddDays(13))
	require.Len(t, shifts, 6)

	for _, s := range shifts {
		assert.Equal(t, s.TemplateCode[len(s.TemplateCode)-1:], string(DayOfWeekFromDate(s.Date)))
	}
	assert.Equal(t, start, shifts[0].Date)
	assert.Equal(t, start.AddDays(13), shifts[5].Date)
}

func TestDayOfWeek(t *testing.T) {
	d, err := ParseDayName(" sunday ")
	require.NoError(t, err)
	assert.Equal(t, Sunday, d)
	assert.Equal(t, "SUNDAY", d.FullName())

	assert.Equal(t, Thursday, DayOfWeekFromDate(NewDate(2024, time.July, 4)))
	assert.True(t, IsDayLetter("R"))
	assert.False(t, IsDayLetter("D"))

	_, err = ParseDayOfWeek("X")
	assert.Error(t, err)
}
