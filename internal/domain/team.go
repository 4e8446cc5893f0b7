package domain

import "fmt"

type Team string

const (
	TeamRed    Team = "R" // 只能由 PGY-3 担任
	TeamGreen  Team = "G" // 只能由 PGY-2 担任
	TeamIntern Team = "I" // 只能由 PGY-1 担任
	TeamEval   Team = "E" // 任意年资，优先 PGY-1
	TeamBlue   Team = "B" // 至少一名 PGY-1，可以再加 PGY-2/3
	TeamPeds   Team = "P" // 优先 PGY-1，必要时使用 PGY-2/3
)

var Teams = []Team{TeamRed, TeamGreen, TeamIntern, TeamEval, TeamBlue, TeamPeds}

var teamNames = map[Team]string{
	TeamRed:    "RED",
	TeamGreen:  "GREEN",
	TeamIntern: "INTERN",
	TeamEval:   "EVAL",
	TeamBlue:   "BLUE",
	TeamPeds:   "PEDS",
}

func ParseTeam(s string) (Team, error) {
	t := Team(s)
	if _, ok := teamNames[t]; !ok {
		return "", fmt.Errorf("未知的团队代码 %q", s)
	}
	return t, nil
}

func (t Team) Name() string {
	if name, ok := teamNames[t]; ok {
		return name
	}
	return string(t)
}
