package domain

import (
	"fmt"
	"time"
)

type Stage string

const (
	StageBrainstorming Stage = "brainstorming"
	StageDevelopment   Stage = "development"
	StageLaunch        Stage = "launch"
)

const (
	DefaultStage      = StageBrainstorming
	DefaultStageColor = "blue"
	DefaultTeamSize   = 1
)

func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageBrainstorming, StageDevelopment, StageLaunch:
		return st, nil
	default:
		return "", fmt.Errorf("unknown stage %q", s)
	}
}

type Project struct {
	ID          string
	Title       string
	Description string
	CreatorID   string
	Image       string
	StageColor  string
	Category    string
	Roles       []string // open positions, free text
	Website     string
	TeamSize    int
	TeamMembers []string // user ids
	Stage       Stage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
