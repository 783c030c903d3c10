package engine

import (
	"fmt"
	"strings"
)

// Difficulty is a named search strength
type Difficulty int

const (
	Beginner Difficulty = iota
	Easy
	Medium
	Hard
	Expert
)

var difficultyNames = [...]string{"beginner", "easy", "medium", "hard", "expert"}

func (d Difficulty) String() string {
	if d < Beginner || d > Expert {
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
	return difficultyNames[d]
}

// ParseDifficulty accepts a difficulty name in any case
func ParseDifficulty(s string) (Difficulty, error) {
	for i, name := range difficultyNames {
		if strings.EqualFold(s, name) {
			return Difficulty(i), nil
		}
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

// SearchConfig returns the default search settings with the depth and
// rollout count of d
func (d Difficulty) SearchConfig() SearchConfig {
	cfg := DefaultSearchConfig()
	switch d {
	case Beginner:
		cfg.MaxDepth, cfg.SimulationsPerMove = 2, 50
	case Easy:
		cfg.MaxDepth, cfg.SimulationsPerMove = 3, 100
	case Medium:
		cfg.MaxDepth, cfg.SimulationsPerMove = 4, 200
	case Hard:
		cfg.MaxDepth, cfg.SimulationsPerMove = 5, 300
	case Expert:
		cfg.MaxDepth, cfg.SimulationsPerMove = 6, 500
	}
	return cfg
}
