package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/freeeve/retro-tactics/api/pkg/tactics"
)

// Rules are the tunable game parameters.
type Rules struct {
	BoardSize        int           `yaml:"board_size"`
	StartingTeamSize int           `yaml:"starting_team_size"`
	MoveRetryCap     int           `yaml:"move_retry_cap"`
	EnemyReplyDelay  time.Duration `yaml:"enemy_reply_delay"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	EnemyStrategy    string        `yaml:"enemy_strategy"`
}

// EnemyStrategies are the accepted values of Rules.EnemyStrategy.
var EnemyStrategies = []string{"greedy", "random", "passive"}

var ErrInvalidRules = errors.New("invalid rules")

// DefaultRules returns the rules of the standard game.
func DefaultRules() Rules {
	return Rules{
		BoardSize:        tactics.DefaultBoardSize,
		StartingTeamSize: tactics.StartingTeamSize,
		MoveRetryCap:     64,
		EnemyReplyDelay:  time.Second,
		IdleTimeout:      24 * time.Hour,
		EnemyStrategy:    "greedy",
	}
}

// LoadRules returns DefaultRules overlaid with the keys present in the YAML
// file at path. An empty path yields the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	if err := loadYAML(path, &rules); err != nil {
		return Rules{}, fmt.Errorf("load rules %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate reports the first out-of-range value.
func (r Rules) Validate() error {
	switch {
	case r.BoardSize < 4:
		return fmt.Errorf("%w: board_size %d is below 4", ErrInvalidRules, r.BoardSize)
	case r.StartingTeamSize < 2 || r.StartingTeamSize > r.BoardSize*4:
		return fmt.Errorf("%w: starting_team_size %d must be in [2, %d]", ErrInvalidRules, r.StartingTeamSize, r.BoardSize*4)
	case r.MoveRetryCap < 1:
		return fmt.Errorf("%w: move_retry_cap must be positive", ErrInvalidRules)
	case r.EnemyReplyDelay < 0:
		return fmt.Errorf("%w: enemy_reply_delay is negative", ErrInvalidRules)
	case r.IdleTimeout < time.Minute:
		return fmt.Errorf("%w: idle_timeout %s is below one minute", ErrInvalidRules, r.IdleTimeout)
	case !slices.Contains(EnemyStrategies, r.EnemyStrategy):
		return fmt.Errorf("%w: unknown enemy_strategy %q", ErrInvalidRules, r.EnemyStrategy)
	}
	return nil
}

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}
