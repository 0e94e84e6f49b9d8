package main

import (
	"testing"

	"github.com/freeeve/retro-tactics/api/internal/bot"
	"github.com/freeeve/retro-tactics/api/internal/model"
)

func TestParseMatchup(t *testing.T) {
	ally, enemy, err := parseMatchup("greedy-vs-random")
	if err != nil || ally != "greedy" || enemy != "random" {
		t.Errorf("got %q, %q, %v", ally, enemy, err)
	}
	for _, bad := range []string{"greedy", "-vs-random", "greedy-vs-"} {
		if _, _, err := parseMatchup(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestKnownStrategy(t *testing.T) {
	if !knownStrategy("passive") || knownStrategy("hard") {
		t.Error("strategy lookup is wrong")
	}
}

func TestSummarize(t *testing.T) {
	results := []*bot.ArenaResult{
		{Status: model.GameLost, Level: 3, Points: 200, Turns: 40},
		nil,
		{Status: model.GameRetired, Level: 1, Points: 0, Turns: 500},
	}
	s := summarize(results)
	if s.Completed != 2 {
		t.Fatalf("completed = %d", s.Completed)
	}
	if s.ByStatus[model.GameLost] != 1 || s.ByStatus[model.GameRetired] != 1 {
		t.Errorf("by status = %v", s.ByStatus)
	}
	if s.AvgLevel != 2 || s.AvgPoints != 100 || s.AvgTurns != 270 {
		t.Errorf("averages = %+v", s)
	}
	if s.BestLevel != 3 || s.BestScore != 200 {
		t.Errorf("bests = %+v", s)
	}
	if empty := summarize(nil); empty.Completed != 0 || empty.AvgLevel != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}
