package reputation

import (
	"testing"
	"time"

	"humanpad/internal/domain"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestLevelForScore_Thresholds(t *testing.T) {
	tests := []struct {
		score int
		want  domain.ReputationLevel
	}{
		{0, domain.ReputationBronze},
		{399, domain.ReputationBronze},
		{400, domain.ReputationSilver},
		{599, domain.ReputationSilver},
		{600, domain.ReputationGold},
		{799, domain.ReputationGold},
		{800, domain.ReputationDiamond},
		{1500, domain.ReputationDiamond},
	}

	for _, tt := range tests {
		if got := LevelForScore(tt.score); got != tt.want {
			t.Errorf("LevelForScore(%d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestScore_Formula(t *testing.T) {
	e := NewEngine()

	// 100 base + 10*30 trades + 0 time bonus - (50*1 + 30*2) = 290
	activity := domain.ActivityCounters{
		TradesCompleted:    30,
		SuspiciousActivity: 1,
		CommunityReports:   2,
		LastActivity:       testNow,
	}

	got := e.Score(activity, testNow)
	if got.Score != 290 {
		t.Errorf("Score = %d, want 290", got.Score)
	}
	if got.Level != domain.ReputationBronze {
		t.Errorf("Level = %v, want bronze", got.Level)
	}
}

func TestScore_TimeBonusCapped(t *testing.T) {
	e := NewEngine()

	// 3 days dormant: +15. 30 days dormant: capped at +50.
	threeDays := e.Score(domain.ActivityCounters{LastActivity: testNow.Add(-72 * time.Hour)}, testNow)
	if threeDays.Score != 115 {
		t.Errorf("3-day score = %d, want 115", threeDays.Score)
	}

	thirtyDays := e.Score(domain.ActivityCounters{LastActivity: testNow.Add(-30 * 24 * time.Hour)}, testNow)
	if thirtyDays.Score != 150 {
		t.Errorf("30-day score = %d, want 150", thirtyDays.Score)
	}
}

func TestScore_ClampsToZero(t *testing.T) {
	e := NewEngine()

	// Heavy penalties push the raw score negative; it must clamp, not go below 0.
	activity := domain.ActivityCounters{
		SuspiciousActivity: 5,
		CommunityReports:   5,
		LastActivity:       testNow,
	}

	got := e.Score(activity, testNow)
	if got.Score != 0 {
		t.Errorf("Score = %d, want 0 (clamped)", got.Score)
	}
	if got.Level != domain.ReputationBronze {
		t.Errorf("Level = %v, want bronze", got.Level)
	}
}

func TestScore_EmptyActivity(t *testing.T) {
	e := NewEngine()

	// No counters and no last activity: the time arithmetic is undefined,
	// so the whole score clamps to 0 rather than getting the 100 base.
	got := e.Score(domain.ActivityCounters{}, testNow)

	if got.Score != 0 {
		t.Errorf("Score = %d, want 0", got.Score)
	}
	if got.Level != domain.ReputationBronze {
		t.Errorf("Level = %v, want bronze", got.Level)
	}
	if got.TradesCompleted != 0 || got.SuspiciousActivity != 0 {
		t.Errorf("Counters should pass through as zero, got %+v", got)
	}
}

func TestScore_DiamondTier(t *testing.T) {
	e := NewEngine()

	// 100 + 10*80 = 900 -> diamond
	got := e.Score(domain.ActivityCounters{TradesCompleted: 80, LastActivity: testNow}, testNow)
	if got.Level != domain.ReputationDiamond {
		t.Errorf("Level = %v, want diamond (score %d)", got.Level, got.Score)
	}
}
