// Package reputation computes reputation scores from raw activity counters.
package reputation

import (
	"time"

	"humanpad/internal/domain"
)

// Scoring constants. The level thresholds are inclusive on the lower side.
const (
	baseScore         = 100
	tradeWeight       = 10
	suspiciousPenalty = 50
	reportPenalty     = 30
	timeBonusPerDay   = 5
	timeBonusCap      = 50
	thresholdDiamond  = 800
	thresholdGold     = 600
	thresholdSilver   = 400
)

// Engine derives ReputationScore values. Pure computation; activity
// counters are owned by the persistence collaborator.
type Engine struct{}

// NewEngine creates a reputation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Score computes the reputation for the given activity counters as of now.
// A zero LastActivity makes the time arithmetic undefined; the whole score
// clamps to 0 in that case instead of propagating garbage.
func (e *Engine) Score(activity domain.ActivityCounters, now time.Time) domain.ReputationScore {
	score := 0
	if !activity.LastActivity.IsZero() {
		score = baseScore +
			tradeWeight*activity.TradesCompleted +
			timeBonus(activity.LastActivity, now) -
			(suspiciousPenalty*activity.SuspiciousActivity + reportPenalty*activity.CommunityReports)
		if score < 0 {
			score = 0
		}
	}

	return domain.ReputationScore{
		Level:              LevelForScore(score),
		Score:              score,
		XP:                 activity.XP,
		TradesCompleted:    activity.TradesCompleted,
		SuspiciousActivity: activity.SuspiciousActivity,
		CommunityReports:   activity.CommunityReports,
		LastActivity:       activity.LastActivity,
	}
}

// LevelForScore maps a score to its tier.
func LevelForScore(score int) domain.ReputationLevel {
	switch {
	case score >= thresholdDiamond:
		return domain.ReputationDiamond
	case score >= thresholdGold:
		return domain.ReputationGold
	case score >= thresholdSilver:
		return domain.ReputationSilver
	default:
		return domain.ReputationBronze
	}
}

// timeBonus rewards dormancy: 5 points per day since last activity, capped.
func timeBonus(last, now time.Time) int {
	days := int(now.Sub(last).Hours() / 24)
	if days < 0 {
		days = 0
	}
	bonus := days * timeBonusPerDay
	if bonus > timeBonusCap {
		bonus = timeBonusCap
	}
	return bonus
}
