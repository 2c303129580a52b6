package domain

import "time"

// ReputationLevel is the Bronze/Silver/Gold/Diamond tier derived from a
// numeric reputation score.
type ReputationLevel string

const (
	ReputationBronze  ReputationLevel = "bronze"
	ReputationSilver  ReputationLevel = "silver"
	ReputationGold    ReputationLevel = "gold"
	ReputationDiamond ReputationLevel = "diamond"
)

// String returns the string representation of ReputationLevel.
func (l ReputationLevel) String() string {
	return string(l)
}

// IsValid checks if the level is a valid value.
func (l ReputationLevel) IsValid() bool {
	switch l {
	case ReputationBronze, ReputationSilver, ReputationGold, ReputationDiamond:
		return true
	default:
		return false
	}
}

// ActivityCounters are the raw per-user activity counters owned by the
// persistence collaborator. Missing counters are zero values.
type ActivityCounters struct {
	TradesCompleted    int       `json:"trades_completed"`
	XP                 int       `json:"xp"`
	SuspiciousActivity int       `json:"suspicious_activity"`
	CommunityReports   int       `json:"community_reports"`
	LastActivity       time.Time `json:"last_activity"`
}

// ReputationScore is the computed reputation for a user.
// Invariant: Score >= 0; Level is a pure function of Score.
type ReputationScore struct {
	Level              ReputationLevel `json:"level"`
	Score              int             `json:"score"`
	XP                 int             `json:"xp"`
	TradesCompleted    int             `json:"trades_completed"`
	SuspiciousActivity int             `json:"suspicious_activity"`
	CommunityReports   int             `json:"community_reports"`
	LastActivity       time.Time       `json:"last_activity"`
}
