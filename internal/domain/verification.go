package domain

import "time"

// VerificationLevel is the ordinal trust tier derived from identity-proofing
// signals. Ordering matters: Device < Phone < Orb.
type VerificationLevel int

const (
	LevelDevice VerificationLevel = iota
	LevelPhone
	LevelOrb
)

// String returns the string representation of VerificationLevel.
func (l VerificationLevel) String() string {
	switch l {
	case LevelDevice:
		return "device"
	case LevelPhone:
		return "phone"
	case LevelOrb:
		return "orb"
	default:
		return "unknown"
	}
}

// IsValid checks if the level is a valid value.
func (l VerificationLevel) IsValid() bool {
	return l >= LevelDevice && l <= LevelOrb
}

// ParseVerificationLevel parses a level name. Returns false for unknown names.
func ParseVerificationLevel(s string) (VerificationLevel, bool) {
	switch s {
	case "device":
		return LevelDevice, true
	case "phone":
		return LevelPhone, true
	case "orb":
		return LevelOrb, true
	default:
		return LevelDevice, false
	}
}

// VerificationSignals are the raw identity signals from the identity-provider
// collaborator. Opaque to everything except the classifier.
type VerificationSignals struct {
	OrbVerified       bool   `json:"orb_verified"`
	PhoneVerified     bool   `json:"phone_verified"`
	DeviceFingerprint string `json:"device_fingerprint"`
}

// HumanVerification is the classifier output for a user.
type HumanVerification struct {
	UserID     string            `json:"user_id"`
	Level      VerificationLevel `json:"level"`
	LevelName  string            `json:"level_name"`
	Confidence int               `json:"confidence"` // 0-100
	VerifiedAt time.Time         `json:"verified_at"`
}
