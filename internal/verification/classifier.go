// Package verification classifies raw identity signals into a
// verification level with a confidence estimate.
package verification

import (
	"errors"

	"humanpad/internal/domain"
)

// ErrInvalidSignals is returned when identity signals are missing or
// malformed. Callers must surface it, never downgrade to LevelDevice.
var ErrInvalidSignals = errors.New("verification signals missing or malformed")

// Classifier maps verification signals to a level and confidence.
type Classifier struct{}

// NewClassifier creates a new signal classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the verification level and a 0-100 confidence for the
// given signals. Orb beats Phone beats Device.
func (c *Classifier) Classify(signals *domain.VerificationSignals) (domain.VerificationLevel, int, error) {
	if signals == nil {
		return domain.LevelDevice, 0, ErrInvalidSignals
	}

	level := domain.LevelDevice
	switch {
	case signals.OrbVerified:
		level = domain.LevelOrb
	case signals.PhoneVerified:
		level = domain.LevelPhone
	}

	confidence := 50
	if signals.OrbVerified {
		confidence += 40
	}
	if signals.PhoneVerified {
		confidence += 20
	}
	if signals.DeviceFingerprint != "" {
		confidence += 10
	}
	if confidence > 100 {
		confidence = 100
	}

	return level, confidence, nil
}
