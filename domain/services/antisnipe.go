package services

import "time"

// AntiSnipeService contains the pure decision logic for whether a bid
// placed close to a round's deadline should push that deadline out.
type AntiSnipeService struct{}

// NewAntiSnipeService creates a new AntiSnipeService.
func NewAntiSnipeService() *AntiSnipeService {
	return &AntiSnipeService{}
}

// ShouldExtend reports whether a bid placed at bidAt, against a round ending
// at roundEndsAt, falls inside the trigger window and should extend the
// round, provided the round has not exhausted its extension budget.
func (s *AntiSnipeService) ShouldExtend(bidAt, roundEndsAt time.Time, triggerWindow time.Duration, extensionsUsed, maxExtensions int) bool {
	if extensionsUsed >= maxExtensions {
		return false
	}
	remaining := roundEndsAt.Sub(bidAt)
	return remaining >= 0 && remaining <= triggerWindow
}

// NewEndTime computes the extended deadline given the extension duration.
func (s *AntiSnipeService) NewEndTime(roundEndsAt time.Time, extension time.Duration) time.Time {
	return roundEndsAt.Add(extension)
}
