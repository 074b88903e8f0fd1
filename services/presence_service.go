package services

import (
	"context"
	"log"
	"time"

	"tourbook-api/models"
	"tourbook-api/repositories"
)

// PresenceThreshold debounces last-active writes.
const PresenceThreshold = 60 * time.Second

type PresenceService struct {
	users     *repositories.UserRepository
	threshold time.Duration
	now       func() time.Time
}

func NewPresenceService(users *repositories.UserRepository) *PresenceService {
	return &PresenceService{users: users, threshold: PresenceThreshold, now: time.Now}
}

// Heartbeat marks user online when they were offline or last seen more than
// the threshold ago. It reports whether a write happened; failures are
// logged and swallowed.
func (s *PresenceService) Heartbeat(ctx context.Context, user *models.User) bool {
	if user == nil {
		return false
	}
	now := s.now()
	if user.Active && user.LastActiveAt != nil && now.Sub(*user.LastActiveAt) <= s.threshold {
		return false
	}

	if err := s.users.Touch(ctx, user.ID, now); err != nil {
		log.Printf("Warning: presence update failed for %s: %v", user.ID, err)
		return false
	}
	user.Active = true
	user.LastActiveAt = &now
	return true
}
