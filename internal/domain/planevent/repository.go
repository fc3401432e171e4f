package planevent

import "context"

// Repository defines the interface for plan-change event and referral reward
// data access
type Repository interface {
	CreateEvent(ctx context.Context, event *PlanChangeEvent) error
	ListEvents(ctx context.Context, userID string) ([]*PlanChangeEvent, error)

	// GrantRewardIfAbsent inserts the reward unless one already exists for the
	// referred user. Returns true if the reward was newly granted.
	GrantRewardIfAbsent(ctx context.Context, reward *ReferralReward) (bool, error)
	GetReward(ctx context.Context, referredUserID string) (*ReferralReward, error)
}
