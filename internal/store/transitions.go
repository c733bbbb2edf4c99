package store

import "backend-booking/internal/models"

const (
	ActionStart    = "start"
	ActionComplete = "complete"
	ActionCancel   = "cancel"
)

var transitionMap = map[string][]string{
	ActionStart:    {models.StatusWaiting},
	ActionComplete: {models.StatusInProgress},
	ActionCancel:   {models.StatusWaiting, models.StatusInProgress},
}

var targetStatus = map[string]string{
	ActionStart:    models.StatusInProgress,
	ActionComplete: models.StatusCompleted,
	ActionCancel:   models.StatusCancelled,
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// TargetStatus returns the status a booking lands in after action.
func TargetStatus(action string) string {
	return targetStatus[action]
}

// TransitionError is the rejection reported when action is attempted from
// fromStatus. It returns nil when the transition is legal.
func TransitionError(action, fromStatus string) error {
	if ValidTransition(action, fromStatus) {
		return nil
	}
	switch action {
	case ActionStart:
		return ErrNotInWaitingState
	case ActionComplete:
		return ErrNotInProgress
	default:
		return ErrInvalidTransition
	}
}
