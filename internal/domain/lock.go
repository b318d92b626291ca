package domain

import "time"

// Lock is an active sync session: one user holding one sub-node.
type Lock struct {
	ID         string
	NodeID     string
	SubNodeID  string
	UserID     string
	UserName   string
	AcquiredAt time.Time
}

// Age returns how long the lock has been held as of now.
func (l *Lock) Age(now time.Time) time.Duration {
	if now.Before(l.AcquiredAt) {
		return 0
	}
	return now.Sub(l.AcquiredAt)
}

// HeldBy reports whether userID holds the lock.
func (l *Lock) HeldBy(userID string) bool {
	return l.UserID == userID
}
