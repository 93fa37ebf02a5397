package model

// Email lifecycle status constants.
//
//	pending ──► processing ──► sent
//	               │
//	               ├──► retrying ──► processing ...
//	               └──► failed
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusRetrying   = "retrying"
	StatusSent       = "sent"
	StatusFailed     = "failed"
)

// ClaimableStatuses are the statuses from which a delivery worker may claim an email.
var ClaimableStatuses = []string{StatusPending, StatusRetrying}

// IsClaimable reports whether an email in the given status can be claimed.
func IsClaimable(status string) bool {
	for _, s := range ClaimableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can happen from status.
func IsTerminal(status string) bool {
	return status == StatusSent || status == StatusFailed
}

// IsValidStatus reports whether status is one of the email lifecycle statuses.
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusProcessing, StatusRetrying, StatusSent, StatusFailed:
		return true
	}
	return false
}
