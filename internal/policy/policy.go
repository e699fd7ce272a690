// Package policy holds the pure delivery-policy decisions: effective
// access windows, tries accounting and official-submission selection.
// Everything here is side-effect free so services can call it inside or
// outside a transaction.
package policy

import (
	"time"

	"quizcraft_backend/internal/model"
)

// EffectiveDates resolves the delivery window for one user, applying any
// special-access override field by field.
func EffectiveDates(a *model.Assessment, sa *model.SpecialAccess) (open, due, acceptUntil *time.Time) {
	open, due, acceptUntil = a.OpenDate, a.DueDate, a.AcceptUntilDate
	if sa == nil {
		return
	}
	if sa.OpenDate != nil {
		open = sa.OpenDate
	}
	if sa.DueDate != nil {
		due = sa.DueDate
	}
	if sa.AcceptUntilDate != nil {
		acceptUntil = sa.AcceptUntilDate
	}
	return
}

// EffectiveTries resolves the tries limit for one user; nil = unlimited.
func EffectiveTries(a *model.Assessment, sa *model.SpecialAccess) *int {
	if sa != nil && sa.Tries != nil {
		return sa.Tries
	}
	return a.Tries
}

// EffectiveTimeLimit resolves the time limit in seconds; nil = unlimited.
func EffectiveTimeLimit(a *model.Assessment, sa *model.SpecialAccess) *int {
	if sa != nil && sa.TimeLimitSeconds != nil {
		return sa.TimeLimitSeconds
	}
	return a.TimeLimitSeconds
}

// WindowOpen reports whether the assessment accepts new work at now.
// The accept-until date extends the due date for late submissions; when
// absent, the due date closes the window.
func WindowOpen(a *model.Assessment, sa *model.SpecialAccess, now time.Time) bool {
	open, due, acceptUntil := EffectiveDates(a, sa)
	if open != nil && now.Before(*open) {
		return false
	}
	closeAt := due
	if acceptUntil != nil {
		closeAt = acceptUntil
	}
	if closeAt != nil && now.After(*closeAt) {
		return false
	}
	return true
}

// CountRemainingTries returns the tries left for the user, or nil for
// unlimited. completed counts finished, non-phantom submissions.
func CountRemainingTries(a *model.Assessment, sa *model.SpecialAccess, completed int64) *int {
	limit := EffectiveTries(a, sa)
	if limit == nil || *limit <= 0 {
		return nil
	}
	remaining := *limit - int(completed)
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// AllowEnter reports whether the user may open a new submission now.
func AllowEnter(a *model.Assessment, sa *model.SpecialAccess, completed int64, now time.Time) bool {
	if !a.Published || a.Archived || a.Frozen {
		return false
	}
	if !WindowOpen(a, sa, now) {
		return false
	}
	if remaining := CountRemainingTries(a, sa, completed); remaining != nil && *remaining == 0 {
		return false
	}
	return true
}

// Deadline returns the instant the submission must be finished by: the
// sooner of started-at plus the time limit and the close of the window.
// Nil means the submission may run forever.
func Deadline(sub *model.Submission, a *model.Assessment, sa *model.SpecialAccess) *time.Time {
	var deadline *time.Time
	if limit := EffectiveTimeLimit(a, sa); limit != nil && *limit > 0 {
		d := sub.StartedAt.Add(time.Duration(*limit) * time.Second)
		deadline = &d
	}
	_, due, acceptUntil := EffectiveDates(a, sa)
	closeAt := due
	if acceptUntil != nil {
		closeAt = acceptUntil
	}
	if closeAt != nil && (deadline == nil || closeAt.Before(*deadline)) {
		deadline = closeAt
	}
	return deadline
}

// ClampElapsed limits the recorded elapsed time to the effective time
// limit when one exists.
func ClampElapsed(elapsed time.Duration, a *model.Assessment, sa *model.SpecialAccess) int {
	seconds := int(elapsed.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	if limit := EffectiveTimeLimit(a, sa); limit != nil && *limit > 0 && seconds > *limit {
		seconds = *limit
	}
	return seconds
}

// SelectOfficial picks the submission that counts for grading among a
// user's completed tries. In-progress and phantom submissions never
// qualify. Under use_highest_graded, equal scores break toward the
// earliest submitted date.
func SelectOfficial(subs []model.Submission, selection model.SelectionPolicy) *model.Submission {
	var official *model.Submission
	for i := range subs {
		s := &subs[i]
		if !s.IsComplete || s.IsPhantom || s.SubmittedAt == nil {
			continue
		}
		if official == nil {
			official = s
			continue
		}
		switch selection {
		case model.UseLatest:
			if s.SubmittedAt.After(*official.SubmittedAt) {
				official = s
			}
		default: // use_highest_graded
			a, b := gradedOrZero(s), gradedOrZero(official)
			if a > b || (a == b && s.SubmittedAt.Before(*official.SubmittedAt)) {
				official = s
			}
		}
	}
	return official
}

func gradedOrZero(s *model.Submission) float64 {
	if v := s.GradedScore(); v != nil {
		return *v
	}
	return 0
}
