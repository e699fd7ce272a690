package util

import "errors"

// Business errors surfaced by the assessment engine. All four delivery
// errors are recoverable: controllers map them to redirect-style
// responses, never to a process failure.
var (
	// ErrAssessmentClosed: the effective access window has closed (or a
	// running submission hit its deadline).
	ErrAssessmentClosed = errors.New("assessment closed")
	// ErrAssessmentCompleted: the user has exhausted the allowed tries.
	ErrAssessmentCompleted = errors.New("assessment completed: no tries remaining")
	// ErrSubmissionCompleted: mutation attempted on a finalized submission.
	ErrSubmissionCompleted = errors.New("submission already completed")
	// ErrSubmissionInProgress: evaluation attempted before completion.
	ErrSubmissionInProgress = errors.New("submission still in progress")
	ErrPermissionDenied     = errors.New("permission denied")

	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrPoolNotFound       = errors.New("pool not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")

	// ErrAssessmentLocked: edit rejected because live submissions exist
	// and the field is outside the allowed-list.
	ErrAssessmentLocked    = errors.New("assessment locked by live submissions")
	ErrInvalidPart         = errors.New("invalid part detail")
	ErrUnknownQuestionType = errors.New("unknown question type")
)
