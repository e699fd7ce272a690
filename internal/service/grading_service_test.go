package service

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizcraft_backend/internal/model"
	"quizcraft_backend/internal/util"
)

func floatp(f float64) *float64 { return &f }

func strp(s string) *string { return &s }

// completeAttempt runs one full attempt: enter, answer with selected,
// finish.
func (f *fixture) completeAttempt(t *testing.T, userID, assessmentID, questionID uint, selected string) *model.Submission {
	t.Helper()
	sub, err := f.subs.EnterSubmission(userID, assessmentID)
	require.NoError(t, err)
	require.NoError(t, f.subs.SubmitAnswers(userID, sub.ID, []AnswerInput{tfAnswer(questionID, selected)}, true))
	return f.reloadSubmission(t, sub.ID)
}

func TestEvaluateSubmissionAuthorization(t *testing.T) {
	f := newFixture(t)
	student := f.createUser(t, model.Student)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)
	a := f.createAssessment(t, []*model.Question{q}, nil)
	sub := f.completeAttempt(t, student.ID, a.ID, q.ID, "true")

	err := f.grading.EvaluateSubmission(student.ID, sub.ID, floatp(10), nil)
	assert.ErrorIs(t, err, util.ErrPermissionDenied, "students cannot evaluate")

	admin := f.createUser(t, model.Admin)
	assert.NoError(t, f.grading.EvaluateSubmission(admin.ID, sub.ID, floatp(10), nil))
}

func TestEvaluateSubmissionInProgress(t *testing.T) {
	f := newFixture(t)
	student := f.createUser(t, model.Student)
	teacher := f.createUser(t, model.Teacher)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)
	a := f.createAssessment(t, []*model.Question{q}, nil)
	sub, err := f.subs.EnterSubmission(student.ID, a.ID)
	require.NoError(t, err)

	err = f.grading.EvaluateSubmission(teacher.ID, sub.ID, floatp(3), nil)
	assert.ErrorIs(t, err, util.ErrSubmissionInProgress)
}

func TestEvaluationOverrideAndClear(t *testing.T) {
	f := newFixture(t)
	student := f.createUser(t, model.Student)
	teacher := f.createUser(t, model.Teacher)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)
	a := f.createAssessment(t, []*model.Question{q}, nil)
	sub := f.completeAttempt(t, student.ID, a.ID, q.ID, "false") // scores zero

	require.NoError(t, f.grading.EvaluateSubmission(teacher.ID, sub.ID, floatp(3.5), strp("partial credit")))

	got := f.reloadSubmission(t, sub.ID)
	require.NotNil(t, got.EvalScore)
	assert.Equal(t, 3.5, *got.EvalScore)
	assert.Equal(t, "partial credit", got.EvalComments)
	assert.True(t, got.IsEvaluated())
	require.NotNil(t, got.GradedScore())
	assert.Equal(t, 3.5, *got.GradedScore(), "the override supersedes the computed total")
	require.NotNil(t, got.TotalScore)
	assert.Equal(t, 0.0, *got.TotalScore, "the computed total stays intact")

	require.NoError(t, f.grading.ClearEvaluation(teacher.ID, sub.ID))
	cleared := f.reloadSubmission(t, sub.ID)
	assert.Nil(t, cleared.EvalScore)
	assert.False(t, cleared.IsEvaluated())
	require.NotNil(t, cleared.GradedScore())
	assert.Equal(t, 0.0, *cleared.GradedScore(), "the computed total governs again")
}

func TestEvaluateSubmissionsBatch(t *testing.T) {
	f := newFixture(t)
	teacher := f.createUser(t, model.Teacher)
	alice := f.createUser(t, model.Student)
	bob := f.createUser(t, model.Teacher) // any role may sit the assessment
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)
	a := f.createAssessment(t, []*model.Question{q}, nil)

	s1 := f.completeAttempt(t, alice.ID, a.ID, q.ID, "true")  // 5 points
	s2 := f.completeAttempt(t, bob.ID, a.ID, q.ID, "false")   // 0 points
	_, err := f.subs.EnterSubmission(alice.ID, a.ID)          // in progress, excluded
	require.NoError(t, err)

	results, err := f.grading.EvaluateSubmissions(teacher.ID, a.ID, "curved", floatp(1))
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.OK, "submission %d", r.SubmissionID)
	}

	g1 := f.reloadSubmission(t, s1.ID)
	require.NotNil(t, g1.EvalScore)
	assert.Equal(t, 6.0, *g1.EvalScore, "adjustment applies on top of the graded score")
	assert.Equal(t, "curved", g1.EvalComments)

	g2 := f.reloadSubmission(t, s2.ID)
	require.NotNil(t, g2.EvalScore)
	assert.Equal(t, 1.0, *g2.EvalScore)
}

func TestReleaseSubmissions(t *testing.T) {
	f := newFixture(t)
	teacher := f.createUser(t, model.Teacher)
	alice := f.createUser(t, model.Student)
	bob := f.createUser(t, model.Admin)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)
	a := f.createAssessment(t, []*model.Question{q}, nil)

	s1 := f.completeAttempt(t, alice.ID, a.ID, q.ID, "true")
	s2 := f.completeAttempt(t, bob.ID, a.ID, q.ID, "false")

	released, err := f.grading.ReleaseSubmissions(teacher.ID, a.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 0, released, "nothing is evaluated yet")

	require.NoError(t, f.grading.EvaluateSubmission(teacher.ID, s1.ID, floatp(5), nil))
	released, err = f.grading.ReleaseSubmissions(teacher.ID, a.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.True(t, f.reloadSubmission(t, s1.ID).Released)
	assert.False(t, f.reloadSubmission(t, s2.ID).Released)

	released, err = f.grading.ReleaseSubmissions(teacher.ID, a.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, released, "already released rows are skipped")
	assert.True(t, f.reloadSubmission(t, s2.ID).Released)
}

func TestReviewVisibility(t *testing.T) {
	f := newFixture(t)
	teacher := f.createUser(t, model.Teacher)
	student := f.createUser(t, model.Student)
	other := f.createUser(t, model.Student)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)

	t.Run("not released", func(t *testing.T) {
		a := f.createAssessment(t, []*model.Question{q}, nil)
		sub := f.completeAttempt(t, student.ID, a.ID, q.ID, "true")
		require.NoError(t, f.grading.EvaluateSubmission(teacher.ID, sub.ID, floatp(5), nil))
		_, err := f.grading.Review(student.ID, sub.ID)
		assert.ErrorIs(t, err, util.ErrPermissionDenied, "evaluation alone does not release")
	})

	t.Run("not the owner", func(t *testing.T) {
		a := f.createAssessment(t, []*model.Question{q}, func(a *model.Assessment) {
			a.AutoRelease = true
		})
		sub := f.completeAttempt(t, student.ID, a.ID, q.ID, "true")
		_, err := f.grading.Review(other.ID, sub.ID)
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})

	t.Run("released with scores visible", func(t *testing.T) {
		a := f.createAssessment(t, []*model.Question{q}, func(a *model.Assessment) {
			a.AutoRelease = true
			a.ShowScore = true
		})
		sub := f.completeAttempt(t, student.ID, a.ID, q.ID, "true")
		view, err := f.grading.Review(student.ID, sub.ID)
		require.NoError(t, err)
		assert.True(t, view.Visibility.CanReview)
		require.NotNil(t, view.TotalScore)
		assert.Equal(t, 5.0, *view.TotalScore)

		reviewed := f.reloadSubmission(t, sub.ID)
		assert.NotNil(t, reviewed.ReviewedAt)
	})

	t.Run("released with scores hidden", func(t *testing.T) {
		a := f.createAssessment(t, []*model.Question{q}, func(a *model.Assessment) {
			a.AutoRelease = true
			a.ShowScore = false
		})
		sub := f.completeAttempt(t, student.ID, a.ID, q.ID, "true")
		view, err := f.grading.Review(student.ID, sub.ID)
		require.NoError(t, err)
		assert.True(t, view.Visibility.CanReview)
		assert.False(t, view.Visibility.ShowScore)
		assert.Nil(t, view.TotalScore)
		assert.Nil(t, view.Submission.TotalScore)
		for _, ans := range view.Submission.Answers {
			assert.Nil(t, ans.AutoScore)
		}

		stored := f.reloadSubmission(t, sub.ID)
		assert.NotNil(t, stored.TotalScore, "storage keeps the score")
	})

	t.Run("review date in the future", func(t *testing.T) {
		a := f.createAssessment(t, []*model.Question{q}, func(a *model.Assessment) {
			a.AutoRelease = true
			a.ReviewTiming = model.ReviewByDate
			a.ReviewDate = timep(testStart.Add(720 * time.Hour))
		})
		sub := f.completeAttempt(t, student.ID, a.ID, q.ID, "true")
		_, err := f.grading.Review(student.ID, sub.ID)
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})
}

func TestOfficialSubmissionsGrouping(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, model.Student)
	bob := f.createUser(t, model.Admin)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)
	a := f.createAssessment(t, []*model.Question{q}, nil)

	f.completeAttempt(t, alice.ID, a.ID, q.ID, "false") // 0
	f.clk.Advance(time.Minute)
	best := f.completeAttempt(t, alice.ID, a.ID, q.ID, "true") // 5
	f.clk.Advance(time.Minute)
	only := f.completeAttempt(t, bob.ID, a.ID, q.ID, "true")

	official, err := f.grading.OfficialSubmissions(a.ID)
	require.NoError(t, err)
	require.Len(t, official, 2, "one row per user")

	byUser := map[uint]uint{}
	for _, sub := range official {
		byUser[sub.UserID] = sub.ID
	}
	assert.Equal(t, best.ID, byUser[alice.ID])
	assert.Equal(t, only.ID, byUser[bob.ID])
}

func TestExportOfficialCSV(t *testing.T) {
	f := newFixture(t)
	teacher := f.createUser(t, model.Teacher)
	student := f.createUser(t, model.Student)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)

	t.Run("plain export", func(t *testing.T) {
		a := f.createAssessment(t, []*model.Question{q}, nil)
		f.completeAttempt(t, student.ID, a.ID, q.ID, "true")

		var buf bytes.Buffer
		require.NoError(t, f.grading.ExportOfficialCSV(teacher.ID, a.ID, &buf))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "user_id,submission_id,submitted_at,status,score,released", lines[0])
		fields := strings.Split(lines[1], ",")
		require.Len(t, fields, 6)
		assert.Equal(t, "5.00", fields[4])
		assert.Equal(t, string(model.StatusUserFinished), fields[3])
	})

	t.Run("anonymous export masks the user", func(t *testing.T) {
		a := f.createAssessment(t, []*model.Question{q}, func(a *model.Assessment) {
			a.Anonymous = true
		})
		sub := f.completeAttempt(t, student.ID, a.ID, q.ID, "true")

		var buf bytes.Buffer
		require.NoError(t, f.grading.ExportOfficialCSV(teacher.ID, a.ID, &buf))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[1], "anon-"))
		assert.Contains(t, lines[1], strconv.FormatUint(uint64(sub.ID), 10))
	})

	t.Run("students cannot export", func(t *testing.T) {
		a := f.createAssessment(t, []*model.Question{q}, nil)
		var buf bytes.Buffer
		err := f.grading.ExportOfficialCSV(student.ID, a.ID, &buf)
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})
}
