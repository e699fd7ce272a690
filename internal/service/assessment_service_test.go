package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizcraft_backend/internal/model"
	"quizcraft_backend/internal/util"
)

func newAuthoringFixture(t *testing.T) (*fixture, *AssessmentService) {
	t.Helper()
	f := newFixture(t)
	svc := NewAssessmentService(f.aRepo, f.subRepo, f.poolRepo, f.clk, nil, f.db)
	return f, svc
}

func uintp(v uint) *uint { return &v }

func TestCreateAssessmentWithParts(t *testing.T) {
	f, svc := newAuthoringFixture(t)
	author := f.createUser(t, model.Teacher)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)

	a, err := svc.CreateAssessment(author.ID, AssessmentRequest{
		Title:   "final",
		Context: "course-101",
		Parts: []PartRequest{{
			Title: "part one",
			Details: []PartDetailRequest{
				{QuestionID: uintp(q.ID), Points: 2},
				{PoolID: uintp(pool.ID), NumQuestions: 0, Points: 1},
			},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, author.ID, a.CreatedBy.UserID)
	assert.Equal(t, model.ReviewImmediate, a.ReviewTiming, "empty timing defaults")
	assert.Equal(t, model.UseHighestGraded, a.SelectionPolicy)

	stored, err := svc.GetAssessment(a.ID)
	require.NoError(t, err)
	require.Len(t, stored.Parts, 1)
	require.Len(t, stored.Parts[0].Details, 2)
	assert.Equal(t, 1, stored.Parts[0].Details[1].NumQuestions, "pool draw defaults to one question")
}

func TestCreateAssessmentRejectsInvalidDetail(t *testing.T) {
	f, svc := newAuthoringFixture(t)
	author := f.createUser(t, model.Teacher)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)

	_, err := svc.CreateAssessment(author.ID, AssessmentRequest{
		Title: "bad",
		Parts: []PartRequest{{
			Details: []PartDetailRequest{
				{QuestionID: uintp(q.ID), PoolID: uintp(pool.ID)}, // both sources
			},
		}},
	})
	assert.ErrorIs(t, err, util.ErrInvalidPart)

	_, err = svc.CreateAssessment(author.ID, AssessmentRequest{
		Title: "empty detail",
		Parts: []PartRequest{{Details: []PartDetailRequest{{}}}},
	})
	assert.ErrorIs(t, err, util.ErrInvalidPart)
}

func TestUpdateLockedAssessment(t *testing.T) {
	f, svc := newAuthoringFixture(t)
	author := f.createUser(t, model.Teacher)
	student := f.createUser(t, model.Student)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)
	a := f.createAssessment(t, []*model.Question{q}, nil)

	_, err := f.subs.EnterSubmission(student.ID, a.ID)
	require.NoError(t, err)

	base := AssessmentRequest{
		Title:        a.Title,
		ReviewTiming: model.ReviewManual,
		AutoRelease:  true,
		ShowScore:    true,
	}

	t.Run("grading configuration may change", func(t *testing.T) {
		updated, err := svc.UpdateAssessment(author.ID, a.ID, base)
		require.NoError(t, err)
		assert.True(t, updated.AutoRelease)
		assert.Equal(t, model.ReviewManual, updated.ReviewTiming)
	})

	t.Run("structural edits are rejected", func(t *testing.T) {
		req := base
		req.Title = "renamed"
		_, err := svc.UpdateAssessment(author.ID, a.ID, req)
		assert.ErrorIs(t, err, util.ErrAssessmentLocked)

		req = base
		req.TimeLimitSeconds = intp(300)
		_, err = svc.UpdateAssessment(author.ID, a.ID, req)
		assert.ErrorIs(t, err, util.ErrAssessmentLocked)

		req = base
		req.Parts = []PartRequest{{Details: []PartDetailRequest{{QuestionID: uintp(q.ID)}}}}
		_, err = svc.UpdateAssessment(author.ID, a.ID, req)
		assert.ErrorIs(t, err, util.ErrAssessmentLocked)

		req = base
		req.Anonymous = true
		_, err = svc.UpdateAssessment(author.ID, a.ID, req)
		assert.ErrorIs(t, err, util.ErrAssessmentLocked, "anonymity is frozen with the definition")

		req = base
		req.SelectionPolicy = model.UseLatest
		_, err = svc.UpdateAssessment(author.ID, a.ID, req)
		assert.ErrorIs(t, err, util.ErrAssessmentLocked, "the selection policy is frozen with the definition")
	})
}

func TestUpdateUnlockedReplacesParts(t *testing.T) {
	f, svc := newAuthoringFixture(t)
	author := f.createUser(t, model.Teacher)
	pool := f.createPool(t)
	q1 := f.createQuestion(t, pool.ID, 5)
	q2 := f.createQuestion(t, pool.ID, 3)

	a, err := svc.CreateAssessment(author.ID, AssessmentRequest{
		Title: "draft",
		Parts: []PartRequest{{Details: []PartDetailRequest{{QuestionID: uintp(q1.ID)}}}},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateAssessment(author.ID, a.ID, AssessmentRequest{
		Title: "draft v2",
		Parts: []PartRequest{{Details: []PartDetailRequest{
			{QuestionID: uintp(q1.ID)},
			{QuestionID: uintp(q2.ID)},
		}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "draft v2", updated.Title)
	require.Len(t, updated.Parts, 1)
	assert.Len(t, updated.Parts[0].Details, 2)
}

func TestPublishValidatesPools(t *testing.T) {
	f, svc := newAuthoringFixture(t)
	author := f.createUser(t, model.Teacher)
	pool := f.createPool(t)
	f.createQuestion(t, pool.ID, 5)

	a, err := svc.CreateAssessment(author.ID, AssessmentRequest{
		Title: "pool exam",
		Parts: []PartRequest{{Details: []PartDetailRequest{
			{PoolID: uintp(pool.ID), NumQuestions: 3},
		}}},
	})
	require.NoError(t, err)

	_, err = svc.Publish(author.ID, a.ID)
	assert.ErrorIs(t, err, util.ErrInvalidPart, "the pool cannot cover the draw")

	f.createQuestion(t, pool.ID, 5)
	f.createQuestion(t, pool.ID, 5)
	published, err := svc.Publish(author.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, published.Published)
}

func TestUnpublishBlockedWhenLocked(t *testing.T) {
	f, svc := newAuthoringFixture(t)
	author := f.createUser(t, model.Teacher)
	student := f.createUser(t, model.Student)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)
	a := f.createAssessment(t, []*model.Question{q}, nil)

	_, err := f.subs.EnterSubmission(student.ID, a.ID)
	require.NoError(t, err)

	_, err = svc.Unpublish(author.ID, a.ID)
	assert.ErrorIs(t, err, util.ErrAssessmentLocked)
}

func TestRefreshLockIgnoresPhantoms(t *testing.T) {
	f, svc := newAuthoringFixture(t)
	student := f.createUser(t, model.Student)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)
	a := f.createAssessment(t, []*model.Question{q}, nil)

	_, err := f.subs.CreatePhantom(a.ID, student.ID)
	require.NoError(t, err)
	require.NoError(t, svc.RefreshLock(a.ID))
	got, err := f.aRepo.FindByID(f.db, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Locked, "phantoms never lock")

	_, err = f.subs.EnterSubmission(student.ID, a.ID)
	require.NoError(t, err)
	require.NoError(t, svc.RefreshLock(a.ID))
	got, err = f.aRepo.FindByID(f.db, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Locked)
}

func TestGetAvailableAssessments(t *testing.T) {
	f, svc := newAuthoringFixture(t)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)

	visible := f.createAssessment(t, []*model.Question{q}, func(a *model.Assessment) {
		a.Context = "course-101"
		a.DueDate = timep(testStart.Add(time.Hour))
	})
	f.createAssessment(t, []*model.Question{q}, func(a *model.Assessment) {
		a.Context = "course-101"
		a.DueDate = timep(testStart.Add(-time.Hour)) // window closed
	})
	f.createAssessment(t, []*model.Question{q}, func(a *model.Assessment) {
		a.Context = "course-101"
		a.OpenDate = timep(testStart.Add(time.Hour)) // not yet open
	})
	f.createAssessment(t, []*model.Question{q}, func(a *model.Assessment) {
		a.Context = "course-101"
		a.Published = false
	})
	f.createAssessment(t, []*model.Question{q}, func(a *model.Assessment) {
		a.Context = "course-202" // other course
	})

	got, err := svc.GetAvailableAssessments(context.Background(), "course-101")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, visible.ID, got[0].ID)
}

func TestAvailableAssessmentTotalsPoints(t *testing.T) {
	f, svc := newAuthoringFixture(t)
	author := f.createUser(t, model.Teacher)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)
	for i := 0; i < 3; i++ {
		f.createQuestion(t, pool.ID, 1)
	}

	a, err := svc.CreateAssessment(author.ID, AssessmentRequest{
		Title: "weighted",
		Parts: []PartRequest{{Details: []PartDetailRequest{
			{QuestionID: uintp(q.ID), Points: 2},
			{PoolID: uintp(pool.ID), NumQuestions: 3, Points: 4},
		}}},
	})
	require.NoError(t, err)
	_, err = svc.Publish(author.ID, a.ID)
	require.NoError(t, err)

	got, err := svc.GetAvailableAssessments(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 14.0, got[0].TotalPoints, "pick points plus draw count times pool points")
}

func TestSpecialAccessRoundTrip(t *testing.T) {
	f, svc := newAuthoringFixture(t)
	student := f.createUser(t, model.Student)
	pool := f.createPool(t)
	q := f.createQuestion(t, pool.ID, 5)
	a := f.createAssessment(t, []*model.Question{q}, nil)

	sa, err := svc.SetSpecialAccess(a.ID, SpecialAccessRequest{
		UserID: student.ID,
		Tries:  intp(5),
	})
	require.NoError(t, err)
	assert.Equal(t, student.ID, sa.UserID)

	list, err := svc.ListSpecialAccess(a.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, *list[0].Tries)

	require.NoError(t, svc.RemoveSpecialAccess(a.ID, student.ID))
	list, err = svc.ListSpecialAccess(a.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
