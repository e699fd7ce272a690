package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizcraft_backend/internal/model"
	"quizcraft_backend/internal/util"
)

func newPoolFixture(t *testing.T) (*fixture, *PoolService) {
	t.Helper()
	f := newFixture(t)
	return f, NewPoolService(f.poolRepo, f.subs.Types, f.clk)
}

func TestPoolCRUD(t *testing.T) {
	f, svc := newPoolFixture(t)
	author := f.createUser(t, model.Teacher)

	p, err := svc.CreatePool(author.ID, PoolRequest{Title: "biology", Context: "course-101"})
	require.NoError(t, err)
	assert.Equal(t, author.ID, p.CreatedBy.UserID)

	updated, err := svc.UpdatePool(p.ID, PoolRequest{Title: "biology 2", Context: "course-101"})
	require.NoError(t, err)
	assert.Equal(t, "biology 2", updated.Title)

	pools, total, err := svc.ListPools("course-101", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pools, 1)

	pools, total, err = svc.ListPools("course-202", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, pools)
}

func TestCreateQuestionValidatesType(t *testing.T) {
	f, svc := newPoolFixture(t)
	author := f.createUser(t, model.Teacher)
	p, err := svc.CreatePool(author.ID, PoolRequest{Title: "history"})
	require.NoError(t, err)

	q, err := svc.CreateQuestion(QuestionRequest{
		PoolID:       p.ID,
		QuestionType: model.TrueFalse,
		Text:         "water is wet",
		AnswerKey:    json.RawMessage(`{"correct":true}`),
		Points:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, q.PoolID)

	_, err = svc.CreateQuestion(QuestionRequest{
		PoolID:       p.ID,
		QuestionType: "oral_exam",
		Text:         "discuss",
	})
	assert.ErrorIs(t, err, util.ErrUnknownQuestionType)

	_, err = svc.CreateQuestion(QuestionRequest{
		PoolID:       9999,
		QuestionType: model.TrueFalse,
		Text:         "orphan",
	})
	assert.ErrorIs(t, err, util.ErrPoolNotFound)
}

func TestQuestionLifecycle(t *testing.T) {
	f, svc := newPoolFixture(t)
	author := f.createUser(t, model.Teacher)
	p, err := svc.CreatePool(author.ID, PoolRequest{Title: "math"})
	require.NoError(t, err)
	q, err := svc.CreateQuestion(QuestionRequest{
		PoolID:       p.ID,
		QuestionType: model.TrueFalse,
		Text:         "2+2=4",
		AnswerKey:    json.RawMessage(`{"correct":true}`),
		Points:       1,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateQuestion(q.ID, QuestionRequest{
		PoolID:       p.ID,
		QuestionType: model.Essay,
		Text:         "prove that 2+2=4",
		Points:       10,
	})
	require.NoError(t, err)
	assert.Equal(t, model.Essay, updated.QuestionType)
	assert.Equal(t, 10.0, updated.Points)

	list, err := svc.ListQuestions(p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteQuestion(q.ID))
	list, err = svc.ListQuestions(p.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
