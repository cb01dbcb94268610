package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
)

// GetQuestions returns the user's questions, newest first.
func (d *Driver) GetQuestions(ctx context.Context, userID int64) ([]*model.Question, error) {
	b := d.builder()
	query, args := b.Select(questionColumns...).
		From(b.Table(tableQuestions)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []*model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating questions: %w", err)
	}
	return questions, nil
}

// CreateQuestion stores a pending question.
func (d *Driver) CreateQuestion(ctx context.Context, userID int64, in model.NewQuestion) (*model.Question, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if err := d.requireUser(ctx, d.DB, userID, false); err != nil {
		return nil, err
	}

	q := &model.Question{
		UserID:    userID,
		Question:  in.Question,
		Status:    model.QuestionPending,
		CreatedAt: d.timestamp(),
	}

	id, err := d.insert(ctx, d.DB, d.builder().Insert(tableQuestions).
		Columns("user_id", "question", "status", "created_at").
		Values(userID, q.Question, string(q.Status), q.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("could not execute question creation: %w", err)
	}

	q.ID = id
	return q, nil
}

// AnswerQuestion marks an owned question answered.
func (d *Driver) AnswerQuestion(ctx context.Context, id, userID int64, answer string) (*model.Question, error) {
	owned := entsql.And(
		entsql.EQ("id", id),
		entsql.EQ("user_id", userID),
	)

	n, err := d.exec(ctx, d.DB, d.builder().Update(tableQuestions).
		Set("status", string(model.QuestionAnswered)).
		Set("answer", answer).
		Set("answered_at", d.timestamp()).
		Where(owned))
	if err != nil {
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}
	if n == 0 {
		return nil, storage.NotFoundError{Entity: storage.EntityQuestion, ID: id}
	}

	b := d.builder()
	query, args := b.Select(questionColumns...).
		From(b.Table(tableQuestions)).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("user_id", userID),
		)).
		Query()

	q, err := scanQuestion(d.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Entity: storage.EntityQuestion, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}
