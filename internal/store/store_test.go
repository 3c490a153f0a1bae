package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/careershift/careershift/internal/transition"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return &Store{DB: db}, mock, func() { db.Close() }
}

func TestCreateTransition(t *testing.T) {
	st, mock, done := newMock(t)
	defer done()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transitions (source_role, target_role, is_complete) VALUES ($1,$2,$3) RETURNING id, created_at`)).
		WithArgs("teacher", "data analyst", false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	tr := transition.Transition{CurrentRole: "teacher", TargetRole: "data analyst"}
	if err := st.CreateTransition(context.Background(), &tr); err != nil {
		t.Fatalf("CreateTransition: %v", err)
	}
	if tr.ID != 7 {
		t.Fatalf("expected id 7, got %d", tr.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetTransitionNotFound(t *testing.T) {
	st, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, source_role, target_role, is_complete, created_at FROM transitions WHERE id=$1`)).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	if _, err := st.GetTransition(context.Background(), 99); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUpdateTransitionStatusMissingRow(t *testing.T) {
	st, mock, done := newMock(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE transitions SET is_complete=$2 WHERE id=$1`)).
		WithArgs(int64(5), true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := st.UpdateTransitionStatus(context.Background(), 5, true); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows for missing row, got %v", err)
	}
}

func TestCreateStoryUpsert(t *testing.T) {
	st, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO stories (transition_id, source, content, url, date)`)).
		WithArgs(int64(1), "blog", "content", "https://example.com/a", "2024-01-01").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	s := transition.Story{TransitionID: 1, Source: "blog", Content: "content", URL: "https://example.com/a", Date: "2024-01-01"}
	if err := st.CreateStory(context.Background(), &s); err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	if s.ID != 3 {
		t.Fatalf("expected id 3, got %d", s.ID)
	}
}

func TestSkillGapsByTransition(t *testing.T) {
	st, mock, done := newMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "transition_id", "skill_name", "gap_level", "confidence_score", "mention_count"}).
		AddRow(int64(1), int64(4), "SQL", "High", 85.0, 3).
		AddRow(int64(2), int64(4), "Statistics", "Medium", 70.0, 1)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, transition_id, skill_name, gap_level, confidence_score, mention_count FROM skill_gaps WHERE transition_id=$1 ORDER BY id`)).
		WithArgs(int64(4)).
		WillReturnRows(rows)

	gaps, err := st.SkillGapsByTransition(context.Background(), 4)
	if err != nil {
		t.Fatalf("SkillGapsByTransition: %v", err)
	}
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %d", len(gaps))
	}
	if gaps[0].GapLevel != transition.LevelHigh {
		t.Fatalf("expected High, got %s", gaps[0].GapLevel)
	}
}

func TestClearTransitionData(t *testing.T) {
	st, mock, done := newMock(t)
	defer done()

	for _, q := range []string{
		`DELETE FROM stories WHERE transition_id=$1`,
		`DELETE FROM skill_gaps WHERE transition_id=$1`,
		`DELETE FROM insights WHERE transition_id=$1`,
		`DELETE FROM plans WHERE transition_id=$1`,
		`UPDATE transitions SET is_complete=FALSE WHERE id=$1`,
	} {
		mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs(int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	}

	if err := st.ClearTransitionData(context.Background(), 8); err != nil {
		t.Fatalf("ClearTransitionData: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPlanByTransitionAssemblesTree(t *testing.T) {
	st, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, transition_id FROM plans WHERE transition_id=$1 ORDER BY id DESC LIMIT 1`)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transition_id"}).AddRow(int64(10), int64(2)))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, plan_id, title, description, priority, duration_weeks, ord, progress FROM milestones WHERE plan_id=$1 ORDER BY ord`)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id", "title", "description", "priority", "duration_weeks", "ord", "progress"}).
			AddRow(int64(20), int64(10), "Learn SQL", "d", "High", 6, 1, 0))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, milestone_id, title, url, type FROM resources WHERE milestone_id=$1 ORDER BY id`)).
		WithArgs(int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "milestone_id", "title", "url", "type"}).
			AddRow(int64(30), int64(20), "SQL course", "https://example.com", "course"))

	plan, err := st.PlanByTransition(context.Background(), 2)
	if err != nil {
		t.Fatalf("PlanByTransition: %v", err)
	}
	if plan == nil || len(plan.Milestones) != 1 {
		t.Fatalf("unexpected plan: %#v", plan)
	}
	if len(plan.Milestones[0].Resources) != 1 {
		t.Fatalf("expected 1 resource, got %d", len(plan.Milestones[0].Resources))
	}
}

func TestPlanByTransitionNoPlan(t *testing.T) {
	st, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, transition_id FROM plans WHERE transition_id=$1 ORDER BY id DESC LIMIT 1`)).
		WithArgs(int64(2)).
		WillReturnError(sql.ErrNoRows)

	plan, err := st.PlanByTransition(context.Background(), 2)
	if err != nil {
		t.Fatalf("PlanByTransition: %v", err)
	}
	if plan != nil {
		t.Fatalf("expected nil plan, got %#v", plan)
	}
}
