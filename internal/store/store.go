// Package store persists transitions and their analysis output in Postgres.
// It implements the transition.Repository boundary; each call is a single
// statement and independently committed, which is what the pipeline's
// failure isolation expects.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/careershift/careershift/internal/transition"
)

type Store struct {
	DB *sql.DB
}

// New constructs the Store from DATABASE_URL or the POSTGRES_* variables.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// Transition operations

func (s *Store) CreateTransition(ctx context.Context, t *transition.Transition) error {
	return s.DB.QueryRowContext(ctx,
		`INSERT INTO transitions (source_role, target_role, is_complete) VALUES ($1,$2,$3) RETURNING id, created_at`,
		t.CurrentRole, t.TargetRole, t.IsComplete).Scan(&t.ID, &t.CreatedAt)
}

func (s *Store) GetTransition(ctx context.Context, id int64) (transition.Transition, error) {
	var t transition.Transition
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, source_role, target_role, is_complete, created_at FROM transitions WHERE id=$1`,
		id).Scan(&t.ID, &t.CurrentRole, &t.TargetRole, &t.IsComplete, &t.CreatedAt)
	if err != nil {
		return transition.Transition{}, err
	}
	return t, nil
}

func (s *Store) UpdateTransitionStatus(ctx context.Context, id int64, complete bool) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE transitions SET is_complete=$2 WHERE id=$1`, id, complete)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClearTransitionData removes all analysis output for a transition ahead of
// a forced re-run. The transition row itself stays; milestone and resource
// rows go via ON DELETE CASCADE.
func (s *Store) ClearTransitionData(ctx context.Context, id int64) error {
	for _, q := range []string{
		`DELETE FROM stories WHERE transition_id=$1`,
		`DELETE FROM skill_gaps WHERE transition_id=$1`,
		`DELETE FROM insights WHERE transition_id=$1`,
		`DELETE FROM plans WHERE transition_id=$1`,
		`UPDATE transitions SET is_complete=FALSE WHERE id=$1`,
	} {
		if _, err := s.DB.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("clearing transition %d: %w", id, err)
		}
	}
	return nil
}

// Story operations

func (s *Store) CreateStory(ctx context.Context, st *transition.Story) error {
	return s.DB.QueryRowContext(ctx,
		`INSERT INTO stories (transition_id, source, content, url, date)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (transition_id, url) DO UPDATE SET source=EXCLUDED.source, content=EXCLUDED.content, date=EXCLUDED.date
		 RETURNING id`,
		st.TransitionID, st.Source, st.Content, st.URL, st.Date).Scan(&st.ID)
}

func (s *Store) StoriesByTransition(ctx context.Context, id int64) ([]transition.Story, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, transition_id, source, content, url, date FROM stories WHERE transition_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []transition.Story
	for rows.Next() {
		var st transition.Story
		if err := rows.Scan(&st.ID, &st.TransitionID, &st.Source, &st.Content, &st.URL, &st.Date); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Skill gap operations

func (s *Store) CreateSkillGap(ctx context.Context, g *transition.SkillGap) error {
	return s.DB.QueryRowContext(ctx,
		`INSERT INTO skill_gaps (transition_id, skill_name, gap_level, confidence_score, mention_count)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (transition_id, skill_name) DO UPDATE SET gap_level=EXCLUDED.gap_level, confidence_score=EXCLUDED.confidence_score, mention_count=EXCLUDED.mention_count
		 RETURNING id`,
		g.TransitionID, g.SkillName, string(g.GapLevel), g.ConfidenceScore, g.MentionCount).Scan(&g.ID)
}

func (s *Store) SkillGapsByTransition(ctx context.Context, id int64) ([]transition.SkillGap, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, transition_id, skill_name, gap_level, confidence_score, mention_count FROM skill_gaps WHERE transition_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []transition.SkillGap
	for rows.Next() {
		var g transition.SkillGap
		var level string
		if err := rows.Scan(&g.ID, &g.TransitionID, &g.SkillName, &level, &g.ConfidenceScore, &g.MentionCount); err != nil {
			return nil, err
		}
		g.GapLevel = transition.Level(level)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Insight operations

func (s *Store) CreateInsight(ctx context.Context, ins *transition.Insight) error {
	return s.DB.QueryRowContext(ctx,
		`INSERT INTO insights (transition_id, type, content, source, date) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		ins.TransitionID, string(ins.Type), ins.Content, ins.Source, ins.Date).Scan(&ins.ID)
}

func (s *Store) InsightsByTransition(ctx context.Context, id int64) ([]transition.Insight, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, transition_id, type, content, source, date FROM insights WHERE transition_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []transition.Insight
	for rows.Next() {
		var ins transition.Insight
		var typ string
		if err := rows.Scan(&ins.ID, &ins.TransitionID, &typ, &ins.Content, &ins.Source, &ins.Date); err != nil {
			return nil, err
		}
		ins.Type = transition.InsightType(typ)
		out = append(out, ins)
	}
	return out, rows.Err()
}

// Plan operations

func (s *Store) CreatePlan(ctx context.Context, p *transition.Plan) error {
	return s.DB.QueryRowContext(ctx,
		`INSERT INTO plans (transition_id) VALUES ($1) RETURNING id`,
		p.TransitionID).Scan(&p.ID)
}

func (s *Store) CreateMilestone(ctx context.Context, m *transition.Milestone) error {
	return s.DB.QueryRowContext(ctx,
		`INSERT INTO milestones (plan_id, title, description, priority, duration_weeks, ord, progress)
		 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		m.PlanID, m.Title, m.Description, string(m.Priority), m.DurationWeeks, m.Order, m.Progress).Scan(&m.ID)
}

func (s *Store) CreateResource(ctx context.Context, r *transition.Resource) error {
	return s.DB.QueryRowContext(ctx,
		`INSERT INTO resources (milestone_id, title, url, type) VALUES ($1,$2,$3,$4) RETURNING id`,
		r.MilestoneID, r.Title, r.URL, r.Type).Scan(&r.ID)
}

// PlanByTransition loads the most recent plan with its milestone tree.
func (s *Store) PlanByTransition(ctx context.Context, id int64) (*transition.Plan, error) {
	var p transition.Plan
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, transition_id FROM plans WHERE transition_id=$1 ORDER BY id DESC LIMIT 1`,
		id).Scan(&p.ID, &p.TransitionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, plan_id, title, description, priority, duration_weeks, ord, progress FROM milestones WHERE plan_id=$1 ORDER BY ord`, p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m transition.Milestone
		var priority string
		if err := rows.Scan(&m.ID, &m.PlanID, &m.Title, &m.Description, &priority, &m.DurationWeeks, &m.Order, &m.Progress); err != nil {
			return nil, err
		}
		m.Priority = transition.Level(priority)
		p.Milestones = append(p.Milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range p.Milestones {
		m := &p.Milestones[i]
		rrows, err := s.DB.QueryContext(ctx,
			`SELECT id, milestone_id, title, url, type FROM resources WHERE milestone_id=$1 ORDER BY id`, m.ID)
		if err != nil {
			return nil, err
		}
		for rrows.Next() {
			var r transition.Resource
			if err := rrows.Scan(&r.ID, &r.MilestoneID, &r.Title, &r.URL, &r.Type); err != nil {
				rrows.Close()
				return nil, err
			}
			m.Resources = append(m.Resources, r)
		}
		if err := rrows.Err(); err != nil {
			rrows.Close()
			return nil, err
		}
		rrows.Close()
	}
	return &p, nil
}

// Role skill operations

func (s *Store) RoleSkills(ctx context.Context, role string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT skill FROM role_skills WHERE lower(role)=lower($1) ORDER BY skill`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var skill string
		if err := rows.Scan(&skill); err != nil {
			return nil, err
		}
		out = append(out, skill)
	}
	return out, rows.Err()
}

// UpsertRoleSkill seeds or updates one entry of the role skill catalog.
func (s *Store) UpsertRoleSkill(ctx context.Context, role, skill string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO role_skills (role, skill) VALUES ($1,$2) ON CONFLICT (role, skill) DO NOTHING`,
		role, skill)
	return err
}
