package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

const dbTimeout = 5 * time.Second

const (
	resourceColumns = `id::text, title, type, subject, grade, year, curriculum, publisher, status, created_at, updated_at`
	nodeColumns     = `id::text, resource_id::text, COALESCE(parent_id::text, ''), type, number, sort_order, COALESCE(title, ''), created_at`
	questionColumns = `id::text, content_id::text, type, sort_order, question_number, content, created_at, updated_at`
	solutionColumns = `id::text, question_id::text, content, created_at, updated_at`
)

// PostgreSQL error code for a foreign key violation.
const fkViolation = "23503"

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Store on an open pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// validID rejects ids PostgreSQL would fail to cast, so they read as missing
// rows instead of driver errors.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == fkViolation
}

func resourceWhere(f ResourceFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Grade != 0 {
		add("grade = $%d", f.Grade)
	}
	if f.Subject != "" {
		add("subject = $%d", f.Subject)
	}
	if f.Curriculum != "" {
		add("curriculum = $%d", string(f.Curriculum))
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanResource(row pgx.Row) (Resource, error) {
	var r Resource
	var publisher *string
	if err := row.Scan(
		&r.ID,
		&r.Title,
		&r.Type,
		&r.Subject,
		&r.Grade,
		&r.Year,
		&r.Curriculum,
		&publisher,
		&r.Status,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return Resource{}, err
	}
	if publisher != nil {
		r.Publisher = *publisher
	}
	return r, nil
}

func (s *PostgresStore) ListResources(ctx context.Context, f ResourceFilter) ([]Resource, int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	f = f.Normalize()
	where, args := resourceWhere(f)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM resources`+where, args...).Scan(&total); err != nil {
		return nil, 0, apierr.Upstream("count resources", err)
	}

	args = append(args, f.Limit, f.Offset())
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM resources%s ORDER BY title COLLATE "C", id LIMIT $%d OFFSET $%d`,
			resourceColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, apierr.Upstream("list resources", err)
	}
	defer rows.Close()

	out := []Resource{}
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, 0, apierr.Upstream("scan resource", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apierr.Upstream("iterate resources", err)
	}
	return out, total, nil
}

func (s *PostgresStore) GetResource(ctx context.Context, id string) (Resource, error) {
	if !validID(id) {
		return Resource{}, apierr.NotFound("resource not found: %s", id)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	r, err := scanResource(s.pool.QueryRow(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = $1::uuid`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Resource{}, apierr.NotFound("resource not found: %s", id)
	}
	if err != nil {
		return Resource{}, apierr.Upstream("get resource", err)
	}
	return r, nil
}

func (s *PostgresStore) CreateResource(ctx context.Context, r Resource) (Resource, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if r.Status == "" {
		r.Status = StatusDraft
	}
	out, err := scanResource(s.pool.QueryRow(ctx,
		`INSERT INTO resources (title, type, subject, grade, year, curriculum, publisher, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+resourceColumns,
		r.Title,
		string(r.Type),
		r.Subject,
		r.Grade,
		r.Year,
		string(r.Curriculum),
		nullIfEmpty(r.Publisher),
		string(r.Status),
	))
	if err != nil {
		return Resource{}, apierr.Upstream("create resource", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateResource(ctx context.Context, r Resource) (Resource, error) {
	if !validID(r.ID) {
		return Resource{}, apierr.NotFound("resource not found: %s", r.ID)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := scanResource(s.pool.QueryRow(ctx,
		`UPDATE resources
		 SET title = $2, type = $3, subject = $4, grade = $5, year = $6,
		     curriculum = $7, publisher = $8, status = $9, updated_at = NOW()
		 WHERE id = $1::uuid
		 RETURNING `+resourceColumns,
		r.ID,
		r.Title,
		string(r.Type),
		r.Subject,
		r.Grade,
		r.Year,
		string(r.Curriculum),
		nullIfEmpty(r.Publisher),
		string(r.Status),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Resource{}, apierr.NotFound("resource not found: %s", r.ID)
	}
	if err != nil {
		return Resource{}, apierr.Upstream("update resource", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteResource(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "resources", "resource", id)
}

func (s *PostgresStore) deleteByID(ctx context.Context, table, what, id string) error {
	if !validID(id) {
		return apierr.NotFound("%s not found: %s", what, id)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1::uuid`, id)
	if err != nil {
		return apierr.Upstream("delete "+what, err)
	}
	if cmd.RowsAffected() == 0 {
		return apierr.NotFound("%s not found: %s", what, id)
	}
	return nil
}

func scanNode(row pgx.Row) (Node, error) {
	var n Node
	if err := row.Scan(
		&n.ID,
		&n.ResourceID,
		&n.ParentID,
		&n.Type,
		&n.Number,
		&n.Order,
		&n.Title,
		&n.CreatedAt,
	); err != nil {
		return Node{}, err
	}
	return n, nil
}

func (s *PostgresStore) GetNode(ctx context.Context, id string) (Node, error) {
	if !validID(id) {
		return Node{}, apierr.NotFound("content not found: %s", id)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	n, err := scanNode(s.pool.QueryRow(ctx,
		`SELECT `+nodeColumns+` FROM content_nodes WHERE id = $1::uuid`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Node{}, apierr.NotFound("content not found: %s", id)
	}
	if err != nil {
		return Node{}, apierr.Upstream("get content", err)
	}
	return n, nil
}

func (s *PostgresStore) queryNodes(ctx context.Context, what, query string, args ...any) ([]Node, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apierr.Upstream("list "+what, err)
	}
	defer rows.Close()

	out := []Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, apierr.Upstream("scan "+what, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Upstream("iterate "+what, err)
	}
	return out, nil
}

func (s *PostgresStore) ListChapters(ctx context.Context, resourceID string) ([]Node, error) {
	if !validID(resourceID) {
		return []Node{}, nil
	}
	out, err := s.queryNodes(ctx, "chapters",
		`SELECT `+nodeColumns+`
		 FROM content_nodes
		 WHERE resource_id = $1::uuid AND parent_id IS NULL AND type = 'CHAPTER'
		 ORDER BY number ASC NULLS LAST, title COLLATE "C", id`,
		resourceID,
	)
	if err != nil {
		return nil, err
	}
	sortChapters(out)
	return out, nil
}

func (s *PostgresStore) ListChildren(ctx context.Context, parentID string) ([]Node, error) {
	if !validID(parentID) {
		return []Node{}, nil
	}
	out, err := s.queryNodes(ctx, "children",
		`SELECT `+nodeColumns+`
		 FROM content_nodes
		 WHERE parent_id = $1::uuid
		 ORDER BY sort_order, number ASC NULLS LAST, title COLLATE "C", id`,
		parentID,
	)
	if err != nil {
		return nil, err
	}
	sortChildren(out)
	return out, nil
}

func (s *PostgresStore) countBy(ctx context.Context, what, query string, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		counts[id] = 0
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return counts, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, valid)
	if err != nil {
		return nil, apierr.Upstream("count "+what, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, apierr.Upstream("scan "+what+" count", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Upstream("iterate "+what+" counts", err)
	}
	return counts, nil
}

func (s *PostgresStore) CountChildren(ctx context.Context, parentIDs []string) (map[string]int, error) {
	return s.countBy(ctx, "children",
		`SELECT parent_id::text, COUNT(*)
		 FROM content_nodes
		 WHERE parent_id = ANY($1::uuid[])
		 GROUP BY parent_id`,
		parentIDs,
	)
}

func (s *PostgresStore) CreateNode(ctx context.Context, n Node) (Node, error) {
	if !validID(n.ResourceID) {
		return Node{}, apierr.NotFound("resource not found: %s", n.ResourceID)
	}
	if n.ParentID != "" && !validID(n.ParentID) {
		return Node{}, apierr.NotFound("content not found: %s", n.ParentID)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := scanNode(s.pool.QueryRow(ctx,
		`INSERT INTO content_nodes (resource_id, parent_id, type, number, sort_order, title)
		 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)
		 RETURNING `+nodeColumns,
		n.ResourceID,
		nullIfEmpty(n.ParentID),
		string(n.Type),
		n.Number,
		n.Order,
		nullIfEmpty(n.Title),
	))
	if isFKViolation(err) {
		return Node{}, apierr.NotFound("resource or parent not found")
	}
	if err != nil {
		return Node{}, apierr.Upstream("create content", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateNode(ctx context.Context, n Node) (Node, error) {
	if !validID(n.ID) {
		return Node{}, apierr.NotFound("content not found: %s", n.ID)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := scanNode(s.pool.QueryRow(ctx,
		`UPDATE content_nodes
		 SET number = $2, sort_order = $3, title = $4
		 WHERE id = $1::uuid
		 RETURNING `+nodeColumns,
		n.ID,
		n.Number,
		n.Order,
		nullIfEmpty(n.Title),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Node{}, apierr.NotFound("content not found: %s", n.ID)
	}
	if err != nil {
		return Node{}, apierr.Upstream("update content", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteNode(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "content_nodes", "content", id)
}

func scanQuestion(row pgx.Row) (Question, error) {
	var q Question
	var content []byte
	if err := row.Scan(
		&q.ID,
		&q.ContentID,
		&q.Type,
		&q.Order,
		&q.QuestionNumber,
		&content,
		&q.CreatedAt,
		&q.UpdatedAt,
	); err != nil {
		return Question{}, err
	}
	q.Content = content
	return q, nil
}

func (s *PostgresStore) queryQuestions(ctx context.Context, query string, args ...any) ([]Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apierr.Upstream("list questions", err)
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, apierr.Upstream("scan question", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Upstream("iterate questions", err)
	}
	rows.Close()

	if err := s.attachSolutions(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachSolutions loads the solutions of qs, oldest first.
func (s *PostgresStore) attachSolutions(ctx context.Context, qs []Question) error {
	if len(qs) == 0 {
		return nil
	}
	ids := make([]string, len(qs))
	index := make(map[string]int, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
		index[q.ID] = i
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+solutionColumns+`
		 FROM solutions
		 WHERE question_id = ANY($1::uuid[])
		 ORDER BY created_at, id`,
		ids,
	)
	if err != nil {
		return apierr.Upstream("list solutions", err)
	}
	defer rows.Close()

	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return apierr.Upstream("scan solution", err)
		}
		if i, ok := index[sol.QuestionID]; ok {
			qs[i].Solutions = append(qs[i].Solutions, sol)
		}
	}
	if err := rows.Err(); err != nil {
		return apierr.Upstream("iterate solutions", err)
	}
	return nil
}

func scanSolution(row pgx.Row) (Solution, error) {
	var sol Solution
	var content []byte
	if err := row.Scan(&sol.ID, &sol.QuestionID, &content, &sol.CreatedAt, &sol.UpdatedAt); err != nil {
		return Solution{}, err
	}
	sol.Content = content
	return sol, nil
}

func (s *PostgresStore) ListQuestions(ctx context.Context, contentID string) ([]Question, error) {
	if !validID(contentID) {
		return []Question{}, nil
	}
	out, err := s.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE content_id = $1::uuid ORDER BY sort_order, id`,
		contentID,
	)
	if err != nil {
		return nil, err
	}
	// question_number needs natural ordering, which SQL collation cannot give.
	sortQuestions(out)
	return out, nil
}

func (s *PostgresStore) CountQuestions(ctx context.Context, contentIDs []string) (map[string]int, error) {
	return s.countBy(ctx, "questions",
		`SELECT content_id::text, COUNT(*)
		 FROM questions
		 WHERE content_id = ANY($1::uuid[])
		 GROUP BY content_id`,
		contentIDs,
	)
}

func (s *PostgresStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	if !validID(id) {
		return Question{}, apierr.NotFound("question not found: %s", id)
	}
	out, err := s.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1::uuid`, id)
	if err != nil {
		return Question{}, err
	}
	if len(out) == 0 {
		return Question{}, apierr.NotFound("question not found: %s", id)
	}
	return out[0], nil
}

func (s *PostgresStore) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	if !validID(q.ContentID) {
		return Question{}, apierr.NotFound("content not found: %s", q.ContentID)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := scanQuestion(s.pool.QueryRow(ctx,
		`INSERT INTO questions (content_id, type, sort_order, question_number, content)
		 VALUES ($1::uuid, $2, $3, $4, $5::jsonb)
		 RETURNING `+questionColumns,
		q.ContentID,
		string(q.Type),
		q.Order,
		q.QuestionNumber,
		string(q.Content),
	))
	if isFKViolation(err) {
		return Question{}, apierr.NotFound("content not found: %s", q.ContentID)
	}
	if err != nil {
		return Question{}, apierr.Upstream("create question", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	if !validID(q.ID) {
		return Question{}, apierr.NotFound("question not found: %s", q.ID)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := scanQuestion(s.pool.QueryRow(ctx,
		`UPDATE questions
		 SET sort_order = $2, question_number = $3, content = $4::jsonb, updated_at = NOW()
		 WHERE id = $1::uuid
		 RETURNING `+questionColumns,
		q.ID,
		q.Order,
		q.QuestionNumber,
		string(q.Content),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Question{}, apierr.NotFound("question not found: %s", q.ID)
	}
	if err != nil {
		return Question{}, apierr.Upstream("update question", err)
	}
	qs := []Question{out}
	if err := s.attachSolutions(ctx, qs); err != nil {
		return Question{}, err
	}
	return qs[0], nil
}

func (s *PostgresStore) DeleteQuestion(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "questions", "question", id)
}

func (s *PostgresStore) QuestionBatch(ctx context.Context, afterID string, limit int) ([]Question, error) {
	if afterID == "" {
		afterID = uuid.Nil.String()
	}
	if !validID(afterID) {
		return nil, apierr.Validation("invalid cursor %q", afterID)
	}
	if limit <= 0 {
		limit = MaxLimit
	}
	return s.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id > $1::uuid ORDER BY id LIMIT $2`,
		afterID, limit,
	)
}

func (s *PostgresStore) PutSolution(ctx context.Context, questionID string, content []byte) (Solution, error) {
	if !validID(questionID) {
		return Solution{}, apierr.NotFound("question not found: %s", questionID)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	sol, err := scanSolution(s.pool.QueryRow(ctx,
		`UPDATE solutions
		 SET content = $2::jsonb, updated_at = NOW()
		 WHERE id = (
		     SELECT id FROM solutions WHERE question_id = $1::uuid
		     ORDER BY created_at, id LIMIT 1
		 )
		 RETURNING `+solutionColumns,
		questionID,
		string(content),
	))
	if err == nil {
		return sol, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Solution{}, apierr.Upstream("update solution", err)
	}

	sol, err = scanSolution(s.pool.QueryRow(ctx,
		`INSERT INTO solutions (question_id, content)
		 VALUES ($1::uuid, $2::jsonb)
		 RETURNING `+solutionColumns,
		questionID,
		string(content),
	))
	if isFKViolation(err) {
		return Solution{}, apierr.NotFound("question not found: %s", questionID)
	}
	if err != nil {
		return Solution{}, apierr.Upstream("create solution", err)
	}
	return sol, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
