package content

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

// Store persists the content hierarchy. Get methods return an apierr NotFound
// error for unknown ids; driver failures are apierr Upstream errors.
type Store interface {
	ListResources(ctx context.Context, f ResourceFilter) ([]Resource, int, error)
	GetResource(ctx context.Context, id string) (Resource, error)
	CreateResource(ctx context.Context, r Resource) (Resource, error)
	UpdateResource(ctx context.Context, r Resource) (Resource, error)
	DeleteResource(ctx context.Context, id string) error

	GetNode(ctx context.Context, id string) (Node, error)
	ListChapters(ctx context.Context, resourceID string) ([]Node, error)
	ListChildren(ctx context.Context, parentID string) ([]Node, error)
	CountChildren(ctx context.Context, parentIDs []string) (map[string]int, error)
	CreateNode(ctx context.Context, n Node) (Node, error)
	UpdateNode(ctx context.Context, n Node) (Node, error)
	DeleteNode(ctx context.Context, id string) error

	ListQuestions(ctx context.Context, contentID string) ([]Question, error)
	CountQuestions(ctx context.Context, contentIDs []string) (map[string]int, error)
	GetQuestion(ctx context.Context, id string) (Question, error)
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) (Question, error)
	DeleteQuestion(ctx context.Context, id string) error
	// QuestionBatch returns up to limit questions with id greater than
	// afterID, ordered by id, for batch jobs.
	QuestionBatch(ctx context.Context, afterID string, limit int) ([]Question, error)

	// PutSolution replaces the oldest solution of a question, or creates the
	// first one.
	PutSolution(ctx context.Context, questionID string, content []byte) (Solution, error)
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	resources map[string]Resource
	nodes     map[string]Node
	questions map[string]Question
	solutions map[string][]Solution
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resources: make(map[string]Resource),
		nodes:     make(map[string]Node),
		questions: make(map[string]Question),
		solutions: make(map[string][]Solution),
	}
}

func (s *MemoryStore) ListResources(_ context.Context, f ResourceFilter) ([]Resource, int, error) {
	f = f.Normalize()

	s.mu.RLock()
	matched := make([]Resource, 0, len(s.resources))
	for _, r := range s.resources {
		if matchesFilter(r, f) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sortResources(matched)
	total := len(matched)
	start := min(f.Offset(), total)
	end := min(start+f.Limit, total)
	return matched[start:end], total, nil
}

func matchesFilter(r Resource, f ResourceFilter) bool {
	switch {
	case f.Status != "" && r.Status != f.Status:
		return false
	case f.Grade != 0 && r.Grade != f.Grade:
		return false
	case f.Subject != "" && r.Subject != f.Subject:
		return false
	case f.Curriculum != "" && r.Curriculum != f.Curriculum:
		return false
	case f.Type != "" && r.Type != f.Type:
		return false
	}
	return true
}

func (s *MemoryStore) GetResource(_ context.Context, id string) (Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.resources[id]
	if !ok {
		return Resource{}, apierr.NotFound("resource not found: %s", id)
	}
	return r, nil
}

func (s *MemoryStore) CreateResource(_ context.Context, r Resource) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = StatusDraft
	}
	s.resources[r.ID] = r
	return r, nil
}

func (s *MemoryStore) UpdateResource(_ context.Context, r Resource) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.resources[r.ID]
	if !ok {
		return Resource{}, apierr.NotFound("resource not found: %s", r.ID)
	}
	r.CreatedAt = old.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	s.resources[r.ID] = r
	return r, nil
}

func (s *MemoryStore) DeleteResource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[id]; !ok {
		return apierr.NotFound("resource not found: %s", id)
	}
	for nid, n := range s.nodes {
		if n.ResourceID == id {
			s.deleteNodeLocked(nid)
		}
	}
	delete(s.resources, id)
	return nil
}

func (s *MemoryStore) GetNode(_ context.Context, id string) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return Node{}, apierr.NotFound("content not found: %s", id)
	}
	return n, nil
}

func (s *MemoryStore) ListChapters(_ context.Context, resourceID string) ([]Node, error) {
	s.mu.RLock()
	var out []Node
	for _, n := range s.nodes {
		if n.ResourceID == resourceID && n.ParentID == "" && n.Type == NodeChapter {
			out = append(out, n)
		}
	}
	s.mu.RUnlock()

	sortChapters(out)
	return out, nil
}

func (s *MemoryStore) ListChildren(_ context.Context, parentID string) ([]Node, error) {
	s.mu.RLock()
	var out []Node
	for _, n := range s.nodes {
		if n.ParentID == parentID && parentID != "" {
			out = append(out, n)
		}
	}
	s.mu.RUnlock()

	sortChildren(out)
	return out, nil
}

func (s *MemoryStore) CountChildren(_ context.Context, parentIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(parentIDs))
	for _, id := range parentIDs {
		counts[id] = 0
	}
	for _, n := range s.nodes {
		if _, ok := counts[n.ParentID]; ok && n.ParentID != "" {
			counts[n.ParentID]++
		}
	}
	return counts, nil
}

func (s *MemoryStore) CreateNode(_ context.Context, n Node) (Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[n.ResourceID]; !ok {
		return Node{}, apierr.NotFound("resource not found: %s", n.ResourceID)
	}
	if n.ParentID != "" {
		if _, ok := s.nodes[n.ParentID]; !ok {
			return Node{}, apierr.NotFound("content not found: %s", n.ParentID)
		}
	}
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	s.nodes[n.ID] = n
	return n, nil
}

func (s *MemoryStore) UpdateNode(_ context.Context, n Node) (Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.nodes[n.ID]
	if !ok {
		return Node{}, apierr.NotFound("content not found: %s", n.ID)
	}
	// Placement is fixed at creation.
	n.ResourceID = old.ResourceID
	n.ParentID = old.ParentID
	n.Type = old.Type
	n.CreatedAt = old.CreatedAt
	s.nodes[n.ID] = n
	return n, nil
}

func (s *MemoryStore) DeleteNode(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return apierr.NotFound("content not found: %s", id)
	}
	s.deleteNodeLocked(id)
	return nil
}

// deleteNodeLocked removes a node, its descendants and their questions.
func (s *MemoryStore) deleteNodeLocked(id string) {
	for cid, c := range s.nodes {
		if c.ParentID == id {
			s.deleteNodeLocked(cid)
		}
	}
	for qid, q := range s.questions {
		if q.ContentID == id {
			delete(s.questions, qid)
			delete(s.solutions, qid)
		}
	}
	delete(s.nodes, id)
}

func (s *MemoryStore) ListQuestions(_ context.Context, contentID string) ([]Question, error) {
	s.mu.RLock()
	var out []Question
	for _, q := range s.questions {
		if q.ContentID == contentID {
			out = append(out, s.withSolutionsLocked(q))
		}
	}
	s.mu.RUnlock()

	sortQuestions(out)
	return out, nil
}

func (s *MemoryStore) CountQuestions(_ context.Context, contentIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(contentIDs))
	for _, id := range contentIDs {
		counts[id] = 0
	}
	for _, q := range s.questions {
		if _, ok := counts[q.ContentID]; ok {
			counts[q.ContentID]++
		}
	}
	return counts, nil
}

func (s *MemoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return Question{}, apierr.NotFound("question not found: %s", id)
	}
	return s.withSolutionsLocked(q), nil
}

func (s *MemoryStore) withSolutionsLocked(q Question) Question {
	q.Solutions = slices.Clone(s.solutions[q.ID])
	return q
}

func (s *MemoryStore) CreateQuestion(_ context.Context, q Question) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[q.ContentID]; !ok {
		return Question{}, apierr.NotFound("content not found: %s", q.ContentID)
	}
	now := time.Now().UTC()
	q.ID = uuid.NewString()
	q.CreatedAt = now
	q.UpdatedAt = now
	q.Content = slices.Clone(q.Content)
	q.Solutions = nil
	s.questions[q.ID] = q
	return q, nil
}

func (s *MemoryStore) UpdateQuestion(_ context.Context, q Question) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.questions[q.ID]
	if !ok {
		return Question{}, apierr.NotFound("question not found: %s", q.ID)
	}
	q.ContentID = old.ContentID
	q.Type = old.Type
	q.CreatedAt = old.CreatedAt
	q.UpdatedAt = time.Now().UTC()
	q.Content = slices.Clone(q.Content)
	q.Solutions = nil
	s.questions[q.ID] = q
	return s.withSolutionsLocked(q), nil
}

func (s *MemoryStore) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[id]; !ok {
		return apierr.NotFound("question not found: %s", id)
	}
	delete(s.questions, id)
	delete(s.solutions, id)
	return nil
}

func (s *MemoryStore) QuestionBatch(_ context.Context, afterID string, limit int) ([]Question, error) {
	s.mu.RLock()
	var out []Question
	for id, q := range s.questions {
		if id > afterID {
			out = append(out, s.withSolutionsLocked(q))
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Question) int { return strings.Compare(a.ID, b.ID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) PutSolution(_ context.Context, questionID string, content []byte) (Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[questionID]; !ok {
		return Solution{}, apierr.NotFound("question not found: %s", questionID)
	}
	now := time.Now().UTC()
	existing := s.solutions[questionID]
	if len(existing) > 0 {
		existing[0].Content = slices.Clone(content)
		existing[0].UpdatedAt = now
		return existing[0], nil
	}
	sol := Solution{
		ID:         uuid.NewString(),
		QuestionID: questionID,
		Content:    slices.Clone(content),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.solutions[questionID] = []Solution{sol}
	return sol, nil
}
