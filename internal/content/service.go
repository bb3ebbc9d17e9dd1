package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
	"github.com/p-n-ai/pai-solutions/internal/questions"
)

// Authorizer decides whether the caller in ctx is an administrator.
type Authorizer interface {
	VerifyAdmin(ctx context.Context) (bool, error)
}

// Service applies visibility and authorization rules on top of a Store.
// Every mutation checks the Authorizer before it reads or writes anything.
type Service struct {
	store       Store
	gate        Authorizer
	invalidator Invalidator
}

// NewService creates a content service. A nil invalidator disables
// invalidation signals.
func NewService(store Store, gate Authorizer, invalidator Invalidator) *Service {
	if invalidator == nil {
		invalidator = NopInvalidator{}
	}
	return &Service{store: store, gate: gate, invalidator: invalidator}
}

// Store exposes the underlying store for batch tools.
func (s *Service) Store() Store { return s.store }

func (s *Service) requireAdmin(ctx context.Context) error {
	ok, err := s.gate.VerifyAdmin(ctx)
	if err != nil {
		return fmt.Errorf("verify admin: %w", err)
	}
	if !ok {
		return apierr.Unauthorized("admin access required")
	}
	return nil
}

// isAdmin is the read-path check. Lookup failures degrade to public access.
func (s *Service) isAdmin(ctx context.Context) bool {
	ok, err := s.gate.VerifyAdmin(ctx)
	if err != nil {
		slog.Warn("admin check failed, serving public view", "error", err)
		return false
	}
	return ok
}

func (s *Service) invalidate(ctx context.Context, paths ...string) {
	if err := s.invalidator.Invalidate(ctx, paths...); err != nil {
		slog.Warn("content invalidation failed", "paths", paths, "error", err)
	}
}

// ListResources returns one page of resources. Non-admins only ever see LIVE
// resources whatever status the filter asks for.
func (s *Service) ListResources(ctx context.Context, f ResourceFilter) (Page[Resource], error) {
	if !s.isAdmin(ctx) {
		f.Status = StatusLive
	}
	f = f.Normalize()

	items, total, err := s.store.ListResources(ctx, f)
	if err != nil {
		return Page[Resource]{}, err
	}
	if items == nil {
		items = []Resource{}
	}
	return Page[Resource]{Items: items, Total: total, Pages: PageCount(total, f.Limit)}, nil
}

// GetResource returns a resource. Drafts are reported missing to non-admins.
func (s *Service) GetResource(ctx context.Context, id string) (Resource, error) {
	r, err := s.store.GetResource(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	if r.Status != StatusLive && !s.isAdmin(ctx) {
		return Resource{}, apierr.NotFound("resource not found: %s", id)
	}
	return r, nil
}

func (s *Service) CreateResource(ctx context.Context, in ResourceInput) (Resource, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return Resource{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Subject = NormalizeSubject(in.Subject)
	in.Publisher = strings.TrimSpace(in.Publisher)
	if err := validateInput(in); err != nil {
		return Resource{}, err
	}
	if in.Status == "" {
		in.Status = StatusDraft
	}

	r, err := s.store.CreateResource(ctx, Resource{
		Title:      in.Title,
		Type:       in.Type,
		Subject:    in.Subject,
		Grade:      in.Grade,
		Year:       in.Year,
		Curriculum: in.Curriculum,
		Publisher:  in.Publisher,
		Status:     in.Status,
	})
	if err != nil {
		return Resource{}, err
	}
	s.invalidate(ctx, resourcePaths(r.ID)...)
	return r, nil
}

// UpdateResource applies patch, including DRAFT/LIVE status changes.
func (s *Service) UpdateResource(ctx context.Context, id string, patch ResourcePatch) (Resource, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return Resource{}, err
	}
	if err := validateInput(patch); err != nil {
		return Resource{}, err
	}
	current, err := s.store.GetResource(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	updated := patch.apply(current)
	if updated.Title == "" || updated.Subject == "" {
		return Resource{}, apierr.Validation("title and subject cannot be blank")
	}

	r, err := s.store.UpdateResource(ctx, updated)
	if err != nil {
		return Resource{}, err
	}
	s.invalidate(ctx, resourcePaths(r.ID)...)
	return r, nil
}

func (s *Service) DeleteResource(ctx context.Context, id string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.store.DeleteResource(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, append(resourcePaths(id), chapterPaths(id)...)...)
	return nil
}

// ListChapters returns a resource's chapters, numbered ones first.
func (s *Service) ListChapters(ctx context.Context, resourceID string) ([]Node, error) {
	if _, err := s.GetResource(ctx, resourceID); err != nil {
		return nil, err
	}
	chapters, err := s.store.ListChapters(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if chapters == nil {
		chapters = []Node{}
	}
	return chapters, nil
}

func (s *Service) AddChapter(ctx context.Context, resourceID string, in NodeInput) (Node, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return Node{}, err
	}
	if in.Type != "" && in.Type != NodeChapter {
		return Node{}, apierr.Validation("a resource can only hold chapters, got %s", in.Type)
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return Node{}, err
	}
	if _, err := s.store.GetResource(ctx, resourceID); err != nil {
		return Node{}, err
	}

	n, err := s.store.CreateNode(ctx, Node{
		ResourceID: resourceID,
		Type:       NodeChapter,
		Number:     in.Number,
		Order:      in.Order,
		Title:      in.Title,
	})
	if err != nil {
		return Node{}, err
	}
	s.invalidate(ctx, chapterPaths(resourceID)...)
	return n, nil
}

func (s *Service) UpdateChapter(ctx context.Context, id string, patch NodePatch) (Node, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return Node{}, err
	}
	if err := validateInput(patch); err != nil {
		return Node{}, err
	}
	current, err := s.chapter(ctx, id)
	if err != nil {
		return Node{}, err
	}

	n, err := s.store.UpdateNode(ctx, patch.apply(current))
	if err != nil {
		return Node{}, err
	}
	s.invalidate(ctx, chapterPaths(n.ResourceID)...)
	return n, nil
}

func (s *Service) DeleteChapter(ctx context.Context, id string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	current, err := s.chapter(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteNode(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, chapterPaths(current.ResourceID)...)
	return nil
}

func (s *Service) chapter(ctx context.Context, id string) (Node, error) {
	n, err := s.store.GetNode(ctx, id)
	if err != nil {
		return Node{}, err
	}
	if n.Type != NodeChapter {
		return Node{}, apierr.NotFound("chapter not found: %s", id)
	}
	return n, nil
}

// ResolveChapterID finds the chapter that contains the node id.
func (s *Service) ResolveChapterID(ctx context.Context, id string) (string, bool, error) {
	return ResolveChapterID(ctx, s.store, id)
}

// ListChildren returns the nodes directly below contentID with their chapter
// and fresh child and question counts. Admin only.
func (s *Service) ListChildren(ctx context.Context, contentID string) ([]Child, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	parent, err := s.store.GetNode(ctx, contentID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.store.ListChildren(ctx, contentID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	childCounts, err := s.store.CountChildren(ctx, ids)
	if err != nil {
		return nil, err
	}
	questionCounts, err := s.store.CountQuestions(ctx, ids)
	if err != nil {
		return nil, err
	}

	known := newKnownNodes(s.store, append(nodes, parent)...)
	out := make([]Child, 0, len(nodes))
	for _, n := range nodes {
		c := Child{
			Node:          n,
			ChildCount:    childCounts[n.ID],
			QuestionCount: questionCounts[n.ID],
		}
		chapterID, ok, err := ResolveChapterID(ctx, known, n.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			c.ChapterID = &chapterID
		}
		out = append(out, c)
	}
	return out, nil
}

// AddChild creates a topic below a chapter or a subtopic below a topic.
func (s *Service) AddChild(ctx context.Context, parentID string, in NodeInput) (Node, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return Node{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return Node{}, err
	}
	parent, err := s.store.GetNode(ctx, parentID)
	if err != nil {
		return Node{}, err
	}
	childType := parent.Type.ChildType()
	if childType == "" {
		return Node{}, apierr.Validation("%s cannot have children", parent.Type)
	}
	if in.Type != "" && in.Type != childType {
		return Node{}, apierr.Validation("a %s can only hold %s nodes, got %s", parent.Type, childType, in.Type)
	}

	n, err := s.store.CreateNode(ctx, Node{
		ResourceID: parent.ResourceID,
		ParentID:   parent.ID,
		Type:       childType,
		Number:     in.Number,
		Order:      in.Order,
		Title:      in.Title,
	})
	if err != nil {
		return Node{}, err
	}
	s.invalidate(ctx, childPaths(parent.ID)...)
	return n, nil
}

// UpdateContent patches any node.
func (s *Service) UpdateContent(ctx context.Context, id string, patch NodePatch) (Node, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return Node{}, err
	}
	if err := validateInput(patch); err != nil {
		return Node{}, err
	}
	current, err := s.store.GetNode(ctx, id)
	if err != nil {
		return Node{}, err
	}

	n, err := s.store.UpdateNode(ctx, patch.apply(current))
	if err != nil {
		return Node{}, err
	}
	s.invalidate(ctx, nodePaths(n)...)
	return n, nil
}

// DeleteContent removes a node with everything below it.
func (s *Service) DeleteContent(ctx context.Context, id string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	current, err := s.store.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteNode(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, nodePaths(current)...)
	return nil
}

func nodePaths(n Node) []string {
	if n.ParentID == "" {
		return chapterPaths(n.ResourceID)
	}
	return childPaths(n.ParentID)
}

// visibleNode loads a node and hides it when its resource is a draft and the
// caller is not an admin.
func (s *Service) visibleNode(ctx context.Context, id string) (Node, error) {
	n, err := s.store.GetNode(ctx, id)
	if err != nil {
		return Node{}, err
	}
	if _, err := s.GetResource(ctx, n.ResourceID); err != nil {
		if apierr.KindOf(err) == apierr.KindNotFound {
			return Node{}, apierr.NotFound("content not found: %s", id)
		}
		return Node{}, err
	}
	return n, nil
}

// ListQuestions returns the normalised questions of a node in display order.
// Rows whose stored content cannot be decoded are logged and left out.
func (s *Service) ListQuestions(ctx context.Context, contentID string) ([]questions.Normalized, error) {
	if _, err := s.visibleNode(ctx, contentID); err != nil {
		return nil, err
	}
	stored, err := s.store.ListQuestions(ctx, contentID)
	if err != nil {
		return nil, err
	}

	out := make([]questions.Normalized, 0, len(stored))
	for _, q := range stored {
		raw := q.Raw()
		n, err := questions.Transform(raw, contentID)
		if err != nil && len(raw.Solutions) > 0 {
			// A bad solution must not hide its question.
			raw.Solutions = nil
			if bare, bareErr := questions.Transform(raw, contentID); bareErr == nil {
				slog.Warn("ignoring undecodable solution",
					"question_id", q.ID,
					"content_id", contentID,
					"error", err,
				)
				n, err = bare, nil
			}
		}
		if err != nil {
			slog.Warn("skipping undecodable question",
				"question_id", q.ID,
				"content_id", contentID,
				"error", err,
			)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Service) CreateQuestion(ctx context.Context, contentID string, in QuestionInput) (Question, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return Question{}, err
	}
	in.QuestionNumber = strings.TrimSpace(in.QuestionNumber)
	if err := validateInput(in); err != nil {
		return Question{}, err
	}
	t, err := questions.ParseType(in.Type)
	if err != nil {
		return Question{}, apierr.Validation("%v", err)
	}
	canonical, _, err := questions.CanonicalQuestion(t, in.Content)
	if err != nil {
		return Question{}, err
	}
	if _, err := s.store.GetNode(ctx, contentID); err != nil {
		return Question{}, err
	}

	q, err := s.store.CreateQuestion(ctx, Question{
		ContentID:      contentID,
		Type:           t,
		Order:          in.Order,
		QuestionNumber: in.QuestionNumber,
		Content:        canonical,
	})
	if err != nil {
		return Question{}, err
	}
	s.invalidate(ctx, questionPaths(contentID)...)
	return q, nil
}

// UpdateQuestion patches a question. New content must still agree with the
// question's existing solution.
func (s *Service) UpdateQuestion(ctx context.Context, id string, patch QuestionPatch) (Question, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return Question{}, err
	}
	if err := validateInput(patch); err != nil {
		return Question{}, err
	}
	current, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}

	updated := current
	if patch.Order != nil {
		updated.Order = *patch.Order
	}
	if patch.QuestionNumber != nil {
		updated.QuestionNumber = strings.TrimSpace(*patch.QuestionNumber)
	}
	if len(patch.Content) > 0 {
		canonical, content, err := questions.CanonicalQuestion(current.Type, patch.Content)
		if err != nil {
			return Question{}, err
		}
		if len(current.Solutions) > 0 {
			if _, err := questions.CanonicalSolution(content, current.Solutions[0].Content); err != nil {
				return Question{}, fmt.Errorf("existing solution no longer fits: %w", err)
			}
		}
		updated.Content = canonical
	}

	q, err := s.store.UpdateQuestion(ctx, updated)
	if err != nil {
		return Question{}, err
	}
	s.invalidate(ctx, questionPaths(q.ContentID)...)
	return q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	current, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, questionPaths(current.ContentID)...)
	return nil
}

// PutSolution validates raw against the question and stores it as the
// question's solution.
func (s *Service) PutSolution(ctx context.Context, questionID string, raw json.RawMessage) (Solution, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return Solution{}, err
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return Solution{}, err
	}
	content, err := questions.DecodeQuestion(q.Type, q.Content)
	if err != nil {
		return Solution{}, err
	}
	canonical, err := questions.CanonicalSolution(content, raw)
	if err != nil {
		return Solution{}, err
	}

	sol, err := s.store.PutSolution(ctx, questionID, canonical)
	if err != nil {
		return Solution{}, err
	}
	s.invalidate(ctx, questionPaths(q.ContentID)...)
	return sol, nil
}
