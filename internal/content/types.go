// Package content models the resource hierarchy (resource, chapter, topic,
// subtopic, question, solution) and its persistence.
package content

import (
	"encoding/json"
	"time"

	"github.com/p-n-ai/pai-solutions/internal/questions"
)

const (
	DefaultLimit = 15
	MaxLimit     = 100
)

type ResourceType string

const (
	ResourceTextbook   ResourceType = "TEXTBOOK"
	ResourcePastPaper  ResourceType = "PAST_PAPER"
	ResourceStudyGuide ResourceType = "STUDY_GUIDE"
)

type Curriculum string

const (
	CurriculumCAPS Curriculum = "CAPS"
	CurriculumIEB  Curriculum = "IEB"
)

// Status controls public visibility of a resource.
type Status string

const (
	StatusDraft Status = "DRAFT"
	StatusLive  Status = "LIVE"
)

type NodeType string

const (
	NodeChapter  NodeType = "CHAPTER"
	NodeTopic    NodeType = "TOPIC"
	NodeSubtopic NodeType = "SUBTOPIC"
)

// ChildType returns the node type allowed directly below t, or "" when t is a
// leaf.
func (t NodeType) ChildType() NodeType {
	switch t {
	case NodeChapter:
		return NodeTopic
	case NodeTopic:
		return NodeSubtopic
	default:
		return ""
	}
}

// Resource is a textbook, past paper or study guide.
type Resource struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Type       ResourceType `json:"type"`
	Subject    string       `json:"subject"`
	Grade      int          `json:"grade"`
	Year       int          `json:"year"`
	Curriculum Curriculum   `json:"curriculum"`
	Publisher  string       `json:"publisher,omitempty"`
	Status     Status       `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// Node is a chapter, topic or subtopic. Chapters have no parent.
type Node struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resourceId"`
	ParentID   string    `json:"parentId,omitempty"`
	Type       NodeType  `json:"type"`
	Number     *int      `json:"number"`
	Order      int       `json:"order"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Child is a node as shown in the admin children listing.
type Child struct {
	Node
	ChapterID     *string `json:"chapterId"`
	ChildCount    int     `json:"childCount"`
	QuestionCount int     `json:"questionCount"`
}

// Question is a stored question. Solutions are ordered oldest first.
type Question struct {
	ID             string          `json:"id"`
	ContentID      string          `json:"contentId"`
	Type           questions.Type  `json:"type"`
	Order          int             `json:"order"`
	QuestionNumber string          `json:"questionNumber"`
	Content        json.RawMessage `json:"content"`
	Solutions      []Solution      `json:"solutions,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Raw converts q for the questions transform.
func (q Question) Raw() questions.RawQuestion {
	raw := questions.RawQuestion{
		ID:             q.ID,
		Type:           q.Type,
		Order:          q.Order,
		QuestionNumber: q.QuestionNumber,
		Content:        q.Content,
	}
	for _, s := range q.Solutions {
		raw.Solutions = append(raw.Solutions, questions.RawSolution{
			ID:        s.ID,
			Content:   s.Content,
			CreatedAt: s.CreatedAt,
		})
	}
	return raw
}

type Solution struct {
	ID         string          `json:"id"`
	QuestionID string          `json:"questionId"`
	Content    json.RawMessage `json:"content"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ResourceFilter selects resources. Zero fields match everything.
type ResourceFilter struct {
	Status     Status
	Grade      int
	Subject    string
	Curriculum Curriculum
	Type       ResourceType
	Page       int
	Limit      int
}

// Normalize fills in paging defaults and clamps the limit.
func (f ResourceFilter) Normalize() ResourceFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Subject != "" {
		f.Subject = NormalizeSubject(f.Subject)
	}
	return f
}

// Offset is the number of rows skipped before the current page.
func (f ResourceFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// PageCount returns ceil(total/limit).
func PageCount(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
