package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

// ResourceInput creates a resource.
type ResourceInput struct {
	Title      string       `json:"title" validate:"required,max=300"`
	Type       ResourceType `json:"type" validate:"required,oneof=TEXTBOOK PAST_PAPER STUDY_GUIDE"`
	Subject    string       `json:"subject" validate:"required,max=100"`
	Grade      int          `json:"grade" validate:"required,min=8,max=12"`
	Year       int          `json:"year" validate:"required,min=1900,max=2100"`
	Curriculum Curriculum   `json:"curriculum" validate:"required,oneof=CAPS IEB"`
	Publisher  string       `json:"publisher" validate:"max=200"`
	Status     Status       `json:"status" validate:"omitempty,oneof=DRAFT LIVE"`
}

// ResourcePatch changes the non-nil fields of a resource.
type ResourcePatch struct {
	Title      *string       `json:"title" validate:"omitempty,min=1,max=300"`
	Type       *ResourceType `json:"type" validate:"omitempty,oneof=TEXTBOOK PAST_PAPER STUDY_GUIDE"`
	Subject    *string       `json:"subject" validate:"omitempty,min=1,max=100"`
	Grade      *int          `json:"grade" validate:"omitempty,min=8,max=12"`
	Year       *int          `json:"year" validate:"omitempty,min=1900,max=2100"`
	Curriculum *Curriculum   `json:"curriculum" validate:"omitempty,oneof=CAPS IEB"`
	Publisher  *string       `json:"publisher" validate:"omitempty,max=200"`
	Status     *Status       `json:"status" validate:"omitempty,oneof=DRAFT LIVE"`
}

func (p ResourcePatch) apply(r Resource) Resource {
	if p.Title != nil {
		r.Title = strings.TrimSpace(*p.Title)
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Subject != nil {
		r.Subject = NormalizeSubject(*p.Subject)
	}
	if p.Grade != nil {
		r.Grade = *p.Grade
	}
	if p.Year != nil {
		r.Year = *p.Year
	}
	if p.Curriculum != nil {
		r.Curriculum = *p.Curriculum
	}
	if p.Publisher != nil {
		r.Publisher = strings.TrimSpace(*p.Publisher)
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	return r
}

// NodeInput creates a chapter, topic or subtopic. Type may be left empty; it
// is implied by where the node is created.
type NodeInput struct {
	Type   NodeType `json:"type" validate:"omitempty,oneof=CHAPTER TOPIC SUBTOPIC"`
	Number *int     `json:"number" validate:"omitempty,min=0"`
	Order  int      `json:"order" validate:"min=0"`
	Title  string   `json:"title" validate:"max=300"`
}

// NodePatch changes the non-nil fields of a node. ClearNumber removes the
// number.
type NodePatch struct {
	Number      *int    `json:"number" validate:"omitempty,min=0"`
	ClearNumber bool    `json:"clearNumber"`
	Order       *int    `json:"order" validate:"omitempty,min=0"`
	Title       *string `json:"title" validate:"omitempty,max=300"`
}

func (p NodePatch) apply(n Node) Node {
	if p.ClearNumber {
		n.Number = nil
	} else if p.Number != nil {
		v := *p.Number
		n.Number = &v
	}
	if p.Order != nil {
		n.Order = *p.Order
	}
	if p.Title != nil {
		n.Title = strings.TrimSpace(*p.Title)
	}
	return n
}

// QuestionInput creates a question. Content is the canonical payload for Type.
type QuestionInput struct {
	Type           string          `json:"type" validate:"required"`
	Order          int             `json:"order" validate:"min=0"`
	QuestionNumber string          `json:"questionNumber" validate:"max=32"`
	Content        json.RawMessage `json:"content" validate:"required"`
}

// QuestionPatch changes a question. The type is fixed once created.
type QuestionPatch struct {
	Order          *int            `json:"order" validate:"omitempty,min=0"`
	QuestionNumber *string         `json:"questionNumber" validate:"omitempty,max=32"`
	Content        json.RawMessage `json:"content"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput runs struct tag validation and converts failures into a
// single validation error.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apierr.Validation("invalid input: %v", err)
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return apierr.Validation("invalid input: %s", strings.Join(msgs, "; "))
}
