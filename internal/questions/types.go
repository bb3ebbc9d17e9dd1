// Package questions turns stored question and solution payloads into typed
// values. A question's Type decides the shape of both its own content and its
// solution's content; every consumer switches on Type before reading either.
package questions

import (
	"fmt"
	"strings"
)

// Type is the question type discriminant.
type Type string

const (
	TypeMCQ        Type = "MCQ"
	TypeStructured Type = "STRUCTURED"
	TypeEssay      Type = "ESSAY"
	TypeProof      Type = "PROOF"
	TypeDrawing    Type = "DRAWING"
)

// CurrentVersion is the payload version written by this package.
const CurrentVersion = 2

// Types lists every question type.
var Types = []Type{TypeMCQ, TypeStructured, TypeEssay, TypeProof, TypeDrawing}

// Valid reports whether t is a known question type.
func (t Type) Valid() bool {
	switch t {
	case TypeMCQ, TypeStructured, TypeEssay, TypeProof, TypeDrawing:
		return true
	default:
		return false
	}
}

// ParseType parses a question type, case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown question type %q", s)
	}
	return t, nil
}

// QuestionContent is the canonical question payload.
type QuestionContent struct {
	Version      int           `json:"version"`
	Marks        int           `json:"marks,omitempty"`
	Main         MainQuestion  `json:"mainQuestion"`
	SubQuestions []SubQuestion `json:"subQuestions,omitempty"`
}

// MainQuestion is implemented by one struct per question type.
type MainQuestion interface {
	QuestionType() Type
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type MCQQuestion struct {
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

type StructuredQuestion struct {
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

type EssayQuestion struct {
	Text      string `json:"text"`
	WordLimit int    `json:"wordLimit,omitempty"`
}

type ProofQuestion struct {
	Text    string `json:"text"`
	Given   string `json:"given,omitempty"`
	ToProve string `json:"toProve"`
}

type DrawingQuestion struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func (MCQQuestion) QuestionType() Type        { return TypeMCQ }
func (StructuredQuestion) QuestionType() Type { return TypeStructured }
func (EssayQuestion) QuestionType() Type      { return TypeEssay }
func (ProofQuestion) QuestionType() Type      { return TypeProof }
func (DrawingQuestion) QuestionType() Type    { return TypeDrawing }

// HasOption reports whether id is one of the question's options.
func (q MCQQuestion) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// SubQuestion is a lettered or numbered part of a question.
type SubQuestion struct {
	Part  string `json:"part,omitempty"`
	Text  string `json:"text"`
	Marks int    `json:"marks,omitempty"`
}

// SolutionContent is the canonical solution payload.
type SolutionContent struct {
	Main         MainSolution  `json:"mainSolution"`
	SubSolutions []SubSolution `json:"subSolutions,omitempty"`
}

// MainSolution is implemented by one struct per question type.
type MainSolution interface {
	SolutionType() Type
}

type Step struct {
	Text  string `json:"text"`
	Marks int    `json:"marks,omitempty"`
}

type RubricItem struct {
	Criterion string `json:"criterion"`
	Marks     int    `json:"marks"`
}

type ProofStep struct {
	Statement string `json:"statement"`
	Reason    string `json:"reason,omitempty"`
}

type MCQSolution struct {
	CorrectOption string `json:"correctOption"`
	Explanation   string `json:"explanation,omitempty"`
}

type StructuredSolution struct {
	Steps       []Step `json:"steps"`
	FinalAnswer string `json:"finalAnswer,omitempty"`
}

type EssaySolution struct {
	ModelAnswer string       `json:"modelAnswer"`
	Rubric      []RubricItem `json:"rubric,omitempty"`
}

type ProofSolution struct {
	Steps      []ProofStep `json:"steps"`
	Conclusion string      `json:"conclusion,omitempty"`
}

type DrawingSolution struct {
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

func (MCQSolution) SolutionType() Type        { return TypeMCQ }
func (StructuredSolution) SolutionType() Type { return TypeStructured }
func (EssaySolution) SolutionType() Type      { return TypeEssay }
func (ProofSolution) SolutionType() Type      { return TypeProof }
func (DrawingSolution) SolutionType() Type    { return TypeDrawing }

// SubSolution answers the sub-question with the same Part.
type SubSolution struct {
	Part   string `json:"part,omitempty"`
	Answer string `json:"answer,omitempty"`
	Steps  []Step `json:"steps,omitempty"`
	Marks  int    `json:"marks,omitempty"`
}
