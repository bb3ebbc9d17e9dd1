package questions_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
	"github.com/p-n-ai/pai-solutions/internal/questions"
)

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name    string
		typ     questions.Type
		raw     string
		wantErr bool
	}{
		{"mcq ok", questions.TypeMCQ, mcqQuestion, false},
		{"mcq one option", questions.TypeMCQ, `{"mainQuestion": {"text": "Pick", "options": [{"id": "A", "text": "x"}]}}`, true},
		{"structured ok", questions.TypeStructured, `{"mainQuestion": {"text": "Expand (x+1)^2"}}`, false},
		{"structured empty text", questions.TypeStructured, `{"mainQuestion": {"text": ""}}`, true},
		{"essay negative word limit", questions.TypeEssay, `{"mainQuestion": {"text": "Discuss", "wordLimit": -1}}`, true},
		{"proof missing toProve", questions.TypeProof, `{"mainQuestion": {"text": "Prove"}}`, true},
		{"drawing ok", questions.TypeDrawing, `{"mainQuestion": {"text": "Draw a cell", "imageUrl": "https://cdn.example.com/cell.png"}}`, false},
		{"legacy shape", questions.TypeStructured, `{"questionContent": {"mainQuestion": {"text": "x"}}}`, true},
		{"sub question without text", questions.TypeStructured, `{"mainQuestion": {"text": "x"}, "subQuestions": [{"part": "a"}]}`, true},
		{"not json", questions.TypeStructured, `{`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := questions.ValidateQuestion(tt.typ, []byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateQuestion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apierr.ErrValidation) {
				t.Errorf("ValidateQuestion() error kind = %v, want validation", apierr.KindOf(err))
			}
		})
	}
}

func TestValidateSolution(t *testing.T) {
	tests := []struct {
		name    string
		typ     questions.Type
		raw     string
		wantErr bool
	}{
		{"mcq ok", questions.TypeMCQ, `{"mainSolution": {"correctOption": "B"}}`, false},
		{"mcq missing option", questions.TypeMCQ, `{"mainSolution": {"explanation": "because"}}`, true},
		{"structured needs steps", questions.TypeStructured, `{"mainSolution": {"steps": []}}`, true},
		{"structured ok", questions.TypeStructured, `{"mainSolution": {"steps": [{"text": "x = 2", "marks": 1}], "finalAnswer": "2"}}`, false},
		{"essay rubric", questions.TypeEssay, `{"mainSolution": {"modelAnswer": "...", "rubric": [{"criterion": "argument", "marks": 4}]}}`, false},
		{"proof ok", questions.TypeProof, `{"mainSolution": {"steps": [{"statement": "a = b"}]}}`, false},
		{"drawing missing description", questions.TypeDrawing, `{"mainSolution": {}}`, true},
		{"sub solution steps need text", questions.TypeDrawing, `{"mainSolution": {"description": "d"}, "subSolutions": [{"steps": [{}]}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := questions.ValidateSolution(tt.typ, []byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSolution() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanonicalQuestion_StampsVersion(t *testing.T) {
	out, content, err := questions.CanonicalQuestion(questions.TypeStructured, []byte(`{"mainQuestion": {"text": "Expand (x+1)^2"}}`))
	if err != nil {
		t.Fatalf("CanonicalQuestion() error = %v", err)
	}
	if content.Version != questions.CurrentVersion {
		t.Errorf("Version = %d, want %d", content.Version, questions.CurrentVersion)
	}
	if _, err := questions.DecodeQuestion(questions.TypeStructured, out); err != nil {
		t.Errorf("canonical output does not decode: %v", err)
	}
}

func TestCanonicalSolution_ChecksOptions(t *testing.T) {
	_, q, err := questions.CanonicalQuestion(questions.TypeMCQ, []byte(mcqQuestion))
	if err != nil {
		t.Fatalf("CanonicalQuestion() error = %v", err)
	}

	if _, err := questions.CanonicalSolution(q, []byte(`{"mainSolution": {"correctOption": "B"}}`)); err != nil {
		t.Errorf("CanonicalSolution(B) error = %v", err)
	}
	if _, err := questions.CanonicalSolution(q, []byte(`{"mainSolution": {"correctOption": "C"}}`)); err == nil {
		t.Error("CanonicalSolution(C) should fail: C is not an option")
	}
}
