package questions

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

const legacyKey = "questionContent"

type questionEnvelope struct {
	Version      int             `json:"version"`
	Marks        int             `json:"marks"`
	Main         json.RawMessage `json:"mainQuestion"`
	SubQuestions []SubQuestion   `json:"subQuestions"`
	Legacy       json.RawMessage `json:"questionContent"`
}

type solutionEnvelope struct {
	Main         json.RawMessage `json:"mainSolution"`
	SubSolutions []SubSolution   `json:"subSolutions"`
}

// DecodeQuestion parses a canonical question payload for type t.
func DecodeQuestion(t Type, raw []byte) (QuestionContent, error) {
	var env questionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return QuestionContent{}, apierr.Validation("question content is not valid JSON: %v", err)
	}
	if isNull(env.Main) {
		if !isNull(env.Legacy) {
			return QuestionContent{}, apierr.Validation("question content uses the legacy %s shape and must be migrated", legacyKey)
		}
		return QuestionContent{}, apierr.Validation("question content has no mainQuestion")
	}

	main, err := decodeMainQuestion(t, env.Main)
	if err != nil {
		return QuestionContent{}, err
	}

	return QuestionContent{
		Version:      CurrentVersion,
		Marks:        env.Marks,
		Main:         main,
		SubQuestions: env.SubQuestions,
	}, nil
}

func decodeMainQuestion(t Type, raw json.RawMessage) (MainQuestion, error) {
	switch t {
	case TypeMCQ:
		var q MCQQuestion
		if err := strictUnmarshal(raw, &q); err != nil {
			return nil, apierr.Validation("MCQ question: %v", err)
		}
		seen := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			if seen[o.ID] {
				return nil, apierr.Validation("MCQ question: duplicate option id %q", o.ID)
			}
			seen[o.ID] = true
		}
		return q, nil
	case TypeStructured:
		var q StructuredQuestion
		if err := strictUnmarshal(raw, &q); err != nil {
			return nil, apierr.Validation("structured question: %v", err)
		}
		return q, nil
	case TypeEssay:
		var q EssayQuestion
		if err := strictUnmarshal(raw, &q); err != nil {
			return nil, apierr.Validation("essay question: %v", err)
		}
		return q, nil
	case TypeProof:
		var q ProofQuestion
		if err := strictUnmarshal(raw, &q); err != nil {
			return nil, apierr.Validation("proof question: %v", err)
		}
		return q, nil
	case TypeDrawing:
		var q DrawingQuestion
		if err := strictUnmarshal(raw, &q); err != nil {
			return nil, apierr.Validation("drawing question: %v", err)
		}
		return q, nil
	default:
		return nil, apierr.Validation("unknown question type %q", t)
	}
}

// DecodeSolution parses a solution payload for a question of type t.
func DecodeSolution(t Type, raw []byte) (SolutionContent, error) {
	var env solutionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return SolutionContent{}, apierr.Validation("solution content is not valid JSON: %v", err)
	}
	if isNull(env.Main) {
		return SolutionContent{}, apierr.Validation("solution content has no mainSolution")
	}

	main, err := decodeMainSolution(t, env.Main)
	if err != nil {
		return SolutionContent{}, err
	}

	return SolutionContent{Main: main, SubSolutions: env.SubSolutions}, nil
}

func decodeMainSolution(t Type, raw json.RawMessage) (MainSolution, error) {
	switch t {
	case TypeMCQ:
		var s MCQSolution
		if err := strictUnmarshal(raw, &s); err != nil {
			return nil, apierr.Validation("MCQ solution: %v", err)
		}
		return s, nil
	case TypeStructured:
		var s StructuredSolution
		if err := strictUnmarshal(raw, &s); err != nil {
			return nil, apierr.Validation("structured solution: %v", err)
		}
		return s, nil
	case TypeEssay:
		var s EssaySolution
		if err := strictUnmarshal(raw, &s); err != nil {
			return nil, apierr.Validation("essay solution: %v", err)
		}
		return s, nil
	case TypeProof:
		var s ProofSolution
		if err := strictUnmarshal(raw, &s); err != nil {
			return nil, apierr.Validation("proof solution: %v", err)
		}
		return s, nil
	case TypeDrawing:
		var s DrawingSolution
		if err := strictUnmarshal(raw, &s); err != nil {
			return nil, apierr.Validation("drawing solution: %v", err)
		}
		return s, nil
	default:
		return nil, apierr.Validation("unknown question type %q", t)
	}
}

// CheckPair verifies that a solution is consistent with its question.
func CheckPair(q QuestionContent, s SolutionContent) error {
	if q.Main.QuestionType() != s.Main.SolutionType() {
		return apierr.Validation("solution type %s does not match question type %s",
			s.Main.SolutionType(), q.Main.QuestionType())
	}
	switch main := q.Main.(type) {
	case MCQQuestion:
		sol, ok := s.Main.(MCQSolution)
		if !ok {
			return apierr.Validation("MCQ question paired with %T", s.Main)
		}
		if !main.HasOption(sol.CorrectOption) {
			return apierr.Validation("correctOption %q is not one of the question's options", sol.CorrectOption)
		}
	case StructuredQuestion, EssayQuestion, ProofQuestion, DrawingQuestion:
	default:
		return apierr.Validation("unknown question type %q", q.Main.QuestionType())
	}
	return nil
}

// IsLegacy reports whether raw is stored in the pre-version-2 shape.
func IsLegacy(raw []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	_, hasLegacy := probe[legacyKey]
	return hasLegacy
}

// MigrateLegacy rewrites a legacy {"questionContent": {...}} payload into the
// canonical shape. Keys already present at the top level win over nested ones.
// It reports false when raw needed no change.
func MigrateLegacy(raw []byte) ([]byte, bool, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, false, fmt.Errorf("decode question content: %w", err)
	}
	nested, ok := outer[legacyKey]
	if !ok {
		return raw, false, nil
	}
	delete(outer, legacyKey)

	if !isNull(nested) {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", legacyKey, err)
		}
		for k, v := range inner {
			if _, exists := outer[k]; !exists {
				outer[k] = v
			}
		}
	}
	outer["version"] = json.RawMessage(fmt.Sprintf("%d", CurrentVersion))

	out, err := json.Marshal(outer)
	if err != nil {
		return nil, false, fmt.Errorf("encode question content: %w", err)
	}
	return out, true, nil
}

func strictUnmarshal(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
