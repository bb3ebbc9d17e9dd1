package questions

import (
	"encoding/json"
	"fmt"
	"time"
)

// RawQuestion is a stored question with its solutions, content still encoded.
type RawQuestion struct {
	ID             string
	Type           Type
	Order          int
	QuestionNumber string
	Content        []byte
	Solutions      []RawSolution
}

// RawSolution is a stored solution row.
type RawSolution struct {
	ID        string
	Content   []byte
	CreatedAt time.Time
}

// Normalized is the renderer-facing view of a question and its solution.
type Normalized struct {
	ID                string              `json:"id"`
	ContainerID       string              `json:"containerId"`
	Type              Type                `json:"type"`
	Order             int                 `json:"order"`
	QuestionNumber    string              `json:"questionNumber"`
	Marks             int                 `json:"marks"`
	MainQuestion      MainQuestion        `json:"mainQuestion"`
	Parts             []Part              `json:"parts"`
	ExistingSolution  *NormalizedSolution `json:"existingSolution,omitempty"`
	UnpairedSolutions []SubSolution       `json:"unpairedSolutions,omitempty"`
}

// Part pairs a sub-question with its sub-solution, if one was authored.
type Part struct {
	Part     string       `json:"part"`
	Question SubQuestion  `json:"question"`
	Solution *SubSolution `json:"solution,omitempty"`
}

// NormalizedSolution is the typed solution for a question.
type NormalizedSolution struct {
	ID           string        `json:"id"`
	MainSolution MainSolution  `json:"mainSolution"`
	SubSolutions []SubSolution `json:"subSolutions,omitempty"`
}

// Transform decodes q into its typed form. Only the first solution is used; a
// question without solutions yields a nil ExistingSolution.
func Transform(q RawQuestion, containerID string) (Normalized, error) {
	content, err := DecodeQuestion(q.Type, q.Content)
	if err != nil {
		return Normalized{}, fmt.Errorf("question %s: %w", q.ID, err)
	}

	n := Normalized{
		ID:             q.ID,
		ContainerID:    containerID,
		Type:           q.Type,
		Order:          q.Order,
		QuestionNumber: q.QuestionNumber,
		Marks:          content.Marks,
		MainQuestion:   content.Main,
	}

	var subSolutions []SubSolution
	if len(q.Solutions) > 0 {
		first := q.Solutions[0]
		sol, err := DecodeSolution(q.Type, first.Content)
		if err != nil {
			return Normalized{}, fmt.Errorf("solution %s: %w", first.ID, err)
		}
		if err := CheckPair(content, sol); err != nil {
			return Normalized{}, fmt.Errorf("solution %s: %w", first.ID, err)
		}
		n.ExistingSolution = &NormalizedSolution{
			ID:           first.ID,
			MainSolution: sol.Main,
			SubSolutions: sol.SubSolutions,
		}
		subSolutions = sol.SubSolutions
	}

	n.Parts, n.UnpairedSolutions = PairParts(content.SubQuestions, subSolutions)
	return n, nil
}

// PairParts matches sub-solutions to sub-questions. A sub-question with a part
// key takes the sub-solution with the same key. A sub-question without one
// takes the sub-solution at the same index when that one has no key either.
// Sub-solutions nobody claimed are returned separately.
func PairParts(subs []SubQuestion, sols []SubSolution) ([]Part, []SubSolution) {
	used := make([]bool, len(sols))
	byPart := make(map[string]int, len(sols))
	for i, s := range sols {
		if s.Part == "" {
			continue
		}
		if _, dup := byPart[s.Part]; !dup {
			byPart[s.Part] = i
		}
	}

	parts := make([]Part, 0, len(subs))
	for i, sq := range subs {
		p := Part{Part: sq.Part, Question: sq}
		idx := -1
		if sq.Part != "" {
			if j, ok := byPart[sq.Part]; ok && !used[j] {
				idx = j
			}
		} else if i < len(sols) && sols[i].Part == "" && !used[i] {
			idx = i
		}
		if idx >= 0 {
			used[idx] = true
			s := sols[idx]
			p.Solution = &s
		}
		parts = append(parts, p)
	}

	var unpaired []SubSolution
	for i, s := range sols {
		if !used[i] {
			unpaired = append(unpaired, s)
		}
	}
	return parts, unpaired
}

// CanonicalQuestion validates raw for type t and re-encodes it in the current
// payload version.
func CanonicalQuestion(t Type, raw []byte) ([]byte, QuestionContent, error) {
	if err := ValidateQuestion(t, raw); err != nil {
		return nil, QuestionContent{}, err
	}
	content, err := DecodeQuestion(t, raw)
	if err != nil {
		return nil, QuestionContent{}, err
	}
	out, err := json.Marshal(content)
	if err != nil {
		return nil, QuestionContent{}, fmt.Errorf("encode question content: %w", err)
	}
	return out, content, nil
}

// CanonicalSolution validates raw as a solution for question and re-encodes it.
func CanonicalSolution(question QuestionContent, raw []byte) ([]byte, error) {
	t := question.Main.QuestionType()
	if err := ValidateSolution(t, raw); err != nil {
		return nil, err
	}
	sol, err := DecodeSolution(t, raw)
	if err != nil {
		return nil, err
	}
	if err := CheckPair(question, sol); err != nil {
		return nil, err
	}
	out, err := json.Marshal(sol)
	if err != nil {
		return nil, fmt.Errorf("encode solution content: %w", err)
	}
	return out, nil
}
