package export_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-solutions/internal/content"
	"github.com/p-n-ai/pai-solutions/internal/export"
	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
	"github.com/p-n-ai/pai-solutions/internal/questions"
)

type gate bool

func (g gate) VerifyAdmin(context.Context) (bool, error) { return bool(g), nil }

func TestSummaries(t *testing.T) {
	tests := []struct {
		name     string
		question questions.MainQuestion
		solution questions.MainSolution
		wantQ    string
		wantA    string
	}{
		{
			"mcq",
			questions.MCQQuestion{Text: "Pick one", Options: []questions.Option{{ID: "A", Text: "1"}, {ID: "B", Text: "2"}}},
			questions.MCQSolution{CorrectOption: "B"},
			"Pick one\nA) 1\nB) 2", "B",
		},
		{
			"structured with final answer",
			questions.StructuredQuestion{Text: "Simplify", Context: "Given f(x) = 2x"},
			questions.StructuredSolution{Steps: []questions.Step{{Text: "a"}}, FinalAnswer: "4x"},
			"Given f(x) = 2x\nSimplify", "4x",
		},
		{
			"essay with rubric",
			questions.EssayQuestion{Text: "Discuss", WordLimit: 300},
			questions.EssaySolution{ModelAnswer: "Model", Rubric: []questions.RubricItem{{Criterion: "c", Marks: 4}, {Criterion: "d", Marks: 6}}},
			"Discuss (max 300 words)", "Model [rubric 10 marks]",
		},
		{
			"proof without conclusion",
			questions.ProofQuestion{Text: "Show", Given: "ABC", ToProve: "AB = AC"},
			questions.ProofSolution{Steps: []questions.ProofStep{{Statement: "s1"}, {Statement: "s2"}}},
			"Show\nGiven: ABC\nProve: AB = AC", "2 steps",
		},
		{
			"drawing",
			questions.DrawingQuestion{Text: "Sketch"},
			questions.DrawingSolution{Description: "Parabola"},
			"Sketch", "Parabola",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := export.QuestionText(tt.question); got != tt.wantQ {
				t.Errorf("QuestionText() = %q, want %q", got, tt.wantQ)
			}
			if got := export.AnswerSummary(tt.solution); got != tt.wantA {
				t.Errorf("AnswerSummary() = %q, want %q", got, tt.wantA)
			}
		})
	}
}

func intPtr(v int) *int { return &v }

func TestExporter_Workbook(t *testing.T) {
	ctx := t.Context()
	svc := content.NewService(content.NewMemoryStore(), gate(true), nil)

	res, err := svc.CreateResource(ctx, content.ResourceInput{
		Title: "Physical Sciences P1", Type: content.ResourcePastPaper, Subject: "physical sciences",
		Grade: 11, Year: 2022, Curriculum: content.CurriculumCAPS,
	})
	if err != nil {
		t.Fatalf("CreateResource() error = %v", err)
	}
	ch, err := svc.AddChapter(ctx, res.ID, content.NodeInput{Number: intPtr(3), Title: "Motion"})
	if err != nil {
		t.Fatalf("AddChapter() error = %v", err)
	}
	topic, err := svc.AddChild(ctx, ch.ID, content.NodeInput{Title: "Velocity"})
	if err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}
	q, err := svc.CreateQuestion(ctx, topic.ID, content.QuestionInput{
		Type:           "ESSAY",
		QuestionNumber: "3.1",
		Content:        []byte(`{"marks": 5, "mainQuestion": {"text": "Explain inertia"}}`),
	})
	if err != nil {
		t.Fatalf("CreateQuestion() error = %v", err)
	}
	if _, err := svc.PutSolution(ctx, q.ID, []byte(`{"mainSolution": {"modelAnswer": "Resistance to change"}}`)); err != nil {
		t.Fatalf("PutSolution() error = %v", err)
	}

	f, got, err := export.NewExporter(svc, gate(true)).Workbook(ctx, res.ID)
	if err != nil {
		t.Fatalf("Workbook() error = %v", err)
	}
	defer f.Close()
	if got.ID != res.ID {
		t.Errorf("Workbook() resource = %s, want %s", got.ID, res.ID)
	}

	// Round-trip through bytes the way the HTTP handler serves it.
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	reread, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer reread.Close()

	rows, err := reread.GetRows("Questions")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus 1", len(rows))
	}
	want := []string{"3. Motion", "Velocity", "", "3.1", "ESSAY", "5", "Explain inertia", "0", "Resistance to change", "yes"}
	for i, w := range want {
		if i >= len(rows[1]) || rows[1][i] != w {
			t.Errorf("row[%d] = %q, want %q (row %q)", i, cellAt(rows[1], i), w, rows[1])
		}
	}

	title, err := reread.GetCellValue("Resource", "B1")
	if err != nil || title != "Physical Sciences P1" {
		t.Errorf("Resource!B1 = %q, %v", title, err)
	}
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func TestExporter_RequiresAdmin(t *testing.T) {
	svc := content.NewService(content.NewMemoryStore(), gate(true), nil)
	_, _, err := export.NewExporter(svc, gate(false)).Workbook(t.Context(), "any")
	if !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("Workbook() error = %v, want unauthorized", err)
	}
}
