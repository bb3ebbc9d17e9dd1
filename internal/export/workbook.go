// Package export writes a resource's questions and solutions to an Excel
// workbook for offline review.
package export

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-solutions/internal/content"
	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
	"github.com/p-n-ai/pai-solutions/internal/questions"
)

const (
	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	questionSheet = "Questions"
	resourceSheet = "Resource"
)

var questionHeader = []any{
	"Chapter", "Topic", "Subtopic", "Number", "Type", "Marks", "Question", "Parts", "Answer", "Has solution",
}

// Exporter builds workbooks from the content service.
type Exporter struct {
	svc  *content.Service
	gate content.Authorizer
}

func NewExporter(svc *content.Service, gate content.Authorizer) *Exporter {
	return &Exporter{svc: svc, gate: gate}
}

// row is one question with where it sits in the resource.
type row struct {
	chapter, topic, subtopic string
	q                        questions.Normalized
}

// Workbook exports every question under resourceID. Only administrators may
// export. The caller must Close the returned file.
func (e *Exporter) Workbook(ctx context.Context, resourceID string) (*excelize.File, content.Resource, error) {
	ok, err := e.gate.VerifyAdmin(ctx)
	if err != nil {
		return nil, content.Resource{}, fmt.Errorf("verify admin: %w", err)
	}
	if !ok {
		return nil, content.Resource{}, apierr.Unauthorized("admin access required")
	}

	res, err := e.svc.GetResource(ctx, resourceID)
	if err != nil {
		return nil, content.Resource{}, err
	}
	rows, err := e.collect(ctx, res.ID)
	if err != nil {
		return nil, content.Resource{}, err
	}

	f, err := render(res, rows)
	if err != nil {
		return nil, content.Resource{}, err
	}
	return f, res, nil
}

func (e *Exporter) collect(ctx context.Context, resourceID string) ([]row, error) {
	chapters, err := e.svc.ListChapters(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	var rows []row
	add := func(id, chapter, topic, subtopic string) error {
		qs, err := e.svc.ListQuestions(ctx, id)
		if err != nil {
			return err
		}
		for _, q := range qs {
			rows = append(rows, row{chapter: chapter, topic: topic, subtopic: subtopic, q: q})
		}
		return nil
	}

	for _, ch := range chapters {
		label := nodeLabel(ch)
		if err := add(ch.ID, label, "", ""); err != nil {
			return nil, err
		}
		topics, err := e.svc.ListChildren(ctx, ch.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range topics {
			if err := add(t.ID, label, t.Title, ""); err != nil {
				return nil, err
			}
			if t.ChildCount == 0 {
				continue
			}
			subtopics, err := e.svc.ListChildren(ctx, t.ID)
			if err != nil {
				return nil, err
			}
			for _, s := range subtopics {
				if err := add(s.ID, label, t.Title, s.Title); err != nil {
					return nil, err
				}
			}
		}
	}
	return rows, nil
}

func nodeLabel(n content.Node) string {
	if n.Number == nil {
		return n.Title
	}
	return strconv.Itoa(*n.Number) + ". " + n.Title
}

func render(res content.Resource, rows []row) (*excelize.File, error) {
	f := excelize.NewFile()
	fail := func(err error) (*excelize.File, error) {
		f.Close()
		return nil, fmt.Errorf("rendering workbook: %w", err)
	}

	if err := f.SetSheetName("Sheet1", questionSheet); err != nil {
		return fail(err)
	}
	if _, err := f.NewSheet(resourceSheet); err != nil {
		return fail(err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fail(err)
	}
	if err := f.SetSheetRow(questionSheet, "A1", &questionHeader); err != nil {
		return fail(err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(questionHeader), 1)
	if err := f.SetCellStyle(questionSheet, "A1", lastHeader, bold); err != nil {
		return fail(err)
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{
			r.chapter,
			r.topic,
			r.subtopic,
			r.q.QuestionNumber,
			string(r.q.Type),
			r.q.Marks,
			QuestionText(r.q.MainQuestion),
			len(r.q.Parts),
			answer(r.q),
			yesNo(r.q.ExistingSolution != nil),
		}
		if err := f.SetSheetRow(questionSheet, cell, &values); err != nil {
			return fail(err)
		}
	}
	if err := f.SetColWidth(questionSheet, "G", "G", 60); err != nil {
		return fail(err)
	}
	if err := f.SetColWidth(questionSheet, "I", "I", 40); err != nil {
		return fail(err)
	}

	meta := [][]any{
		{"Title", res.Title},
		{"Type", string(res.Type)},
		{"Subject", res.Subject},
		{"Grade", res.Grade},
		{"Year", res.Year},
		{"Curriculum", string(res.Curriculum)},
		{"Publisher", res.Publisher},
		{"Status", string(res.Status)},
		{"Questions", len(rows)},
	}
	for i, m := range meta {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(resourceSheet, cell, &m); err != nil {
			return fail(err)
		}
	}
	return f, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func answer(q questions.Normalized) string {
	if q.ExistingSolution == nil {
		return ""
	}
	return AnswerSummary(q.ExistingSolution.MainSolution)
}
