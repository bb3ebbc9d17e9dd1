package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/p-n-ai/pai-solutions/internal/content"
)

// Report counts what an import created.
type Report struct {
	Resources int
	Nodes     int
	Questions int
	Solutions int
}

func (r *Report) add(o Report) {
	r.Resources += o.Resources
	r.Nodes += o.Nodes
	r.Questions += o.Questions
	r.Solutions += o.Solutions
}

// Importer writes seeds through the content service so every payload passes
// the same validation as the HTTP API. The service's authorizer must admit
// the caller in ctx.
type Importer struct {
	svc *content.Service
}

func NewImporter(svc *content.Service) *Importer {
	return &Importer{svc: svc}
}

// ImportAll imports files in order and stops at the first failure.
func (im *Importer) ImportAll(ctx context.Context, files []File) (Report, error) {
	var total Report
	for _, f := range files {
		r, err := im.Import(ctx, f.Seed)
		total.add(r)
		if err != nil {
			return total, fmt.Errorf("importing %s: %w", f.Path, err)
		}
	}
	return total, nil
}

// Import creates the seed's resource and everything beneath it.
func (im *Importer) Import(ctx context.Context, seed Seed) (Report, error) {
	var report Report
	r := seed.Resource
	res, err := im.svc.CreateResource(ctx, content.ResourceInput{
		Title:      r.Title,
		Type:       content.ResourceType(r.Type),
		Subject:    r.Subject,
		Grade:      r.Grade,
		Year:       r.Year,
		Curriculum: content.Curriculum(r.Curriculum),
		Publisher:  r.Publisher,
		Status:     content.Status(r.Status),
	})
	if err != nil {
		return report, fmt.Errorf("resource %q: %w", r.Title, err)
	}
	report.Resources++

	for _, ch := range seed.Chapters {
		chapter, err := im.svc.AddChapter(ctx, res.ID, content.NodeInput{
			Number: ch.Number,
			Order:  ch.Order,
			Title:  ch.Title,
		})
		if err != nil {
			return report, fmt.Errorf("chapter %q: %w", ch.Title, err)
		}
		report.Nodes++

		if err := im.questions(ctx, chapter.ID, ch.Questions, &report); err != nil {
			return report, err
		}
		if err := im.nodes(ctx, chapter.ID, content.NodeTopic, ch.Topics, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (im *Importer) nodes(ctx context.Context, parentID string, typ content.NodeType, seeds []SeedNode, report *Report) error {
	for _, sn := range seeds {
		if typ == content.NodeSubtopic && len(sn.Subtopics) > 0 {
			return fmt.Errorf("subtopic %q: subtopics cannot have children", sn.Title)
		}
		node, err := im.svc.AddChild(ctx, parentID, content.NodeInput{
			Type:   typ,
			Number: sn.Number,
			Order:  sn.Order,
			Title:  sn.Title,
		})
		if err != nil {
			return fmt.Errorf("%s %q: %w", typ, sn.Title, err)
		}
		report.Nodes++

		if err := im.questions(ctx, node.ID, sn.Questions, report); err != nil {
			return err
		}
		if err := im.nodes(ctx, node.ID, content.NodeSubtopic, sn.Subtopics, report); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) questions(ctx context.Context, contentID string, seeds []SeedQuestion, report *Report) error {
	for _, sq := range seeds {
		raw, err := json.Marshal(sq.Content)
		if err != nil {
			return fmt.Errorf("question %s: encoding content: %w", sq.Number, err)
		}
		q, err := im.svc.CreateQuestion(ctx, contentID, content.QuestionInput{
			Type:           sq.Type,
			Order:          sq.Order,
			QuestionNumber: sq.Number,
			Content:        raw,
		})
		if err != nil {
			return fmt.Errorf("question %s: %w", sq.Number, err)
		}
		report.Questions++

		if sq.Solution == nil {
			continue
		}
		sol, err := json.Marshal(sq.Solution)
		if err != nil {
			return fmt.Errorf("solution %s: encoding content: %w", sq.Number, err)
		}
		if _, err := im.svc.PutSolution(ctx, q.ID, sol); err != nil {
			return fmt.Errorf("solution %s: %w", sq.Number, err)
		}
		report.Solutions++
	}
	return nil
}
