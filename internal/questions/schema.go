package questions

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

const questionSchemaTemplate = `{
  "type": "object",
  "required": ["mainQuestion"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "marks": {"type": "integer", "minimum": 0},
    "mainQuestion": %s,
    "subQuestions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text"],
        "properties": {
          "part": {"type": "string"},
          "text": {"type": "string", "minLength": 1},
          "marks": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

const solutionSchemaTemplate = `{
  "type": "object",
  "required": ["mainSolution"],
  "properties": {
    "mainSolution": %s,
    "subSolutions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "part": {"type": "string"},
          "answer": {"type": "string"},
          "steps": {"type": "array", "items": ` + stepSchema + `},
          "marks": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

const stepSchema = `{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string", "minLength": 1},
    "marks": {"type": "integer", "minimum": 0}
  }
}`

func mainQuestionSchema(t Type) string {
	switch t {
	case TypeMCQ:
		return `{
  "type": "object",
  "required": ["text", "options"],
  "properties": {
    "text": {"type": "string", "minLength": 1},
    "options": {
      "type": "array",
      "minItems": 2,
      "items": {
        "type": "object",
        "required": ["id", "text"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "text": {"type": "string"}
        }
      }
    }
  }
}`
	case TypeStructured:
		return `{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string", "minLength": 1},
    "context": {"type": "string"}
  }
}`
	case TypeEssay:
		return `{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string", "minLength": 1},
    "wordLimit": {"type": "integer", "minimum": 0}
  }
}`
	case TypeProof:
		return `{
  "type": "object",
  "required": ["text", "toProve"],
  "properties": {
    "text": {"type": "string", "minLength": 1},
    "given": {"type": "string"},
    "toProve": {"type": "string", "minLength": 1}
  }
}`
	case TypeDrawing:
		return `{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string", "minLength": 1},
    "imageUrl": {"type": "string"}
  }
}`
	default:
		return ""
	}
}

func mainSolutionSchema(t Type) string {
	switch t {
	case TypeMCQ:
		return `{
  "type": "object",
  "required": ["correctOption"],
  "properties": {
    "correctOption": {"type": "string", "minLength": 1},
    "explanation": {"type": "string"}
  }
}`
	case TypeStructured:
		return `{
  "type": "object",
  "required": ["steps"],
  "properties": {
    "steps": {"type": "array", "minItems": 1, "items": ` + stepSchema + `},
    "finalAnswer": {"type": "string"}
  }
}`
	case TypeEssay:
		return `{
  "type": "object",
  "required": ["modelAnswer"],
  "properties": {
    "modelAnswer": {"type": "string", "minLength": 1},
    "rubric": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["criterion", "marks"],
        "properties": {
          "criterion": {"type": "string", "minLength": 1},
          "marks": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`
	case TypeProof:
		return `{
  "type": "object",
  "required": ["steps"],
  "properties": {
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["statement"],
        "properties": {
          "statement": {"type": "string", "minLength": 1},
          "reason": {"type": "string"}
        }
      }
    },
    "conclusion": {"type": "string"}
  }
}`
	case TypeDrawing:
		return `{
  "type": "object",
  "required": ["description"],
  "properties": {
    "description": {"type": "string", "minLength": 1},
    "imageUrl": {"type": "string"}
  }
}`
	default:
		return ""
	}
}

type schemaSet struct {
	question map[Type]*gojsonschema.Schema
	solution map[Type]*gojsonschema.Schema
}

var (
	schemasOnce sync.Once
	schemas     schemaSet
	schemasErr  error
)

func loadSchemas() (schemaSet, error) {
	schemasOnce.Do(func() {
		set := schemaSet{
			question: make(map[Type]*gojsonschema.Schema, len(Types)),
			solution: make(map[Type]*gojsonschema.Schema, len(Types)),
		}
		for _, t := range Types {
			qs, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(fmt.Sprintf(questionSchemaTemplate, mainQuestionSchema(t))))
			if err != nil {
				schemasErr = fmt.Errorf("compile %s question schema: %w", t, err)
				return
			}
			ss, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(fmt.Sprintf(solutionSchemaTemplate, mainSolutionSchema(t))))
			if err != nil {
				schemasErr = fmt.Errorf("compile %s solution schema: %w", t, err)
				return
			}
			set.question[t] = qs
			set.solution[t] = ss
		}
		schemas = set
	})
	return schemas, schemasErr
}

// ValidateQuestion checks raw against the question schema for t.
func ValidateQuestion(t Type, raw []byte) error {
	set, err := loadSchemas()
	if err != nil {
		return apierr.Upstream("load schemas", err)
	}
	schema, ok := set.question[t]
	if !ok {
		return apierr.Validation("unknown question type %q", t)
	}
	return validate(schema, raw, "question content")
}

// ValidateSolution checks raw against the solution schema for t.
func ValidateSolution(t Type, raw []byte) error {
	set, err := loadSchemas()
	if err != nil {
		return apierr.Upstream("load schemas", err)
	}
	schema, ok := set.solution[t]
	if !ok {
		return apierr.Validation("unknown question type %q", t)
	}
	return validate(schema, raw, "solution content")
}

func validate(schema *gojsonschema.Schema, raw []byte, what string) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return apierr.Validation("%s is not valid JSON: %v", what, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return apierr.Validation("%s: %s", what, strings.Join(msgs, "; "))
}
