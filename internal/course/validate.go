package course

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const catalogSchema = `{
	"type": "object",
	"required": ["courses"],
	"properties": {
		"courses": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "name", "lessons", "questions"],
				"properties": {
					"id":          {"type": "string", "minLength": 1},
					"name":        {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"lessons": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["id", "title"],
							"properties": {
								"id":      {"type": "integer", "minimum": 1},
								"title":   {"type": "string"},
								"content": {"type": "string"}
							}
						}
					},
					"questions": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["id", "question", "options", "answer"],
							"properties": {
								"id":          {"type": "string", "minLength": 1},
								"question":    {"type": "string"},
								"options":     {"type": "array", "minItems": 2, "items": {"type": "string"}},
								"answer":      {"type": "string"},
								"explanation": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

const catalogSchemaURL = "schema://course-catalog.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func catalogValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(catalogSchema))
		if err != nil {
			schemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(catalogSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(catalogSchemaURL)
	})
	return compiledSchema, schemaErr
}

func validateDocument(data []byte) error {
	schema, err := catalogValidator()
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("catalog schema: %w", err)
	}
	return nil
}

// validateCourses performs the structural checks the schema cannot
// express. Returns a combined error describing all problems found.
func validateCourses(courses []Course) error {
	var errs []error

	seen := make(map[string]bool, len(courses))
	for _, c := range courses {
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("duplicate course ID: %q", c.ID))
		}
		seen[c.ID] = true

		// Lessons are numbered 1..n in order.
		for i, l := range c.Lessons {
			if l.ID != i+1 {
				errs = append(errs, fmt.Errorf("course %q: lesson %d has id %d", c.ID, i+1, l.ID))
			}
		}

		questionIDs := make(map[string]bool, len(c.Questions))
		for _, q := range c.Questions {
			if questionIDs[q.ID] {
				errs = append(errs, fmt.Errorf("course %q: duplicate question ID: %q", c.ID, q.ID))
			}
			questionIDs[q.ID] = true
			if err := q.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("course %q: %w", c.ID, err))
			}
		}
	}

	return errors.Join(errs...)
}
