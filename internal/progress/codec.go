package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// entrySchema describes one persisted CourseProgress record. Entries that
// fail validation are dropped on load and re-created on next use.
const entrySchema = `{
	"type": "object",
	"required": ["name", "completed", "total", "lessonsDone", "lastVisit", "TestScore"],
	"properties": {
		"name":        {"type": "string"},
		"completed":   {"type": "integer", "minimum": 0},
		"total":       {"type": "integer", "minimum": 0},
		"lessonsDone": {"type": "array", "items": {"type": "integer", "minimum": 1}},
		"lastVisit":   {"type": "integer", "minimum": 0},
		"TestScore":   {"type": "integer", "minimum": 0, "maximum": 100},
		"userAnswers": {"type": ["object", "null"], "additionalProperties": {"type": "string"}},
		"certId":      {"type": ["string", "null"]}
	}
}`

const entrySchemaURL = "schema://course-progress.json"

var (
	compileOnce   sync.Once
	compiledEntry *jsonschema.Schema
	compileErr    error
)

func entryValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(entrySchema)))
		if err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(entrySchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledEntry, compileErr = c.Compile(entrySchemaURL)
	})
	return compiledEntry, compileErr
}

// DecodeResult reports what happened while decoding a persisted map.
type DecodeResult struct {
	Map Map
	// Malformed is true when the whole document could not be parsed.
	Malformed bool
	// Dropped lists course ids whose entries failed validation.
	Dropped []string
}

// Decode parses the persisted progress document. An empty or "null"
// document yields an empty map. Invalid entries are dropped individually;
// an unparseable document yields an empty map with Malformed set.
func Decode(raw string) DecodeResult {
	res := DecodeResult{Map: Map{}}
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return res
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		res.Malformed = true
		return res
	}

	validator, err := entryValidator()
	if err != nil {
		// Schema is a constant; a compile failure is a programming error.
		panic(err)
	}

	for courseID, rawEntry := range entries {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(rawEntry))
		if err != nil || validator.Validate(doc) != nil {
			res.Dropped = append(res.Dropped, courseID)
			continue
		}

		var entry CourseProgress
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			res.Dropped = append(res.Dropped, courseID)
			continue
		}
		entry.normalize()
		res.Map[courseID] = entry
	}
	return res
}

// Encode serializes the map in the persisted layout.
func Encode(m Map) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal progress: %w", err)
	}
	return string(b), nil
}
