package course

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed catalog.json
var catalogJSON []byte

// Catalog indexes courses by id, keeping catalog order.
type Catalog struct {
	courses []Course
	byID    map[string]int
}

type catalogFile struct {
	Courses []Course `json:"courses"`
}

// Parse validates and indexes a JSON catalog.
func Parse(data []byte) (*Catalog, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validateCourses(f.Courses); err != nil {
		return nil, err
	}

	c := &Catalog{
		courses: f.Courses,
		byID:    make(map[string]int, len(f.Courses)),
	}
	for i, course := range f.Courses {
		c.byID[course.ID] = i
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog. It panics if the embedded data is
// invalid, which the package tests rule out.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(catalogJSON)
		if err != nil {
			panic(fmt.Sprintf("course: invalid embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// All returns every course in catalog order.
func (c *Catalog) All() []Course {
	out := make([]Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// Get returns the course with the given id.
func (c *Catalog) Get(id string) (Course, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Course{}, false
	}
	return c.courses[i], true
}

// IDs returns course ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.courses))
	for i, course := range c.courses {
		ids[i] = course.ID
	}
	return ids
}
