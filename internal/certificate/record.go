// Package certificate issues course completion certificates and keeps the
// remote certificate records consistent with local progress.
package certificate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Remote collections.
const (
	CollectionCertificates = "certificates"
	CollectionCourseIndex  = "courseCertificates"
)

// IDPrefix starts every certificate id.
const IDPrefix = "CERT-"

// ErrDocNotFound is returned by DocStore.Get for a missing document.
var ErrDocNotFound = errors.New("document not found")

// Record is the remote certificate document. It is never modified after it
// is written.
type Record struct {
	CertID     string `json:"certId"`
	CourseID   string `json:"courseId"`
	CourseName string `json:"courseName"`
	CloudURL   string `json:"cloudUrl"`
	Date       string `json:"date"`
}

// IssuedAt parses Date.
func (r Record) IssuedAt() (time.Time, error) {
	return time.Parse(time.RFC3339, r.Date)
}

// courseIndex maps a learner's course to the certificate issued for it, so
// that a record can be found again after local progress is lost.
type courseIndex struct {
	CertID string `json:"certId"`
}

func courseIndexID(profileID, courseID string) string {
	return profileID + ":" + courseID
}

// Fields is the content printed on a certificate artifact.
type Fields struct {
	CertID      string
	LearnerName string
	CourseName  string
	Date        time.Time
}

// DocStore is the remote document store.
type DocStore interface {
	// Get decodes the document into dst or returns ErrDocNotFound.
	Get(ctx context.Context, collection, id string, dst any) error
	Set(ctx context.Context, collection, id string, doc any) error
}

// Renderer produces a certificate artifact and returns its local path.
// The caller removes the file.
type Renderer interface {
	Render(ctx context.Context, f Fields) (path string, err error)
}

// Uploader stores a local file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, objectName, localPath string) (cloudURL string, err error)
}

// idGenerator hands out CERT-<unix millis> ids that never repeat within a
// process, even when two are requested in the same millisecond.
type idGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (g *idGenerator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("%s%d", IDPrefix, ms)
}
