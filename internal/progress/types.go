package progress

import "slices"

// StorageKey is the local KV key holding the JSON-encoded progress map.
const StorageKey = "courseProgress"

// NoLesson is the LastVisit sentinel for a course that was never opened.
// Lesson ids start at 1.
const NoLesson = 0

// CertificateThreshold is the minimum TestScore that unlocks a certificate.
const CertificateThreshold = 50

// CourseProgress is the per-course progress entry. Field names are the
// persisted JSON layout.
type CourseProgress struct {
	Name        string            `json:"name"`
	Completed   int               `json:"completed"`
	Total       int               `json:"total"`
	LessonsDone []int             `json:"lessonsDone"`
	LastVisit   int               `json:"lastVisit"`
	TestScore   int               `json:"TestScore"`
	UserAnswers map[string]string `json:"userAnswers"`
	CertID      *string           `json:"certId"`
}

// Map is the full progress map keyed by course id.
type Map map[string]CourseProgress

// NewCourseProgress returns a freshly initialized entry.
func NewCourseProgress(name string, total int) CourseProgress {
	return CourseProgress{
		Name:        name,
		Total:       total,
		LessonsDone: []int{},
		LastVisit:   NoLesson,
		UserAnswers: map[string]string{},
	}
}

// HasLesson reports whether lessonID is in LessonsDone.
func (p CourseProgress) HasLesson(lessonID int) bool {
	return slices.Contains(p.LessonsDone, lessonID)
}

// HasCertificate reports whether a certificate id is recorded.
func (p CourseProgress) HasCertificate() bool {
	return p.CertID != nil && *p.CertID != ""
}

// TestUnlocked reports whether every known lesson is complete.
func (p CourseProgress) TestUnlocked() bool {
	return p.Total > 0 && p.Completed == p.Total
}

// CertificateUnlocked reports whether the latest score passes the threshold.
func (p CourseProgress) CertificateUnlocked() bool {
	return p.TestScore >= CertificateThreshold
}

// Clone returns a deep copy so callers never share slices or maps with the
// manager's state.
func (p CourseProgress) Clone() CourseProgress {
	c := p
	c.LessonsDone = slices.Clone(p.LessonsDone)
	if c.LessonsDone == nil {
		c.LessonsDone = []int{}
	}
	c.UserAnswers = make(map[string]string, len(p.UserAnswers))
	for k, v := range p.UserAnswers {
		c.UserAnswers[k] = v
	}
	if p.CertID != nil {
		id := *p.CertID
		c.CertID = &id
	}
	return c
}

// Clone returns a deep copy of the map.
func (m Map) Clone() Map {
	c := make(Map, len(m))
	for k, v := range m {
		c[k] = v.Clone()
	}
	return c
}

// normalize restores the derived invariants: LessonsDone without
// duplicates, Completed == len(LessonsDone), Total >= Completed.
func (p *CourseProgress) normalize() {
	seen := make(map[int]struct{}, len(p.LessonsDone))
	done := make([]int, 0, len(p.LessonsDone))
	for _, id := range p.LessonsDone {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		done = append(done, id)
	}
	p.LessonsDone = done
	p.Completed = len(done)
	if p.Total < p.Completed {
		p.Total = p.Completed
	}
	if p.UserAnswers == nil {
		p.UserAnswers = map[string]string{}
	}
}
