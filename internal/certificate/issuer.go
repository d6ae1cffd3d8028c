package certificate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/coursekit/internal/progress"
	"github.com/abhisek/coursekit/internal/store"
)

// ProgressSource is the part of the progress manager the issuer uses.
type ProgressSource interface {
	Get(courseID string) (progress.CourseProgress, bool)
	SetCertificateID(ctx context.Context, courseID, certID string) (progress.CourseProgress, error)
}

// ActivityLog receives issuance events.
type ActivityLog interface {
	AppendActivity(ctx context.Context, data store.ActivityEventData) error
}

// Profile identifies the learner certificates are issued to.
type Profile struct {
	ID   string
	Name string
}

// Issuer returns the certificate for a course, creating it on first use.
type Issuer struct {
	progress ProgressSource
	docs     DocStore
	renderer Renderer
	uploader Uploader
	profile  Profile

	cache  *Cache
	events ActivityLog
	logger *zap.Logger
	now    func() time.Time
	ids    *idGenerator

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context a shared issuance runs on. It is cancelled once
// every caller waiting on it has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IssuerOption {
	return func(i *Issuer) { i.logger = l }
}

// WithCache stores every returned record in c.
func WithCache(c *Cache) IssuerOption {
	return func(i *Issuer) { i.cache = c }
}

// WithActivityLog records issued and reused certificates.
func WithActivityLog(a ActivityLog) IssuerOption {
	return func(i *Issuer) { i.events = a }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer wires an issuer for profile.
func NewIssuer(src ProgressSource, docs DocStore, renderer Renderer, uploader Uploader, profile Profile, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		progress: src,
		docs:     docs,
		renderer: renderer,
		uploader: uploader,
		profile:  profile,
		logger:   zap.NewNop(),
		now:      time.Now,
		flights:  make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.ids = &idGenerator{now: i.now}
	return i
}

// GetOrIssue returns the certificate for courseID. An existing record is
// returned as is; otherwise one is rendered, uploaded and recorded both
// remotely and in local progress. The score threshold is not checked here.
// Concurrent calls for the same course share a single issuance; a caller
// whose ctx ends returns ctx.Err() without affecting the others.
func (i *Issuer) GetOrIssue(ctx context.Context, courseID string) (Record, error) {
	for attempt := 0; ; attempt++ {
		fctx, leave := i.join(ctx, courseID)
		ch := i.group.DoChan(courseID, func() (any, error) {
			return i.getOrIssue(fctx, courseID)
		})

		select {
		case res := <-ch:
			leave()
			if res.Shared {
				i.logger.Debug("certificate request shared", zap.String("course", courseID))
			}
			if res.Err != nil {
				// A flight abandoned by earlier callers can still hand its
				// cancellation to a caller that joined late.
				if attempt == 0 && ctx.Err() == nil && errors.Is(res.Err, context.Canceled) {
					continue
				}
				return Record{}, res.Err
			}
			return res.Val.(Record), nil
		case <-ctx.Done():
			leave()
			return Record{}, ctx.Err()
		}
	}
}

// join registers the caller with the flight for courseID and returns the
// flight's context and a func to leave it.
func (i *Issuer) join(ctx context.Context, courseID string) (context.Context, func()) {
	i.mu.Lock()
	defer i.mu.Unlock()

	f := i.flights[courseID]
	if f == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		i.flights[courseID] = f
	}
	f.waiters++

	return f.ctx, func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		f.waiters--
		if f.waiters > 0 {
			return
		}
		f.cancel()
		if i.flights[courseID] == f {
			delete(i.flights, courseID)
		}
	}
}

func (i *Issuer) getOrIssue(ctx context.Context, courseID string) (Record, error) {
	p, _ := i.progress.Get(courseID)
	courseName := p.Name
	if courseName == "" {
		courseName = courseID
	}

	var certID string
	if p.HasCertificate() {
		certID = *p.CertID
		rec, err := i.fetch(ctx, certID)
		switch {
		case err == nil:
			i.reused(ctx, rec)
			return rec, nil
		case errors.Is(err, ErrDocNotFound):
			// The record is regenerated under the id already stored locally.
			i.logger.Warn("certificate record missing remotely, reissuing",
				zap.String("course", courseID), zap.String("cert_id", certID))
		default:
			return Record{}, err
		}
	} else {
		rec, found, err := i.reconcile(ctx, courseID)
		if err != nil {
			return Record{}, err
		}
		if found {
			i.reused(ctx, rec)
			return rec, nil
		}
		certID = i.ids.next()
	}

	return i.issue(ctx, courseID, courseName, certID, !p.HasCertificate())
}

func (i *Issuer) fetch(ctx context.Context, certID string) (Record, error) {
	var rec Record
	if err := i.docs.Get(ctx, CollectionCertificates, certID, &rec); err != nil {
		if errors.Is(err, ErrDocNotFound) {
			return Record{}, err
		}
		return Record{}, &RemoteError{Op: "get", Err: err}
	}
	return rec, nil
}

// reconcile looks up a record issued earlier whose id never reached local
// progress, and records it locally when found.
func (i *Issuer) reconcile(ctx context.Context, courseID string) (Record, bool, error) {
	var idx courseIndex
	err := i.docs.Get(ctx, CollectionCourseIndex, courseIndexID(i.profile.ID, courseID), &idx)
	if errors.Is(err, ErrDocNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, &RemoteError{Op: "get index", Err: err}
	}

	rec, err := i.fetch(ctx, idx.CertID)
	if errors.Is(err, ErrDocNotFound) {
		i.logger.Warn("course index points at a missing certificate",
			zap.String("course", courseID), zap.String("cert_id", idx.CertID))
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}

	if _, err := i.progress.SetCertificateID(ctx, courseID, rec.CertID); err != nil {
		return Record{}, false, fmt.Errorf("record reconciled certificate: %w", err)
	}
	i.logger.Info("reconciled orphaned certificate",
		zap.String("course", courseID), zap.String("cert_id", rec.CertID))
	return rec, true, nil
}

func (i *Issuer) issue(ctx context.Context, courseID, courseName, certID string, recordLocally bool) (Record, error) {
	issuedAt := i.now().UTC().Truncate(time.Second)

	path, err := i.renderer.Render(ctx, Fields{
		CertID:      certID,
		LearnerName: i.profile.Name,
		CourseName:  courseName,
		Date:        issuedAt,
	})
	if err != nil {
		return Record{}, fmt.Errorf("render certificate: %w", err)
	}
	defer os.Remove(path)

	url, err := i.uploader.Upload(ctx, "certificates/"+certID+".svg", path)
	if err != nil {
		i.logger.Error("certificate upload failed", zap.String("course", courseID), zap.Error(err))
		return Record{}, &RemoteError{Op: "upload", Err: err}
	}

	rec := Record{
		CertID:     certID,
		CourseID:   courseID,
		CourseName: courseName,
		CloudURL:   url,
		Date:       issuedAt.Format(time.RFC3339),
	}

	// Remaining writes run to completion even if ctx is cancelled.
	wctx := context.WithoutCancel(ctx)

	if err := i.docs.Set(wctx, CollectionCertificates, certID, rec); err != nil {
		i.logger.Error("certificate write failed", zap.String("course", courseID), zap.Error(err))
		return Record{}, &RemoteError{Op: "write", Err: err}
	}
	if err := i.docs.Set(wctx, CollectionCourseIndex, courseIndexID(i.profile.ID, courseID), courseIndex{CertID: certID}); err != nil {
		i.logger.Warn("course index write failed", zap.String("course", courseID), zap.Error(err))
	}

	if recordLocally {
		if _, err := i.progress.SetCertificateID(wctx, courseID, certID); err != nil {
			return Record{}, fmt.Errorf("record certificate id: %w", err)
		}
	}

	i.logger.Info("certificate issued",
		zap.String("course", courseID), zap.String("cert_id", certID), zap.String("url", url))
	i.remember(wctx, rec)
	i.appendActivity(wctx, store.ActivityCertificateIssued, rec)
	return rec, nil
}

func (i *Issuer) reused(ctx context.Context, rec Record) {
	i.remember(ctx, rec)
	i.appendActivity(ctx, store.ActivityCertificateReused, rec)
}

func (i *Issuer) remember(ctx context.Context, rec Record) {
	if i.cache == nil {
		return
	}
	if err := i.cache.Put(ctx, rec); err != nil {
		i.logger.Warn("cache certificate failed", zap.String("course", rec.CourseID), zap.Error(err))
	}
}

func (i *Issuer) appendActivity(ctx context.Context, kind string, rec Record) {
	if i.events == nil {
		return
	}
	err := i.events.AppendActivity(ctx, store.ActivityEventData{
		Kind:     kind,
		CourseID: rec.CourseID,
		Detail:   rec.CertID,
	})
	if err != nil {
		i.logger.Warn("append activity failed", zap.String("kind", kind), zap.Error(err))
	}
}

// Cached returns the locally cached record for courseID without touching
// the remote store.
func (i *Issuer) Cached(ctx context.Context, courseID string) (Record, bool, error) {
	if i.cache == nil {
		return Record{}, false, nil
	}
	return i.cache.Get(ctx, courseID)
}
