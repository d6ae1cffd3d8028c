package certificate

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/coursekit/internal/progress"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) GetString(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) SetString(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeDocs struct {
	mu     sync.Mutex
	docs   map[string][]byte
	sets   int
	setErr error
	getErr error
}

func newFakeDocs() *fakeDocs { return &fakeDocs{docs: map[string][]byte{}} }

func (f *fakeDocs) Get(_ context.Context, collection, id string, dst any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return f.getErr
	}
	raw, ok := f.docs[collection+"/"+id]
	if !ok {
		return ErrDocNotFound
	}
	return json.Unmarshal(raw, dst)
}

func (f *fakeDocs) Set(_ context.Context, collection, id string, doc any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if collection == CollectionCertificates {
		f.sets++
	}
	f.docs[collection+"/"+id] = raw
	return nil
}

func (f *fakeDocs) certificateWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads int
	err     error
	delay   time.Duration
}

func (u *fakeUploader) Upload(_ context.Context, objectName, localPath string) (string, error) {
	if u.delay > 0 {
		time.Sleep(u.delay)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	u.uploads++
	return "https://files.example.com/" + objectName, nil
}

func (u *fakeUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uploads
}

type fixture struct {
	mgr      *progress.Manager
	kv       *memKV
	docs     *fakeDocs
	uploader *fakeUploader
	issuer   *Issuer
}

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	kv := newMemKV()
	mgr := progress.Open(ctx, kv)
	_, err := mgr.EnsureCourseEntry(ctx, "html", "HTML Basics", 2)
	require.NoError(t, err)

	f := &fixture{mgr: mgr, kv: kv, docs: newFakeDocs(), uploader: &fakeUploader{}}
	f.issuer = NewIssuer(mgr, f.docs, SVGRenderer{Dir: t.TempDir()}, f.uploader,
		Profile{ID: "learner-1", Name: "Ada Lovelace"},
		WithCache(NewCache(kv)),
		WithClock(func() time.Time { return fixedNow }))
	return f
}

func (f *fixture) pass(t *testing.T, score int) {
	t.Helper()
	ctx := context.Background()
	_, err := f.mgr.MarkLessonComplete(ctx, "html", 1)
	require.NoError(t, err)
	_, err = f.mgr.MarkLessonComplete(ctx, "html", 2)
	require.NoError(t, err)
	_, err = f.mgr.RecordTestResult(ctx, "html", score, map[string]string{"1": "a"})
	require.NoError(t, err)
}

func TestGetOrIssue_FirstIssuance(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)

	rec, err := f.issuer.GetOrIssue(context.Background(), "html")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rec.CertID, IDPrefix))
	assert.Equal(t, "CERT-1773480413000", rec.CertID)
	assert.Equal(t, "html", rec.CourseID)
	assert.Equal(t, "HTML Basics", rec.CourseName)
	assert.Equal(t, "https://files.example.com/certificates/"+rec.CertID+".svg", rec.CloudURL)
	assert.Equal(t, "2026-03-14T09:26:53Z", rec.Date)

	p, _ := f.mgr.Get("html")
	require.NotNil(t, p.CertID)
	assert.Equal(t, rec.CertID, *p.CertID)

	var stored Record
	require.NoError(t, f.docs.Get(context.Background(), CollectionCertificates, rec.CertID, &stored))
	assert.Equal(t, rec, stored)

	cached, ok, err := f.issuer.Cached(context.Background(), "html")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, cached)
}

func TestGetOrIssue_SecondCallReuses(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)
	ctx := context.Background()

	first, err := f.issuer.GetOrIssue(ctx, "html")
	require.NoError(t, err)
	second, err := f.issuer.GetOrIssue(ctx, "html")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.uploader.count())
	assert.Equal(t, 1, f.docs.certificateWrites())
}

func TestGetOrIssue_ConcurrentCallsShareIssuance(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)
	f.uploader.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	results := make([]Record, 8)
	errs := make([]error, 8)
	for n := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[n], errs[n] = f.issuer.GetOrIssue(context.Background(), "html")
		}()
	}
	wg.Wait()

	for n := range results {
		require.NoError(t, errs[n])
		assert.Equal(t, results[0], results[n])
	}
	assert.Equal(t, 1, f.uploader.count())
	assert.Equal(t, 1, f.docs.certificateWrites())
}

func TestGetOrIssue_UploadFailure(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)
	f.uploader.err = errors.New("connection reset")

	_, err := f.issuer.GetOrIssue(context.Background(), "html")
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "upload", remoteErr.Op)

	p, _ := f.mgr.Get("html")
	assert.Nil(t, p.CertID)
	assert.Equal(t, 0, f.docs.certificateWrites())
}

func TestGetOrIssue_RemoteWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)
	f.docs.setErr = errors.New("permission denied")

	_, err := f.issuer.GetOrIssue(context.Background(), "html")
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "write", remoteErr.Op)

	p, _ := f.mgr.Get("html")
	assert.Nil(t, p.CertID)
}

func TestGetOrIssue_RemoteReadFailure(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)
	_, err := f.issuer.GetOrIssue(context.Background(), "html")
	require.NoError(t, err)

	f.docs.getErr = errors.New("timeout")
	_, err = f.issuer.GetOrIssue(context.Background(), "html")
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "get", remoteErr.Op)
}

func TestGetOrIssue_CancelledAfterUpload(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)

	ctx, cancel := context.WithCancel(context.Background())
	f.issuer.uploader = uploaderFunc(func(_ context.Context, name, _ string) (string, error) {
		cancel()
		return "https://files.example.com/" + name, nil
	})

	// The caller may see its own cancellation; the record is written anyway.
	_, err := f.issuer.GetOrIssue(ctx, "html")
	if err != nil {
		require.ErrorIs(t, err, context.Canceled)
	}

	require.Eventually(t, func() bool {
		p, _ := f.mgr.Get("html")
		return p.HasCertificate()
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.docs.certificateWrites())

	rec, err := f.issuer.GetOrIssue(context.Background(), "html")
	require.NoError(t, err)
	p, _ := f.mgr.Get("html")
	assert.Equal(t, rec.CertID, *p.CertID)
}

// blockingUpload waits for release or for its context to end.
func blockingUpload(started chan<- struct{}, release <-chan struct{}) uploaderFunc {
	return func(ctx context.Context, name, _ string) (string, error) {
		close(started)
		select {
		case <-release:
			return "https://files.example.com/" + name, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (f *fixture) waiters(courseID string) int {
	f.issuer.mu.Lock()
	defer f.issuer.mu.Unlock()
	if fl := f.issuer.flights[courseID]; fl != nil {
		return fl.waiters
	}
	return 0
}

func TestGetOrIssue_CancelledCallerDoesNotFailOthers(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)
	started, release := make(chan struct{}), make(chan struct{})
	f.issuer.uploader = blockingUpload(started, release)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.issuer.GetOrIssue(firstCtx, "html")
		firstErr <- err
	}()
	<-started

	type result struct {
		rec Record
		err error
	}
	second := make(chan result, 1)
	go func() {
		rec, err := f.issuer.GetOrIssue(context.Background(), "html")
		second <- result{rec, err}
	}()
	require.Eventually(t, func() bool { return f.waiters("html") == 2 }, 2*time.Second, time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "CERT-1773480413000", res.rec.CertID)
	assert.Equal(t, 1, f.docs.certificateWrites())
	assert.Equal(t, 0, f.waiters("html"))
}

func TestGetOrIssue_AllCallersCancelledStopsIssuance(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)
	started := make(chan struct{})
	f.issuer.uploader = blockingUpload(started, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := f.issuer.GetOrIssue(ctx, "html")
		errc <- err
	}()
	<-started
	cancel()

	require.ErrorIs(t, <-errc, context.Canceled)
	require.Eventually(t, func() bool { return f.waiters("html") == 0 }, 2*time.Second, time.Millisecond)

	// The abandoned upload fails on the cancelled flight; nothing is recorded.
	f.issuer.uploader = f.uploader
	rec, err := f.issuer.GetOrIssue(context.Background(), "html")
	require.NoError(t, err)
	assert.Equal(t, 1, f.docs.certificateWrites())
	p, _ := f.mgr.Get("html")
	assert.Equal(t, rec.CertID, *p.CertID)
}

type uploaderFunc func(ctx context.Context, objectName, localPath string) (string, error)

func (fn uploaderFunc) Upload(ctx context.Context, objectName, localPath string) (string, error) {
	return fn(ctx, objectName, localPath)
}

func TestGetOrIssue_ReconcilesLostLocalID(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)
	ctx := context.Background()

	issued, err := f.issuer.GetOrIssue(ctx, "html")
	require.NoError(t, err)

	// Local progress is lost; the remote record and index survive.
	require.NoError(t, f.mgr.Reset(ctx))
	f.pass(t, 90)

	got, err := f.issuer.GetOrIssue(ctx, "html")
	require.NoError(t, err)
	assert.Equal(t, issued, got)
	assert.Equal(t, 1, f.uploader.count())

	p, _ := f.mgr.Get("html")
	require.NotNil(t, p.CertID)
	assert.Equal(t, issued.CertID, *p.CertID)
}

func TestGetOrIssue_ReissuesMissingRecordUnderSameID(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)
	ctx := context.Background()

	_, err := f.mgr.SetCertificateID(ctx, "html", "CERT-42")
	require.NoError(t, err)

	rec, err := f.issuer.GetOrIssue(ctx, "html")
	require.NoError(t, err)
	assert.Equal(t, "CERT-42", rec.CertID)
	assert.Equal(t, 1, f.uploader.count())

	p, _ := f.mgr.Get("html")
	assert.Equal(t, "CERT-42", *p.CertID)
}

func TestRetakeDoesNotRevoke(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 80)
	ctx := context.Background()

	rec, err := f.issuer.GetOrIssue(ctx, "html")
	require.NoError(t, err)

	_, err = f.mgr.RecordTestResult(ctx, "html", 30, map[string]string{"1": "b"})
	require.NoError(t, err)
	assert.False(t, f.mgr.IsCertificateUnlocked("html"))

	p, _ := f.mgr.Get("html")
	require.NotNil(t, p.CertID)
	assert.Equal(t, rec.CertID, *p.CertID)

	var stored Record
	require.NoError(t, f.docs.Get(ctx, CollectionCertificates, rec.CertID, &stored))
	assert.Equal(t, rec, stored)
}

func TestIDGenerator_Monotonic(t *testing.T) {
	g := &idGenerator{now: func() time.Time { return fixedNow }}
	a, b, c := g.next(), g.next(), g.next()
	assert.Equal(t, "CERT-1773480413000", a)
	assert.Equal(t, "CERT-1773480413001", b)
	assert.Equal(t, "CERT-1773480413002", c)
}

func TestSVGRenderer(t *testing.T) {
	r := SVGRenderer{Dir: t.TempDir()}
	path, err := r.Render(context.Background(), Fields{
		CertID:      "CERT-1",
		LearnerName: "Tom & Jerry",
		CourseName:  "<HTML>",
		Date:        fixedNow,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, "Tom &amp; Jerry")
	assert.Contains(t, body, "&lt;HTML&gt;")
	assert.Contains(t, body, "March 14, 2026")
	assert.Contains(t, body, "CERT-1")
}

func TestCache_CorruptValueIsEmpty(t *testing.T) {
	kv := newMemKV()
	kv.data[CacheKey] = "{not json"
	c := NewCache(kv)

	_, ok, err := c.Get(context.Background(), "html")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(context.Background(), Record{CertID: "CERT-1", CourseID: "html"}))
	rec, ok, err := c.Get(context.Background(), "html")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "CERT-1", rec.CertID)
}
