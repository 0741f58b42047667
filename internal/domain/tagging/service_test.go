package tagging_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/image-upload/internal/config"
	"github.com/janhq/image-upload/internal/domain/tagging"
	"github.com/janhq/image-upload/internal/domain/upload"
	"github.com/janhq/image-upload/internal/infrastructure/ledger"
)

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]upload.TagRecord
	puts    int
}

func (f *fakeStorage) Bucket() string { return "images" }

func (f *fakeStorage) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, time.Time, error) {
	return "https://images.s3.amazonaws.com/" + key + "?X-Amz-Signature=sig&ct=" + contentType, time.Now().Add(ttl), nil
}

func (f *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStorage) GetTags(_ context.Context, key string) ([]upload.TagRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tags, ok := f.objects[key]
	if !ok {
		return nil, tagging.ErrNotFound
	}
	return append([]upload.TagRecord(nil), tags...), nil
}

func (f *fakeStorage) PutTags(_ context.Context, key string, tags []upload.TagRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.objects[key] = tags
	return nil
}

func (f *fakeStorage) tags(key string) []upload.TagRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key]
}

type fakeClassifier struct {
	mu     sync.Mutex
	labels []tagging.Label
	calls  int
}

func (f *fakeClassifier) DetectLabels(_ context.Context, bucket, key string) ([]tagging.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.labels, nil
}

func (f *fakeClassifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() *config.Config {
	return &config.Config{
		S3KeyPrefix:       "uploads/",
		PresignTTL:        15 * time.Minute,
		AllowedMimeTypes:  []string{"image/jpeg", "image/png"},
		ClassifierEnabled: true,
		TagKey:            "ImageTag",
		EnrichTimeout:     time.Second,
		EnrichCooldown:    time.Minute,
	}
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	names    []string
	released int
}

func (f *fakeLocker) TryLock(_ context.Context, name string, _ time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	if f.held {
		return nil, tagging.ErrLocked
	}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.released++
	}, nil
}

func newService(objects map[string][]upload.TagRecord, labels ...tagging.Label) (*tagging.Service, *fakeStorage, *fakeClassifier, *ledger.Memory) {
	return newLockedService(nil, objects, labels...)
}

func newLockedService(locker tagging.Locker, objects map[string][]upload.TagRecord, labels ...tagging.Label) (*tagging.Service, *fakeStorage, *fakeClassifier, *ledger.Memory) {
	store := &fakeStorage{objects: objects}
	cls := &fakeClassifier{labels: labels}
	mem := ledger.NewMemory()
	return tagging.NewService(testConfig(), mem, store, cls, locker, zerolog.Nop()), store, cls, mem
}

func closeService(t *testing.T, svc *tagging.Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Close(ctx))
}

func TestIssueCredentialNewObject(t *testing.T) {
	svc, _, _, mem := newService(map[string][]upload.TagRecord{})
	defer closeService(t, svc)

	cred, err := svc.IssueCredential(context.Background(), "cat.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, "uploads/cat.jpg", cred.Key)
	assert.Equal(t, "image/jpeg", cred.ContentType)
	assert.Contains(t, cred.URL, "uploads/cat.jpg")
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), cred.ExpiresAt, 5*time.Second)

	_, ok, _ := mem.Lookup(context.Background(), "uploads/cat.jpg")
	assert.False(t, ok)
}

func TestIssueCredentialRecordsDuplicate(t *testing.T) {
	catTags := []upload.TagRecord{{Key: "ImageTag", Value: "Cat"}}
	svc, _, _, _ := newService(map[string][]upload.TagRecord{"uploads/cat.jpg": catTags})
	defer closeService(t, svc)
	ctx := context.Background()

	_, err := svc.IssueCredential(ctx, "cat.jpg", "image/jpeg")
	require.NoError(t, err)

	answer, err := svc.QueryTag(ctx, "cat.jpg")
	require.NoError(t, err)
	assert.True(t, answer.Duplicate)
	assert.True(t, answer.HasTags)
	assert.Equal(t, catTags, answer.Tags)
	assert.Equal(t, "uploads/cat.jpg", answer.OriginalKey)
}

func TestIssueCredentialClearsStaleDuplicate(t *testing.T) {
	svc, store, _, mem := newService(map[string][]upload.TagRecord{"uploads/cat.jpg": nil})
	defer closeService(t, svc)
	ctx := context.Background()

	_, err := svc.IssueCredential(ctx, "cat.jpg", "image/jpeg")
	require.NoError(t, err)
	_, ok, _ := mem.Lookup(ctx, "uploads/cat.jpg")
	require.True(t, ok)

	store.mu.Lock()
	delete(store.objects, "uploads/cat.jpg")
	store.mu.Unlock()

	_, err = svc.IssueCredential(ctx, "cat.jpg", "image/jpeg")
	require.NoError(t, err)
	_, ok, _ = mem.Lookup(ctx, "uploads/cat.jpg")
	assert.False(t, ok)
}

func TestQueryTagReportsDuplicateOnce(t *testing.T) {
	catTags := []upload.TagRecord{{Key: "ImageTag", Value: "Cat"}}
	svc, store, _, mem := newService(map[string][]upload.TagRecord{"uploads/cat.jpg": catTags})
	defer closeService(t, svc)
	ctx := context.Background()

	_, err := svc.IssueCredential(ctx, "cat.jpg", "image/jpeg")
	require.NoError(t, err)

	// The overwriting upload is tagged before anyone asks.
	store.mu.Lock()
	store.objects["uploads/cat.jpg"] = []upload.TagRecord{{Key: "ImageTag", Value: "Dog"}}
	store.mu.Unlock()

	answer, err := svc.QueryTag(ctx, "cat.jpg")
	require.NoError(t, err)
	assert.True(t, answer.Duplicate)
	assert.Equal(t, catTags, answer.Tags)

	_, ok, err := mem.Lookup(ctx, "uploads/cat.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	answer, err = svc.QueryTag(ctx, "cat.jpg")
	require.NoError(t, err)
	assert.False(t, answer.Duplicate)
	assert.Equal(t, "Dog", answer.Tag)
	assert.Equal(t, []upload.TagRecord{{Key: "ImageTag", Value: "Dog"}}, answer.Tags)
}

func TestIssueCredentialValidation(t *testing.T) {
	svc, _, _, _ := newService(map[string][]upload.TagRecord{})
	defer closeService(t, svc)
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "../etc/passwd", `dir\cat.jpg`, " cat.jpg"} {
		_, err := svc.IssueCredential(ctx, name, "image/jpeg")
		assert.ErrorIs(t, err, tagging.ErrInvalidFilename, name)
	}

	_, err := svc.IssueCredential(ctx, "notes.txt", "")
	assert.ErrorIs(t, err, tagging.ErrUnsupportedMedia)
	_, err = svc.IssueCredential(ctx, "cat.jpg", "application/pdf")
	assert.ErrorIs(t, err, tagging.ErrUnsupportedMedia)
	_, err = svc.IssueCredential(ctx, "cat", "")
	assert.ErrorIs(t, err, tagging.ErrUnsupportedMedia)
}

func TestQueryTagTagged(t *testing.T) {
	svc, _, cls, _ := newService(map[string][]upload.TagRecord{
		"uploads/cat.jpg": {{Key: "Owner", Value: "ann"}, {Key: "ImageTag", Value: "Cat"}},
	})
	defer closeService(t, svc)

	answer, err := svc.QueryTag(context.Background(), "cat.jpg")
	require.NoError(t, err)
	assert.False(t, answer.Duplicate)
	assert.False(t, answer.Pending)
	assert.Equal(t, "Cat", answer.Tag)
	assert.Equal(t, "s3://images/uploads/cat.jpg", answer.FilePath)
	assert.Zero(t, cls.Calls())
}

func TestQueryTagMissing(t *testing.T) {
	svc, _, _, _ := newService(map[string][]upload.TagRecord{})
	defer closeService(t, svc)

	_, err := svc.QueryTag(context.Background(), "ghost.jpg")
	assert.ErrorIs(t, err, tagging.ErrNotFound)
}

func TestQueryTagPendingEnriches(t *testing.T) {
	svc, store, cls, _ := newService(
		map[string][]upload.TagRecord{"uploads/cat.jpg": {}},
		tagging.Label{Name: "Cat", Confidence: 98},
		tagging.Label{Name: "Pet", Confidence: 91},
	)
	ctx := context.Background()

	answer, err := svc.QueryTag(ctx, "cat.jpg")
	require.NoError(t, err)
	assert.True(t, answer.Pending)
	assert.Empty(t, answer.Tags)

	_, err = svc.QueryTag(ctx, "cat.jpg")
	require.NoError(t, err)

	closeService(t, svc)
	assert.Equal(t, 1, cls.Calls())
	assert.Equal(t, []upload.TagRecord{{Key: "ImageTag", Value: "Cat"}}, store.tags("uploads/cat.jpg"))

	answer, err = svc.QueryTag(ctx, "cat.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Cat", answer.Tag)
}

func TestEnrichmentWithoutLabelsWritesNothing(t *testing.T) {
	svc, store, cls, _ := newService(map[string][]upload.TagRecord{"uploads/blank.png": {}})

	_, err := svc.QueryTag(context.Background(), "blank.png")
	require.NoError(t, err)
	closeService(t, svc)

	assert.Equal(t, 1, cls.Calls())
	assert.Zero(t, store.puts)
}

func TestClosedServiceSkipsEnrichment(t *testing.T) {
	svc, _, cls, _ := newService(map[string][]upload.TagRecord{"uploads/cat.jpg": {}}, tagging.Label{Name: "Cat"})
	closeService(t, svc)

	answer, err := svc.QueryTag(context.Background(), "cat.jpg")
	require.NoError(t, err)
	assert.True(t, answer.Pending)
	assert.Zero(t, cls.Calls())
}

func TestEnrichmentTakesLock(t *testing.T) {
	locker := &fakeLocker{}
	svc, store, cls, _ := newLockedService(locker, map[string][]upload.TagRecord{"uploads/cat.jpg": {}}, tagging.Label{Name: "Cat"})

	_, err := svc.QueryTag(context.Background(), "cat.jpg")
	require.NoError(t, err)
	closeService(t, svc)

	assert.Equal(t, 1, cls.Calls())
	assert.Equal(t, []string{"enrich:uploads/cat.jpg"}, locker.names)
	assert.Equal(t, 1, locker.released)
	assert.Equal(t, []upload.TagRecord{{Key: "ImageTag", Value: "Cat"}}, store.tags("uploads/cat.jpg"))
}

func TestEnrichmentSkippedWhenLockHeldElsewhere(t *testing.T) {
	locker := &fakeLocker{held: true}
	svc, store, cls, _ := newLockedService(locker, map[string][]upload.TagRecord{"uploads/cat.jpg": {}}, tagging.Label{Name: "Cat"})

	_, err := svc.QueryTag(context.Background(), "cat.jpg")
	require.NoError(t, err)
	closeService(t, svc)

	assert.Zero(t, cls.Calls())
	assert.Zero(t, store.puts)
}
