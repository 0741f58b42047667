package tagging

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/janhq/image-upload/internal/config"
	"github.com/janhq/image-upload/internal/domain/upload"
	"github.com/janhq/image-upload/internal/infrastructure/metrics"
)

// Ledger remembers duplicate writes between credential issue and the first tag query.
// A record is reported once; the query that reports it clears it.
type Ledger interface {
	Record(ctx context.Context, rec DuplicateRecord) error
	Lookup(ctx context.Context, key string) (DuplicateRecord, bool, error)
	Clear(ctx context.Context, key string) error
}

// Storage defines the object store operations needed by the service.
type Storage interface {
	Bucket() string
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, time.Time, error)
	Exists(ctx context.Context, key string) (bool, error)
	GetTags(ctx context.Context, key string) ([]upload.TagRecord, error)
	PutTags(ctx context.Context, key string, tags []upload.TagRecord) error
}

// Classifier labels a stored image.
type Classifier interface {
	DetectLabels(ctx context.Context, bucket, key string) ([]Label, error)
}

// Locker guards enrichment of one key across service replicas.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (unlock func(), err error)
}

// recentEnrichments bounds how many keys the cooldown remembers.
const recentEnrichments = 4096

// Service issues write credentials with duplicate detection, answers tag queries and
// tags untagged objects in the background.
type Service struct {
	cfg        *config.Config
	ledger     Ledger
	storage    Storage
	classifier Classifier
	locker     Locker
	log        zerolog.Logger
	tracer     trace.Tracer

	flight  singleflight.Group
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
	recent *lru.Cache[string, time.Time]
}

// NewService wires the service. classifier may be nil, in which case nothing is enriched.
// locker may be nil when a single replica runs.
func NewService(cfg *config.Config, ledger Ledger, storage Storage, classifier Classifier, locker Locker, log zerolog.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	// lru.New only fails for a non-positive size.
	recent, _ := lru.New[string, time.Time](recentEnrichments)
	return &Service{
		cfg:        cfg,
		ledger:     ledger,
		storage:    storage,
		classifier: classifier,
		locker:     locker,
		log:        log.With().Str("component", "tagging-service").Logger(),
		tracer:     otel.Tracer("github.com/janhq/image-upload/tagging"),
		baseCtx:    ctx,
		cancel:     cancel,
		recent:     recent,
	}
}

// IssueCredential presigns a PUT for prefix+filename. If the key already holds an object,
// its current tags are recorded as a duplicate before the new write replaces them.
func (s *Service) IssueCredential(ctx context.Context, filename, contentType string) (*Credential, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	ct, err := s.resolveContentType(filename, contentType)
	if err != nil {
		metrics.RecordCredential(contentType, "rejected")
		return nil, err
	}
	key := s.cfg.S3KeyPrefix + filename

	ctx, span := s.tracer.Start(ctx, "tagging.issue_credential", trace.WithAttributes(attribute.String("upload.key", key)))
	defer span.End()

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "head object")
		metrics.RecordCredential(ct, "error")
		return nil, err
	}
	if exists {
		s.recordDuplicate(ctx, key)
	} else if err := s.ledger.Clear(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("clear duplicate record")
	}

	url, expiresAt, err := s.storage.PresignPut(ctx, key, ct, s.cfg.PresignTTL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "presign")
		metrics.RecordCredential(ct, "error")
		return nil, err
	}
	metrics.RecordCredential(ct, "success")
	s.log.Info().Str("key", key).Str("content_type", ct).Bool("duplicate", exists).Time("expires_at", expiresAt).Msg("write credential issued")

	return &Credential{URL: url, Key: key, ContentType: ct, ExpiresAt: expiresAt}, nil
}

// QueryTag reports duplicate status or the object's tags. An untagged object is queued
// for enrichment and reported as pending.
func (s *Service) QueryTag(ctx context.Context, filename string) (*TagAnswer, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	key := s.cfg.S3KeyPrefix + filename
	filePath := fmt.Sprintf("s3://%s/%s", s.storage.Bucket(), key)

	ctx, span := s.tracer.Start(ctx, "tagging.query_tag", trace.WithAttributes(attribute.String("upload.key", key)))
	defer span.End()

	rec, ok, err := s.ledger.Lookup(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("duplicate lookup failed")
	}
	if ok {
		metrics.RecordTagQuery("duplicate")
		if err := s.ledger.Clear(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("clear duplicate record")
		}
		// The overwriting PUT dropped the old tags; make sure the new object gets some.
		s.scheduleEnrichment(key)
		return &TagAnswer{
			Duplicate:   true,
			HasTags:     len(rec.Tags) > 0,
			Tags:        rec.Tags,
			OriginalKey: rec.Key,
			FilePath:    filePath,
		}, nil
	}

	tags, err := s.storage.GetTags(ctx, key)
	if errors.Is(err, ErrNotFound) {
		metrics.RecordTagQuery("not_found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get tags")
		metrics.RecordTagQuery("error")
		return nil, err
	}
	if len(tags) > 0 {
		metrics.RecordTagQuery("tagged")
		return &TagAnswer{
			HasTags:  true,
			Tags:     tags,
			Tag:      s.primaryTag(tags),
			FilePath: filePath,
		}, nil
	}

	metrics.RecordTagQuery("pending")
	s.scheduleEnrichment(key)
	return &TagAnswer{FilePath: filePath, Pending: true}, nil
}

// Close stops accepting enrichment jobs and waits for running ones until ctx ends.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Service) recordDuplicate(ctx context.Context, key string) {
	tags, err := s.storage.GetTags(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Warn().Err(err).Str("key", key).Msg("snapshot tags of existing object")
	}
	rec := DuplicateRecord{Key: key, Tags: tags, DetectedAt: time.Now().UTC()}
	if err := s.ledger.Record(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("record duplicate")
		return
	}
	metrics.RecordDuplicate(len(tags) > 0)
	s.log.Info().Str("key", key).Int("tags", len(tags)).Msg("existing object will be overwritten")
}

func (s *Service) scheduleEnrichment(key string) {
	if s.classifier == nil || !s.cfg.ClassifierEnabled {
		return
	}
	now := time.Now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if last, ok := s.recent.Get(key); ok && now.Sub(last) < s.cfg.EnrichCooldown {
		s.mu.Unlock()
		return
	}
	s.recent.Add(key, now)
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		_, _, _ = s.flight.Do(key, func() (any, error) {
			return nil, s.enrich(key)
		})
	}()
}

func (s *Service) enrich(key string) error {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.EnrichTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "tagging.enrich", trace.WithAttributes(attribute.String("upload.key", key)))
	defer span.End()

	log := s.log.With().Str("key", key).Logger()

	if s.locker != nil {
		unlock, err := s.locker.TryLock(ctx, "enrich:"+key, s.cfg.EnrichTimeout)
		if errors.Is(err, ErrLocked) {
			metrics.RecordEnrichment("skipped")
			log.Debug().Msg("enrichment running on another replica")
			return nil
		}
		if err != nil {
			metrics.RecordEnrichment("error")
			log.Warn().Err(err).Msg("acquire enrichment lock")
			return err
		}
		defer unlock()
	}

	existing, err := s.storage.GetTags(ctx, key)
	if err != nil {
		metrics.RecordEnrichment("error")
		log.Warn().Err(err).Msg("read tags before enrichment")
		return err
	}
	if len(existing) > 0 {
		metrics.RecordEnrichment("skipped")
		return nil
	}

	labels, err := s.classifier.DetectLabels(ctx, s.storage.Bucket(), key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "detect labels")
		metrics.RecordEnrichment("error")
		log.Error().Err(err).Msg("label detection failed")
		return err
	}
	if len(labels) == 0 {
		metrics.RecordEnrichment("no_labels")
		log.Info().Msg("no labels detected")
		return nil
	}

	tags := []upload.TagRecord{{Key: s.cfg.TagKey, Value: labels[0].Name}}
	if err := s.storage.PutTags(ctx, key, tags); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put tags")
		metrics.RecordEnrichment("error")
		log.Error().Err(err).Msg("write tags failed")
		return err
	}
	metrics.RecordEnrichment("success")
	log.Info().Str("tag", labels[0].Name).Float32("confidence", labels[0].Confidence).Msg("object tagged")
	return nil
}

func (s *Service) primaryTag(tags []upload.TagRecord) string {
	for _, t := range tags {
		if t.Key == s.cfg.TagKey {
			return t.Value
		}
	}
	return tags[0].Value
}

func (s *Service) resolveContentType(filename, declared string) (string, error) {
	ct := strings.TrimSpace(declared)
	if ct == "" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	if ct == "" {
		return "", fmt.Errorf("%w: cannot infer content type of %s", ErrUnsupportedMedia, filename)
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, ct)
	}
	// Canonicalize aliases such as image/jpg.
	if known := mimetype.Lookup(mediaType); known != nil {
		if canonical, _, err := mime.ParseMediaType(known.String()); err == nil {
			mediaType = canonical
		}
	}
	mediaType = strings.ToLower(mediaType)
	if len(s.cfg.AllowedMimeTypes) > 0 && !slices.Contains(s.cfg.AllowedMimeTypes, mediaType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, mediaType)
	}
	return mediaType, nil
}

// ValidateFilename rejects names that would escape the key prefix.
func ValidateFilename(filename string) error {
	name := strings.TrimSpace(filename)
	switch {
	case name == "":
		return fmt.Errorf("%w: filename is required", ErrInvalidFilename)
	case name != filename:
		return fmt.Errorf("%w: surrounding whitespace", ErrInvalidFilename)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: path separators are not allowed", ErrInvalidFilename)
	case len(name) > 512:
		return fmt.Errorf("%w: name too long", ErrInvalidFilename)
	}
	return nil
}
