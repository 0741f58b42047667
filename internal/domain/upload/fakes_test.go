package upload_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/janhq/image-upload/internal/domain/upload"
)

type scriptedOracle struct {
	mu      sync.Mutex
	results []upload.OracleResult
	calls   int
	names   []string
}

// QueryTag returns the scripted results in order and repeats the last one.
func (o *scriptedOracle) QueryTag(_ context.Context, filename string) upload.OracleResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.names = append(o.names, filename)
	if len(o.results) == 0 {
		return upload.TagPending()
	}
	r := o.results[0]
	if len(o.results) > 1 {
		o.results = o.results[1:]
	}
	return r
}

func (o *scriptedOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// gate holds a fake call open until the test releases it.
type gate struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) pass() {
	if g == nil {
		return
	}
	g.once.Do(func() { close(g.entered) })
	<-g.release
}

func (g *gate) awaitEntered(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-g.entered:
	case <-ctx.Done():
		t.Fatal("call never started")
	}
}

func (g *gate) open() { close(g.release) }

type fakeIssuer struct {
	gate        *gate
	mu          sync.Mutex
	clock       clockwork.Clock
	err         error
	ttl         time.Duration
	keys        []string
	contentType string
}

func (f *fakeIssuer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

func (f *fakeIssuer) IssueWriteCredential(_ context.Context, key upload.StorageKey, contentType string) (upload.WriteCredential, error) {
	f.gate.pass()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key.String())
	f.contentType = contentType
	if f.err != nil {
		return upload.WriteCredential{}, f.err
	}
	ttl := f.ttl
	if ttl == 0 {
		ttl = time.Hour
	}
	return upload.WriteCredential{
		URL:       "https://bucket.example.com/" + key.String() + "?X-Amz-Signature=abc",
		Key:       key,
		ExpiresAt: f.clock.Now().Add(ttl),
	}, nil
}

type fakeTransfer struct {
	gate        *gate
	mu          sync.Mutex
	err         error
	calls       int
	url         string
	contentType string
}

func (f *fakeTransfer) Transfer(_ context.Context, cred upload.WriteCredential, _ upload.Content, contentType string) (upload.TransferOutcome, error) {
	f.gate.pass()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.url = cred.URL
	f.contentType = contentType
	if f.err != nil {
		var uerr *upload.Error
		if errors.As(f.err, &uerr) {
			return upload.TransferOutcome{StatusCode: uerr.StatusCode}, f.err
		}
		return upload.TransferOutcome{}, f.err
	}
	return upload.TransferOutcome{StatusCode: 200}, nil
}

func (f *fakeTransfer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []upload.Status
}

func (r *statusRecorder) Publish(s upload.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *statusRecorder) All() []upload.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]upload.Status(nil), r.statuses...)
}

func (r *statusRecorder) Terminal() []upload.Status {
	var out []upload.Status
	for _, s := range r.All() {
		if s.State.IsTerminal() {
			out = append(out, s)
		}
	}
	return out
}

func (r *statusRecorder) Last() upload.Status {
	all := r.All()
	if len(all) == 0 {
		return upload.Status{}
	}
	return all[len(all)-1]
}

var catTags = []upload.TagRecord{{Key: "ImageTag", Value: "Cat"}}

func jpegRequest(name string) *upload.Request {
	return &upload.Request{
		Content:  upload.BytesContent([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}),
		Filename: name,
		MimeType: "image/jpeg",
	}
}
