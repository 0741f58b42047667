package statusboard_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/image-upload/internal/domain/upload"
	"github.com/janhq/image-upload/internal/infrastructure/statusboard"
)

func status(id string, state upload.State, sev upload.Severity, msg string) upload.Status {
	return upload.Status{UploadID: id, State: state, Severity: sev, Message: msg, Visible: true}
}

func TestBoardKeepsLatestOnly(t *testing.T) {
	b := statusboard.NewBoard()
	b.Publish(status("upl_a", upload.StateIssuing, upload.SeverityInfo, "Processing your image..."))
	b.Publish(status("upl_b", upload.StateIssuing, upload.SeverityInfo, "Processing your image..."))
	b.Publish(status("upl_a", upload.StateTagged, upload.SeveritySuccess, "done"))

	got, ok := b.Latest("upl_a")
	require.True(t, ok)
	assert.Equal(t, "done", got.Message)

	_, ok = b.Latest("upl_c")
	assert.False(t, ok)
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	term := statusboard.NewTerminal(&buf, true)

	term.For("cat.jpg").Publish(status("upl_a", upload.StateFailed, upload.SeverityError, "S3 upload failed with status: 403"))
	hidden := status("upl_a", upload.StateFailed, upload.SeverityError, "hidden")
	hidden.Visible = false
	term.Publish(hidden)

	assert.Equal(t, "cat.jpg [error] S3 upload failed with status: 403\n", buf.String())
}

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (r *recordingPublisher) Publish(subject string, data []byte) error {
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, data)
	return r.err
}

func TestNATSPublishesJSONPerUpload(t *testing.T) {
	pub := &recordingPublisher{}
	n := statusboard.NewNATSWithPublisher(pub, "uploads.status.", zerolog.Nop())

	n.Publish(status("upl_a", upload.StateTagged, upload.SeveritySuccess, "tagged"))
	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "uploads.status.upl_a", pub.subjects[0])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, "upl_a", decoded["upload_id"])
	assert.Equal(t, "tagged", decoded["state"])
	assert.Equal(t, "success", decoded["severity"])
	assert.Equal(t, true, decoded["visible"])

	pub.err = errors.New("connection closed")
	assert.NotPanics(t, func() {
		n.Publish(status("upl_a", upload.StateTagged, upload.SeveritySuccess, "again"))
	})
	n.Close()
}

func TestFanout(t *testing.T) {
	b1, b2 := statusboard.NewBoard(), statusboard.NewBoard()
	statusboard.Fanout{b1, nil, b2}.Publish(status("upl_a", upload.StateIssuing, upload.SeverityInfo, "x"))

	_, ok1 := b1.Latest("upl_a")
	_, ok2 := b2.Latest("upl_a")
	assert.True(t, ok1)
	assert.True(t, ok2)
}
