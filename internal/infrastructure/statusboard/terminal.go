package statusboard

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/janhq/image-upload/internal/domain/upload"
)

// Terminal prints one coloured line per visible status.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	colors map[upload.Severity]*color.Color
}

// NewTerminal writes to out. Colour follows fatih/color's detection unless noColor is set.
func NewTerminal(out io.Writer, noColor bool) *Terminal {
	colors := map[upload.Severity]*color.Color{
		upload.SeveritySuccess: color.New(color.FgGreen),
		upload.SeverityError:   color.New(color.FgRed, color.Bold),
		upload.SeverityWarning: color.New(color.FgYellow),
		upload.SeverityInfo:    color.New(color.FgCyan),
	}
	if noColor {
		for _, c := range colors {
			c.DisableColor()
		}
	}
	return &Terminal{out: out, colors: colors}
}

// Publish implements upload.StatusSink without a label.
func (t *Terminal) Publish(status upload.Status) {
	t.write("", status)
}

// For returns a sink that prefixes every line with label, typically the file name.
func (t *Terminal) For(label string) upload.StatusSink {
	return upload.SinkFunc(func(status upload.Status) {
		t.write(label, status)
	})
}

func (t *Terminal) write(label string, status upload.Status) {
	if !status.Visible {
		return
	}
	c, ok := t.colors[status.Severity]
	if !ok {
		c = t.colors[upload.SeverityInfo]
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if label != "" {
		fmt.Fprintf(t.out, "%s ", label)
	}
	c.Fprintf(t.out, "[%s]", status.Severity)
	fmt.Fprintf(t.out, " %s\n", status.Message)
}
