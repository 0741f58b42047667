package statusboard

import "github.com/janhq/image-upload/internal/domain/upload"

// Fanout delivers each status to every sink in order.
type Fanout []upload.StatusSink

func (f Fanout) Publish(status upload.Status) {
	for _, sink := range f {
		if sink != nil {
			sink.Publish(status)
		}
	}
}
