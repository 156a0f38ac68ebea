// Package capture supplies the byte-oversampled DMX chunks that
// internal/spidmx decodes. It defines the minimal source contract the
// decoder's caller needs and two implementations: a real SPI-bus
// poller and a synthetic frame encoder for development and tests.
package capture

import (
	"context"
	"time"
)

// Chunk is one buffer handed to spidmx.Parser.Parse.
type Chunk struct {
	Data       []byte
	CapturedAt time.Time
}

// Source produces successive capture chunks. Next blocks until a chunk
// is available, ctx is cancelled, or the source is exhausted.
type Source interface {
	Next(ctx context.Context) (Chunk, error)
}
