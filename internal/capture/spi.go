package capture

import (
	"context"
	"fmt"
	"time"
)

// SPIHandle is a shareable SPI bus transfer, modeled on the generic
// "open a handle, transfer, close" contract a platform SPI driver
// exposes. This package only depends on the interface: plugging a real
// kernel SPI backend in is the external collaborator the decoder's
// specification keeps out of scope.
type SPIHandle interface {
	// Xfer clocks out length don't-care bytes and returns the bytes
	// sampled back on MISO during that transfer.
	Xfer(ctx context.Context, length int) ([]byte, error)
	Close() error
}

// Poller reads fixed-size chunks from a real SPI handle on an interval.
// Each chunk is one Xfer of ChunkBytes length; the DMX receiver ties the
// MISO line directly to the bus so every sampled byte is meaningful
// regardless of what the master clocked out.
type Poller struct {
	Handle     SPIHandle
	ChunkBytes int
}

// NewPoller constructs a Poller reading chunkBytes at a time from
// handle. A typical DMX frame at the tightest documented timing needs
// on the order of a few thousand sample-bytes; chunkBytes is left to
// the caller so it can be tuned to the platform's SPI transfer limits.
func NewPoller(handle SPIHandle, chunkBytes int) *Poller {
	return &Poller{Handle: handle, ChunkBytes: chunkBytes}
}

func (p *Poller) Next(ctx context.Context) (Chunk, error) {
	data, err := p.Handle.Xfer(ctx, p.ChunkBytes)
	if err != nil {
		return Chunk{}, fmt.Errorf("spi transfer: %w", err)
	}
	return Chunk{Data: data, CapturedAt: time.Now()}, nil
}
