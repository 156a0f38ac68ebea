package capture

import (
	"context"
	"math"
	"time"
)

// EncodeOptions controls the synthetic DMX capture EncodeFrame builds.
// BitWidth is the number of 500ns sample-bits per DMX bit and must lie
// in [7.5, 8.5] to stay inside the decoder's tolerance window.
type EncodeOptions struct {
	BitWidth  float64
	BreakBits int
	MABBits   int
}

// DefaultEncodeOptions mirrors a clean, generously-timed DMX source:
// a break well past the 165-sample-bit minimum, a MAB well past the
// 15-sample-bit minimum, and a nominal 8 sample-bits per DMX bit.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{BitWidth: 8, BreakBits: 176, MABBits: 16}
}

// EncodeFrame renders one DMX universe (NULL start code, 512 channels)
// as an oversampled capture buffer: MSB-first bytes, mark = 1, space =
// 0, matching the convention internal/spidmx's edge tables assume. The
// buffer ends on the low run that begins the next break, so the last
// slot's stop bits are closed by a falling edge just as on a live line.
func EncodeFrame(channels [512]byte, opts EncodeOptions) []byte {
	var bits []bool

	appendConst(&bits, false, opts.BreakBits)
	appendConst(&bits, true, opts.MABBits)

	frame := make([]byte, 0, 513)
	frame = append(frame, 0x00) // NULL start code
	frame = append(frame, channels[:]...)

	for _, b := range frame {
		widths := bitWidths(11, opts.BitWidth)
		appendConst(&bits, false, widths[0]) // start bit
		for i := 0; i < 8; i++ {
			appendConst(&bits, (b>>uint(i))&1 == 1, widths[1+i])
		}
		appendConst(&bits, true, widths[9])  // stop bit 1
		appendConst(&bits, true, widths[10]) // stop bit 2
	}

	// Start of the next break: low up to the byte boundary plus one
	// whole byte.
	appendConst(&bits, false, 8+(8-len(bits)%8)%8)

	return packBits(bits)
}

func appendConst(bits *[]bool, value bool, count int) {
	for i := 0; i < count; i++ {
		*bits = append(*bits, value)
	}
}

// bitWidths distributes n integer sample-bit widths summing as closely
// as possible to n*w, alternating floor(w)/ceil(w) the way a fractional
// DMX-bit-to-sample-bit ratio (e.g. 7.5) actually arrives on the wire.
func bitWidths(n int, w float64) []int {
	widths := make([]int, n)
	cum := 0
	acc := 0.0
	for i := 0; i < n; i++ {
		acc += w
		want := int(math.Round(acc)) - cum
		widths[i] = want
		cum += want
	}
	return widths
}

// packBits packs MSB-first, padding any partial trailing byte with 1
// bits (idle-high), matching a real DMX line going quiet between
// frames.
func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	if rem := len(bits) % 8; rem != 0 {
		last := len(out) - 1
		for i := rem; i < 8; i++ {
			out[last] |= 1 << uint(7-i)
		}
	}
	return out
}

// Simulator is a Source that repeatedly encodes Frame into a synthetic
// capture stream, handing it back ChunkBytes at a time. It exists so
// cmd/spidmx-monitor's SPIDMX_SIMULATE mode and the decoder's round-trip
// tests can exercise the full capture->parser pipeline without real
// SPI hardware.
type Simulator struct {
	Frame      [512]byte
	Options    EncodeOptions
	ChunkBytes int

	buf []byte
	pos int
}

// NewSimulator builds a Simulator that will encode frame with opts,
// handing back chunkBytes per Next call.
func NewSimulator(frame [512]byte, opts EncodeOptions, chunkBytes int) *Simulator {
	return &Simulator{Frame: frame, Options: opts, ChunkBytes: chunkBytes}
}

// SetFrame replaces the channel values encoded by the next cycle. It
// does not affect a buffer already in flight.
func (s *Simulator) SetFrame(frame [512]byte) {
	s.Frame = frame
}

func (s *Simulator) Next(ctx context.Context) (Chunk, error) {
	select {
	case <-ctx.Done():
		return Chunk{}, ctx.Err()
	default:
	}

	if s.buf == nil || s.pos >= len(s.buf) {
		s.buf = EncodeFrame(s.Frame, s.Options)
		s.pos = 0
	}

	end := s.pos + s.ChunkBytes
	if end > len(s.buf) {
		end = len(s.buf)
	}
	data := s.buf[s.pos:end]
	s.pos = end

	return Chunk{Data: data, CapturedAt: time.Now()}, nil
}
