package spidmx

// Parser recovers a DMX512 frame from a stream of oversampled capture
// chunks. It is single-threaded and re-entrant across chunks only in the
// sense that a fresh Parse call always starts from StateWaitForBreak;
// nothing about a channel in progress survives a chunk boundary (see
// DESIGN.md for the open question this resolves).
type Parser struct {
	state State

	chunk         []byte
	chunkBitcount int
	stateBitcount int

	samplingPosition int
	currentDMXValue  byte
	channelCount     int // -1 = not yet writing a channel this frame

	sink       Sink
	onComplete CompletionFunc
}

// NewParser binds a Parser to its sink and completion callback. Neither
// reference is copied or owned; both must outlive every call to Parse.
// onComplete may be nil.
func NewParser(sink Sink, onComplete CompletionFunc) *Parser {
	return &Parser{
		state:        StateWaitForBreak,
		channelCount: -1,
		sink:         sink,
		onComplete:   onComplete,
	}
}

// State reports the parser's current position in the framing state
// machine. Intended for observability (relock counting, TUI display),
// never for control flow by a caller.
func (p *Parser) State() State {
	return p.state
}

// ChannelCount reports the highest channel index written so far in the
// current frame, or -1 before the first channel of a frame is written.
// A completion callback observing anything other than 511 here is
// reporting a frame a chunk boundary or relock cut short.
func (p *Parser) ChannelCount() int {
	return p.channelCount
}

// changeState transitions the state machine and resets the per-state
// bit counter. Entering StateWaitForMAB always resets channelCount,
// which is the one place a new frame's channel index is established.
func (p *Parser) changeState(next State) {
	p.state = next
	p.stateBitcount = 0
	if next == StateWaitForMAB {
		p.channelCount = -1
	}
}

func (p *Parser) fireComplete() {
	if p.onComplete != nil {
		p.onComplete()
	}
}

// Parse consumes chunk in its entirety. It always begins at
// StateWaitForBreak regardless of how the previous call ended: state is
// not preserved across chunks. Malformed timing or illegal edges never
// return an error; the machine silently resynchronises on the next
// break. A completion signal fires once whenever the machine has
// reached or passed the data region by the time the chunk is exhausted.
func (p *Parser) Parse(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	p.chunk = chunk
	p.chunkBitcount = 0
	p.changeState(StateWaitForBreak)

	for p.chunkBitcount < len(p.chunk) {
		switch p.state {
		case StateWaitForBreak:
			p.waitForBreak()
		case StateInBreak:
			p.inBreak()
		case StateWaitForMAB:
			p.waitForMAB()
		case StateInMAB:
			p.inMAB()
		case StateInStartcode:
			p.inStartcode()
		case StateInStartcodeStopbits:
			p.inStartcodeStopbits()
		case StateInDataStartbit:
			p.inDataStartbit()
		case StateInDataBits:
			if p.stateBitcount < 7 {
				p.inDataBits()
			} else {
				p.inLastDataBit()
			}
		case StateInDataStopbits:
			p.inDataStopbits()
		default:
			p.chunkBitcount++
		}
	}

	if p.state >= StateInDataStartbit {
		p.fireComplete()
	}
}

func (p *Parser) waitForBreak() {
	zeros := fallingEdge(p.chunk[p.chunkBitcount])
	if zeros > 0 {
		p.changeState(StateInBreak)
		p.stateBitcount = zeros
	}
	p.chunkBitcount++
}

func (p *Parser) inBreak() {
	if p.chunk[p.chunkBitcount] == 0x00 {
		p.stateBitcount += 8
		if p.stateBitcount > breakMinSampleBits {
			p.changeState(StateWaitForMAB)
		}
	} else {
		p.changeState(StateWaitForBreak)
	}
	p.chunkBitcount++
}

func (p *Parser) waitForMAB() {
	b := p.chunk[p.chunkBitcount]
	if b != 0x00 {
		ones := risingEdge(b)
		if ones > 0 {
			p.changeState(StateInMAB)
			p.stateBitcount = ones
		} else {
			p.changeState(StateWaitForBreak)
		}
	}
	p.chunkBitcount++
}

func (p *Parser) inMAB() {
	b := p.chunk[p.chunkBitcount]
	if b == 0xFF {
		p.stateBitcount += 8
	} else {
		zeros := fallingEdge(b)
		ones := 8 - zeros
		if zeros < 0 || p.stateBitcount+ones <= mabMinSampleBits {
			p.changeState(StateWaitForBreak)
			p.chunkBitcount++
			return
		}
		p.changeState(StateInStartcode)
		p.stateBitcount = zeros
	}
	p.chunkBitcount++
}

func (p *Parser) inStartcode() {
	b := p.chunk[p.chunkBitcount]
	if b == 0x00 {
		p.stateBitcount += 8
	} else {
		ones := risingEdge(b)
		zeros := 8 - ones
		p.stateBitcount += zeros
		if zeros < 0 || p.stateBitcount <= startcodeLowWindowLo || p.stateBitcount >= startcodeLowWindowHi {
			p.changeState(StateWaitForBreak)
			p.chunkBitcount++
			return
		}
		p.changeState(StateInStartcodeStopbits)
		p.stateBitcount = ones
	}
	p.chunkBitcount++
}

func (p *Parser) inStartcodeStopbits() {
	b := p.chunk[p.chunkBitcount]
	if b == 0xFF {
		p.stateBitcount += 8
	} else {
		zeros := fallingEdge(b)
		ones := 8 - zeros
		if zeros < 0 || p.stateBitcount+ones <= stopbitsMinSampleBits {
			p.changeState(StateWaitForBreak)
			p.chunkBitcount++
			return
		}
		p.changeState(StateInDataStartbit)
		p.stateBitcount = zeros
	}
	p.chunkBitcount++
}

// inDataStartbit locates the sample position where the first data bit
// of a channel centres, so every later bit of this channel is sampled
// at the same sub-byte offset. The >=4 / <4 split exists because the
// falling edge that started the bit may have landed in the
// byte just consumed, in which case that byte is re-examined rather
// than advancing the cursor.
func (p *Parser) inDataStartbit() {
	b := p.chunk[p.chunkBitcount]
	var samplingPosition int
	if p.stateBitcount >= 4 {
		b = p.chunk[p.chunkBitcount-1]
		samplingPosition = p.stateBitcount - 4
	} else {
		p.chunkBitcount++
		samplingPosition = p.stateBitcount + 8 - 4
	}

	if b&(1<<uint(samplingPosition)) != 0 {
		p.changeState(StateWaitForBreak)
		return
	}

	p.samplingPosition = samplingPosition
	p.currentDMXValue = 0x00
	p.changeState(StateInDataBits)
}

func (p *Parser) inDataBits() {
	b := p.chunk[p.chunkBitcount]
	if b&(1<<uint(p.samplingPosition)) != 0 {
		p.currentDMXValue |= 1 << uint(p.stateBitcount)
	}
	p.stateBitcount++
	p.chunkBitcount++
}

func (p *Parser) inLastDataBit() {
	b := p.chunk[p.chunkBitcount]
	if b&(1<<uint(p.samplingPosition)) != 0 {
		p.currentDMXValue |= 1 << 7
	}

	p.changeState(StateInDataStopbits)
	// Stop-bit counting starts from the sample point, not the byte
	// boundary: the remaining bits of the current byte are stop bits
	// only if the sample was in the back half of it.
	if p.samplingPosition >= 4 {
		p.stateBitcount = p.samplingPosition
	} else {
		p.stateBitcount = p.samplingPosition + 8
		p.chunkBitcount++
	}
	p.chunkBitcount++
}

func (p *Parser) inDataStopbits() {
	b := p.chunk[p.chunkBitcount]

	switch {
	case b == 0xFF:
		p.stateBitcount += 8

	case b == 0x00 && p.stateBitcount <= earlyTerminationBound && p.currentDMXValue == 0x00:
		// A fully-zero byte this early can only be the start of the
		// next break: the "channel" just decoded was never one. Every
		// remaining slot is definitely zero.
		p.sink.SetRange(p.channelCount+1, 0x00, 511-p.channelCount)
		p.channelCount = 511
		p.fireComplete()
		p.changeState(StateInBreak)
		p.stateBitcount = 10 * 8

	default:
		zeros := fallingEdge(b)
		ones := 8 - zeros

		if zeros < 0 {
			// Not a falling edge - the only other boundary this repo
			// accepts is the exact seven-zero-one-one shape (0x01).
			ones = risingEdge(b)
			zeros = 8 - ones
			if ones != 1 {
				p.fireComplete()
				p.changeState(StateWaitForBreak)
				p.chunkBitcount++
				return
			}
		}

		if p.stateBitcount+ones <= stopbitsMinSampleBits {
			p.fireComplete()
			p.changeState(StateWaitForBreak)
			p.chunkBitcount++
			return
		}

		p.channelCount++
		p.sink.Set(p.channelCount, p.currentDMXValue)

		if p.channelCount == 511 {
			p.fireComplete()
			p.changeState(StateInBreak)
		} else {
			p.changeState(StateInDataStartbit)
		}
		p.stateBitcount = zeros
	}

	p.chunkBitcount++
}
