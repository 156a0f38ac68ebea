// Package spidmx implements a DMX512 signal recovery decoder for an
// oversampled bit-serial capture of a raw DMX line (as produced by a SPI
// master whose MISO pin is wired to the DMX receiver). It reconstructs
// one 512-channel frame at a time into a caller-owned sink and signals
// completion through a niladic callback.
package spidmx

// State is one step of the bit-clock recovery / framing state machine.
// The ordering matters: Parser.Parse treats any state from
// StateInDataStartbit onward as "inside the data region" when deciding
// whether to fire a completion signal at end of chunk.
type State int

const (
	StateWaitForBreak State = iota
	StateInBreak
	StateWaitForMAB
	StateInMAB
	StateInStartcode
	StateInStartcodeStopbits
	StateInDataStartbit
	StateInDataBits
	StateInDataStopbits
)

func (s State) String() string {
	switch s {
	case StateWaitForBreak:
		return "WAIT_FOR_BREAK"
	case StateInBreak:
		return "IN_BREAK"
	case StateWaitForMAB:
		return "WAIT_FOR_MAB"
	case StateInMAB:
		return "IN_MAB"
	case StateInStartcode:
		return "IN_STARTCODE"
	case StateInStartcodeStopbits:
		return "IN_STARTCODE_STOPBITS"
	case StateInDataStartbit:
		return "IN_DATA_STARTBIT"
	case StateInDataBits:
		return "IN_DATA_BITS"
	case StateInDataStopbits:
		return "IN_DATA_STOPBITS"
	default:
		return "UNKNOWN"
	}
}

// Sink is the externally owned 512-slot DMX frame the parser writes
// decoded channel values into. Index is 0..511.
type Sink interface {
	Set(index int, value uint8)
	SetRange(start int, value uint8, length int)
}

// CompletionFunc is invoked with no arguments each time a frame has been
// fully decoded, valid or truncated by the early-termination shortcut.
// It must not call Parse re-entrantly on the same Parser.
type CompletionFunc func()

// noEdge is the sentinel returned by fallingEdge/risingEdge when a byte
// has more than one transition and is rejected as noise.
const noEdge = -1

// Timing tolerance constants, derived from a nominal 2MHz sample clock
// against DMX512's 245-255kbit/s signalling rate (7.5-8.5 sample-bits
// per 4us DMX bit).
const (
	breakMinSampleBits    = 165 // 88us / 4us * 7.5
	mabMinSampleBits      = 15  // 8us / 4us * 7.5
	startcodeLowWindowLo  = 67  // 9 * 7.5
	startcodeLowWindowHi  = 77  // 9 * 8.5
	stopbitsMinSampleBits = 15  // same derivation as MAB
	earlyTerminationBound = 11  // not derived in the source; preserved verbatim
)
