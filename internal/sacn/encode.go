package sacn

import "encoding/binary"

// EncodeOptions carries the per-source fields an E1.31 DMP packet needs
// beyond the channel data itself.
type EncodeOptions struct {
	CID        [16]byte
	SourceName string
	Priority   uint8
	Sequence   uint8
	Universe   uint16
}

// Encode builds a valid E1.31 root/framing/DMP packet carrying channels
// (up to E131MaxChannels) as universe opts.Universe. It is the inverse
// of Parse: every field Parse extracts, Encode places at the identical
// offset, so Parse(Encode(opts, channels)) round-trips exactly.
func Encode(opts EncodeOptions, channels []byte) []byte {
	channelCount := len(channels)
	if channelCount > E131MaxChannels {
		channelCount = E131MaxChannels
	}

	packetSize := E131HeaderSize + channelCount
	packet := make([]byte, packetSize)

	// Root layer
	packet[0] = 0x00
	packet[1] = 0x10 // preamble size

	copy(packet[4:16], ACNPacketIdentifier)

	rootLength := uint16(packetSize - 16)
	packet[16] = 0x70 | byte(rootLength>>8)
	packet[17] = byte(rootLength)

	binary.BigEndian.PutUint32(packet[18:22], E131RootVector)
	copy(packet[22:38], opts.CID[:])

	// Framing layer
	framingLength := uint16(packetSize - 38)
	packet[38] = 0x70 | byte(framingLength>>8)
	packet[39] = byte(framingLength)

	binary.BigEndian.PutUint32(packet[40:44], E131FramingVector)

	copy(packet[44:108], []byte(opts.SourceName))
	packet[108] = opts.Priority
	packet[111] = opts.Sequence
	binary.BigEndian.PutUint16(packet[113:115], opts.Universe)

	// DMP layer
	dmpLength := uint16(packetSize - 115)
	packet[115] = 0x70 | byte(dmpLength>>8)
	packet[116] = byte(dmpLength)

	packet[117] = E131DMPVector
	packet[118] = 0xa1 // address type & data type
	binary.BigEndian.PutUint16(packet[121:123], 1)

	propValCount := uint16(1 + channelCount)
	binary.BigEndian.PutUint16(packet[123:125], propValCount)

	packet[125] = 0x00 // DMX start code

	copy(packet[E131HeaderSize:], channels[:channelCount])

	return packet
}
