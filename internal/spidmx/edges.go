package spidmx

// fallingEdge recognises an MSB-first byte of the shape 1^k 0^(8-k),
// k in 0..7, and returns the number of trailing zero bits (8-k). Any
// byte with more than one transition returns noEdge; this is the
// decoder's sole noise-rejection mechanism for a break-ending or
// stop-bit-ending edge.
func fallingEdge(b byte) int {
	switch b {
	case 0b11111110:
		return 1
	case 0b11111100:
		return 2
	case 0b11111000:
		return 3
	case 0b11110000:
		return 4
	case 0b11100000:
		return 5
	case 0b11000000:
		return 6
	case 0b10000000:
		return 7
	case 0b00000000:
		return 8
	default:
		return noEdge
	}
}

// risingEdge recognises an MSB-first byte of the shape 0^k 1^(8-k),
// k in 0..7, and returns the number of trailing one bits (8-k). Any
// byte with more than one transition returns noEdge.
func risingEdge(b byte) int {
	switch b {
	case 0b00000001:
		return 1
	case 0b00000011:
		return 2
	case 0b00000111:
		return 3
	case 0b00001111:
		return 4
	case 0b00011111:
		return 5
	case 0b00111111:
		return 6
	case 0b01111111:
		return 7
	case 0b11111111:
		return 8
	default:
		return noEdge
	}
}
