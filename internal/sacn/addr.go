package sacn

import "fmt"

// MulticastAddressForUniverse returns the sACN multicast group address
// for a universe: 239.255.{high}.{low} where universe = high*256+low.
func MulticastAddressForUniverse(universe uint16) string {
	high := (universe >> 8) & 0xFF
	low := universe & 0xFF
	return fmt.Sprintf("239.255.%d.%d", high, low)
}
