package cumask

import (
	"strconv"
	"strings"
)

// FormatBits renders the set bit positions of a mask as compact
// ranges, e.g. 0b1011011 -> "0-1,3-4,6".
func FormatBits(mask uint64) string {
	if mask == 0 {
		return ""
	}

	var parts []string
	start := -1
	prev := -1
	for bit := 0; bit < 64; bit++ {
		if mask&(1<<uint(bit)) == 0 {
			continue
		}
		if start == -1 {
			start = bit
			prev = bit
			continue
		}
		if bit == prev+1 {
			prev = bit
			continue
		}
		parts = append(parts, formatRange(start, prev))
		start = bit
		prev = bit
	}
	parts = append(parts, formatRange(start, prev))

	return strings.Join(parts, ",")
}

func formatRange(start, end int) string {
	if start == end {
		return strconv.Itoa(start)
	}
	return strconv.Itoa(start) + "-" + strconv.Itoa(end)
}
