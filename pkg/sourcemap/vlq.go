package sourcemap

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

const (
	vlqBaseShift       = 5
	vlqBase            = 1 << vlqBaseShift
	vlqBaseMask        = vlqBase - 1
	vlqContinuationBit = vlqBase
	base64Chars        = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

var ErrInvalidMappings = errors.New("invalid source map mappings")

var base64Index = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(base64Chars); i++ {
		idx[base64Chars[i]] = int8(i)
	}
	return idx
}()

func writeVLQ(sb *strings.Builder, value int) {
	v := value << 1
	if value < 0 {
		v = (-value << 1) | 1
	}
	for {
		digit := v & vlqBaseMask
		v >>= vlqBaseShift
		if v > 0 {
			digit |= vlqContinuationBit
		}
		sb.WriteByte(base64Chars[digit])
		if v == 0 {
			return
		}
	}
}

// readVLQ decodes one value starting at s[i] and returns it with the index
// just past it.
func readVLQ(s string, i int) (int, int, error) {
	result, shift := 0, 0
	for {
		if i >= len(s) {
			return 0, i, errors.Errorf("%w: truncated value", ErrInvalidMappings)
		}
		digit := base64Index[s[i]]
		if digit < 0 {
			return 0, i, errors.Errorf("%w: unexpected %q at %d", ErrInvalidMappings, s[i], i)
		}
		i++
		result += int(digit&vlqBaseMask) << shift
		if digit&vlqContinuationBit == 0 {
			break
		}
		shift += vlqBaseShift
		if shift > 60 {
			return 0, i, errors.Errorf("%w: value overflow", ErrInvalidMappings)
		}
	}
	if result&1 == 1 {
		return -(result >> 1), i, nil
	}
	return result >> 1, i, nil
}
