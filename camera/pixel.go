package camera

import (
	"fmt"
	"strings"
)

// PixelFormat is a GenICam PFNC pixel format code
type PixelFormat uint32

// the formats this package knows the size of
const (
	Mono8    PixelFormat = 0x01080001
	Mono16   PixelFormat = 0x01100007
	BayerRG8 PixelFormat = 0x01080009
	RGB8     PixelFormat = 0x02180014
)

var pixelFormatNames = map[PixelFormat]string{
	Mono8:    "Mono8",
	Mono16:   "Mono16",
	BayerRG8: "BayerRG8",
	RGB8:     "RGB8",
}

func (p PixelFormat) String() string {
	if s, ok := pixelFormatNames[p]; ok {
		return s
	}
	return fmt.Sprintf("PixelFormat(0x%08x)", uint32(p))
}

// BytesPerPixel is the storage size of one pixel.  The effective bits per
// pixel are encoded in bits 16-23 of a PFNC code.
func (p PixelFormat) BytesPerPixel() int {
	bits := int(p>>16) & 0xff
	return (bits + 7) / 8
}

// ParsePixelFormat converts a PFNC name such as "Mono8" to its code.
// The comparison is case-insensitive.
func ParsePixelFormat(s string) (PixelFormat, error) {
	for k, v := range pixelFormatNames {
		if strings.EqualFold(v, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown pixel format %q", s)
}
