package audio

import (
	"encoding/binary"
	"math"
)

// RMS returns the root-mean-square amplitude of block, reading each sample
// as a little-endian signed integer of width bytes. A trailing partial
// sample is ignored. An empty block, or an unsupported width, yields 0.
func RMS(block []byte, width int) int {
	if width < 1 || width > 4 {
		return 0
	}
	n := len(block) / width
	if n == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		v := float64(Sample(block[i*width:], width))
		sum += v * v
	}

	return int(math.Sqrt(sum / float64(n)))
}

// Sample decodes the signed little-endian sample at the start of b.
func Sample(b []byte, width int) int {
	switch width {
	case 1:
		return int(int8(b[0]))
	case 2:
		return int(int16(binary.LittleEndian.Uint16(b)))
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xffffff
		}
		return int(v)
	case 4:
		return int(int32(binary.LittleEndian.Uint32(b)))
	}
	return 0
}

// PutSample encodes v as a little-endian sample of width bytes into b.
func PutSample(b []byte, width, v int) {
	switch width {
	case 1:
		b[0] = byte(int8(v))
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case 3:
		b[0] = byte(v)
		b[1] = byte(v >> 8)
		b[2] = byte(v >> 16)
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	}
}
