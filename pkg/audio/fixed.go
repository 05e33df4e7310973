// ABOUTME: Fixed-point helpers for the 24-bit PCM paths
// ABOUTME: Packs, unpacks and narrows samples held in int32 at 24-bit range
package audio

const (
	Max24Bit = 1<<23 - 1
	Min24Bit = -1 << 23
)

// Put24 writes the low three bytes of s to b, little-endian
func Put24(b []byte, s int32) {
	_ = b[2]
	b[0] = byte(s)
	b[1] = byte(s >> 8)
	b[2] = byte(s >> 16)
}

// Get24 reads a little-endian 24-bit sample from b with sign extension
func Get24(b []byte) int32 {
	_ = b[2]
	return int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
}

// SampleTo24Bit packs s into three bytes
func SampleTo24Bit(s int32) [3]byte {
	var b [3]byte
	Put24(b[:], s)
	return b
}

// SampleFrom24Bit unpacks three bytes produced by SampleTo24Bit
func SampleFrom24Bit(b [3]byte) int32 {
	return Get24(b[:])
}

// SampleToInt16 drops the low byte of a 24-bit sample
func SampleToInt16(s int32) int16 {
	return int16(s >> 8)
}

// Int24ToFloat normalizes a 24-bit sample to [-1, 1)
func Int24ToFloat(s int32) float64 {
	return float64(s) / (Max24Bit + 1)
}
