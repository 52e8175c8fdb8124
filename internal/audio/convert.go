package audio

import (
	"encoding/binary"
	"math"
)

// ResampleInt16 linearly interpolates samples from one rate to another.
func ResampleInt16(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 {
		return samples
	}

	ratio := float64(toRate) / float64(fromRate)
	input := Int16ToFloat32(samples)
	output := make([]float32, int(math.Ceil(float64(len(input))*ratio)))
	interpolate(output, input, ratio)
	return Float32ToInt16(output)
}

func interpolate(output, input []float32, ratio float64) {
	for i := 0; i < len(output); i++ {
		srcPos := float64(i) / ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		if srcIdx+1 < len(input) {
			output[i] = input[srcIdx]*(1-frac) + input[srcIdx+1]*frac
		} else if srcIdx < len(input) {
			output[i] = input[srcIdx]
		}
	}
}

// PCMBytesToInt16 decodes little-endian 16-bit samples. A trailing odd byte is ignored.
func PCMBytesToInt16(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}

func Int16ToFloat32(samples []int16) []float32 {
	result := make([]float32, len(samples))
	for i, s := range samples {
		result[i] = float32(s) / 32768.0
	}
	return result
}

func Float32ToInt16(samples []float32) []int16 {
	result := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		result[i] = int16(s * 32767.0)
	}
	return result
}

// MeanAmplitude is the mean absolute sample value, 0 for an empty chunk.
func MeanAmplitude(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum int64
	for _, s := range samples {
		v := int64(s)
		if v < 0 {
			v = -v
		}
		sum += v
	}
	return float64(sum) / float64(len(samples))
}
