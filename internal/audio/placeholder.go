package audio

import (
	"bytes"
	"encoding/binary"
)

// Silent placeholder parameters: 16-bit mono PCM at 24kHz.
const (
	placeholderSampleRate    = 24000
	placeholderBitsPerSample = 16
)

// silentWAV builds a silent WAV waveform of the given duration. Used outside
// production when the TTS provider fails, so downstream flows stay testable
// without real credentials.
func silentWAV(seconds float64) []byte {
	if seconds <= 0 {
		seconds = 0.5
	}

	numChannels := 1
	bytesPerSample := placeholderBitsPerSample / 8
	blockAlign := numChannels * bytesPerSample
	byteRate := placeholderSampleRate * blockAlign
	dataSize := int(seconds * float64(byteRate))
	// Align to whole samples
	dataSize -= dataSize % blockAlign
	chunkSize := 36 + dataSize

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, []byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	binary.Write(buf, binary.LittleEndian, []byte("WAVE"))
	binary.Write(buf, binary.LittleEndian, []byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(placeholderSampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(placeholderBitsPerSample))
	binary.Write(buf, binary.LittleEndian, []byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	return buf.Bytes()
}

// estimateDuration approximates spoken duration from text length at roughly
// 150 words per minute, five characters per word.
func estimateDuration(text string) float64 {
	words := len(text) / 5
	return float64(words) / 150.0 * 60.0
}
