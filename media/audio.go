package media

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Audio is a decoded PCM clip. Samples are interleaved by channel.
type Audio struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// wav chunk constants for the muxed container.
const (
	wavHeaderSize = 44
	wavFormatPCM  = 1
)

// NewAudio builds an Audio clip and validates its parameters.
func NewAudio(sampleRate, channels int, samples []int16) (*Audio, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrMalformedPayload, sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channel count %d", ErrMalformedPayload, channels)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples not divisible by %d channels", ErrMalformedPayload, len(samples), channels)
	}
	return &Audio{SampleRate: sampleRate, Channels: channels, Samples: samples}, nil
}

// EncodeWAV muxes the clip into a RIFF/WAVE PCM16 payload.
func (a *Audio) EncodeWAV() ([]byte, error) {
	dataSize := len(a.Samples) * 2
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataSize))

	byteRate := a.SampleRate * a.Channels * 2
	blockAlign := a.Channels * 2

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(a.Channels))
	binary.Write(buf, binary.LittleEndian, uint32(a.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range a.Samples {
		binary.Write(buf, binary.LittleEndian, s)
	}
	return buf.Bytes(), nil
}

// DecodeWAV demuxes a RIFF/WAVE PCM16 payload.
func DecodeWAV(payload []byte) (*Audio, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(payload) < wavHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is below WAV header size", ErrMalformedPayload, len(payload))
	}
	if string(payload[0:4]) != "RIFF" || string(payload[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE marker", ErrMalformedPayload)
	}

	// Walk chunks; fmt must precede data.
	var (
		audio    Audio
		haveFmt  bool
		haveData bool
	)
	off := 12
	for off+8 <= len(payload) {
		id := string(payload[off : off+4])
		size := int(binary.LittleEndian.Uint32(payload[off+4 : off+8]))
		body := off + 8
		if body+size > len(payload) {
			return nil, fmt.Errorf("%w: chunk %q overruns payload", ErrMalformedPayload, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrMalformedPayload)
			}
			format := binary.LittleEndian.Uint16(payload[body:])
			if format != wavFormatPCM {
				return nil, fmt.Errorf("%w: unsupported WAV format %d", ErrMalformedPayload, format)
			}
			audio.Channels = int(binary.LittleEndian.Uint16(payload[body+2:]))
			audio.SampleRate = int(binary.LittleEndian.Uint32(payload[body+4:]))
			bits := binary.LittleEndian.Uint16(payload[body+14:])
			if bits != 16 {
				return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrMalformedPayload, bits)
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt", ErrMalformedPayload)
			}
			audio.Samples = make([]int16, size/2)
			for i := range audio.Samples {
				audio.Samples[i] = int16(binary.LittleEndian.Uint16(payload[body+i*2:]))
			}
			haveData = true
		}
		// Chunks are word-aligned.
		off = body + size + size%2
	}
	if !haveFmt || !haveData {
		return nil, fmt.Errorf("%w: missing fmt or data chunk", ErrMalformedPayload)
	}
	return &audio, nil
}

// Equal reports observational equality (same rate, channels and samples).
func (a *Audio) Equal(other *Audio) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.SampleRate != other.SampleRate || a.Channels != other.Channels || len(a.Samples) != len(other.Samples) {
		return false
	}
	for i := range a.Samples {
		if a.Samples[i] != other.Samples[i] {
			return false
		}
	}
	return true
}
