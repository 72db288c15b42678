package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRoundTrip(t *testing.T) {
	pixels := make([]byte, 3*2*4)
	for i := range pixels {
		pixels[i] = byte(i * 11)
	}
	img, err := NewImage(3, 2, pixels)
	require.NoError(t, err)

	payload, err := img.EncodePNG()
	require.NoError(t, err)

	got, err := DecodePNG(payload)
	require.NoError(t, err)
	assert.True(t, img.Equal(got))
}

func TestImageValidation(t *testing.T) {
	_, err := NewImage(0, 2, nil)
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = NewImage(2, 2, make([]byte, 3))
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = DecodePNG(nil)
	require.ErrorIs(t, err, ErrEmptyPayload)

	_, err = DecodePNG([]byte("not a png"))
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestAudioRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768, 7}
	a, err := NewAudio(44100, 2, samples)
	require.NoError(t, err)

	payload, err := a.EncodeWAV()
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(payload[:4]))

	got, err := DecodeWAV(payload)
	require.NoError(t, err)
	assert.True(t, a.Equal(got))
	assert.Equal(t, 44100, got.SampleRate)
	assert.Equal(t, 2, got.Channels)
}

func TestAudioValidation(t *testing.T) {
	_, err := NewAudio(0, 1, nil)
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = NewAudio(8000, 2, make([]int16, 3))
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = DecodeWAV(nil)
	require.ErrorIs(t, err, ErrEmptyPayload)

	_, err = DecodeWAV([]byte("RIFFxxxxWAVE"))
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestMeshRoundTrip(t *testing.T) {
	points := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		1, 1, 0,
	}
	triangles := []uint32{0, 1, 2, 1, 3, 2}

	m, err := NewMesh(points, triangles)
	require.NoError(t, err)

	payload, err := m.EncodeGLB()
	require.NoError(t, err)
	assert.Equal(t, "glTF", string(payload[:4]))

	got, err := DecodeGLB(payload)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))
}

func TestMeshValidation(t *testing.T) {
	_, err := NewMesh([]float32{1, 2}, nil)
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = NewMesh([]float32{0, 0, 0}, []uint32{0, 1})
	require.ErrorIs(t, err, ErrMalformedPayload)

	// Triangle index past the last vertex.
	_, err = NewMesh([]float32{0, 0, 0}, []uint32{0, 0, 1})
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = DecodeGLB(nil)
	require.ErrorIs(t, err, ErrEmptyPayload)

	_, err = DecodeGLB([]byte("not a glb at all"))
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestSequenceRoundTrip(t *testing.T) {
	s, err := NewSequence1D([]float32{0, 0.5, 1}, []float32{10, 20, 30})
	require.NoError(t, err)

	payload, err := s.Encode()
	require.NoError(t, err)

	got, err := DecodeSequence1D(payload)
	require.NoError(t, err)
	assert.True(t, s.Equal(got))
}

func TestSequenceImplicitIndex(t *testing.T) {
	s := NewSequence1DFromValues([]float32{5, 6, 7})
	assert.Equal(t, []float32{0, 1, 2}, s.Index)

	payload, err := s.Encode()
	require.NoError(t, err)
	got, err := DecodeSequence1D(payload)
	require.NoError(t, err)
	assert.True(t, s.Equal(got))
}

func TestSequenceValidation(t *testing.T) {
	_, err := NewSequence1D([]float32{1}, []float32{1, 2})
	require.ErrorIs(t, err, ErrMalformedPayload)

	_, err = DecodeSequence1D(nil)
	require.ErrorIs(t, err, ErrEmptyPayload)

	s := NewSequence1DFromValues([]float32{1, 2})
	payload, err := s.Encode()
	require.NoError(t, err)

	_, err = DecodeSequence1D(payload[:len(payload)-4])
	require.ErrorIs(t, err, ErrMalformedPayload)
}
