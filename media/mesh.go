package media

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// Mesh is a decoded triangle mesh. Points holds 3 float32 coordinates per
// vertex, Triangles holds 3 vertex indices per face.
type Mesh struct {
	Points    []float32
	Triangles []uint32
}

// Binary glTF container constants.
const (
	glbMagic     = 0x46546C67 // "glTF"
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A // "JSON"
	glbChunkBIN  = 0x004E4942 // "BIN\0"

	gltfComponentFloat  = 5126
	gltfComponentUint32 = 5125
	gltfModeTriangles   = 4
	gltfTargetArray     = 34962
	gltfTargetElement   = 34963
)

// gltfDoc is the minimal glTF subset written and read by this package.
type gltfDoc struct {
	Asset struct {
		Version string `json:"version"`
	} `json:"asset"`
	Scene  int `json:"scene"`
	Scenes []struct {
		Nodes []int `json:"nodes"`
	} `json:"scenes"`
	Nodes []struct {
		Mesh int `json:"mesh"`
	} `json:"nodes"`
	Meshes []struct {
		Primitives []struct {
			Attributes map[string]int `json:"attributes"`
			Indices    int            `json:"indices"`
			Mode       int            `json:"mode"`
		} `json:"primitives"`
	} `json:"meshes"`
	Accessors []struct {
		BufferView    int    `json:"bufferView"`
		ComponentType int    `json:"componentType"`
		Count         int    `json:"count"`
		Type          string `json:"type"`
	} `json:"accessors"`
	BufferViews []struct {
		Buffer     int `json:"buffer"`
		ByteOffset int `json:"byteOffset"`
		ByteLength int `json:"byteLength"`
		Target     int `json:"target"`
	} `json:"bufferViews"`
	Buffers []struct {
		ByteLength int `json:"byteLength"`
	} `json:"buffers"`
}

// NewMesh builds a Mesh and validates point/triangle alignment.
func NewMesh(points []float32, triangles []uint32) (*Mesh, error) {
	if len(points)%3 != 0 {
		return nil, fmt.Errorf("%w: %d point floats not divisible by 3", ErrMalformedPayload, len(points))
	}
	if len(triangles)%3 != 0 {
		return nil, fmt.Errorf("%w: %d triangle indices not divisible by 3", ErrMalformedPayload, len(triangles))
	}
	vertexCount := uint32(len(points) / 3)
	for _, idx := range triangles {
		if idx >= vertexCount {
			return nil, fmt.Errorf("%w: triangle index %d out of range (%d vertices)", ErrMalformedPayload, idx, vertexCount)
		}
	}
	return &Mesh{Points: points, Triangles: triangles}, nil
}

// EncodeGLB encodes the mesh as a binary glTF payload with a single
// triangle primitive.
func (m *Mesh) EncodeGLB() ([]byte, error) {
	posBytes := len(m.Points) * 4
	idxBytes := len(m.Triangles) * 4
	binLen := posBytes + idxBytes

	doc := map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"nodes":  []any{map[string]any{"mesh": 0}},
		"meshes": []any{map[string]any{
			"primitives": []any{map[string]any{
				"attributes": map[string]int{"POSITION": 0},
				"indices":    1,
				"mode":       gltfModeTriangles,
			}},
		}},
		"accessors": []any{
			map[string]any{
				"bufferView":    0,
				"componentType": gltfComponentFloat,
				"count":         len(m.Points) / 3,
				"type":          "VEC3",
			},
			map[string]any{
				"bufferView":    1,
				"componentType": gltfComponentUint32,
				"count":         len(m.Triangles),
				"type":          "SCALAR",
			},
		},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": posBytes, "target": gltfTargetArray},
			map[string]any{"buffer": 0, "byteOffset": posBytes, "byteLength": idxBytes, "target": gltfTargetElement},
		},
		"buffers": []any{map[string]any{"byteLength": binLen}},
	}

	jsonChunk, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("glb json: %w", err)
	}
	// JSON chunk must be padded to 4 bytes with spaces.
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	binChunk := make([]byte, 0, binLen)
	for _, p := range m.Points {
		binChunk = binary.LittleEndian.AppendUint32(binChunk, math.Float32bits(p))
	}
	for _, t := range m.Triangles {
		binChunk = binary.LittleEndian.AppendUint32(binChunk, t)
	}
	for len(binChunk)%4 != 0 {
		binChunk = append(binChunk, 0)
	}

	total := 12 + 8 + len(jsonChunk) + 8 + len(binChunk)
	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint32(out, glbMagic)
	out = binary.LittleEndian.AppendUint32(out, glbVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(jsonChunk)))
	out = binary.LittleEndian.AppendUint32(out, glbChunkJSON)
	out = append(out, jsonChunk...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(binChunk)))
	out = binary.LittleEndian.AppendUint32(out, glbChunkBIN)
	out = append(out, binChunk...)
	return out, nil
}

// DecodeGLB parses a binary glTF payload written by EncodeGLB (or any GLB
// whose first primitive is an indexed float32 triangle mesh).
func DecodeGLB(payload []byte) (*Mesh, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(payload) < 12 || binary.LittleEndian.Uint32(payload) != glbMagic {
		return nil, fmt.Errorf("%w: missing glTF magic", ErrMalformedPayload)
	}
	if v := binary.LittleEndian.Uint32(payload[4:]); v != glbVersion {
		return nil, fmt.Errorf("%w: unsupported glTF version %d", ErrMalformedPayload, v)
	}

	var jsonChunk, binChunk []byte
	off := 12
	for off+8 <= len(payload) {
		size := int(binary.LittleEndian.Uint32(payload[off:]))
		kind := binary.LittleEndian.Uint32(payload[off+4:])
		body := off + 8
		if body+size > len(payload) {
			return nil, fmt.Errorf("%w: chunk overruns payload", ErrMalformedPayload)
		}
		switch kind {
		case glbChunkJSON:
			jsonChunk = payload[body : body+size]
		case glbChunkBIN:
			binChunk = payload[body : body+size]
		}
		off = body + size
	}
	if jsonChunk == nil || binChunk == nil {
		return nil, fmt.Errorf("%w: missing JSON or BIN chunk", ErrMalformedPayload)
	}

	var doc gltfDoc
	if err := json.Unmarshal(jsonChunk, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(doc.Meshes) == 0 || len(doc.Meshes[0].Primitives) == 0 {
		return nil, fmt.Errorf("%w: no mesh primitive", ErrMalformedPayload)
	}
	prim := doc.Meshes[0].Primitives[0]
	if prim.Mode != gltfModeTriangles {
		return nil, fmt.Errorf("%w: primitive mode %d is not triangles", ErrMalformedPayload, prim.Mode)
	}
	posAcc, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("%w: primitive has no POSITION attribute", ErrMalformedPayload)
	}

	readView := func(accessor int) ([]byte, int, int, error) {
		if accessor < 0 || accessor >= len(doc.Accessors) {
			return nil, 0, 0, fmt.Errorf("%w: accessor %d out of range", ErrMalformedPayload, accessor)
		}
		acc := doc.Accessors[accessor]
		if acc.BufferView < 0 || acc.BufferView >= len(doc.BufferViews) {
			return nil, 0, 0, fmt.Errorf("%w: buffer view %d out of range", ErrMalformedPayload, acc.BufferView)
		}
		view := doc.BufferViews[acc.BufferView]
		if view.ByteOffset+view.ByteLength > len(binChunk) {
			return nil, 0, 0, fmt.Errorf("%w: buffer view overruns BIN chunk", ErrMalformedPayload)
		}
		return binChunk[view.ByteOffset : view.ByteOffset+view.ByteLength], acc.Count, acc.ComponentType, nil
	}

	posData, posCount, posComp, err := readView(posAcc)
	if err != nil {
		return nil, err
	}
	if posComp != gltfComponentFloat || len(posData) < posCount*12 {
		return nil, fmt.Errorf("%w: POSITION accessor is not float32 VEC3", ErrMalformedPayload)
	}
	idxData, idxCount, idxComp, err := readView(prim.Indices)
	if err != nil {
		return nil, err
	}
	if idxComp != gltfComponentUint32 || len(idxData) < idxCount*4 {
		return nil, fmt.Errorf("%w: index accessor is not uint32", ErrMalformedPayload)
	}

	points := make([]float32, posCount*3)
	for i := range points {
		points[i] = math.Float32frombits(binary.LittleEndian.Uint32(posData[i*4:]))
	}
	triangles := make([]uint32, idxCount)
	for i := range triangles {
		triangles[i] = binary.LittleEndian.Uint32(idxData[i*4:])
	}
	return NewMesh(points, triangles)
}

// Equal reports observational equality (same points and triangles).
func (m *Mesh) Equal(other *Mesh) bool {
	if m == nil || other == nil {
		return m == other
	}
	if len(m.Points) != len(other.Points) || len(m.Triangles) != len(other.Triangles) {
		return false
	}
	for i := range m.Points {
		if m.Points[i] != other.Points[i] {
			return false
		}
	}
	for i := range m.Triangles {
		if m.Triangles[i] != other.Triangles[i] {
			return false
		}
	}
	return true
}
