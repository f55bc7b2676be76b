package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/gargantua/log"
	"github.com/achilleasa/gargantua/scene"
	"github.com/achilleasa/gargantua/types"
)

// ReadMesh loads triangle geometry from a wavefront obj file or http/https
// URL. Only the geometry subset of the format is parsed: vertex positions,
// texture coordinates and faces. Materials are assigned by the host scene,
// normals are recomputed flat by the flattener, and faces with more than
// three corners are fan triangulated.
func ReadMesh(pathToMesh string) (*scene.Mesh, error) {
	res, err := newResource(pathToMesh, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	reader := newWavefrontMeshReader()
	return reader.Read(res)
}

type wavefrontMeshReader struct {
	logger log.Logger

	// List of parsed vertices and uv coords.
	vertexList []types.Vec3
	uvList     []types.Vec2

	// The assembled mesh. Corners pairing a vertex with a uv coordinate
	// are deduplicated through pairToIndex.
	mesh        *scene.Mesh
	pairToIndex map[uint64]uint32
}

func newWavefrontMeshReader() *wavefrontMeshReader {
	return &wavefrontMeshReader{
		logger:      log.New("wavefrontMeshReader"),
		mesh:        &scene.Mesh{},
		pairToIndex: make(map[uint64]uint32),
	}
}

// Read the mesh definition.
func (r *wavefrontMeshReader) Read(res *resource) (*scene.Mesh, error) {
	r.logger.Infof("parsing mesh from %s", res.Path())
	start := time.Now()

	if err := r.parse(res); err != nil {
		return nil, err
	}
	if len(r.mesh.Faces) == 0 {
		return nil, fmt.Errorf("reader: no faces defined in %s", res.Path())
	}

	r.logger.Infof(
		"parsed mesh %q (%d vertices, %d faces) in %d ms",
		r.mesh.Name, len(r.mesh.Vertices), len(r.mesh.Faces),
		time.Since(start).Nanoseconds()/1e6,
	)
	return r.mesh, nil
}

// Parse the wavefront object geometry statements.
func (r *wavefrontMeshReader) parse(res *resource) error {
	var lineNum int = 0

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 {
			continue
		}

		switch lineTokens[0] {
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return emitError(res.Path(), lineNum, err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vt":
			v, err := parseVec2(lineTokens)
			if err != nil {
				return emitError(res.Path(), lineNum, err.Error())
			}
			r.uvList = append(r.uvList, v)
		case "g", "o":
			if len(lineTokens) >= 2 && r.mesh.Name == "" {
				r.mesh.Name = lineTokens[1]
			}
		case "f":
			if err := r.parseFace(lineTokens); err != nil {
				return emitError(res.Path(), lineNum, err.Error())
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reader: error reading %s: %s", res.Path(), err.Error())
	}

	if r.mesh.Name == "" {
		r.mesh.Name = "default"
	}
	return nil
}

// Parse a face definition. Each face consists of 3 or more corner arguments
// comprised of 1, 2 or 3 indices separated by a slash character:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate an offset off the end
// of the vertex/uv list. Normal indices are parsed but ignored. Faces with
// more than 3 corners are triangulated as a fan around the first corner.
func (r *wavefrontMeshReader) parseFace(lineTokens []string) error {
	if len(lineTokens) < 4 {
		return fmt.Errorf("unsupported syntax for 'f'; expected at least 3 arguments; got %d", len(lineTokens)-1)
	}

	corners := make([]uint32, len(lineTokens)-1)
	for arg := 0; arg < len(corners); arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList))
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}

		uvOffset := -1
		if len(vTokens) > 1 && vTokens[1] != "" {
			uvOffset, err = selectFaceCoordIndex(vTokens[1], len(r.uvList))
			if err != nil {
				return fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
		}

		corners[arg] = r.cornerIndex(vOffset, uvOffset)
	}

	for fan := 1; fan < len(corners)-1; fan++ {
		r.mesh.Faces = append(r.mesh.Faces, [3]uint32{corners[0], corners[fan], corners[fan+1]})
	}
	return nil
}

// cornerIndex returns the mesh vertex slot for a (vertex, uv) pair, emitting
// a new slot on first use.
func (r *wavefrontMeshReader) cornerIndex(vOffset, uvOffset int) uint32 {
	key := uint64(uint32(vOffset))<<32 | uint64(uint32(uvOffset))
	if index, exists := r.pairToIndex[key]; exists {
		return index
	}

	index := uint32(len(r.mesh.Vertices))
	r.mesh.Vertices = append(r.mesh.Vertices, r.vertexList[vOffset])
	if uvOffset >= 0 {
		// Backfill zero uvs for any corners emitted before the first
		// textured one so the two lists stay parallel.
		for len(r.mesh.UVs) < int(index) {
			r.mesh.UVs = append(r.mesh.UVs, types.Vec2{})
		}
		r.mesh.UVs = append(r.mesh.UVs, r.uvList[uvOffset])
	} else if len(r.mesh.UVs) > 0 {
		r.mesh.UVs = append(r.mesh.UVs, types.Vec2{})
	}
	r.pairToIndex[key] = index
	return index
}

// Parse a 1-based face coordinate index. Negative values select offsets from
// the end of the coordinate list.
func selectFaceCoordIndex(indexToken string, coordListLen int) (int, error) {
	index, err := strconv.Atoi(indexToken)
	if err != nil {
		return 0, err
	}

	offset := 0
	if index < 0 {
		offset = coordListLen + index
	} else {
		offset = index - 1
	}

	if offset < 0 || offset >= coordListLen {
		return 0, fmt.Errorf("index out of bounds")
	}
	return offset, nil
}

// Parse value tokens as a Vec3.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf("unsupported syntax for '%s'; expected 3 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}

	var out types.Vec3
	for arg := 0; arg < 3; arg++ {
		v, err := strconv.ParseFloat(lineTokens[arg+1], 32)
		if err != nil {
			return types.Vec3{}, err
		}
		out[arg] = float32(v)
	}
	return out, nil
}

// Parse value tokens as a Vec2.
func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf("unsupported syntax for '%s'; expected 2 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}

	var out types.Vec2
	for arg := 0; arg < 2; arg++ {
		v, err := strconv.ParseFloat(lineTokens[arg+1], 32)
		if err != nil {
			return types.Vec2{}, err
		}
		out[arg] = float32(v)
	}
	return out, nil
}

// Generate an error message including the file location that triggered it.
func emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)
	return fmt.Errorf("[%s: %d] error: %s", file, line, msg)
}
