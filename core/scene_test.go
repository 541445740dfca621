package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinvoxRoundTrip(t *testing.T) {
	g := NewVoxelGrid(5, 3, 4)
	g.Fill(VoxelCoord{0, 0, 0}, VoxelCoord{4, 0, 3}, true)
	g.Set(VoxelCoord{2, 2, 1}, true)
	g.Set(VoxelCoord{4, 1, 3}, true)

	var buf bytes.Buffer
	require.NoError(t, WriteBinvox(&buf, g))

	got, err := ReadBinvox(&buf)
	require.NoError(t, err)
	assert.Equal(t, g.Size(), got.Size())
	assert.Equal(t, g.Cells(), got.Cells())
}

func TestReadBinvoxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad signature", "#notbinvox\n"},
		{"bad dims", "#binvox 1\ndim 0 2 2\ntranslate 0 0 0\nscale 1\ndata\n"},
		{"truncated data", "#binvox 1\ndim 2 2 2\ntranslate 0 0 0\nscale 1\ndata\n\x01\x04"},
		{"run too long", "#binvox 1\ndim 1 1 1\ntranslate 0 0 0\nscale 1\ndata\n\x01\x09"},
		{"trailing data", "#binvox 1\ndim 1 1 1\ntranslate 0 0 0\nscale 1\ndata\n\x01\x01\x00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadBinvox(strings.NewReader(tc.input))
			assert.Error(t, err)
		})
	}
}

func TestSceneEmitterAndStripes(t *testing.T) {
	g := NewVoxelGrid(8, 1, 1)
	g.Fill(VoxelCoord{}, VoxelCoord{7, 0, 0}, true)
	s := NewScene(g)

	n := s.AddEmitter(Emitter{
		Min:   VoxelCoord{0, 0, 0},
		Max:   VoxelCoord{1, 0, 0},
		Dir:   DirPosY,
		Color: mgl32.Vec3{1, 2, 3},
	})
	assert.Equal(t, 2, n)

	red, blue := mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}
	diffuse := s.Diffuse(red, blue, 4)
	for i, p := range s.Planes {
		if p.Cell.X < 4 {
			assert.Equal(t, red, diffuse[i])
		} else {
			assert.Equal(t, blue, diffuse[i])
		}
		if p.Dir == DirPosY && p.Cell.X <= 1 {
			assert.Equal(t, mgl32.Vec3{1, 2, 3}, s.Emission[i])
		} else {
			assert.Equal(t, mgl32.Vec3{}, s.Emission[i])
		}
	}
}

func TestDemoScenes(t *testing.T) {
	for _, name := range []string{"room", "cube", "single"} {
		s, err := DemoScene(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, s.Planes, name)
		assert.Len(t, s.Emission, len(s.Planes))
	}
	_, err := DemoScene("nope")
	assert.Error(t, err)

	room, _ := DemoScene("room")
	lit := 0
	for _, e := range room.Emission {
		if e != (mgl32.Vec3{}) {
			lit++
		}
	}
	assert.Equal(t, 12, lit)
}

func TestParseDirection(t *testing.T) {
	for _, d := range Directions {
		got, err := ParseDirection(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := ParseDirection("up")
	assert.Error(t, err)
}
