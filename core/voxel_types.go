package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// VoxelCoord represents a cell position in the voxel grid
type VoxelCoord struct {
	X, Y, Z int
}

// Add returns the component-wise sum
func (c VoxelCoord) Add(o VoxelCoord) VoxelCoord {
	return VoxelCoord{c.X + o.X, c.Y + o.Y, c.Z + o.Z}
}

// Sub returns the component-wise difference
func (c VoxelCoord) Sub(o VoxelCoord) VoxelCoord {
	return VoxelCoord{c.X - o.X, c.Y - o.Y, c.Z - o.Z}
}

// Axis returns the component along axis 0 (X), 1 (Y) or 2 (Z)
func (c VoxelCoord) Axis(a int) int {
	switch a {
	case 0:
		return c.X
	case 1:
		return c.Y
	default:
		return c.Z
	}
}

// Less orders coordinates lexicographically on (X, Y, Z)
func (c VoxelCoord) Less(o VoxelCoord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.Z < o.Z
}

// Vec3 converts the coordinate to a float vector
func (c VoxelCoord) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(c.X), float32(c.Y), float32(c.Z)}
}

// Center is the world-space center of the cell
func (c VoxelCoord) Center() mgl32.Vec3 {
	return mgl32.Vec3{float32(c.X) + 0.5, float32(c.Y) + 0.5, float32(c.Z) + 0.5}
}

func (c VoxelCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Direction is one of the six axis-aligned face normals. Y is up.
type Direction uint8

const (
	DirPosX Direction = iota
	DirNegX
	DirPosY
	DirNegY
	DirPosZ
	DirNegZ
)

// Directions lists every direction in plane emission order
var Directions = [6]Direction{DirPosX, DirNegX, DirPosY, DirNegY, DirPosZ, DirNegZ}

var directionNormals = [6]VoxelCoord{
	DirPosX: {1, 0, 0},
	DirNegX: {-1, 0, 0},
	DirPosY: {0, 1, 0},
	DirNegY: {0, -1, 0},
	DirPosZ: {0, 0, 1},
	DirNegZ: {0, 0, -1},
}

var directionNames = [6]string{"+x", "-x", "+y", "-y", "+z", "-z"}

// Normal returns the integer face normal
func (d Direction) Normal() VoxelCoord {
	return directionNormals[d]
}

// NormalVec returns the face normal as a float vector
func (d Direction) NormalVec() mgl32.Vec3 {
	return directionNormals[d].Vec3()
}

// Axis returns 0, 1 or 2 for X, Y, Z facing directions
func (d Direction) Axis() int {
	return int(d) / 2
}

// Positive reports whether the normal points along the positive axis
func (d Direction) Positive() bool {
	return d%2 == 0
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", d)
}

// ParseDirection parses "+x", "-y", ... as used in scene settings
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}
