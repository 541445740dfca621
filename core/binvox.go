package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	binvoxMaxDim = 1024
	binvoxSig    = "#binvox 1\n"
)

// LoadBinvoxFile reads a voxel grid from a binvox file
func LoadBinvoxFile(name string) (*VoxelGrid, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := ReadBinvox(f)
	if err != nil {
		return nil, fmt.Errorf("binvox %s: %w", name, err)
	}
	return g, nil
}

// ReadBinvox decodes a binvox stream. The grid is stored as (value, count)
// byte pairs with y running fastest, then z, then x. Y is up.
func ReadBinvox(rd io.Reader) (*VoxelGrid, error) {
	r := bufio.NewReader(rd)
	if _, err := fmt.Fscanf(r, binvoxSig); err != nil {
		return nil, fmt.Errorf("bad signature: %w", err)
	}

	var dx, dy, dz int
	if _, err := fmt.Fscanf(r, "dim %d %d %d\n", &dx, &dy, &dz); err != nil {
		return nil, err
	}
	if dx <= 0 || dy <= 0 || dz <= 0 || dx > binvoxMaxDim || dy > binvoxMaxDim || dz > binvoxMaxDim {
		return nil, fmt.Errorf("invalid dimensions: %d x %d x %d", dx, dy, dz)
	}

	// translate and scale place the model in world space; the solver works
	// in cell units so they are read and dropped
	var tx, ty, tz, scale float64
	if _, err := fmt.Fscanf(r, "translate %f %f %f\n", &tx, &ty, &tz); err != nil {
		return nil, err
	}
	if _, err := fmt.Fscanf(r, "scale %f\n", &scale); err != nil {
		return nil, err
	}
	if _, err := fmt.Fscanf(r, "data\n"); err != nil {
		return nil, err
	}

	g := NewVoxelGrid(dx, dy, dz)
	total := dx * dy * dz
	for i := 0; i < total; {
		v, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		n, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if i+int(n) > total {
			return nil, errors.New("run exceeds grid size")
		}
		if v != 0 {
			for j := i; j < i+int(n); j++ {
				g.Set(binvoxCoord(j, dy, dz), true)
			}
		}
		i += int(n)
	}
	if _, err := r.ReadByte(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data past end of grid")
		}
		return nil, err
	}
	return g, nil
}

func binvoxCoord(i, dy, dz int) VoxelCoord {
	return VoxelCoord{X: i / (dy * dz), Z: (i / dy) % dz, Y: i % dy}
}

// WriteBinvox encodes g in binvox format with unit scale
func WriteBinvox(wr io.Writer, g *VoxelGrid) error {
	size := g.Size()
	w := bufio.NewWriter(wr)
	w.WriteString(binvoxSig)
	fmt.Fprintf(w, "dim %d %d %d\n", size.X, size.Y, size.Z)
	fmt.Fprintf(w, "translate 0 0 0\n")
	fmt.Fprintf(w, "scale 1\n")
	w.WriteString("data\n")

	cur, n := false, 0
	flush := func() {
		if n == 0 {
			return
		}
		if cur {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
		w.WriteByte(byte(n))
	}
	total := size.X * size.Y * size.Z
	for i := 0; i < total; i++ {
		v := g.IsSolid(binvoxCoord(i, size.Y, size.Z))
		if v != cur || n == 255 {
			flush()
			cur, n = v, 0
		}
		n++
	}
	flush()
	return w.Flush()
}
