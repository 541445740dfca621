package radiosity

import (
	"cmp"
	"slices"
)

// Extent is a run of consecutive target planes for one source plane
type Extent struct {
	Start        uint32
	Coefficients []float32
}

// End returns one past the last target index
func (e Extent) End() uint32 {
	return e.Start + uint32(len(e.Coefficients))
}

// SortFormFactors orders entries by source, then target
func SortFormFactors(ffs []FormFactor) {
	slices.SortFunc(ffs, func(a, b FormFactor) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Target, b.Target)
	})
}

// SplitBySource partitions sorted entries into one list per source plane.
// Planes with no couplings get an empty list.
func SplitBySource(ffs []FormFactor, planes int) [][]FormFactor {
	rows := make([][]FormFactor, planes)
	for i := 0; i < len(ffs); {
		src := ffs[i].Source
		j := i + 1
		for j < len(ffs) && ffs[j].Source == src {
			j++
		}
		if int(src) < planes {
			rows[src] = ffs[i:j:j]
		}
		i = j
	}
	return rows
}

// BuildExtents merges consecutive targets of one sorted row into runs
func BuildExtents(row []FormFactor) []Extent {
	if len(row) == 0 {
		return nil
	}
	coeffs := make([]float32, len(row))
	var out []Extent
	begin := 0
	for k := range row {
		coeffs[k] = row[k].Value
		last := k == len(row)-1
		if last || row[k+1].Target != row[k].Target+1 {
			out = append(out, Extent{
				Start:        row[begin].Target,
				Coefficients: coeffs[begin : k+1 : k+1],
			})
			begin = k + 1
		}
	}
	return out
}

// Compress sorts, splits and extent-izes a full form factor list
func Compress(ffs []FormFactor, planes int) [][]Extent {
	SortFormFactors(ffs)
	rows := SplitBySource(ffs, planes)
	extents := make([][]Extent, planes)
	for i, row := range rows {
		extents[i] = BuildExtents(row)
	}
	return extents
}

// CountCoefficients returns the number of stored coefficients
func CountCoefficients(extents [][]Extent) int {
	n := 0
	for _, row := range extents {
		for _, e := range row {
			n += len(e.Coefficients)
		}
	}
	return n
}
