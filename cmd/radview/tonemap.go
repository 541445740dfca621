package main

import "github.com/chewxy/math32"

// toneMap compresses an unbounded channel energy into a display byte
// (Reinhard, then gamma 2.2)
func toneMap(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	mapped := math32.Pow(v/(1+v), 1/2.2)
	return uint8(math32.Min(255, math32.Round(mapped*255)))
}
