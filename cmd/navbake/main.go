// navbake converts a text voxel layout into the nav volume blob read by the
// world server.
//
// Layout format, one directive or grid row per line:
//
//	# comment
//	voxel 1.0
//	origin 0 0 0
//	layer 0
//	..xx..
//	......
//	layer 1
//	......
//
// Each layer is one y level; rows run along z and columns along x. '.' marks
// a walkable voxel, anything else is blocked. Every row of every layer must
// have the same width and every layer the same depth.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/nav"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: navbake <layout.txt> <output.nav>")
		os.Exit(1)
	}

	in, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer in.Close()

	vol, walkable, err := parseLayout(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	if err := nav.SaveVolume(os.Args[2], vol); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	x, y, z := vol.Size()
	fmt.Printf("Wrote %dx%dx%d volume (%d walkable) to %s\n", x, y, z, walkable, os.Args[2])
}

type layout struct {
	voxel  float32
	origin geom.Vec3
	layers [][]string
}

// parseLayout reads a layout and builds the volume it describes. It also
// returns the number of walkable voxels.
func parseLayout(r io.Reader) (*nav.Volume, int, error) {
	l := layout{voxel: 1}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "voxel":
			if len(fields) != 2 {
				return nil, 0, fmt.Errorf("line %d: voxel takes one value", lineNo)
			}
			v, err := strconv.ParseFloat(fields[1], 32)
			if err != nil || v <= 0 {
				return nil, 0, fmt.Errorf("line %d: bad voxel size %q", lineNo, fields[1])
			}
			l.voxel = float32(v)
		case "origin":
			if len(fields) != 4 {
				return nil, 0, fmt.Errorf("line %d: origin takes three values", lineNo)
			}
			var xyz [3]float32
			for i, f := range fields[1:] {
				v, err := strconv.ParseFloat(f, 32)
				if err != nil {
					return nil, 0, fmt.Errorf("line %d: bad origin %q", lineNo, f)
				}
				xyz[i] = float32(v)
			}
			l.origin = geom.V(xyz[0], xyz[1], xyz[2])
		case "layer":
			if len(fields) != 2 {
				return nil, 0, fmt.Errorf("line %d: layer takes its index", lineNo)
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n != len(l.layers) {
				return nil, 0, fmt.Errorf("line %d: expected layer %d", lineNo, len(l.layers))
			}
			l.layers = append(l.layers, nil)
		default:
			if len(l.layers) == 0 {
				return nil, 0, fmt.Errorf("line %d: grid row before first layer", lineNo)
			}
			top := len(l.layers) - 1
			l.layers[top] = append(l.layers[top], line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return l.build()
}

func (l layout) build() (*nav.Volume, int, error) {
	if len(l.layers) == 0 || len(l.layers[0]) == 0 {
		return nil, 0, fmt.Errorf("empty layout")
	}
	depth := len(l.layers[0])
	width := len(l.layers[0][0])
	for y, rows := range l.layers {
		if len(rows) != depth {
			return nil, 0, fmt.Errorf("layer %d has %d rows, want %d", y, len(rows), depth)
		}
		for z, row := range rows {
			if len(row) != width {
				return nil, 0, fmt.Errorf("layer %d row %d has width %d, want %d", y, z, len(row), width)
			}
		}
	}

	vol := nav.NewVolume(width, len(l.layers), depth, l.origin, l.voxel)
	walkable := 0
	for y, rows := range l.layers {
		for z, row := range rows {
			for x := 0; x < len(row); x++ {
				if row[x] == '.' {
					vol.Set(nav.Cell{X: int32(x), Y: int32(y), Z: int32(z)}, true)
					walkable++
				}
			}
		}
	}
	return vol, walkable, nil
}
