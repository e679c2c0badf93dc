package nav

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/l1jgo/worldcore/internal/geom"
)

// Blob layout (inside a zstd frame), little endian:
//
//	"NAV1" | u32 sizeX | u32 sizeY | u32 sizeZ | f32 originX,Y,Z | f32 voxel | bitmap
//
// The bitmap holds one bit per voxel (1 = walkable), x fastest, then y, then z,
// least significant bit first.
var blobMagic = [4]byte{'N', 'A', 'V', '1'}

const maxBlobCells = 1 << 30

type blobHeader struct {
	Magic               [4]byte
	SizeX, SizeY, SizeZ uint32
	OriginX             float32
	OriginY             float32
	OriginZ             float32
	Voxel               float32
}

// LoadVolume reads a baked volume from disk.
func LoadVolume(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open nav volume: %w", err)
	}
	defer f.Close()
	v, err := ReadVolume(f)
	if err != nil {
		return nil, fmt.Errorf("read nav volume %s: %w", path, err)
	}
	return v, nil
}

// ReadVolume decodes a volume blob.
func ReadVolume(r io.Reader) (*Volume, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	br := bufio.NewReaderSize(dec, 64*1024)

	var h blobHeader
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if h.Magic != blobMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadVolume, h.Magic[:])
	}
	cells := uint64(h.SizeX) * uint64(h.SizeY) * uint64(h.SizeZ)
	if cells == 0 || cells > maxBlobCells || !(h.Voxel > 0) || math.IsInf(float64(h.Voxel), 0) {
		return nil, fmt.Errorf("%w: size %dx%dx%d voxel %v", ErrBadVolume, h.SizeX, h.SizeY, h.SizeZ, h.Voxel)
	}

	v := NewVolume(int(h.SizeX), int(h.SizeY), int(h.SizeZ), geom.V(h.OriginX, h.OriginY, h.OriginZ), h.Voxel)
	raw := make([]byte, (cells+7)/8)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, fmt.Errorf("%w: bitmap: %v", ErrBadVolume, err)
	}
	for i := range raw {
		v.bits[i>>3] |= uint64(raw[i]) << (uint(i&7) * 8)
	}
	return v, nil
}

// WriteVolume encodes v as a blob.
func WriteVolume(w io.Writer, v *Volume) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	h := blobHeader{
		Magic:   blobMagic,
		SizeX:   uint32(v.sizeX),
		SizeY:   uint32(v.sizeY),
		SizeZ:   uint32(v.sizeZ),
		OriginX: v.origin.X,
		OriginY: v.origin.Y,
		OriginZ: v.origin.Z,
		Voxel:   v.voxel,
	}
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		enc.Close()
		return err
	}
	n := (v.cellCount() + 7) / 8
	raw := make([]byte, n)
	for i := range raw {
		raw[i] = byte(v.bits[i>>3] >> (uint(i&7) * 8))
	}
	if _, err := bw.Write(raw); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// SaveVolume writes v to path, creating parent directories.
func SaveVolume(path string, v *Volume) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := WriteVolume(f, v); err != nil {
		f.Close()
		return fmt.Errorf("write nav volume %s: %w", path, err)
	}
	return f.Close()
}
