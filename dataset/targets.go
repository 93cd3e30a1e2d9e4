package dataset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/setanarut/colorize"
)

// ErrCorrupt is returned when a stored target map cannot be parsed.
var ErrCorrupt = errors.New("dataset: corrupt target file")

var targetMagic = [4]byte{'C', 'Z', 'T', '1'}

// --- ZSTD helpers ---

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		)
		if err != nil {
			panic(err)
		}
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(err)
		}
		return dec
	},
}

// WriteTargets stores a soft-encoded map in a compact zstd stream. Only the
// non-zero bins of every pixel are written, so a map costs about k entries
// per pixel instead of N.
//
// Layout before compression: magic "CZT1", W, H, N as uint32 little endian,
// then per pixel a uvarint count followed by count pairs of (uvarint bin,
// float64 weight).
func WriteTargets(w io.Writer, m *colorize.BinMap) error {
	if m == nil || m.W <= 0 || m.H <= 0 || m.N <= 0 || len(m.Data) != m.W*m.H*m.N {
		return fmt.Errorf("dataset: malformed target map")
	}
	raw := make([]byte, 0, 16+m.W*m.H*8)
	raw = append(raw, targetMagic[:]...)
	raw = binary.LittleEndian.AppendUint32(raw, uint32(m.W))
	raw = binary.LittleEndian.AppendUint32(raw, uint32(m.H))
	raw = binary.LittleEndian.AppendUint32(raw, uint32(m.N))

	for p := range m.W * m.H {
		px := m.Data[p*m.N : (p+1)*m.N]
		count := 0
		for _, v := range px {
			if v != 0 {
				count++
			}
		}
		raw = binary.AppendUvarint(raw, uint64(count))
		for i, v := range px {
			if v == 0 {
				continue
			}
			raw = binary.AppendUvarint(raw, uint64(i))
			raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(v))
		}
	}

	enc := zstdEncPool.Get().(*zstd.Encoder)
	out := enc.EncodeAll(raw, nil)
	zstdEncPool.Put(enc)
	_, err := w.Write(out)
	return err
}

// ReadTargets is the inverse of WriteTargets.
func ReadTargets(r io.Reader) (*colorize.BinMap, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	dec := zstdDecPool.Get().(*zstd.Decoder)
	raw, err := dec.DecodeAll(compressed, nil)
	zstdDecPool.Put(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if len(raw) < 16 || !bytes.Equal(raw[:4], targetMagic[:]) {
		return nil, fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	w := int(binary.LittleEndian.Uint32(raw[4:]))
	h := int(binary.LittleEndian.Uint32(raw[8:]))
	n := int(binary.LittleEndian.Uint32(raw[12:]))
	if w <= 0 || h <= 0 || n <= 0 || w*h > len(raw) {
		return nil, fmt.Errorf("%w: bad dimensions %dx%dx%d", ErrCorrupt, w, h, n)
	}
	m := colorize.NewBinMap(w, h, n)

	buf := raw[16:]
	next := func() (uint64, bool) {
		v, k := binary.Uvarint(buf)
		if k <= 0 {
			return 0, false
		}
		buf = buf[k:]
		return v, true
	}
	for p := range w * h {
		count, ok := next()
		if !ok || count > uint64(n) {
			return nil, fmt.Errorf("%w: pixel %d", ErrCorrupt, p)
		}
		for range count {
			bin, ok := next()
			if !ok || bin >= uint64(n) || len(buf) < 8 {
				return nil, fmt.Errorf("%w: pixel %d", ErrCorrupt, p)
			}
			m.Data[p*n+int(bin)] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
			buf = buf[8:]
		}
	}
	if len(buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(buf))
	}
	return m, nil
}

// TargetCache soft-encodes the items of a dataset once and keeps the results
// on disk. A cache directory belongs to one encoder configuration; stored
// maps whose bin count or size no longer match are re-encoded.
type TargetCache struct {
	set *ImageFileOrDirectory
	enc *colorize.SoftEncoder
	dir string
}

func NewTargetCache(set *ImageFileOrDirectory, enc *colorize.SoftEncoder, dir string) (*TargetCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return &TargetCache{set: set, enc: enc, dir: dir}, nil
}

func (c *TargetCache) path(item string) string {
	return filepath.Join(c.dir, filepath.Base(item)+".zst")
}

// Target returns the soft-encoded chrominance of item i, from disk when a
// matching map is stored there.
func (c *TargetCache) Target(i int) (*colorize.BinMap, error) {
	if i < 0 || i >= c.set.Len() {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndex, i, c.set.Len())
	}
	path := c.path(c.set.files[i])
	if m, err := c.load(path); err == nil {
		return m, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		colorize.Logger().Warn("dataset: re-encoding target", "path", path, "err", err)
	}

	lab, _, err := c.set.At(i)
	if err != nil {
		return nil, err
	}
	m, err := c.enc.EncodeImage(lab.AB)
	if err != nil {
		return nil, err
	}
	if err := c.store(path, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *TargetCache) load(path string) (*colorize.BinMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadTargets(f)
	if err != nil {
		return nil, err
	}
	if m.N != c.enc.Table().Size() {
		return nil, fmt.Errorf("stored %d bins, table has %d", m.N, c.enc.Table().Size())
	}
	if c.set.size > 0 && (m.W != c.set.size || m.H != c.set.size) {
		return nil, fmt.Errorf("stored %dx%d, dataset size %d", m.W, m.H, c.set.size)
	}
	return m, nil
}

func (c *TargetCache) store(path string, m *colorize.BinMap) error {
	tmp, err := os.CreateTemp(c.dir, ".target-*")
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	if err := WriteTargets(tmp, m); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	return nil
}
