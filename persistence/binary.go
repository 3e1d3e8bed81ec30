package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/internal/kernel"
)

// ArrayWriter writes arrays in the binary array format.
type ArrayWriter struct {
	w         io.Writer
	byteOrder binary.ByteOrder
}

// NewArrayWriter creates a new binary writer.
func NewArrayWriter(w io.Writer) *ArrayWriter {
	return &ArrayWriter{w: w, byteOrder: binary.LittleEndian}
}

// WriteArray writes the header followed by the payload of a and returns the
// payload checksum.
func (aw *ArrayWriter) WriteArray(a *cam.Array) (uint32, error) {
	var payload bytes.Buffer
	payload.Grow(payloadSize(a.Rows(), a.Features(), a.DType()))

	cw := NewChecksumWriter(&payload)
	if err := writePayload(cw, aw.byteOrder, a); err != nil {
		return 0, err
	}

	header := FileHeader{
		Magic:    MagicNumber,
		Version:  Version,
		DType:    uint8(a.DType()),
		Rows:     uint32(a.Rows()),
		Features: uint32(a.Features()),
		Checksum: cw.Sum(),
	}
	if err := binary.Write(aw.w, aw.byteOrder, &header); err != nil {
		return 0, err
	}
	if _, err := aw.w.Write(payload.Bytes()); err != nil {
		return 0, err
	}
	return header.Checksum, nil
}

// Payload layout:
//
//	values   [rows]float64
//	leafIDs  [rows]int32
//	per feature:
//	  flag     uint8 (1 = column has wildcards)
//	  wildcard [words]uint64 (only when flag == 1)
//	  lower    [rows]float32|float64
//	  upper    [rows]float32|float64
func writePayload(w io.Writer, order binary.ByteOrder, a *cam.Array) error {
	rows := a.Rows()

	values := make([]float64, rows)
	leafIDs := make([]int32, rows)
	for r := range rows {
		values[r] = a.Value(r)
		leafIDs[r] = int32(a.LeafID(r))
	}
	if err := binary.Write(w, order, values); err != nil {
		return err
	}
	if err := binary.Write(w, order, leafIDs); err != nil {
		return err
	}

	for f := range a.Features() {
		wild := a.WildcardWords(f)
		flag := uint8(0)
		if wild != nil {
			flag = 1
		}
		if err := binary.Write(w, order, flag); err != nil {
			return err
		}
		if wild != nil {
			if err := binary.Write(w, order, wild); err != nil {
				return err
			}
		}

		var lower, upper any
		if a.DType() == cam.Float32 {
			lower, upper = a.Columns32(f)
		} else {
			lower, upper = a.Columns64(f)
		}
		if err := binary.Write(w, order, lower); err != nil {
			return err
		}
		if err := binary.Write(w, order, upper); err != nil {
			return err
		}
	}
	return nil
}

// payloadSize returns the maximum payload size of an array: every column is
// assumed to carry wildcard words.
func payloadSize(rows, features int, dtype cam.DType) int {
	perFeature := 1 + kernel.WordsFor(rows)*8 + 2*rows*dtype.Size()
	return rows*(8+4) + features*perFeature
}

// ArrayReader reads arrays from the binary array format.
type ArrayReader struct {
	r         io.Reader
	byteOrder binary.ByteOrder
}

// NewArrayReader creates a new binary reader.
func NewArrayReader(r io.Reader) *ArrayReader {
	return &ArrayReader{r: r, byteOrder: binary.LittleEndian}
}

// ReadHeader reads and validates the header.
func (ar *ArrayReader) ReadHeader() (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(ar.r, ar.byteOrder, &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: invalid magic 0x%08x", ErrCorrupt, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: array version 0x%08x", ErrIncompatibleFormat, header.Version)
	}
	switch cam.DType(header.DType) {
	case cam.Float32, cam.Float64:
	default:
		return nil, fmt.Errorf("%w: dtype %d", ErrIncompatibleFormat, header.DType)
	}
	if header.Rows == 0 || header.Features == 0 {
		return nil, fmt.Errorf("%w: empty array %dx%d", ErrCorrupt, header.Rows, header.Features)
	}
	return &header, nil
}

// ReadArray reads a whole array blob and returns it with its payload
// checksum. name is used in error messages.
func (ar *ArrayReader) ReadArray(name string) (*cam.Array, uint32, error) {
	header, err := ar.ReadHeader()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", name, err)
	}

	rows, features := int(header.Rows), int(header.Features)
	dtype := cam.DType(header.DType)

	limit := int64(payloadSize(rows, features, dtype))
	payload, err := io.ReadAll(io.LimitReader(ar.r, limit+1))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", name, err)
	}
	if int64(len(payload)) > limit {
		return nil, 0, fmt.Errorf("%s: %w: trailing data", name, ErrCorrupt)
	}
	if err := verifyChecksum(name, payload, header.Checksum); err != nil {
		return nil, 0, err
	}

	a, err := decodePayload(bytes.NewReader(payload), ar.byteOrder, rows, features, dtype)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", name, err)
	}
	return a, header.Checksum, nil
}

func decodePayload(r *bytes.Reader, order binary.ByteOrder, rows, features int, dtype cam.DType) (*cam.Array, error) {
	read := func(v any) error {
		if err := binary.Read(r, order, v); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return nil
	}

	values := make([]float64, rows)
	if err := read(values); err != nil {
		return nil, err
	}
	ids := make([]int32, rows)
	if err := read(ids); err != nil {
		return nil, err
	}

	bounds := make([][]cam.Bound, rows)
	for r := range bounds {
		bounds[r] = make([]cam.Bound, features)
	}

	lower := make([]float64, rows)
	upper := make([]float64, rows)
	lower32 := make([]float32, rows)
	upper32 := make([]float32, rows)
	wild := make([]uint64, kernel.WordsFor(rows))

	for f := range features {
		var flag uint8
		if err := read(&flag); err != nil {
			return nil, err
		}
		hasWild := flag == 1
		if flag > 1 {
			return nil, fmt.Errorf("%w: feature %d flag %d", ErrCorrupt, f, flag)
		}
		if hasWild {
			if err := read(wild); err != nil {
				return nil, err
			}
		}

		if dtype == cam.Float32 {
			if err := read(lower32); err != nil {
				return nil, err
			}
			if err := read(upper32); err != nil {
				return nil, err
			}
			for i := range rows {
				lower[i], upper[i] = float64(lower32[i]), float64(upper32[i])
			}
		} else {
			if err := read(lower); err != nil {
				return nil, err
			}
			if err := read(upper); err != nil {
				return nil, err
			}
		}

		for i := range rows {
			if hasWild && wild[i>>6]&(1<<(uint(i)&63)) != 0 {
				bounds[i][f] = cam.Wildcard()
				continue
			}
			bounds[i][f] = cam.Range(lower[i], upper[i])
		}
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.Len())
	}

	leafIDs := make([]int, rows)
	for i, id := range ids {
		leafIDs[i] = int(id)
	}
	a, err := cam.RestoreArray(bounds, values, leafIDs, dtype)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return a, nil
}

// EncodeArray returns the binary form of a.
func EncodeArray(a *cam.Array) ([]byte, uint32, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + payloadSize(a.Rows(), a.Features(), a.DType()))
	sum, err := NewArrayWriter(&buf).WriteArray(a)
	if err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), sum, nil
}

// DecodeArray parses the binary form produced by EncodeArray.
func DecodeArray(name string, data []byte) (*cam.Array, uint32, error) {
	return NewArrayReader(bytes.NewReader(data)).ReadArray(name)
}
