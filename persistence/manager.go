package persistence

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/campie/blobstore"
	"github.com/hupe1980/campie/cam"
	"github.com/hupe1980/campie/codec"
	"github.com/hupe1980/campie/internal/compress"
	"github.com/hupe1980/campie/internal/resource"
	"github.com/hupe1980/campie/tree"
)

// Compression selects the block compression of array blobs.
type Compression = compress.Type

const (
	// CompressionNone stores array blobs uncompressed.
	CompressionNone = compress.None
	// CompressionLZ4 favors speed.
	CompressionLZ4 = compress.LZ4
	// CompressionZSTD favors ratio.
	CompressionZSTD = compress.ZSTD
)

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	return compress.ParseType(s)
}

const manifestBlob = "manifest.json"

type options struct {
	compression Compression
	codec       codec.Codec
	concurrency int
	rc          *resource.Controller
}

// Option configures Save and Load.
type Option func(*options)

// WithCompression sets the array blob compression. Default: LZ4.
func WithCompression(c Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithCodec sets the manifest codec. Default: codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithConcurrency bounds the number of arrays encoded or decoded in
// parallel. Default: GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithIOLimit throttles blob reads and writes to bytesPerSec.
func WithIOLimit(bytesPerSec int) Option {
	return func(o *options) {
		o.rc = resource.NewController(resource.Config{IOLimitBytesPerSec: int64(bytesPerSec)})
	}
}

func applyOptions(opts []Option) options {
	o := options{
		compression: CompressionLZ4,
		codec:       codec.Default,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, fn := range opts {
		fn(&o)
	}
	o.codec = codec.OrDefault(o.codec)
	return o
}

// Save writes e under name. Array blobs are encoded in parallel; the
// manifest is written last.
func Save(ctx context.Context, store blobstore.Store, name string, e *cam.Ensemble, opts ...Option) error {
	if e == nil {
		return errors.New("persistence: nil ensemble")
	}
	o := applyOptions(opts)

	cfg := e.Config()
	m := Manifest{
		Format:      FormatName,
		Version:     ManifestVersion,
		Name:        cfg.Name,
		Task:        cfg.Task.String(),
		NumClasses:  cfg.NumClasses,
		Weights:     cfg.Weights,
		BaseScore:   cfg.BaseScore,
		DType:       e.DType().String(),
		Features:    e.Features(),
		Compression: o.compression.String(),
		Arrays:      make([]ArrayManifest, e.Len()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i := range e.Len() {
		g.Go(func() error {
			blob := fmt.Sprintf("array-%05d.cam", i)
			a := e.Array(i)

			raw, sum, err := EncodeArray(a)
			if err != nil {
				return fmt.Errorf("encode array %d: %w", i, err)
			}
			data, err := compress.Encode(raw, o.compression)
			if err != nil {
				return fmt.Errorf("compress array %d: %w", i, err)
			}
			if err := writeBlob(gctx, store, path.Join(name, blob), data, o.rc); err != nil {
				return fmt.Errorf("write array %d: %w", i, err)
			}
			m.Arrays[i] = ArrayManifest{Blob: blob, Rows: a.Rows(), Checksum: sum, Size: int64(len(data))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	data, err := o.codec.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return writeBlob(ctx, store, path.Join(name, manifestBlob), data, o.rc)
}

func writeBlob(ctx context.Context, store blobstore.Store, name string, data []byte, rc *resource.Controller) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := resource.NewRateLimitedWriter(ctx, w, rc).Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func readBlob(ctx context.Context, store blobstore.Store, name string, rc *resource.Controller) ([]byte, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, err
	}
	if err := rc.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// ReadManifest reads and validates the manifest of name.
func ReadManifest(ctx context.Context, store blobstore.Store, name string, opts ...Option) (*Manifest, error) {
	o := applyOptions(opts)
	data, err := readBlob(ctx, store, path.Join(name, manifestBlob), o.rc)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := o.codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrCorrupt, err)
	}
	if m.Format != FormatName || m.Version != ManifestVersion {
		return nil, fmt.Errorf("%w: manifest %q version %d", ErrIncompatibleFormat, m.Format, m.Version)
	}
	if len(m.Arrays) == 0 {
		return nil, fmt.Errorf("%w: manifest lists no arrays", ErrCorrupt)
	}
	return &m, nil
}

// Load reads the ensemble saved under name.
func Load(ctx context.Context, store blobstore.Store, name string, opts ...Option) (*cam.Ensemble, error) {
	o := applyOptions(opts)

	m, err := ReadManifest(ctx, store, name, opts...)
	if err != nil {
		return nil, err
	}
	task, err := tree.ParseTask(m.Task)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleFormat, err)
	}
	dtype, err := cam.ParseDType(m.DType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleFormat, err)
	}

	arrays := make([]*cam.Array, len(m.Arrays))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, am := range m.Arrays {
		g.Go(func() error {
			data, err := readBlob(gctx, store, path.Join(name, am.Blob), o.rc)
			if err != nil {
				return fmt.Errorf("read array %d: %w", i, err)
			}
			raw, err := compress.Decode(data)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorrupt, am.Blob, err)
			}
			a, sum, err := DecodeArray(am.Blob, raw)
			if err != nil {
				return err
			}
			switch {
			case sum != am.Checksum:
				return &ChecksumMismatchError{Blob: am.Blob, Expected: am.Checksum, Actual: sum}
			case a.Rows() != am.Rows:
				return fmt.Errorf("%w: %s has %d rows, manifest says %d", ErrCorrupt, am.Blob, a.Rows(), am.Rows)
			case a.Features() != m.Features:
				return fmt.Errorf("%w: %s has %d features, manifest says %d", ErrCorrupt, am.Blob, a.Features(), m.Features)
			case a.DType() != dtype:
				return fmt.Errorf("%w: %s dtype %s, manifest says %s", ErrCorrupt, am.Blob, a.DType(), dtype)
			}
			arrays[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return cam.NewEnsemble(cam.EnsembleConfig{
		Name:       m.Name,
		Task:       task,
		NumClasses: m.NumClasses,
		Weights:    m.Weights,
		BaseScore:  m.BaseScore,
	}, arrays...)
}

// Delete removes every blob saved under name.
func Delete(ctx context.Context, store blobstore.Store, name string) error {
	names, err := store.List(ctx, name+"/")
	if err != nil {
		return err
	}
	// Manifest first so a concurrent Load fails cleanly.
	if err := store.Delete(ctx, path.Join(name, manifestBlob)); err != nil {
		return err
	}
	for _, n := range names {
		if path.Base(n) == manifestBlob {
			continue
		}
		if err := store.Delete(ctx, n); err != nil {
			return err
		}
	}
	return nil
}
