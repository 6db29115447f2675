package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Adirelle/docker-graph/pkg/cache"
	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/graph"
	"github.com/Adirelle/docker-graph/pkg/observability"
	"github.com/Adirelle/docker-graph/pkg/render/nodelink"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

// DefaultPNGScale is the PNG rasterization factor.
const DefaultPNGScale = 2.0

// Artifacts maps formats to rendered bytes.
type Artifacts map[string][]byte

// Renderer turns snapshots into artifacts.
//
// SVG, PNG and PDF outputs are looked up in Cache by the hash of the DOT
// source before invoking Graphviz, so an unchanged visible graph is never
// laid out twice.
type Renderer struct {
	Cache    cache.Cache
	DOT      nodelink.Options
	PNGScale float64
	TTL      time.Duration
	Logger   *log.Logger
}

// NewRenderer returns a renderer. A nil cache disables caching.
func NewRenderer(c cache.Cache, opts nodelink.Options, logger *log.Logger) *Renderer {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Renderer{Cache: c, DOT: opts, PNGScale: DefaultPNGScale, TTL: cache.TTLArtifact, Logger: logger}
}

// Render renders snap in every requested format.
func (r *Renderer) Render(ctx context.Context, snap topology.Snapshot, formats []string) (Artifacts, error) {
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, formats)
	start := time.Now()

	artifacts, err := r.render(ctx, snap, formats)
	hooks.OnRenderComplete(ctx, formats, time.Since(start), err)
	return artifacts, err
}

func (r *Renderer) render(ctx context.Context, snap topology.Snapshot, formats []string) (Artifacts, error) {
	dot := nodelink.ToDOT(snap, r.DOT)

	artifacts := make(Artifacts, len(formats))
	for _, format := range formats {
		var (
			data []byte
			err  error
		)
		switch format {
		case FormatJSON:
			data, err = graph.MarshalGraph(snap)
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG, FormatPNG, FormatPDF:
			data, err = r.RenderDOT(ctx, dot, format)
		default:
			err = errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderDOT lays out a DOT source as svg, png or pdf, going through the
// cache. It does not report to the render hooks.
func (r *Renderer) RenderDOT(ctx context.Context, dot, format string) ([]byte, error) {
	key := cache.ArtifactKey(cache.Hash([]byte(dot)), format)
	if data, hit, err := r.Cache.Get(ctx, key); err != nil {
		r.Logger.Warn("render cache lookup failed", "format", format, "error", err)
	} else if hit {
		return data, nil
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatSVG:
		data, err = nodelink.RenderSVG(ctx, dot)
	case FormatPNG:
		data, err = nodelink.RenderPNG(ctx, dot, r.PNGScale)
	case FormatPDF:
		data, err = nodelink.RenderPDF(ctx, dot)
	default:
		err = errors.New(errors.ErrCodeInvalidFormat, "cannot lay out %q", format)
	}
	if err != nil {
		return nil, err
	}

	if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
		r.Logger.Warn("render cache write failed", "format", format, "error", err)
	}
	return data, nil
}

// FileSink writes one file per format into a directory on every flush.
// Files are named graph.<format> and replaced atomically.
type FileSink struct {
	Dir      string
	Formats  []string
	Renderer *Renderer
	Logger   *log.Logger
}

// NewFileSink returns a sink writing formats into dir.
func NewFileSink(dir string, r *Renderer, formats []string, logger *log.Logger) *FileSink {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FileSink{Dir: dir, Formats: formats, Renderer: r, Logger: logger}
}

// Path returns the output path of format.
func (s *FileSink) Path(format string) string {
	return filepath.Join(s.Dir, "graph"+Extension(format))
}

// Flush renders snap and writes every artifact.
func (s *FileSink) Flush(ctx context.Context, snap topology.Snapshot) error {
	artifacts, err := s.Renderer.Render(ctx, snap, s.Formats)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var errs []error
	for _, format := range s.Formats {
		path := s.Path(format)
		if err := graph.WriteFileAtomic(path, artifacts[format]); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", path, err))
			continue
		}
		s.Logger.Debug("wrote graph", "path", path, "bytes", len(artifacts[format]))
	}
	return stderrors.Join(errs...)
}

var _ Sink = (*FileSink)(nil)
