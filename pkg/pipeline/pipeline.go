// Package pipeline wires the topology engine to its inputs and outputs.
//
// A [Runner] owns one graph store and one event processor. Every mutation
// happens on the goroutine executing [Runner.Run]: event sources post
// events with [Runner.Submit], the layout collaborator posts coordinates
// with [Runner.UpdateLayout], and the render debouncer posts a flush signal.
// No lock guards the store.
//
// On flush the runner materializes the graph once and hands the snapshot to
// every [Sink] in order. Sinks use the snapshot synchronously; a sink that
// publishes to other goroutines must serialize it first.
//
// # Usage
//
//	r, err := pipeline.NewRunner(pipeline.Options{Logger: logger},
//	    pipeline.NewFileSink("out", renderer, []string{"json", "svg"}, logger))
//	if err != nil {
//	    return err
//	}
//	go connector.Run(ctx, r.Handler(ctx))
//	return r.Run(ctx)
//
// [Render] turns a snapshot into artifacts (JSON, DOT, SVG, PNG, PDF). SVG
// and its derivatives are cached by the hash of their DOT source.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/render"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

// DefaultDebounce is the quiet period before a flush.
const DefaultDebounce = 300 * time.Millisecond

// DefaultEventBuffer is the capacity of the event channel.
const DefaultEventBuffer = 64

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
)

// Formats lists the supported output formats.
var Formats = []string{FormatJSON, FormatDOT, FormatSVG, FormatPNG, FormatPDF}

// DefaultFormats are written when none are configured.
var DefaultFormats = []string{FormatJSON, FormatDOT, FormatSVG}

// Extension returns the file extension of a format.
func Extension(format string) string { return "." + format }

// ValidateFormats checks that every format is supported.
func ValidateFormats(formats []string) error {
	return errors.ValidateFormats(formats, Formats...)
}

// RequireConverter fails when formats include png or pdf and rsvg-convert
// is not installed.
func RequireConverter(formats []string) error {
	return requireConverter(formats, render.Available)
}

func requireConverter(formats []string, available func() bool) error {
	for _, f := range formats {
		if (f == FormatPNG || f == FormatPDF) && !available() {
			return errors.New(errors.ErrCodeUnsupported, "format %s requires rsvg-convert (librsvg)", f)
		}
	}
	return nil
}

// Options configures a [Runner].
type Options struct {
	// Debounce is the quiet period between the last graph change and a
	// flush. Defaults to DefaultDebounce.
	Debounce time.Duration

	// Hide lists node kinds that are tracked but not rendered.
	Hide []topology.Kind

	// EventBuffer is the capacity of the event channel.
	EventBuffer int

	Logger *log.Logger
}

// SetDefaults fills unset fields.
func (o *Options) SetDefaults() {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultEventBuffer
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks option consistency. It applies defaults first.
func (o *Options) Validate() error {
	o.SetDefaults()
	for _, k := range o.Hide {
		if _, err := topology.ParseKind(k.String()); err != nil {
			return err
		}
	}
	return nil
}
