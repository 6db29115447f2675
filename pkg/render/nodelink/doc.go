// Package nodelink renders container topologies as node-link diagrams.
//
// # Overview
//
// This package produces Graphviz drawings of a [topology.Snapshot]: every
// visible node becomes a shape chosen by its kind (boxes for containers,
// cylinders for volumes, hexagons for networks...), labelled and coloured
// from its display fields, and every visible link becomes an arrow.
//
// # Usage
//
// Convert a snapshot to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(snap, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # Options
//
//   - Detailed: node labels include the tooltip lines (status, tag, ...)
//   - Icons: labels start with the Font Awesome glyph of the node kind
//   - RankDir: Graphviz rank direction, left to right by default
//
// Tooltips are emitted as Graphviz tooltip attributes, so they show up as
// hover titles in the SVG output.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
