// Package render converts rendered container graphs between output formats.
//
// The node-link renderer in [nodelink] produces SVG in-process through
// Graphviz. [ToPDF] and [ToPNG] turn any SVG into PDF or PNG using the
// external rsvg-convert tool (from librsvg):
//
//	svg, err := nodelink.RenderSVG(dot)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// [Available] reports whether rsvg-convert is installed, so callers can
// reject the formats up front instead of failing on every flush.
package render
