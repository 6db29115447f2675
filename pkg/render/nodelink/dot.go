package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/Adirelle/docker-graph/pkg/render"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed puts the tooltip lines under the label.
	// When false, only the label is shown.
	Detailed bool

	// Icons prefixes labels with the kind glyph. The glyphs come from
	// Font Awesome, which must be installed for them to render.
	Icons bool

	// RankDir is the Graphviz rank direction. Defaults to LR.
	RankDir string
}

// shapes maps node kinds to Graphviz shapes.
var shapes = map[topology.Kind]string{
	topology.KindContainer: "box",
	topology.KindNetwork:   "hexagon",
	topology.KindImage:     "note",
	topology.KindVolume:    "cylinder",
	topology.KindBindMount: "folder",
	topology.KindPort:      "circle",
	topology.KindHostIP:    "diamond",
}

// ToDOT converts a snapshot to Graphviz DOT format.
// Hidden nodes, and links touching them, are left out. The resulting DOT
// string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
func ToDOT(snap topology.Snapshot, opts Options) string {
	rankdir := opts.RankDir
	if rankdir == "" {
		rankdir = "LR"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=\"rounded,filled\", fillcolor=white, fontname=\"sans-serif\", fontsize=12, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  edge [arrowsize=0.6, color=\"#666666\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range snap.Nodes {
		if !n.Visible() {
			continue
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", quote(n.ID), strings.Join(fmtAttrs(n, opts), ", "))
	}

	buf.WriteString("\n")
	for _, l := range snap.Links {
		if !l.Visible() {
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s;\n", quote(l.Source.ID), quote(l.Target.ID))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *topology.Node, opts Options) string {
	label := n.Label
	if opts.Icons {
		label = n.Kind.Icon() + " " + label
	}
	if !opts.Detailed || n.Tooltip == "" {
		return label
	}

	// The first tooltip line repeats the label.
	lines := strings.Split(n.Tooltip, "<br/>")
	return label + "\n" + strings.Join(lines[1:], "\n")
}

func fmtAttrs(n *topology.Node, opts Options) []string {
	attrs := []string{
		"label=" + quote(fmtLabel(n, opts)),
		"shape=" + shapes[n.Kind],
		"tooltip=" + quote(strings.ReplaceAll(n.Tooltip, "<br/>", "\n")),
		"class=" + quote(n.Kind.String()),
	}
	if n.Color != "" {
		attrs = append(attrs, "color="+quote(n.Color), "fontcolor="+quote(n.Color))
	}
	return attrs
}

// dotEscaper escapes a string for a DOT double-quoted literal. Unlike %q it
// leaves non-ASCII runes alone, which Graphviz reads as UTF-8.
var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")

func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing scales with its
// container instead of using Graphviz's point units.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
