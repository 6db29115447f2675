package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a snapshot to JSON bytes.
func MarshalGraph(snap topology.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeGraphTo(FromSnapshot(snap), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes a snapshot as JSON to an io.Writer.
// Use MarshalGraph for in-memory serialization or WriteGraphFile for files.
func WriteGraph(snap topology.Snapshot, w io.Writer) error {
	return writeGraphTo(FromSnapshot(snap), w)
}

// WriteGraphFile writes a snapshot to a JSON file. The file is replaced
// atomically so readers never observe a partial graph.
func WriteGraphFile(snap topology.Snapshot, path string) error {
	data, err := MarshalGraph(snap)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// ReadGraphFile reads a JSON graph file.
func ReadGraphFile(path string) (Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return Graph{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readGraphFrom(f)
}

// UnmarshalGraph deserializes JSON bytes to a Graph.
func UnmarshalGraph(data []byte) (Graph, error) {
	return readGraphFrom(bytes.NewReader(data))
}

// UnmarshalLayout decodes node coordinates posted by a layout engine.
// Every node must carry an id.
func UnmarshalLayout(data []byte) (map[string]topology.Layout, error) {
	g, err := UnmarshalGraph(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode layout")
	}
	out := make(map[string]topology.Layout, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "layout node %d has no id", i)
		}
		out[n.ID] = n.Layout
	}
	return out, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it over path.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeGraphTo(g Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readGraphFrom(r io.Reader) (Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return Graph{}, fmt.Errorf("decode: %w", err)
	}
	return g, nil
}
