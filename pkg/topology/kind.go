package topology

import (
	"strings"

	"github.com/Adirelle/docker-graph/pkg/errors"
)

// Kind tags the entity a node stands for.
type Kind uint8

// Node kinds.
const (
	KindContainer Kind = iota
	KindNetwork
	KindImage
	KindVolume
	KindBindMount
	KindPort
	KindHostIP
)

var kindInfo = [...]struct {
	name string // stable identifier, used in flags and JSON
	typ  string // display type tag
	icon string // Font Awesome glyph
}{
	KindContainer: {"container", "container", "\uf395"},
	KindNetwork:   {"network", "network", "\uf6ff"},
	KindImage:     {"image", "image", "\uf03e"},
	KindVolume:    {"volume", "volume", "\uf1c0"},
	KindBindMount: {"bind-mount", "Bind mount", "\uf07b"},
	KindPort:      {"port", "port", "\uf796"},
	KindHostIP:    {"host-ip", "Host IP", "\uf390"},
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindContainer, KindNetwork, KindImage, KindVolume, KindBindMount, KindPort, KindHostIP}
}

func (k Kind) valid() bool { return int(k) < len(kindInfo) }

// String returns the stable identifier of the kind ("bind-mount", "host-ip", ...).
func (k Kind) String() string {
	if !k.valid() {
		return "unknown"
	}
	return kindInfo[k].name
}

// Type returns the display type tag ("Bind mount", "Host IP", ...).
func (k Kind) Type() string {
	if !k.valid() {
		return "?"
	}
	return kindInfo[k].typ
}

// Icon returns the icon glyph of the kind.
func (k Kind) Icon() string {
	if !k.valid() {
		return "x"
	}
	return kindInfo[k].icon
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a kind identifier or display type, ignoring case.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range Kinds() {
		if strings.EqualFold(s, k.String()) || strings.EqualFold(s, k.Type()) {
			return k, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidKind, "unknown node kind %q", s)
}

// ParseKinds parses a list of kind identifiers.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
