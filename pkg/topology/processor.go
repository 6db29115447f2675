package topology

import (
	"cmp"
	"io"

	"github.com/charmbracelet/log"

	"github.com/Adirelle/docker-graph/pkg/events"
)

// Processor routes domain events to store mutations.
type Processor struct {
	store  *Store
	build  Builder
	logger *log.Logger
}

// NewProcessor returns a processor mutating store.
func NewProcessor(store *Store, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Processor{store: store, build: NewNode, logger: logger}
}

// Store returns the store the processor mutates.
func (p *Processor) Store() *Store { return p.store }

// Process applies e to the store and returns the store's dirty state
// afterwards. Events about anything but containers are ignored and return
// false, as do updates without a container record.
//
// Replaying an update the store already reflects changes nothing: every
// projection and relation is diffed field by field.
func (p *Processor) Process(e events.Event) bool {
	if !e.IsContainer() {
		p.logger.Debug("ignored event", "target", e.TargetType, "type", e.Type, "id", e.TargetID)
		return false
	}

	if e.IsRemoval() {
		if n := p.store.Node(e.TargetID); n != nil {
			p.store.RemoveNode(n)
		} else {
			p.logger.Debug("removal of unknown container", "id", e.TargetID)
		}
		return p.store.Dirty()
	}

	if e.Details == nil {
		p.logger.Warn("container event without details", "type", e.Type, "id", e.TargetID)
		return false
	}

	ctn := *e.Details
	id := cmp.Or(e.TargetID, ctn.ID)
	if id == "" {
		p.logger.Warn("container event without id", "type", e.Type)
		return false
	}
	ctn.ID = cmp.Or(ctn.ID, id)
	p.store.GetOrCreateNode(id, p.build, ContainerPayload{Container: ctn})
	return p.store.Dirty()
}
