// Package selection is the state machine behind region picks: it resolves
// the covering satellites, builds connectors and labels for them, and keeps
// exactly one pulse running on the chosen marker.
package selection

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/vanderheijden86/orbview/pkg/annotation"
	"github.com/vanderheijden86/orbview/pkg/debug"
	"github.com/vanderheijden86/orbview/pkg/geom"
	"github.com/vanderheijden86/orbview/pkg/metrics"
	"github.com/vanderheijden86/orbview/pkg/model"
	"github.com/vanderheijden86/orbview/pkg/pulse"
)

// ErrUnknownRegion is returned by Select for an id that names no region.
var ErrUnknownRegion = errors.New("unknown region")

// Entities is the read-only lookup the controller selects against.
// *model.Model implements it.
type Entities interface {
	Region(id string) (model.Region, error)
	Node(id string) (model.Node, error)
	HasNode(id string) bool
	SphereRadius() float64
}

// PathBuilder builds one connector. Implementations must be safe for
// concurrent use; geom.Builder is.
type PathBuilder interface {
	Build(anchor, target r3.Vec, radius float64) ([]r3.Vec, error)
}

// Annotator owns the label set.
type Annotator interface {
	Replace(entries []annotation.Entry) []annotation.Label
	Clear()
}

// Pulser runs the marker pulse. Start must stop any previous run.
type Pulser interface {
	Start(targetID string) uint64
	Stop()
}

// Option configures a Controller.
type Option func(*Controller)

// WithPathBuilder sets the connector builder.
func WithPathBuilder(b PathBuilder) Option {
	return func(c *Controller) {
		c.builder = b
	}
}

// WithAnnotator sets the label manager.
func WithAnnotator(a Annotator) Option {
	return func(c *Controller) {
		c.annotator = a
	}
}

// WithPulser sets the pulse animator.
func WithPulser(p Pulser) Option {
	return func(c *Controller) {
		c.pulser = p
	}
}

// WithWorkers bounds how many connectors are built at once.
func WithWorkers(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.workers = n
		}
	}
}

type subscriber struct {
	id int
	fn func(Event, State)
}

// Controller moves between Idle and Active(region). Every transition is
// built off to the side and swapped in under the lock, so CurrentState never
// observes a half-applied selection.
type Controller struct {
	entities  Entities
	builder   PathBuilder
	annotator Annotator
	pulser    Pulser
	workers   int

	mu    sync.RWMutex
	state State

	subMu  sync.Mutex
	subs   []subscriber
	nextID int
}

// New returns an idle Controller over entities.
func New(entities Entities, opts ...Option) *Controller {
	c := &Controller{
		entities:  entities,
		builder:   geom.DefaultBuilder(),
		annotator: annotation.NewManager(0),
		pulser:    pulse.New(pulse.Options{}),
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Select makes regionID the active region. On error the previous state is
// left untouched.
func (c *Controller) Select(regionID string) (State, error) {
	defer metrics.Timer(metrics.SelectionCompute)()

	c.mu.Lock()
	region, err := c.entities.Region(regionID)
	if err != nil {
		c.mu.Unlock()
		return c.CurrentState(), fmt.Errorf("select %q: %w: %w", regionID, ErrUnknownRegion, err)
	}

	highlight := c.knownMembers(region)
	connectors, err := c.buildConnectors(region, highlight)
	if err != nil {
		c.mu.Unlock()
		return c.CurrentState(), fmt.Errorf("select %q: %w", regionID, err)
	}

	entries := make([]annotation.Entry, 0, len(highlight)+1)
	for _, id := range highlight {
		n, _ := c.entities.Node(id)
		entries = append(entries, annotation.Entry{NodeID: n.ID, Position: n.Position})
	}
	entries = append(entries, annotation.Entry{NodeID: region.ID, Position: region.Position})
	labels := c.annotator.Replace(entries)

	prev := c.state
	gen := c.pulser.Start(region.ID)
	c.state = State{
		ActiveRegionID:  region.ID,
		Active:          true,
		Highlighted:     highlight,
		Connectors:      connectors,
		Labels:          labels,
		PulseGeneration: gen,
	}
	next := c.state.Clone()
	c.mu.Unlock()

	left, entered := diffSorted(prev.Highlighted, highlight)
	debug.Log("selection: %q -> %q (+%d -%d)", prev.ActiveRegionID, region.ID, len(entered), len(left))
	c.notify(Event{
		Kind:             Selected,
		RegionID:         region.ID,
		PreviousRegionID: prev.ActiveRegionID,
		Entered:          entered,
		Left:             left,
	}, next)
	return next, nil
}

// Deselect returns to Idle, clearing connectors and labels and stopping the
// pulse. It does nothing when already idle.
func (c *Controller) Deselect() State {
	c.mu.Lock()
	if !c.state.Active {
		c.mu.Unlock()
		return State{}
	}
	prev := c.state
	c.annotator.Clear()
	c.pulser.Stop()
	c.state = State{}
	c.mu.Unlock()

	debug.Log("selection: %q -> idle", prev.ActiveRegionID)
	c.notify(Event{
		Kind:             Deselected,
		PreviousRegionID: prev.ActiveRegionID,
		Left:             append([]string(nil), prev.Highlighted...),
	}, State{})
	return State{}
}

// CurrentState returns a copy of the current state.
func (c *Controller) CurrentState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// Subscribe registers fn to run after every completed transition. The
// returned func removes it.
func (c *Controller) Subscribe(fn func(Event, State)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) notify(ev Event, st State) {
	c.subMu.Lock()
	subs := append([]subscriber(nil), c.subs...)
	c.subMu.Unlock()
	for _, s := range subs {
		s.fn(ev, st)
	}
}

// knownMembers drops membership entries that name no node.
func (c *Controller) knownMembers(r model.Region) []string {
	out := make([]string, 0, len(r.Members))
	for _, id := range r.Members {
		if c.entities.HasNode(id) {
			out = append(out, id)
			continue
		}
		debug.Log("selection: region %q lists unknown satellite %q, skipped", r.ID, id)
	}
	return out
}

func (c *Controller) buildConnectors(r model.Region, ids []string) ([]Connector, error) {
	defer metrics.Timer(metrics.ConnectorBuild)()

	out := make([]Connector, len(ids))
	radius := c.entities.SphereRadius()

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, id := range ids {
		g.Go(func() error {
			n, err := c.entities.Node(id)
			if err != nil {
				return err
			}
			path, err := c.builder.Build(r.Position, n.Position, radius)
			if err != nil {
				return fmt.Errorf("connector %s -> %s: %w", r.ID, id, err)
			}
			out[i] = Connector{NodeID: id, Path: path}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
