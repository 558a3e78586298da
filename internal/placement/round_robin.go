package placement

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zzenonn/zpicker/internal/domain"
	zerrors "github.com/zzenonn/zpicker/internal/errors"
)

const (
	// ReplicaSetCount is the number of sets Choose tries to build: one
	// primary and two backups.
	ReplicaSetCount = 3

	DefaultReplicas  = 2
	DefaultMaxSizeMB = 5120

	// maxRequestMB is 2^63, the first float64 that no longer fits an int64.
	maxRequestMB = float64(math.MaxInt64)
)

// Options configures an Engine.
type Options struct {
	// MultiDatacenter requires every set of more than one replica to span
	// at least two datacenters.
	MultiDatacenter  bool
	DefaultMaxSizeMB int64
	DefaultReplicas  int
	// Rand overrides the entropy source, mostly for tests.
	Rand *rand.Rand
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MultiDatacenter:  true,
		DefaultMaxSizeMB: DefaultMaxSizeMB,
		DefaultReplicas:  DefaultReplicas,
	}
}

// InstallListener is invoked after every snapshot install.
type InstallListener func(*Snapshot)

// candidate is a datacenter that has room for the current request.
type candidate struct {
	datacenter string
	nodes      NodeList
	start      int
}

// Engine implements round-robin placement across datacenters.
type Engine struct {
	opts     Options
	snapshot atomic.Pointer[Snapshot]

	// mu serializes the cursor and the entropy source.
	mu      sync.Mutex
	rng     *rand.Rand
	dcIndex int

	listenersMu sync.RWMutex
	listeners   []InstallListener
}

// NewEngine creates an engine holding an empty snapshot.
func NewEngine(opts Options) *Engine {
	if opts.DefaultMaxSizeMB <= 0 {
		opts.DefaultMaxSizeMB = DefaultMaxSizeMB
	}
	if opts.DefaultReplicas <= 0 {
		opts.DefaultReplicas = DefaultReplicas
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	e := &Engine{
		opts: opts,
		rng:  rng,
	}
	e.snapshot.Store(emptySnapshot())
	return e
}

// OnInstall registers a listener for snapshot installs.
func (e *Engine) OnInstall(l InstallListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()

	e.listeners = append(e.listeners, l)
}

// InstallSnapshot publishes a new topology. Nil views are treated as empty.
func (e *Engine) InstallSnapshot(normal, operator View) {
	if normal == nil {
		normal = View{}
	}
	if operator == nil {
		operator = View{}
	}

	snap := &Snapshot{
		Normal:      normal,
		Operator:    operator,
		InstalledAt: time.Now(),
	}
	e.snapshot.Store(snap)

	log.WithFields(log.Fields{
		"datacenters":    len(operator),
		"normal_nodes":   normal.Len(),
		"operator_nodes": operator.Len(),
	}).Debug("installed topology snapshot")

	e.listenersMu.RLock()
	listeners := make([]InstallListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.listenersMu.RUnlock()

	for _, l := range listeners {
		l(snap)
	}
}

// Snapshot returns the currently installed topology.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Choose selects up to three replica sets for an object.
func (e *Engine) Choose(req domain.ChooseRequest) ([]domain.ReplicaSet, error) {
	if !validSize(req.SizeMB) || req.Replicas < 0 {
		return nil, fmt.Errorf("%w: size %v, replicas %d", zerrors.ErrInvalidRequest, req.SizeMB, req.Replicas)
	}

	size := e.opts.DefaultMaxSizeMB
	if req.SizeMB > 0 {
		size = int64(math.Ceil(req.SizeMB))
	}
	replicas := e.opts.DefaultReplicas
	if req.Replicas > 0 {
		replicas = req.Replicas
	}
	spread := e.opts.MultiDatacenter && replicas > 1

	logger := log.WithFields(log.Fields{
		"size":     size,
		"replicas": replicas,
		"operator": req.IsOperator,
	})

	view := e.Snapshot().view(req.IsOperator)
	candidates := make([]candidate, 0, len(view))
	for _, dc := range view.Datacenters() {
		nodes := view[dc]
		if start, ok := LowerBound(nodes, size); ok {
			candidates = append(candidates, candidate{datacenter: dc, nodes: nodes, start: start})
		}
	}

	if len(candidates) == 0 {
		return nil, zerrors.InsufficientSpace(size, zerrors.ReasonNoDatacenter)
	}
	if spread && len(candidates) < 2 {
		return nil, zerrors.TooFewDatacenters(size, replicas)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	seen := make(seenSet)
	sets := make([]domain.ReplicaSet, 0, ReplicaSetCount)
	for i := 0; i < ReplicaSetCount; i++ {
		set := e.buildSet(candidates, replicas, seen)
		if set == nil {
			if i == 0 {
				return nil, zerrors.InsufficientSpace(size, zerrors.ReasonTooManyCopies)
			}
			logger.Tracef("backup replica set %d could not be built", i)
			continue
		}

		if spread && set.Datacenters() < 2 {
			return nil, zerrors.InsufficientSpace(size, zerrors.ReasonInsufficientDCSpan)
		}
		sets = append(sets, set)
	}

	logger.WithField("sets", len(sets)).Debug("chose storage nodes")
	return sets, nil
}

// validSize reports whether sizeMB rounds up to a non-negative int64.
// NaN fails every comparison and is rejected with the infinities.
func validSize(sizeMB float64) bool {
	return sizeMB >= 0 && sizeMB < maxRequestMB
}

// buildSet picks replicas hosts or returns nil. Must hold e.mu.
func (e *Engine) buildSet(candidates []candidate, replicas int, seen seenSet) domain.ReplicaSet {
	set := make(domain.ReplicaSet, 0, replicas)
	for i := 0; i < replicas; i++ {
		host, ok := e.nextHost(candidates, seen)
		if !ok {
			return nil
		}
		set = append(set, host)
	}
	return set
}

// nextHost advances the datacenter cursor and picks a node there. Must hold e.mu.
func (e *Engine) nextHost(candidates []candidate, seen seenSet) (domain.Host, bool) {
	e.dcIndex = (e.dcIndex + 1) % len(candidates)
	c := candidates[e.dcIndex]

	node, ok := pickNode(e.rng, c.nodes, c.start, seen)
	if !ok {
		return domain.Host{}, false
	}
	return domain.Host{Datacenter: c.datacenter, NodeID: node.ID}, true
}
