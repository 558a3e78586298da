package topology

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/zpicker/internal/domain"
	"github.com/zzenonn/zpicker/internal/placement"
)

const DefaultRefreshInterval = 30 * time.Second

// Source delivers the full set of storage node reports.
type Source interface {
	ListNodes(ctx context.Context) ([]domain.StorageNode, error)
}

// Installer receives freshly built views.
type Installer interface {
	InstallSnapshot(normal, operator placement.View)
}

// RefresherOptions configures a Refresher.
type RefresherOptions struct {
	Interval   time.Duration
	Thresholds Thresholds
}

// Refresher periodically rebuilds the topology from a Source and hands it to
// an Installer. A failed fetch leaves the previously installed snapshot in
// place and the next attempt is delayed by an exponential backoff.
type Refresher struct {
	source     Source
	installer  Installer
	interval   time.Duration
	thresholds Thresholds

	nodes atomic.Pointer[[]domain.StorageNode]

	startOnce sync.Once
	started   atomic.Bool
	ctx       context.Context
	ctxCancel func()
	closeCh   chan struct{}
}

// NewRefresher creates a stopped refresher.
func NewRefresher(source Source, installer Installer, opts RefresherOptions) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}

	ctx, ctxCancel := context.WithCancel(context.Background())
	return &Refresher{
		source:     source,
		installer:  installer,
		interval:   opts.Interval,
		thresholds: opts.Thresholds,
		ctx:        ctx,
		ctxCancel:  ctxCancel,
		closeCh:    make(chan struct{}),
	}
}

// Start launches the background refresh loop. The first fetch happens
// immediately.
func (r *Refresher) Start() {
	r.startOnce.Do(func() {
		r.started.Store(true)
		go r.procThread()
	})
}

func (r *Refresher) procThread() {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	b.MaxInterval = r.interval
	if b.InitialInterval > r.interval {
		b.InitialInterval = r.interval
	}
	b.Reset()

MainLoop:
	for {
		wait := r.interval
		if err := r.Refresh(r.ctx); err != nil {
			if r.ctx.Err() != nil {
				break MainLoop
			}
			wait = b.NextBackOff()
			log.WithError(err).WithField("retry_in", wait).Warn("failed to refresh storage topology")
		} else {
			b.Reset()
		}

		select {
		case <-time.After(wait):
		case <-r.ctx.Done():
			break MainLoop
		}
	}

	close(r.closeCh)
}

// Refresh fetches, builds and installs one snapshot.
func (r *Refresher) Refresh(ctx context.Context) error {
	nodes, err := r.source.ListNodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list storage nodes: %w", err)
	}

	normal, operator := BuildViews(nodes, r.thresholds, time.Now())
	r.nodes.Store(&nodes)
	r.installer.InstallSnapshot(normal, operator)

	log.WithFields(log.Fields{
		"nodes":          len(nodes),
		"normal_nodes":   normal.Len(),
		"operator_nodes": operator.Len(),
	}).Info("refreshed storage topology")
	return nil
}

// Nodes returns every report from the last successful fetch, including
// nodes above the utilization thresholds. Nil before the first fetch.
func (r *Refresher) Nodes() []domain.StorageNode {
	p := r.nodes.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Close stops the refresh loop and waits for it to exit.
func (r *Refresher) Close() {
	r.ctxCancel()
	if r.started.Load() {
		<-r.closeCh
	}
}
