// Package service exposes the picker to front-ends: placement decisions,
// node lookups and topology fetches over a background-refreshed snapshot.
//
// A PickerService built without a refresher runs in standalone mode.
// Callers install snapshots themselves and only Choose is available; node
// lookups and topology fetches return ErrUnsupportedInStandaloneMode.
package service

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/zpicker/internal/domain"
	zerrors "github.com/zzenonn/zpicker/internal/errors"
	"github.com/zzenonn/zpicker/internal/placement"
)

// TopologyRefresher keeps the placer's snapshot current.
type TopologyRefresher interface {
	Start()
	Close()
	Refresh(ctx context.Context) error
	Nodes() []domain.StorageNode
}

// PickerService wraps a placer and its optional refresher.
type PickerService struct {
	placer    placement.Placer
	refresher TopologyRefresher

	ready     chan struct{}
	readyOnce sync.Once
}

// NewPickerService creates a PickerService. A nil refresher selects
// standalone mode.
func NewPickerService(placer placement.Placer, refresher TopologyRefresher) *PickerService {
	s := &PickerService{
		placer:    placer,
		refresher: refresher,
		ready:     make(chan struct{}),
	}
	placer.OnInstall(func(*placement.Snapshot) {
		s.readyOnce.Do(func() { close(s.ready) })
	})
	return s
}

// Standalone reports whether the service has no refresher.
func (s *PickerService) Standalone() bool {
	return s.refresher == nil
}

// Start begins background refreshes. No-op in standalone mode.
func (s *PickerService) Start() {
	if s.refresher != nil {
		s.refresher.Start()
	}
}

// Close stops background refreshes.
func (s *PickerService) Close() {
	if s.refresher != nil {
		s.refresher.Close()
	}
}

// Ready is closed once the first snapshot has been installed.
func (s *PickerService) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until the first snapshot is installed or ctx is done.
func (s *PickerService) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for topology: %w", ctx.Err())
	}
}

// Choose selects replica sets for an object.
func (s *PickerService) Choose(req domain.ChooseRequest) ([]domain.ReplicaSet, error) {
	sets, err := s.placer.Choose(req)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"size":     req.SizeMB,
			"replicas": req.Replicas,
		}).Debug("placement failed")
		return nil, err
	}
	return sets, nil
}

// InstallSnapshot replaces the topology directly.
func (s *PickerService) InstallSnapshot(normal, operator placement.View) {
	s.placer.InstallSnapshot(normal, operator)
}

// Snapshot returns the installed topology.
func (s *PickerService) Snapshot() *placement.Snapshot {
	return s.placer.Snapshot()
}

// OnInstall registers a listener for snapshot installs.
func (s *PickerService) OnInstall(l placement.InstallListener) {
	s.placer.OnInstall(l)
}

// Topology returns every known storage node report, fetching once if no
// refresh has completed yet.
func (s *PickerService) Topology(ctx context.Context) ([]domain.StorageNode, error) {
	if s.refresher == nil {
		return nil, zerrors.ErrUnsupportedInStandaloneMode
	}

	nodes := s.refresher.Nodes()
	if nodes == nil {
		if err := s.refresher.Refresh(ctx); err != nil {
			return nil, zerrors.FetchingResourceError("storage topology", err)
		}
		nodes = s.refresher.Nodes()
	}
	return nodes, nil
}

// Node looks up one storage node report by id.
func (s *PickerService) Node(ctx context.Context, id string) (domain.StorageNode, error) {
	nodes, err := s.Topology(ctx)
	if err != nil {
		return domain.StorageNode{}, err
	}

	for _, n := range nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return domain.StorageNode{}, fmt.Errorf("%w: %s", zerrors.ErrNodeNotFound, id)
}
