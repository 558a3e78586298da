// Package placement selects storage nodes (sharks) for new objects.
//
// The package keeps an in-memory topology snapshot: for every datacenter a
// list of candidate storage nodes sorted ascending by available capacity. A
// snapshot exists in two variants, one for normal traffic and one for
// operator traffic, which admits nodes up to a higher utilization threshold.
// Snapshots are published by swapping a pointer and are never mutated after
// that, so Choose runs against a consistent view while a refresh is in
// flight.
//
// Choosing a placement:
//  1. Datacenters without any node large enough for the object are dropped
//     (binary search over the sorted list).
//  2. The remaining datacenters are shuffled.
//  3. Three replica sets are built (one primary, two backups). Each host is
//     taken from the next datacenter of a round-robin cursor that survives
//     across calls, picking a random node from the qualifying tail of that
//     datacenter's list and never reusing a node within one call.
//  4. In multi-datacenter mode every set of more than one replica must span
//     at least two datacenters.
//
// Example:
//
//	engine := NewEngine(DefaultOptions())
//	engine.InstallSnapshot(normal, operator)
//
//	sets, err := engine.Choose(domain.ChooseRequest{SizeMB: 20, Replicas: 2})
//	// sets[0] is the primary replica set, sets[1:] are backups
package placement

import (
	"github.com/zzenonn/zpicker/internal/domain"
)

// Placer picks storage nodes for objects.
//
// Implementations must be safe for concurrent use: Choose may run while a
// new snapshot is being installed.
type Placer interface {
	// Choose returns up to three replica sets for an object. The first set
	// is the primary; the call fails if it cannot be built.
	Choose(req domain.ChooseRequest) ([]domain.ReplicaSet, error)

	// InstallSnapshot atomically replaces the topology used by Choose.
	// The caller must not modify the views afterwards.
	InstallSnapshot(normal, operator View)

	// Snapshot returns the currently installed topology.
	Snapshot() *Snapshot

	// OnInstall registers a listener called after every InstallSnapshot.
	OnInstall(l InstallListener)
}
