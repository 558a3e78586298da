package domain

import "time"

// StorageNode - a capacity report published by one storage node (shark)
type StorageNode struct {
	ID          string    `json:"manta_storage_id" dynamodbav:"manta_storage_id"` // Partition Key
	Datacenter  string    `json:"datacenter" dynamodbav:"datacenter"`
	AvailableMB int64     `json:"availableMB" dynamodbav:"available_mb"`
	PercentUsed float64   `json:"percentUsed" dynamodbav:"percent_used"`
	Timestamp   time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

// Host identifies one chosen storage node.
type Host struct {
	Datacenter string `json:"datacenter"`
	NodeID     string `json:"manta_storage_id"`
}

// ReplicaSet is an ordered group of distinct hosts that jointly hold one
// copy-set of an object.
type ReplicaSet []Host

// Datacenters returns the number of distinct datacenters the set spans.
func (s ReplicaSet) Datacenters() int {
	seen := make(map[string]struct{}, len(s))
	for _, h := range s {
		seen[h.Datacenter] = struct{}{}
	}
	return len(seen)
}

// ChooseRequest describes the object being placed. Zero values select the
// configured defaults.
type ChooseRequest struct {
	SizeMB     float64 `json:"size"`
	Replicas   int     `json:"replicas"`
	IsOperator bool    `json:"isOperator"`
}
