package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/zpicker/internal/placement"
)

const snapshotUploadTimeout = 30 * time.Second

// snapshotDump is the serialized form of an installed snapshot.
type snapshotDump struct {
	InstalledAt time.Time      `json:"installed_at"`
	Normal      placement.View `json:"normal"`
	Operator    placement.View `json:"operator"`
}

// SnapshotSink archives every installed snapshot for monitoring.
type SnapshotSink struct {
	repo   ObjectRepository
	prefix string
}

// NewSnapshotSink creates a sink writing under prefix in repo.
func NewSnapshotSink(repo ObjectRepository, prefix string) *SnapshotSink {
	return &SnapshotSink{repo: repo, prefix: prefix}
}

// Key returns the object key a snapshot is stored under.
func (s *SnapshotSink) Key(snap *placement.Snapshot) string {
	name := fmt.Sprintf("snapshot-%s.json", snap.InstalledAt.UTC().Format("20060102T150405.000000000Z"))
	return path.Join(s.prefix, name)
}

// Publish uploads one snapshot.
func (s *SnapshotSink) Publish(ctx context.Context, snap *placement.Snapshot) (string, error) {
	data, err := json.Marshal(snapshotDump{
		InstalledAt: snap.InstalledAt,
		Normal:      snap.Normal,
		Operator:    snap.Operator,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s.repo.Upload(ctx, s.Key(snap), bytes.NewReader(data))
}

// Listener returns an install listener that uploads in the background so a
// slow store never delays the install.
func (s *SnapshotSink) Listener() placement.InstallListener {
	return func(snap *placement.Snapshot) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), snapshotUploadTimeout)
			defer cancel()

			location, err := s.Publish(ctx, snap)
			if err != nil {
				log.WithError(err).Warn("failed to archive topology snapshot")
				return
			}
			log.Debugf("Archived topology snapshot to %s", location)
		}()
	}
}
