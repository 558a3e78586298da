package topology

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/zpicker/internal/domain"
)

func report(id, dc string, mb int64, pct float64) domain.StorageNode {
	return domain.StorageNode{ID: id, Datacenter: dc, AvailableMB: mb, PercentUsed: pct}
}

func ids(nodes []domain.StorageNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestBuildViews_ThresholdsAndOrder(t *testing.T) {
	nodes := []domain.StorageNode{
		report("big", "dc1", 900, 10),
		report("small", "dc1", 100, 50),
		report("operator-only", "dc1", 50, 91),
		report("full", "dc1", 10, 99),
		report("b", "dc2", 300, 20),
		report("a", "dc2", 300, 20),
		report("dc3-operator", "dc3", 20, 92),
	}

	normal, operator := BuildViews(nodes, DefaultThresholds(), time.Now())

	assert.Equal(t, []string{"small", "big"}, ids(normal["dc1"]))
	assert.Equal(t, []string{"operator-only", "small", "big"}, ids(operator["dc1"]))
	assert.Equal(t, []string{"a", "b"}, ids(normal["dc2"]))
	assert.NotContains(t, normal, "dc3")
	assert.Equal(t, []string{"dc3-operator"}, ids(operator["dc3"]))
}

func TestBuildViews_OperatorIsSuperset(t *testing.T) {
	nodes := []domain.StorageNode{
		report("1", "dc1", 10, 0),
		report("2", "dc1", 20, 89.9),
		report("3", "dc2", 30, 90),
		report("4", "dc2", 40, 90.5),
		report("5", "dc3", 50, 95),
	}

	// An operator limit below the normal limit must not break the superset.
	th := Thresholds{MaxUtilizationPct: 90, OperatorUtilizationPct: 80}
	normal, operator := BuildViews(nodes, th, time.Now())

	for dc, list := range normal {
		opIDs := ids(operator[dc])
		for _, n := range list {
			assert.Contains(t, opIDs, n.ID)
		}
	}
	assert.Equal(t, 3, normal.Len())
}

func TestBuildViews_DropsStaleAndMalformed(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	fresh := report("fresh", "dc1", 10, 1)
	fresh.Timestamp = now.Add(-time.Minute)
	stale := report("stale", "dc1", 10, 1)
	stale.Timestamp = now.Add(-time.Hour)
	undated := report("undated", "dc1", 10, 1)

	nodes := []domain.StorageNode{
		fresh, stale, undated,
		report("", "dc1", 10, 1),
		report("nodc", "", 10, 1),
		report("negative", "dc1", -1, 1),
	}

	th := DefaultThresholds()
	th.MaxRecordAge = 10 * time.Minute
	normal, operator := BuildViews(nodes, th, now)

	require.Len(t, normal, 1)
	assert.Equal(t, []string{"fresh", "undated"}, ids(normal["dc1"]))
	assert.Equal(t, []string{"fresh", "undated"}, ids(operator["dc1"]))
}

func TestBuildViews_Empty(t *testing.T) {
	normal, operator := BuildViews(nil, DefaultThresholds(), time.Now())
	assert.NotNil(t, normal)
	assert.NotNil(t, operator)
	assert.Zero(t, normal.Len())
}
