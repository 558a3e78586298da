// Package topology turns storage node capacity reports into placement
// snapshots and keeps them fresh in the background.
package topology

import (
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zzenonn/zpicker/internal/domain"
	"github.com/zzenonn/zpicker/internal/placement"
)

const (
	DefaultMaxUtilizationPct      = 90
	DefaultOperatorUtilizationPct = 92
)

// Thresholds decide which nodes enter each snapshot view.
type Thresholds struct {
	MaxUtilizationPct      float64
	OperatorUtilizationPct float64
	// MaxRecordAge drops reports older than this. Zero keeps every report.
	MaxRecordAge time.Duration
}

// DefaultThresholds returns the stock utilization limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxUtilizationPct:      DefaultMaxUtilizationPct,
		OperatorUtilizationPct: DefaultOperatorUtilizationPct,
	}
}

// BuildViews groups nodes by datacenter into the normal and operator views,
// each list sorted ascending by available capacity. A node admitted to the
// normal view is always admitted to the operator view as well.
func BuildViews(nodes []domain.StorageNode, th Thresholds, now time.Time) (normal, operator placement.View) {
	normal = placement.View{}
	operator = placement.View{}

	operatorLimit := th.OperatorUtilizationPct
	if operatorLimit < th.MaxUtilizationPct {
		operatorLimit = th.MaxUtilizationPct
	}

	for _, n := range nodes {
		if n.ID == "" || n.Datacenter == "" || n.AvailableMB < 0 {
			log.WithField("node", n.ID).Warn("skipping malformed storage node record")
			continue
		}
		if th.MaxRecordAge > 0 && !n.Timestamp.IsZero() && now.Sub(n.Timestamp) > th.MaxRecordAge {
			log.WithFields(log.Fields{
				"node": n.ID,
				"age":  now.Sub(n.Timestamp),
			}).Debug("skipping stale storage node record")
			continue
		}
		if n.PercentUsed > operatorLimit {
			continue
		}

		operator[n.Datacenter] = append(operator[n.Datacenter], n)
		if n.PercentUsed <= th.MaxUtilizationPct {
			normal[n.Datacenter] = append(normal[n.Datacenter], n)
		}
	}

	sortView(normal)
	sortView(operator)
	return normal, operator
}

func sortView(v placement.View) {
	for _, list := range v {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].AvailableMB != list[j].AvailableMB {
				return list[i].AvailableMB < list[j].AvailableMB
			}
			return list[i].ID < list[j].ID
		})
	}
}
