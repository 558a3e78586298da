package placement

import (
	"sort"
	"time"

	"github.com/zzenonn/zpicker/internal/domain"
)

// NodeList is the candidate list for one datacenter, sorted ascending by
// AvailableMB. All search logic relies on that order.
type NodeList []domain.StorageNode

// View maps a datacenter to its candidate list.
type View map[string]NodeList

// Datacenters returns the datacenter names of v in sorted order.
func (v View) Datacenters() []string {
	dcs := make([]string, 0, len(v))
	for dc := range v {
		dcs = append(dcs, dc)
	}
	sort.Strings(dcs)
	return dcs
}

// Len returns the number of nodes across all datacenters.
func (v View) Len() int {
	n := 0
	for _, nodes := range v {
		n += len(nodes)
	}
	return n
}

// Snapshot is one published topology. Operator is a superset of Normal.
type Snapshot struct {
	Normal      View
	Operator    View
	InstalledAt time.Time
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Normal:   View{},
		Operator: View{},
	}
}

// view returns the variant serving the given traffic class.
func (s *Snapshot) view(isOperator bool) View {
	if isOperator {
		return s.Operator
	}
	return s.Normal
}
