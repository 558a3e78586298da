package placement

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/zpicker/internal/domain"
	zerrors "github.com/zzenonn/zpicker/internal/errors"
)

func newTestEngine(multiDC bool, seed uint64) *Engine {
	opts := DefaultOptions()
	opts.MultiDatacenter = multiDC
	opts.Rand = rand.New(rand.NewPCG(seed, seed+1))
	return NewEngine(opts)
}

// uniformView builds dcs datacenters of perDC nodes each with equal capacity.
func uniformView(dcs, perDC int, mb int64) View {
	v := View{}
	for d := 1; d <= dcs; d++ {
		dc := fmt.Sprintf("dc%d", d)
		for n := 1; n <= perDC; n++ {
			v[dc] = append(v[dc], node(fmt.Sprintf("%d.stor.%s", n, dc), dc, mb))
		}
	}
	return v
}

func requireInsufficient(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, zerrors.ErrInsufficientSpace))

	var spaceErr *zerrors.InsufficientSpaceError
	require.True(t, errors.As(err, &spaceErr))
	assert.Equal(t, reason, spaceErr.Reason)
}

func TestEngine_ChooseTwoSingleNodeDatacenters(t *testing.T) {
	e := newTestEngine(true, 1)
	view := View{
		"dc1": {node("a", "dc1", 10)},
		"dc2": {node("b", "dc2", 10)},
	}
	e.InstallSnapshot(view, view)

	for i := 0; i < 2; i++ {
		sets, err := e.Choose(domain.ChooseRequest{SizeMB: 5, Replicas: 2})
		require.NoError(t, err)
		require.Len(t, sets, 1, "backups cannot be built once both nodes are used")

		assert.ElementsMatch(t, domain.ReplicaSet{
			{Datacenter: "dc1", NodeID: "a"},
			{Datacenter: "dc2", NodeID: "b"},
		}, sets[0])
	}
}

func TestEngine_ChooseErrors(t *testing.T) {
	tests := []struct {
		name    string
		multiDC bool
		view    View
		req     domain.ChooseRequest
		reason  string
	}{
		{
			name:    "empty snapshot",
			multiDC: true,
			view:    View{},
			req:     domain.ChooseRequest{SizeMB: 1, Replicas: 1},
			reason:  zerrors.ReasonNoDatacenter,
		},
		{
			name:    "all nodes too small",
			multiDC: true,
			view:    uniformView(3, 3, 100),
			req:     domain.ChooseRequest{SizeMB: 101, Replicas: 2},
			reason:  zerrors.ReasonNoDatacenter,
		},
		{
			name:    "default size exceeds capacity",
			multiDC: true,
			view:    uniformView(2, 2, DefaultMaxSizeMB-1),
			req:     domain.ChooseRequest{},
			reason:  zerrors.ReasonNoDatacenter,
		},
		{
			name:    "one qualifying datacenter in multi-dc mode",
			multiDC: true,
			view: View{
				"dc1": {node("a", "dc1", 100), node("b", "dc1", 100)},
				"dc2": {node("c", "dc2", 5)},
			},
			req:    domain.ChooseRequest{SizeMB: 50, Replicas: 2},
			reason: fmt.Sprintf(zerrors.ReasonTooFewDatacenters, 2),
		},
		{
			name:    "primary set cannot be filled",
			multiDC: true,
			view: View{
				"dc1": {node("a", "dc1", 10)},
				"dc2": {node("b", "dc2", 10)},
			},
			req:    domain.ChooseRequest{SizeMB: 1, Replicas: 3},
			reason: zerrors.ReasonTooManyCopies,
		},
		{
			name:    "single datacenter too small for replicas",
			multiDC: false,
			view:    View{"dc1": {node("a", "dc1", 10)}},
			req:     domain.ChooseRequest{SizeMB: 1, Replicas: 2},
			reason:  zerrors.ReasonTooManyCopies,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(tt.multiDC, 3)
			e.InstallSnapshot(tt.view, tt.view)

			sets, err := e.Choose(tt.req)
			assert.Nil(t, sets)
			requireInsufficient(t, err, tt.reason)
		})
	}
}

func TestEngine_ChooseInvalidRequest(t *testing.T) {
	e := newTestEngine(true, 1)
	e.InstallSnapshot(uniformView(2, 2, 100), uniformView(2, 2, 100))

	tests := []struct {
		name string
		req  domain.ChooseRequest
	}{
		{"negative size", domain.ChooseRequest{SizeMB: -1}},
		{"negative replicas", domain.ChooseRequest{Replicas: -2}},
		{"NaN size", domain.ChooseRequest{SizeMB: math.NaN()}},
		{"positive infinity", domain.ChooseRequest{SizeMB: math.Inf(1)}},
		{"negative infinity", domain.ChooseRequest{SizeMB: math.Inf(-1)}},
		{"size beyond int64", domain.ChooseRequest{SizeMB: 1e30, Replicas: 2}},
		{"size of 2^63", domain.ChooseRequest{SizeMB: math.Ldexp(1, 63), Replicas: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sets, err := e.Choose(tt.req)
			assert.Nil(t, sets)
			assert.ErrorIs(t, err, zerrors.ErrInvalidRequest)
		})
	}
}

func TestEngine_ChooseLargestRepresentableSize(t *testing.T) {
	e := newTestEngine(true, 1)
	e.InstallSnapshot(uniformView(2, 2, 10), uniformView(2, 2, 10))

	// Largest float64 below 2^63 still fits an int64 and is simply too big.
	size := math.Nextafter(math.Ldexp(1, 63), 0)
	sets, err := e.Choose(domain.ChooseRequest{SizeMB: size, Replicas: 2})
	assert.Nil(t, sets)
	requireInsufficient(t, err, zerrors.ReasonNoDatacenter)
}

func TestEngine_SingleReplicaSkipsSpreadCheck(t *testing.T) {
	for _, multiDC := range []bool{true, false} {
		t.Run(fmt.Sprintf("multiDC=%v", multiDC), func(t *testing.T) {
			e := newTestEngine(multiDC, 5)
			view := uniformView(1, 4, 100)
			e.InstallSnapshot(view, view)

			sets, err := e.Choose(domain.ChooseRequest{SizeMB: 10, Replicas: 1})
			require.NoError(t, err)
			require.Len(t, sets, ReplicaSetCount)
			for _, set := range sets {
				require.Len(t, set, 1)
				assert.Equal(t, "dc1", set[0].Datacenter)
			}
		})
	}
}

func TestEngine_SingleDatacenterWithoutMultiDC(t *testing.T) {
	e := newTestEngine(false, 9)
	view := uniformView(1, 6, 100)
	e.InstallSnapshot(view, view)

	sets, err := e.Choose(domain.ChooseRequest{SizeMB: 10, Replicas: 2})
	require.NoError(t, err)
	assert.Len(t, sets, ReplicaSetCount)
}

func TestEngine_SizeRoundsUp(t *testing.T) {
	e := newTestEngine(false, 2)
	view := View{"dc1": {node("four", "dc1", 4), node("five", "dc1", 5)}}
	e.InstallSnapshot(view, view)

	sets, err := e.Choose(domain.ChooseRequest{SizeMB: 4.2, Replicas: 1})
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "five", sets[0][0].NodeID)
}

func TestEngine_OperatorView(t *testing.T) {
	e := newTestEngine(true, 4)
	normal := View{
		"dc1": {node("a", "dc1", 10)},
		"dc2": {node("b", "dc2", 10)},
	}
	operator := View{
		"dc1": {node("a", "dc1", 10), node("x", "dc1", 500)},
		"dc2": {node("b", "dc2", 10), node("y", "dc2", 500)},
	}
	e.InstallSnapshot(normal, operator)

	_, err := e.Choose(domain.ChooseRequest{SizeMB: 100, Replicas: 2})
	requireInsufficient(t, err, zerrors.ReasonNoDatacenter)

	sets, err := e.Choose(domain.ChooseRequest{SizeMB: 100, Replicas: 2, IsOperator: true})
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.ElementsMatch(t, domain.ReplicaSet{
		{Datacenter: "dc1", NodeID: "x"},
		{Datacenter: "dc2", NodeID: "y"},
	}, sets[0])
}

func TestEngine_ChooseInvariants(t *testing.T) {
	e := newTestEngine(true, 42)

	normal := View{}
	capacity := map[string]int64{}
	rng := rand.New(rand.NewPCG(99, 100))
	for d := 1; d <= 4; d++ {
		dc := fmt.Sprintf("dc%d", d)
		mb := int64(0)
		for n := 1; n <= 8; n++ {
			mb += rng.Int64N(400)
			id := fmt.Sprintf("%d.stor.%s", n, dc)
			normal[dc] = append(normal[dc], node(id, dc, mb))
			capacity[id] = mb
		}
	}
	e.InstallSnapshot(normal, normal)

	requests := make([]domain.ChooseRequest, 0, 510)
	for i := 0; i < 500; i++ {
		requests = append(requests, domain.ChooseRequest{SizeMB: float64(1 + i%1500), Replicas: 1 + i%3})
	}
	for _, size := range []float64{
		1e12, 1e18, math.Nextafter(math.Ldexp(1, 63), 0), math.Ldexp(1, 63), 1e30,
		math.MaxFloat64, math.Inf(1), math.NaN(),
	} {
		requests = append(requests, domain.ChooseRequest{SizeMB: size, Replicas: 2})
	}

	for _, req := range requests {
		sets, err := e.Choose(req)
		if err != nil {
			if !errors.Is(err, zerrors.ErrInvalidRequest) {
				assert.ErrorIs(t, err, zerrors.ErrInsufficientSpace)
			}
			continue
		}
		require.False(t, math.IsNaN(req.SizeMB) || math.IsInf(req.SizeMB, 0), "placed size %v", req.SizeMB)
		require.Less(t, req.SizeMB, math.Ldexp(1, 63), "placed size %v", req.SizeMB)

		require.NotEmpty(t, sets)
		require.LessOrEqual(t, len(sets), ReplicaSetCount)

		used := map[string]bool{}
		for _, set := range sets {
			require.Len(t, set, req.Replicas)
			if req.Replicas > 1 {
				assert.GreaterOrEqual(t, set.Datacenters(), 2)
			}
			for _, h := range set {
				assert.False(t, used[h.NodeID], "node %s reused in one call", h.NodeID)
				used[h.NodeID] = true
				assert.GreaterOrEqual(t, float64(capacity[h.NodeID]), req.SizeMB, "node %s too small", h.NodeID)
			}
		}
	}
}

func TestEngine_DistributionIsUniform(t *testing.T) {
	const (
		iterations = 20000
		dcs        = 3
		perDC      = 4
	)

	e := newTestEngine(true, 2024)
	view := uniformView(dcs, perDC, 1000)
	e.InstallSnapshot(view, view)

	nodeCounts := map[string]int{}
	dcCounts := map[string]int{}
	for i := 0; i < iterations; i++ {
		sets, err := e.Choose(domain.ChooseRequest{SizeMB: 10, Replicas: 2})
		require.NoError(t, err)
		require.Len(t, sets, ReplicaSetCount)
		for _, set := range sets {
			for _, h := range set {
				nodeCounts[h.NodeID]++
				dcCounts[h.Datacenter]++
			}
		}
	}

	picksPerCall := ReplicaSetCount * 2
	for dc, count := range dcCounts {
		assert.Equal(t, iterations*picksPerCall/dcs, count, "datacenter %s", dc)
	}

	// Every node lands in a call's result with probability picks/nodes.
	p := float64(picksPerCall) / float64(dcs*perDC)
	expected := iterations * p
	sigma := math.Sqrt(iterations * p * (1 - p))
	require.Len(t, nodeCounts, dcs*perDC)
	for id, count := range nodeCounts {
		assert.InDelta(t, expected, float64(count), 4*sigma, "node %s", id)
	}
}

func TestEngine_InstallNotifiesListeners(t *testing.T) {
	e := newTestEngine(true, 1)

	var got []*Snapshot
	e.OnInstall(func(s *Snapshot) { got = append(got, s) })

	normal := uniformView(2, 1, 10)
	operator := uniformView(2, 2, 10)
	e.InstallSnapshot(normal, operator)

	require.Len(t, got, 1)
	assert.Same(t, e.Snapshot(), got[0])
	assert.Equal(t, 2, got[0].Normal.Len())
	assert.Equal(t, 4, got[0].Operator.Len())
	assert.False(t, got[0].InstalledAt.IsZero())
}

func TestEngine_ConcurrentChooseAndInstall(t *testing.T) {
	e := newTestEngine(true, 8)
	e.InstallSnapshot(uniformView(3, 5, 100), uniformView(3, 5, 100))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_, err := e.Choose(domain.ChooseRequest{SizeMB: 10, Replicas: 2})
				assert.NoError(t, err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			v := uniformView(2+i%3, 3, 100)
			e.InstallSnapshot(v, v)
		}
	}()

	wg.Wait()
}

func TestEngine_ImplementsPlacer(t *testing.T) {
	var p Placer = NewEngine(DefaultOptions())
	assert.Equal(t, 0, p.Snapshot().Normal.Len())
}

func TestEngine_InstallNilViews(t *testing.T) {
	e := newTestEngine(true, 1)
	e.InstallSnapshot(uniformView(2, 1, 10), uniformView(2, 1, 10))
	e.InstallSnapshot(nil, nil)

	snap := e.Snapshot()
	require.NotNil(t, snap.Normal)
	require.NotNil(t, snap.Operator)

	_, err := e.Choose(domain.ChooseRequest{SizeMB: 1})
	var spaceErr *zerrors.InsufficientSpaceError
	require.ErrorAs(t, err, &spaceErr)
	assert.Equal(t, zerrors.ReasonNoDatacenter, spaceErr.Reason)
}
