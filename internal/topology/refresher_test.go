package topology

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/zpicker/internal/domain"
	"github.com/zzenonn/zpicker/internal/placement"
)

// mockSource is a mock implementation of a storage node source for testing.
type mockSource struct {
	listFunc func(ctx context.Context) ([]domain.StorageNode, error)
	calls    atomic.Int32
}

func (m *mockSource) ListNodes(ctx context.Context) ([]domain.StorageNode, error) {
	m.calls.Add(1)
	return m.listFunc(ctx)
}

// recordingInstaller remembers every installed view pair.
type recordingInstaller struct {
	mu        sync.Mutex
	installed []placement.View
	notify    chan struct{}
}

func newRecordingInstaller() *recordingInstaller {
	return &recordingInstaller{notify: make(chan struct{}, 16)}
}

func (r *recordingInstaller) InstallSnapshot(normal, operator placement.View) {
	r.mu.Lock()
	r.installed = append(r.installed, normal)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *recordingInstaller) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.installed)
}

func TestRefresher_RefreshInstallsViews(t *testing.T) {
	src := &mockSource{listFunc: func(ctx context.Context) ([]domain.StorageNode, error) {
		return []domain.StorageNode{
			report("a", "dc1", 10, 1),
			report("b", "dc2", 20, 95),
		}, nil
	}}
	inst := newRecordingInstaller()
	r := NewRefresher(src, inst, RefresherOptions{Thresholds: DefaultThresholds()})

	require.NoError(t, r.Refresh(context.Background()))
	require.Equal(t, 1, inst.count())
	assert.Equal(t, 1, inst.installed[0].Len())
	assert.Len(t, r.Nodes(), 2, "lookups see nodes above the thresholds too")
}

func TestRefresher_FailedRefreshKeepsPriorSnapshot(t *testing.T) {
	fail := false
	src := &mockSource{listFunc: func(ctx context.Context) ([]domain.StorageNode, error) {
		if fail {
			return nil, errors.New("registry unavailable")
		}
		return []domain.StorageNode{report("a", "dc1", 10, 1)}, nil
	}}

	engine := placement.NewEngine(placement.DefaultOptions())
	r := NewRefresher(src, engine, RefresherOptions{Thresholds: DefaultThresholds()})

	require.NoError(t, r.Refresh(context.Background()))
	before := engine.Snapshot()

	fail = true
	err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry unavailable")
	assert.Same(t, before, engine.Snapshot())
	assert.Len(t, r.Nodes(), 1)
}

func TestRefresher_BackgroundLoop(t *testing.T) {
	var attempts atomic.Int32
	src := &mockSource{listFunc: func(ctx context.Context) ([]domain.StorageNode, error) {
		if attempts.Add(1) == 1 {
			return nil, errors.New("first attempt fails")
		}
		return []domain.StorageNode{report("a", "dc1", 10, 1)}, nil
	}}
	inst := newRecordingInstaller()
	r := NewRefresher(src, inst, RefresherOptions{
		Interval:   10 * time.Millisecond,
		Thresholds: DefaultThresholds(),
	})

	r.Start()
	defer r.Close()

	for i := 0; i < 2; i++ {
		select {
		case <-inst.notify:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for topology install")
		}
	}
	assert.GreaterOrEqual(t, src.calls.Load(), int32(3))
}

func TestRefresher_CloseWithoutStart(t *testing.T) {
	r := NewRefresher(&mockSource{}, newRecordingInstaller(), RefresherOptions{})
	r.Close()
	assert.Nil(t, r.Nodes())
}
