package gpu_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kestrel-labs/imagerefine/pkg/apperrors"
	"github.com/kestrel-labs/imagerefine/pkg/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorld simulates the set of currently-alive service ports without
// touching the OS, so WithImageGenOperation/WithVLMOperation can be
// exercised concurrently and cheaply (spec §8 scenario 6).
type fakeWorld struct {
	mu      sync.Mutex
	alive   map[int]bool
	nextPID int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{alive: make(map[int]bool)}
}

type fakeController struct {
	w         *fakeWorld
	ports     map[gpu.Service]int
	portOfPID map[int]int
}

func (c *fakeController) Start(ctx context.Context, svc gpu.Service) (int, error) {
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	c.w.nextPID++
	pid := c.w.nextPID
	c.w.alive[c.ports[svc]] = true
	c.portOfPID[pid] = c.ports[svc]
	return pid, nil
}

func (c *fakeController) Stop(ctx context.Context, svc gpu.Service, pid int) error {
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	c.w.alive[c.ports[svc]] = false
	return nil
}

type fakeProber struct {
	w *fakeWorld
}

func (p *fakeProber) Probe(ctx context.Context, baseURL string) error {
	var port int
	if _, err := fmt.Sscanf(baseURL, "http://127.0.0.1:%d", &port); err != nil {
		return err
	}
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	if p.w.alive[port] {
		return nil
	}
	return fmt.Errorf("service at port %d not healthy", port)
}

func newTestCoordinator(t *testing.T) (*gpu.Coordinator, *fakeWorld, string) {
	t.Helper()
	dir := t.TempDir()
	ports := map[gpu.Service]int{
		gpu.ServiceLLM:    11001,
		gpu.ServiceImage:  11002,
		gpu.ServiceVision: 11003,
		gpu.ServiceVLM:    11004,
	}
	for svc, port := range ports {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf(".%s.port", svc)), []byte(fmt.Sprintf("%d", port)), 0o644))
	}
	w := newFakeWorld()
	controller := &fakeController{w: w, ports: ports, portOfPID: make(map[int]int)}
	prober := &fakeProber{w: w}
	c := gpu.New(controller, prober, dir, nil, gpu.WithCleanupDelay(1*time.Millisecond), gpu.WithRestartBound(2*time.Second))
	return c, w, dir
}

func TestImageAndVLMOperationsAreMutuallyExclusive(t *testing.T) {
	c, w, _ := newTestCoordinator(t)
	ctx := context.Background()

	var overlap int32
	var imageRunning, vlmRunning int32

	run := func(op func(context.Context, func(context.Context) error) error, flag *int32) func() error {
		return func() error {
			return op(ctx, func(ctx context.Context) error {
				atomic.StoreInt32(flag, 1)
				if atomic.LoadInt32(&imageRunning) == 1 && atomic.LoadInt32(&vlmRunning) == 1 {
					atomic.AddInt32(&overlap, 1)
				}
				time.Sleep(5 * time.Millisecond)
				atomic.StoreInt32(flag, 0)
				return nil
			})
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	var err1, err2 error
	go func() { defer wg.Done(); err1 = run(c.WithImageGenOperation, &imageRunning)() }()
	go func() { defer wg.Done(); err2 = run(c.WithVLMOperation, &vlmRunning)() }()
	wg.Wait()

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, int32(0), atomic.LoadInt32(&overlap))
	_ = w
}

func TestEnsureAliveUpdatesLastHealthyAt(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	before := time.Now()
	require.NoError(t, c.WithLLMOperation(ctx, func(ctx context.Context) error { return nil }))

	running, lastHealthy, pid, _ := c.State(gpu.ServiceLLM)
	assert.True(t, running)
	assert.True(t, !lastHealthy.Before(before))
	assert.NotZero(t, pid)
}

func TestStopLockPreventsAutoRestart(t *testing.T) {
	c, _, dir := newTestCoordinator(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".image.STOP_LOCK"), []byte{}, 0o644))

	err := c.WithImageGenOperation(context.Background(), func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ServiceUnavailable))
}

func TestRestartRecoversFromUnhealthyService(t *testing.T) {
	c, w, _ := newTestCoordinator(t)
	ctx := context.Background()

	// Pretend the VLM service crashed: mark its port dead even though
	// the registry still thinks it was running.
	require.NoError(t, c.WithVLMOperation(ctx, func(ctx context.Context) error { return nil }))
	w.mu.Lock()
	w.alive[11004] = false
	w.mu.Unlock()

	require.NoError(t, c.Restart(ctx, gpu.ServiceVLM))

	running, _, _, _ := c.State(gpu.ServiceVLM)
	assert.True(t, running)
}

func TestWithGPULockSerializesArbitraryWork(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	var counter int32
	var wg sync.WaitGroup
	const n = 10
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = c.WithGPULock(ctx, func(ctx context.Context) error {
				v := atomic.AddInt32(&counter, 1)
				time.Sleep(time.Millisecond)
				require.Equal(t, v, atomic.LoadInt32(&counter))
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(n), counter)
}
