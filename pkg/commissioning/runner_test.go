package commissioning

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esl-mosaic/pawr-go/pkg/connection"
	"github.com/esl-mosaic/pawr-go/pkg/slot"
	"github.com/esl-mosaic/pawr-go/pkg/transport/sim"
	"github.com/esl-mosaic/pawr-go/pkg/wire"
)

type resultLog struct {
	mu      sync.Mutex
	results []Result
}

func (l *resultLog) add(r Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, r)
}

func (l *resultLog) all() []Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Result(nil), l.results...)
}

func TestRunnerCommissionsExactlyCapacity(t *testing.T) {
	f := newFixture(t, 2, 2)
	for i := 0; i < 5; i++ {
		f.addNode(t, wire.DefaultNodeName, nil)
	}

	results := &resultLog{}
	r := NewRunner(f.central, f.alloc, f.central.Events(), RunnerConfig{
		Session:  testConfig(nil),
		OnResult: results.add,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	assert.True(t, f.alloc.Exhausted())
	assert.Equal(t, 4, f.alloc.Committed())
	assert.False(t, r.Running())

	seen := make(map[slot.Coordinate]bool)
	for _, res := range results.all() {
		require.True(t, res.OK(), "err: %v", res.Err)
		assert.False(t, seen[res.Coordinate], "coordinate %s assigned twice", res.Coordinate)
		seen[res.Coordinate] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, RunnerStats{Sessions: 4, Succeeded: 4}, r.Stats())
}

func TestRunnerFillsFullLayoutThenStopsScanning(t *testing.T) {
	f := newFixture(t, 5, 10)
	var nodes []*sim.Peripheral
	for i := 0; i < 55; i++ {
		nodes = append(nodes, f.addNode(t, wire.DefaultNodeName, nil))
	}

	results := &resultLog{}
	r := NewRunner(f.central, f.alloc, f.central.Events(), RunnerConfig{
		Session:  testConfig(nil),
		OnResult: results.add,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	assert.Equal(t, 50, f.alloc.Capacity())
	assert.Equal(t, 50, f.alloc.Committed())
	assert.True(t, f.alloc.Exhausted())
	assert.False(t, f.medium.Scanning())

	seen := make(map[slot.Coordinate]bool)
	for _, res := range results.all() {
		if !res.OK() {
			continue
		}
		assert.False(t, seen[res.Coordinate], "coordinate %s assigned twice", res.Coordinate)
		seen[res.Coordinate] = true
	}
	assert.Len(t, seen, 50)
	assert.Equal(t, int64(50), r.Stats().Succeeded)

	// The five nodes past capacity were never connected.
	synced := 0
	for _, p := range nodes {
		if p.Synced() {
			synced++
		}
	}
	assert.Equal(t, 50, synced)
}

func TestRunnerRetriesAfterFailure(t *testing.T) {
	f := newFixture(t, 1, 1)
	bad := f.addNode(t, wire.DefaultNodeName, nil)
	require.NoError(t, f.medium.InjectFault(bad.Address(), sim.FaultHideCharacteristic))
	good := f.addNode(t, wire.DefaultNodeName, nil)

	results := &resultLog{}
	backoff := connection.NewBackoffWithConfig(connection.BackoffConfig{Initial: time.Millisecond})
	r := NewRunner(f.central, f.alloc, f.central.Events(), RunnerConfig{
		Session:      testConfig(nil),
		RetryBackoff: backoff,
		OnResult:     results.add,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	all := results.all()
	require.Len(t, all, 2)
	assert.Equal(t, bad.Address(), all[0].Peer)
	assert.ErrorIs(t, all[0].Err, ErrCharacteristicNotFound)
	assert.Equal(t, good.Address(), all[1].Peer)
	assert.True(t, all[1].OK())
	assert.Equal(t, slot.Coordinate{}, all[1].Coordinate)

	assert.Equal(t, RunnerStats{Sessions: 2, Succeeded: 1, Failed: 1}, r.Stats())
	assert.Equal(t, 0, backoff.Attempts())
}

func TestRunnerStopsOnCancel(t *testing.T) {
	f := newFixture(t, 2, 2)

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(f.central, f.alloc, f.central.Events(), RunnerConfig{Session: testConfig(nil)})

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, r.Running, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, 0, f.alloc.Committed())
	assert.Equal(t, int64(1), r.Stats().Failed)
}

func TestRunnerReturnsAtOnceWhenExhausted(t *testing.T) {
	f := newFixture(t, 1, 1)
	require.NoError(t, f.alloc.Restore(1))

	r := NewRunner(f.central, f.alloc, f.central.Events(), RunnerConfig{Session: testConfig(nil)})
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, RunnerStats{}, r.Stats())
}
