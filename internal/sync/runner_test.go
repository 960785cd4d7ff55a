package sync_test

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sndlabs/snd/internal/mail"
	"github.com/sndlabs/snd/internal/sync"
	"github.com/sndlabs/snd/tests/testutil"
)

func TestRunnerRunsImmediateCycleAndStops(t *testing.T) {
	st := testutil.NewTestStore(t)
	feed := &fakeFeed{pulls: map[string]*mail.Pull{"acct-1": chainPull()}}
	syncer := newSyncer(t, st, feed, &fakeProducer{content: "ok"})

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	runner := sync.NewRunner(syncer, logrus.NewEntry(logger))

	var mu stdsync.Mutex
	var cycles [][]sync.Stats
	runner.OnCycle = func(stats []sync.Stats, err error) {
		mu.Lock()
		defer mu.Unlock()
		cycles = append(cycles, stats)
	}

	cfg := testConfig()
	cfg.Poll.IntervalSec = 3600 // only the immediate tick fires in this test

	runner.Start(context.Background(), cfg, "")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(cycles) == 1
	}, 2*time.Second, 5*time.Millisecond)

	runner.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, cycles, 1)
	require.Len(t, cycles[0], 1)
	assert.Equal(t, 3, cycles[0][0].Imported)
}

func TestRunnerStartTwiceIsNoOp(t *testing.T) {
	st := testutil.NewTestStore(t)
	feed := &fakeFeed{pulls: map[string]*mail.Pull{}}
	syncer := newSyncer(t, st, feed, &fakeProducer{})

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	runner := sync.NewRunner(syncer, logrus.NewEntry(logger))

	cfg := testConfig()
	cfg.Poll.IntervalSec = 3600

	runner.Start(context.Background(), cfg, "")
	runner.Start(context.Background(), cfg, "")
	runner.Stop()

	// A second Stop on an already stopped runner is also safe.
	runner.Stop()
}
