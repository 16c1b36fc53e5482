package homeworks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pior/homeworks/internal/testutils"
	"github.com/stretchr/testify/require"
)

func TestTransportPool_Lifecycle(t *testing.T) {
	stats := newClientStatsCollector()
	mocks := make(chan *testutils.ConnectionMock, 4)

	pool, err := newTransportPool(func(ctx context.Context) (*Connection, error) {
		mock := testutils.NewConnectionMock()
		mocks <- mock
		return NewConnection("test", mock, stats), nil
	}, stats)
	require.NoError(t, err)

	ctx := context.Background()

	res, err := pool.Acquire(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), pool.Open())
	first := <-mocks

	// A single transport: a second acquire waits for the first to go away
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(waitCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	res.Destroy()
	require.Eventually(t, func() bool { return first.CloseCount() == 1 }, time.Second, time.Millisecond)

	res, err = pool.Acquire(ctx)
	require.NoError(t, err)
	second := <-mocks
	res.Release()

	pool.Close()
	require.Equal(t, 1, second.CloseCount())

	snapshot := stats.snapshot()
	require.Equal(t, uint64(2), snapshot.CreatedTransports)
	require.Equal(t, uint64(2), snapshot.DestroyedTransports)
}

func TestTransportPool_DialError(t *testing.T) {
	stats := newClientStatsCollector()
	dialErr := errors.New("no route to host")

	pool, err := newTransportPool(func(ctx context.Context) (*Connection, error) {
		return nil, dialErr
	}, stats)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Acquire(context.Background())
	require.ErrorIs(t, err, dialErr)
	require.Zero(t, pool.Open())
	require.Zero(t, stats.snapshot().CreatedTransports)
}
