package protocol_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pior/homeworks/protocol"
	"github.com/stretchr/testify/require"
)

func level(n int) protocol.Event {
	return protocol.Event{Kind: protocol.KindLightLevelChanged, Tag: "DL", Address: "[01:01:00:03:02]", Level: n}
}

func TestSink_FIFO(t *testing.T) {
	s := protocol.NewSink()
	for i := range 5 {
		s.Put(level(i))
	}
	require.Equal(t, 5, s.Len())

	ctx := context.Background()
	for i := range 5 {
		ev, err := s.Take(ctx)
		require.NoError(t, err)
		require.Equal(t, i, ev.Level)
	}

	_, ok := s.TryTake()
	require.False(t, ok)
	require.Zero(t, s.Len())
}

func TestSink_TakeWaitsForPut(t *testing.T) {
	s := protocol.NewSink()

	got := make(chan protocol.Event, 1)
	go func() {
		ev, err := s.Take(context.Background())
		if err == nil {
			got <- ev
		}
	}()

	time.Sleep(10 * time.Millisecond)
	s.Put(level(42))

	select {
	case ev := <-got:
		require.Equal(t, 42, ev.Level)
	case <-time.After(time.Second):
		t.Fatal("Take did not return after Put")
	}
}

func TestSink_TakeContextCanceled(t *testing.T) {
	s := protocol.NewSink()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Take(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSink_CloseDrainsThenFails(t *testing.T) {
	s := protocol.NewSink()
	s.Put(level(1))
	s.Put(level(2))
	s.Close()
	s.Close()

	// Dropped after close
	s.Put(level(3))

	ctx := context.Background()
	ev, err := s.Take(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, ev.Level)

	ev, err = s.Take(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, ev.Level)

	_, err = s.Take(ctx)
	require.ErrorIs(t, err, protocol.ErrSinkClosed)
}

func TestSink_CloseWakesConsumer(t *testing.T) {
	s := protocol.NewSink()

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Take(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	s.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, protocol.ErrSinkClosed)
	case <-time.After(time.Second):
		t.Fatal("Take did not return after Close")
	}
}

func TestSink_ConcurrentProducers(t *testing.T) {
	s := protocol.NewSink()

	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				s.Put(protocol.Event{Button: p, Level: i})
			}
		}()
	}

	// Per-producer order is preserved
	next := make([]int, producers)
	ctx := context.Background()
	for range producers * perProducer {
		ev, err := s.Take(ctx)
		require.NoError(t, err)
		require.Equal(t, next[ev.Button], ev.Level)
		next[ev.Button]++
	}

	wg.Wait()
	require.Zero(t, s.Len())
}
