package homeworks

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/pior/homeworks/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnection_ReadWrite(t *testing.T) {
	mock := testutils.NewConnectionMock("LNET> ", "DL, [01:01:00:03:02], 0\r\n")
	stats := newClientStatsCollector()
	conn := NewConnection("tcp://127.0.0.1:4003", mock, stats)

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	_, err = conn.Write([]byte("KBMON\r\n"))
	require.NoError(t, err)

	snapshot := stats.snapshot()
	assert.Equal(t, uint64(n), snapshot.BytesRead)
	assert.Equal(t, uint64(7), snapshot.BytesWritten)
	assert.Equal(t, []string{"KBMON\r\n"}, mock.Writes())
	assert.Equal(t, "tcp://127.0.0.1:4003", conn.Addr())
	assert.False(t, conn.LastUsed().IsZero())
}

func TestConnection_Close(t *testing.T) {
	mock := testutils.NewConnectionMock()
	conn := NewConnection("test", mock, nil)

	require.False(t, conn.IsClosed())
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	require.True(t, conn.IsClosed())
	require.Equal(t, 1, mock.CloseCount())

	_, err := conn.Write([]byte("KBMON\r\n"))
	require.ErrorIs(t, err, ErrConnectionClosed)
	require.Empty(t, mock.Writes())

	_, err = conn.Read(make([]byte, 8))
	require.ErrorIs(t, err, net.ErrClosed)
}

func TestConnection_CloseUnblocksWrite(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	conn := NewConnection("pipe", client, nil)

	errCh := make(chan error, 1)
	go func() {
		// Nobody reads the other end
		_, err := conn.Write([]byte("KBMON\r\n"))
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, io.ErrClosedPipe)
	case <-time.After(time.Second):
		t.Fatal("Write still blocked after Close")
	}
}

func TestConnection_WithWriteDeadline(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	conn := NewConnection("pipe", client, nil)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := conn.WithWriteDeadline(ctx, func() error {
		_, err := conn.Write([]byte("KBMON\r\n"))
		return err
	})
	var netErr net.Error
	require.True(t, errors.As(err, &netErr))
	require.True(t, netErr.Timeout())

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = conn.WithWriteDeadline(canceled, func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestConnection_WithWriteDeadline_NoDeadlineSupport(t *testing.T) {
	mock := testutils.NewConnectionMock()
	conn := NewConnection("test", struct{ io.ReadWriteCloser }{mock}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := conn.WithWriteDeadline(ctx, func() error {
		_, err := conn.Write([]byte("RDL, [01:01:00:03:02]\r\n"))
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "RDL, [01:01:00:03:02]\r\n", mock.Written())
}
