package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pior/homeworks"
)

// startClient runs client in the background until ctx is done and waits up
// to timeout for it to be ready. The returned function stops the client.
func startClient(ctx context.Context, client *homeworks.Client, timeout time.Duration) (func() error, error) {
	runErr := make(chan error, 1)
	go func() {
		runErr <- client.Run(ctx)
	}()

	stop := func() error {
		client.Close()
		err := <-runErr
		if errors.Is(err, context.Canceled) || errors.Is(err, homeworks.ErrClientClosed) {
			return nil
		}
		return err
	}

	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.WaitReady(readyCtx); err != nil {
		stop()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("controller at %s not ready after %s (state %s)", client.Endpoint(), timeout, client.State())
		}
		return nil, err
	}
	return stop, nil
}
