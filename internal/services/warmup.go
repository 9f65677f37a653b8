package services

import "context"

// WarmUp runs fn on its own goroutine and returns a future for its result. The channel receives
// exactly one value and is then closed, so the main loop can poll it with a non-blocking select.
func WarmUp(ctx context.Context, fn func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- fn(ctx)
	}()
	return done
}
