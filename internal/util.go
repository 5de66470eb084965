package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// LogClose closes the given Closer and logs any error that occurs
func LogClose(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Error("error during Close()", "error", err)
	}
}

// SignalAwareContext returns a context that gets closed once a given signal is retrieved.
// By default, the following signals are handled: syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP
func SignalAwareContext(ctx context.Context, sig ...os.Signal) context.Context {
	c := make(chan os.Signal, 1)
	if len(sig) == 0 {
		sig = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}
	}
	signal.Notify(c, sig...)
	signalCtx, cancel := context.WithCancel(ctx)

	go func() {
		select {
		case <-ctx.Done():
			// normal shutdown, quit go routine
		case <-c:
			cancel()
		}

		signal.Stop(c)
		close(c)
	}()

	return signalCtx
}

// MapDefaultString returns the string value for the given key or a default value
func MapDefaultString(m map[string]any, key string, dflt string) string {
	if m == nil {
		return dflt
	}
	tmp, ok := m[key]
	if !ok {
		return dflt
	}
	switch v := tmp.(type) {
	case string:
		return v
	case nil:
		return dflt
	default:
		return fmt.Sprintf("%v", v)
	}
}

// BoolToFloat64 converts a boolean value to a float64 value (1.0 for true, 0.0 for false).
func BoolToFloat64(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
