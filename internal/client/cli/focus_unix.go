//go:build unix

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// watchFocus calls onFocus whenever the process is resumed with SIGCONT,
// e.g. after the user brings a suspended shell job back to the foreground.
func watchFocus(ctx context.Context, onFocus func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGCONT)
	defer signal.Stop(ch)

	for {
		select {
		case <-ch:
			onFocus()
		case <-ctx.Done():
			return
		}
	}
}
