//go:build !unix

package cli

import "context"

func watchFocus(ctx context.Context, _ func()) {
	<-ctx.Done()
}
