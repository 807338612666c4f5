package mid

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/ridgelinelabs/forkchain/foundation/web"
)

// Panics recovers from a panic inside a handler and turns it into an
// error so Errors can respond to the client instead of crashing the
// listener goroutine.
func Panics() web.Middleware {
	return func(handler web.Handler) web.Handler {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("panic: %v, stack: %s", rec, string(debug.Stack()))
				}
			}()

			return handler(ctx, w, r)
		}
	}
}
