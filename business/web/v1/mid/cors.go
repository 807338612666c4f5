package mid

import (
	"context"
	"net/http"

	"github.com/ridgelinelabs/forkchain/foundation/web"
)

// Cors sets the Access-Control-Allow-Origin header on every response
// to origin (commonly "*" for this demo's open peer network).
func Cors(origin string) web.Middleware {
	return func(handler web.Handler) web.Handler {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			return handler(ctx, w, r)
		}
	}
}
