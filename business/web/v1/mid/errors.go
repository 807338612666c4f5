package mid

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ridgelinelabs/forkchain/foundation/web"
)

// errorResponse is the JSON body written for any handler error.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Errors catches any error a handler returns and turns it into a JSON
// response with the right status code, logging server-side (5xx)
// errors as such.
func Errors(log *zap.SugaredLogger) web.Middleware {
	return func(handler web.Handler) web.Handler {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if err := handler(ctx, w, r); err != nil {
				traceID := ""
				if v, verr := web.GetValues(ctx); verr == nil {
					traceID = v.TraceID
				}

				var reqErr *web.RequestError
				if errors.As(err, &reqErr) {
					resp := errorResponse{Error: reqErr.Error(), Fields: reqErr.Fields}
					if werr := web.Respond(ctx, w, resp, reqErr.Status); werr != nil {
						return werr
					}

					if reqErr.Status >= http.StatusInternalServerError {
						log.Errorw("request error", "traceid", traceID, "ERROR", err)
					}

					return nil
				}

				log.Errorw("request error", "traceid", traceID, "ERROR", err)

				resp := errorResponse{Error: "internal server error"}
				if werr := web.Respond(ctx, w, resp, http.StatusInternalServerError); werr != nil {
					return werr
				}
			}

			return nil
		}
	}
}
