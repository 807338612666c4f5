// Package handlers contains the full set of handler functions and
// routes supported by the viewer's web UI.
package handlers

import (
	"context"
	"html/template"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/ridgelinelabs/forkchain/business/web/v1/mid"
	"github.com/ridgelinelabs/forkchain/foundation/web"
)

// indexTemplate renders a single page that opens a websocket to a
// node's event stream and appends every "viewer:"-prefixed narration
// line it receives, giving a live view into the double-spend attack's
// INIT/FORK/FIRE transitions and any chain reorgs as they happen.
var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>forkchain viewer</title>
	<style>
		body { background: #111; color: #0f0; font-family: monospace; margin: 1rem; }
		#log { white-space: pre-wrap; }
		#status { color: #999; }
	</style>
</head>
<body>
	<h1>forkchain viewer</h1>
	<div id="status">connecting to {{.NodeHost}}...</div>
	<div id="log"></div>
	<script>
		const logEl = document.getElementById("log");
		const statusEl = document.getElementById("status");
		const proto = location.protocol === "https:" ? "wss://" : "ws://";
		const sock = new WebSocket(proto + "{{.NodeHost}}" + "/v1/events/ws");

		sock.onopen = () => { statusEl.textContent = "connected to {{.NodeHost}}"; };
		sock.onclose = () => { statusEl.textContent = "disconnected"; };
		sock.onmessage = (evt) => {
			const line = document.createElement("div");
			line.textContent = evt.data;
			logEl.appendChild(line);
			window.scrollTo(0, document.body.scrollHeight);
		};
	</script>
</body>
</html>
`))

type indexData struct {
	NodeHost string
}

// UIMux constructs the viewer's http.Handler, binding a single index
// page that streams node events over a websocket opened client-side.
func UIMux(build string, shutdown chan os.Signal, log *zap.SugaredLogger, nodeHost string) (*web.App, error) {
	app := web.NewApp(shutdown, mid.Logger(log), mid.Errors(log), mid.Panics(), mid.Cors("*"))

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		return indexTemplate.Execute(w, indexData{NodeHost: nodeHost})
	}
	app.Handle(http.MethodGet, "", "/", h)

	return app, nil
}
