// Package obs carries the observability surface of the bridge: the shared
// JSON-line logger, Prometheus metrics for HTTP traffic and session
// lifecycle, and the build info gauge. Log output is one JSON object per
// line on stdout; nothing here writes anywhere else.
package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide logger. Request logs and audit events
// share it so their lines interleave in emission order.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest emits one structured line for a completed HTTP request.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"ts":"error","level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
