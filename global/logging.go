package global

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// global Log
var Logger log.Logger

var logfmtLogger log.Logger

func init() {
	w := log.NewSyncWriter(os.Stderr)
	logfmtLogger = log.NewLogfmtLogger(w)
	Logger = withContext(logfmtLogger)
}

func withContext(l log.Logger) log.Logger {
	return log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

// ConfigureLogLevel filters the global logger by server mode: debug logs everything,
// any other mode drops debug records
func ConfigureLogLevel(mode string) {
	if mode == "debug" {
		Logger = withContext(level.NewFilter(logfmtLogger, level.AllowDebug()))
		return
	}
	Logger = withContext(level.NewFilter(logfmtLogger, level.AllowInfo()))
}
