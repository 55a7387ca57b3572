package streamkit

import (
	"github.com/showwin/streamkit/streamkit/internal"
	"go.uber.org/zap"
)

// EnableDebug routes the library's debug output to l. With a nil logger a
// development logger is used.
func EnableDebug(l *zap.Logger) {
	internal.DBG().Enable(l)
}

// DisableDebug silences debug output again.
func DisableDebug() {
	internal.DBG().Disable()
}

func debugLogger() *zap.Logger {
	return internal.DBG().Logger()
}
