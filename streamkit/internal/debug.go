package internal

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Debug is the shared debug switch of the library. Messages are dropped
// until Enable is called.
type Debug struct {
	logger atomic.Pointer[zap.Logger]
	flag   atomic.Bool
}

func NewDebug() *Debug {
	d := &Debug{}
	d.logger.Store(zap.NewNop())
	return d
}

// Enable turns debug output on. A nil logger keeps the current one, or
// installs a development logger if none was set.
func (d *Debug) Enable(l *zap.Logger) {
	if l != nil {
		d.logger.Store(l)
	} else if !d.logger.Load().Core().Enabled(zap.DebugLevel) {
		if dev, err := zap.NewDevelopment(); err == nil {
			d.logger.Store(dev)
		}
	}
	d.flag.Store(true)
}

func (d *Debug) Disable() {
	d.flag.Store(false)
}

func (d *Debug) Enabled() bool {
	return d.flag.Load()
}

// Logger returns the logger components should write to: the configured
// logger when enabled, a no-op logger otherwise.
func (d *Debug) Logger() *zap.Logger {
	if !d.flag.Load() {
		return zap.NewNop()
	}
	return d.logger.Load()
}

var dbg = NewDebug()

func DBG() *Debug {
	return dbg
}
