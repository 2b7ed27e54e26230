// Package logger is a process-wide logging facade. Backends are registered
// once with Init; until then every call is a no-op, so library code and
// tests can log without setup.
package logger

import "sync"

// Instance is a logging backend.
type Instance interface {
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

var (
	mu        sync.RWMutex
	instances []Instance
)

// Init replaces the registered backends.
func Init(backends ...Instance) {
	mu.Lock()
	defer mu.Unlock()
	instances = backends
}

func each(fn func(Instance)) {
	mu.RLock()
	defer mu.RUnlock()
	for _, in := range instances {
		fn(in)
	}
}

func Debug(message string, keyvals ...any) {
	each(func(in Instance) { in.Debug(message, keyvals...) })
}

func Info(message string, keyvals ...any) {
	each(func(in Instance) { in.Info(message, keyvals...) })
}

func Warn(message string, keyvals ...any) {
	each(func(in Instance) { in.Warn(message, keyvals...) })
}

func Error(message string, keyvals ...any) {
	each(func(in Instance) { in.Error(message, keyvals...) })
}

// Fatal logs to every backend; the first backend that exits ends the process.
func Fatal(message string, keyvals ...any) {
	each(func(in Instance) { in.Fatal(message, keyvals...) })
}
