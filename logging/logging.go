package logging

import (
	"os"
	"sync"

	"cosmossdk.io/log"

	"github.com/dexloom/lloom/protocol"
)

var (
	mu     sync.RWMutex
	logger = log.NewLogger(os.Stderr)
)

// SetLogger replaces the process-wide logger. Call before spawning goroutines.
func SetLogger(l log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func get() log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, subSystem protocol.SubSystem, keyvals ...interface{}) {
	get().Debug(msg, withSubSystem(subSystem, keyvals)...)
}

func Info(msg string, subSystem protocol.SubSystem, keyvals ...interface{}) {
	get().Info(msg, withSubSystem(subSystem, keyvals)...)
}

func Warn(msg string, subSystem protocol.SubSystem, keyvals ...interface{}) {
	get().Warn(msg, withSubSystem(subSystem, keyvals)...)
}

func Error(msg string, subSystem protocol.SubSystem, keyvals ...interface{}) {
	get().Error(msg, withSubSystem(subSystem, keyvals)...)
}

func withSubSystem(subSystem protocol.SubSystem, keyvals []interface{}) []interface{} {
	return append([]interface{}{"subsystem", string(subSystem)}, keyvals...)
}
