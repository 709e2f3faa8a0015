package logger

import "sync"

// components caches the loggers handed out by Get. Entries derive from the
// global logger and are dropped whenever SetGlobalLogger replaces it, so a
// runner built after Init logs with the loaded configuration.
var components sync.Map // name -> *Logger

// Get returns the logger of a component ("job", "local", "streaming", ...),
// tagged with the component name.
func Get(name string) *Logger {
	if l, ok := components.Load(name); ok {
		return l.(*Logger)
	}
	l, _ := components.LoadOrStore(name, GetGlobalLogger().WithComponent(name))
	return l.(*Logger)
}

// Override pins the logger Get returns for name until the global logger
// changes. Tests use it to capture a component's output.
func Override(name string, l *Logger) {
	components.Store(name, l)
}

func resetComponents() {
	components.Clear()
}
