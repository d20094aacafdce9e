// Package env reads cryptbreak settings from the process environment.
package env

import (
	"log"
	"os"
	"strings"
	"sync"
)

const (
	// Prefix namespaces every cryptbreak variable.
	Prefix = "CRYPTBREAK_"
	// LegacyPrefix is accepted with a one-time deprecation warning.
	LegacyPrefix = "CBREAK_"
)

var (
	warnLogger func(format string, args ...any) = log.Printf
	warnMu     sync.Mutex
	warnedKeys sync.Map
)

// Lookup returns the value of newKey if it exists. When only the legacy oldKey
// is present it is returned instead and a deprecation warning is logged once
// per key.
func Lookup(newKey, oldKey string) (string, bool) {
	if v, ok := os.LookupEnv(newKey); ok {
		return v, true
	}
	if oldKey == "" {
		return "", false
	}
	if v, ok := os.LookupEnv(oldKey); ok {
		logDeprecated(oldKey, newKey)
		return v, true
	}
	return "", false
}

// Setting looks up Prefix+name, falling back to LegacyPrefix+name. Values are
// trimmed; a blank value counts as unset.
func Setting(name string) (string, bool) {
	v, ok := Lookup(Prefix+name, LegacyPrefix+name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func logDeprecated(oldKey, newKey string) {
	onceIface, _ := warnedKeys.LoadOrStore(oldKey, &sync.Once{})
	once := onceIface.(*sync.Once)
	once.Do(func() {
		warnMu.Lock()
		logger := warnLogger
		warnMu.Unlock()
		logger("%s is deprecated; use %s", oldKey, newKey)
	})
}

// ResetWarningsForTesting clears the once guards so tests can observe the
// deprecation warning again.
func ResetWarningsForTesting() {
	warnMu.Lock()
	warnedKeys = sync.Map{}
	warnMu.Unlock()
}

// SetWarnLoggerForTesting swaps the warning sink. The returned function
// restores the previous one.
func SetWarnLoggerForTesting(fn func(format string, args ...any)) (restore func()) {
	warnMu.Lock()
	previous := warnLogger
	warnLogger = fn
	warnMu.Unlock()
	return func() {
		warnMu.Lock()
		warnLogger = previous
		warnMu.Unlock()
	}
}
