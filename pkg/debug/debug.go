// Package debug gates verbose logging by category.
//
// LLMHUB_DEBUG (or logging.debug) selects which parts of llmhub log their
// internals; LLMHUB_LOG_LEVEL (or logging.level) sets the slog level. Debug
// lines need both: an enabled category and a level of DEBUG or lower.
// At TRACE, hub request and response bodies are dumped verbatim.
//
//	debug.Log("hub", "request", "method", "POST", "url", url)
//
// Categories: hub, models, executor, node, auth, transport, mcp, config, all.
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
)

// LevelTrace sits below slog.LevelDebug and enables body dumps.
const LevelTrace = slog.LevelDebug - 4

// categories is written by Init before serving starts and only read after.
var categories = parseCategories(os.Getenv("LLMHUB_DEBUG"))

// rawOut receives Raw dumps.
var rawOut io.Writer = os.Stderr

// Init installs the default text logger. The environment wins over the
// configured values.
func Init(configCategories, configLevel string) {
	categories = parseCategories(envOr("LLMHUB_DEBUG", configCategories))

	level := ParseLevel(envOr("LLMHUB_LOG_LEVEL", configLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// Enabled reports whether category is selected.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log writes a DEBUG record tagged with category.
func Log(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Raw dumps text without formatting, for copy-paste of HTTP bodies. It
// only writes at TRACE level.
func Raw(category, text string) {
	if !Enabled(category) || !slog.Default().Enabled(context.Background(), LevelTrace) {
		return
	}
	fmt.Fprintln(rawOut, text)
}

// ParseLevel maps TRACE, DEBUG, INFO, WARN(ING) and ERROR to slog levels.
// Anything else is INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories lists the selected categories, sorted.
func Categories() []string {
	return slices.Sorted(maps.Keys(categories))
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		if cat = strings.ToLower(strings.TrimSpace(cat)); cat != "" {
			m[cat] = true
		}
	}
	return m
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
