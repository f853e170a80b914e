// Package lifecycle holds the start/stop bookkeeping shared by the
// long-running components: run state guarded against double start or stop,
// tracked goroutines, and LIFO resource cleanup.
package lifecycle
