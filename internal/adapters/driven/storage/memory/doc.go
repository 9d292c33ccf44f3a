// Package memory provides in-memory implementations of driven port
// interfaces, used in tests and when no persistent backend is configured.
package memory
