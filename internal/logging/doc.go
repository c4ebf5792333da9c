// Package logging builds the slog loggers used by the sessionguard binaries.
package logging
