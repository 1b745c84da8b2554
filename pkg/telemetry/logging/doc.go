// Package logging configures log/slog for hubflow.
//
// New builds a *slog.Logger from the telemetry configuration; Setup also
// installs it as the slog default so that components can keep using
// slog.Default().With("component", ...). Secret-looking attributes
// (passwords, tokens, credentials embedded in DSNs) are masked when
// redaction is enabled.
//
// Run and request identifiers travel on the context:
//
//	ctx = logging.WithRunID(ctx, runID)
//	logging.FromContext(ctx, logger).Info("reconciliation started")
package logging
