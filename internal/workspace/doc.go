// Package workspace manages scratch directories used while staging outputs,
// supporting both ephemeral (timestamped) and persistent (fixed-path) modes.
//
// Ephemeral mode creates timestamped directories (e.g.,
// buildmaster-site-20251214-122336-4071) next to the tree they will replace, so
// a finished stage can be promoted with a single rename.
//
// Persistent mode uses a fixed directory (e.g., build/preview) that survives
// across runs, which the site preview server renders into.
package workspace
