// Package orchestrator builds the per-run context shared by every command.
//
// A Session is created once per invocation. It owns the run ID, the loaded
// configuration, the module set, the task registry and scheduler, the
// metrics recorder and the run journal, and it registers the build, test,
// package, docs, site and clean tasks that commands execute.
package orchestrator
