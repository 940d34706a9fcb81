// Package task provides the task registry and the sequential scheduler.
//
// A Task names its prerequisites and carries an action. The Scheduler resolves
// the transitive prerequisites of the requested targets, rejects unknown names
// and cycles before anything executes, then runs each action at most once per
// run in dependency order. The first failing action aborts the run; completed
// tasks are not rolled back.
package task
