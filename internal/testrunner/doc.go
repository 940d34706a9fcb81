// Package testrunner adapts the external test engine to modules: it compiles
// a module's tests, discovers them by file pattern or takes an explicit test
// identifier, runs the engine against the test classpath and writes a JSON
// report plus the engine log under <report dir>/<module>.
package testrunner
