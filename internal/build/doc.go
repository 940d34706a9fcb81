// Package build implements the module build action: compiling a module's
// sources against the outputs of its dependencies into its output directory.
package build
