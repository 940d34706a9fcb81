// Package packager bundles module outputs into a compiled archive
// (<name>.jar) and module sources into a source archive (<name>-src.zip).
//
// Archives are written to a temporary file in the dist directory and renamed
// into place, so a failed packaging run never leaves a truncated artifact.
package packager
