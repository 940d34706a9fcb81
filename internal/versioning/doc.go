// Package versioning reads, bumps and persists the release Version Record.
//
// The record is a manifest-style text file of "Key: Value" lines. Two keys
// hold the release number and the build counter; every other line is kept
// verbatim. A release is labeled "<number>b<build>".
package versioning
