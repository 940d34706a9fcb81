// Package release implements the release coordinator.
//
// A release walks the states idle, bumped, committed, tagged, renamed and
// uploaded through the steps bump, build, commit, tag, rename and upload.
// Build runs the configured build targets right after the bump so packaged
// manifests carry the new build number; it leaves the state at bumped.
// Each step is logged, journaled and counted. A run can start at any step
// when given the label of the release in progress, which is how a failed
// release is resumed without bumping again.
package release
