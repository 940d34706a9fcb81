// Package transport copies files and directory trees to a remote location.
//
// Three kinds are supported: local (a mounted directory), scp (an external
// secure-copy client) and s3 (an S3-compatible object store). Every failure
// is a TransportFailure; nothing is retried.
package transport
