// Package git records releases in the project's Git repository using go-git:
// staging the Version Record, committing it and creating the release tag.
package git
