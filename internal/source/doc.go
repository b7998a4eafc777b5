// Package source resolves job source references to local media bytes.
//
// Upload jobs point at files under the configured upload root. Drive-link
// jobs are staged by downloading the remote object with a bearer credential
// supplied by an external collaborator; the staged copy is removed when the
// worker finishes with it.
package source
