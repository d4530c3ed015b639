// Package assets holds the placeholder voice and image collaborators used by
// the voice and images stages. No audio or image is produced; each scene gets
// a deterministic URL so the rest of the pipeline can run end to end.
package assets
