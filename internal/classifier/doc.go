// Package classifier runs the taxonomy over warehouse transcripts and stores
// one classification row per call.
package classifier
