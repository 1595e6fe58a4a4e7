// Package reembed re-encodes every fragment of a saved store with a
// different embedding model.
//
// A snapshot is tied to the encoder model that produced its embeddings, so
// switching models means encoding all fragment texts again. Reembedder does
// this in batches with retries and exponential backoff, reports progress and
// writes a new snapshot. Documents, fragments and the sparse index are
// carried over unchanged.
package reembed
