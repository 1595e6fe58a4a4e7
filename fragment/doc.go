// Package fragment splits document text into overlapping, boundary-aware chunks.
//
// A text no longer than the chunk size becomes a single fragment. Longer texts
// are walked in windows of chunk size characters; each non-final window is cut
// after the last ". ", "\n\n", "\n" or " " (in that order of preference) found
// beyond 70% of the window, and the next window starts chunk overlap characters
// before the cut. Fragments are trimmed and empty fragments are dropped.
//
// Lengths are counted in characters (runes), not bytes.
package fragment
