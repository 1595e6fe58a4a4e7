package sparse

import "errors"

var (
	// ErrEmptyCorpus is returned when Fit is called without any texts.
	ErrEmptyCorpus = errors.New("sparse: empty corpus")

	// ErrEmptyVocabulary is returned when no text yields a usable token,
	// typically because every word is a stop word or too short.
	ErrEmptyVocabulary = errors.New("sparse: empty vocabulary; texts may only contain stop words")

	// ErrNoTermsAfterPruning is returned when document frequency bounds remove every term.
	ErrNoTermsAfterPruning = errors.New("sparse: no terms remain after pruning")

	// ErrInvalidConfig is returned for an unusable vectorizer configuration.
	ErrInvalidConfig = errors.New("sparse: invalid configuration")

	// ErrInvalidIndex is returned by Restore when persisted parts are inconsistent.
	ErrInvalidIndex = errors.New("sparse: invalid index data")
)
