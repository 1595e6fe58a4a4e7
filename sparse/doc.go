// Package sparse implements the lexical side of hybrid retrieval: a TF-IDF
// vectorizer over word n-grams and the fitted Index used to score queries
// against fragments.
//
// Tokens are lowercased runs of two or more letters, digits or underscores.
// English stop words are dropped before n-grams are formed, and n-grams are
// joined with a single space. Fit prunes terms by document frequency, keeps
// the MaxFeatures most frequent terms and indexes the vocabulary
// alphabetically. Term weights are raw counts times the smoothed IDF
// ln((1+n)/(1+df))+1, and every row is L2 normalised.
//
//	v, err := sparse.NewVectorizer(sparse.DefaultConfig())
//	idx, err := v.Fit(texts)
//	scores := idx.Similarities("machine learning")
//
// An Index is never updated in place. Callers refit whenever the corpus
// changes.
package sparse
