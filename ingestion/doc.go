// Package ingestion loads documents and feeds them to a store in batches.
//
// LoadDocuments and LoadFile read either a JSON array of documents or JSON
// Lines with one document per line. The Pipeline type adds documents in
// fixed-size batches, merges the per-batch reports into one and optionally
// prints progress.
//
// A failed document never stops the run. Its position in the input and the
// reason are recorded in the returned report.
package ingestion
