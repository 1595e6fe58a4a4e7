// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage defines how retrieval state is persisted.
//
// A Snapshot holds everything a store needs to answer queries after a
// restart: documents, fragments, dense embeddings and the fitted sparse
// index, plus a Manifest recording the encoder model, dimension, chunking
// and sparse parameters the state was built with.
//
// Records are encoded with mus-go serializers (ManifestMUS, DocumentMUS and
// friends) and wrapped by the Marshal*/Unmarshal* helpers. Backends such as
// storage/badger implement SnapshotRepository on top of these.
//
// # Schema Versions
//
// Every manifest carries SchemaVersion. Readers reject any other version
// with ErrSchemaMismatch rather than guessing at the layout.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
