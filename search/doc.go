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


// Package search implements hybrid ranking of stored fragments.
//
// A Ranker scores every candidate fragment from two signals:
//   - Dense cosine similarity between query and fragment embeddings
//   - Sparse (TF-IDF) cosine similarity, when hybrid search is enabled
//
// The fused score is reshaped around a pivot, boosted by fragment length and
// position, and blended with Euclidean proximity before candidates are sorted
// and filtered by a minimum score. When nothing passes the filter the best
// candidates are returned anyway. All constants live in Weights.
package search
