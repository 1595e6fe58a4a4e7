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


// Package ai provides the dense encoder abstraction used by retrievit.
//
// The retrieval store only depends on the Encoder interface: any backend that
// deterministically maps text to a fixed-dimension vector can be plugged in.
// The dimension is not declared up front; the store learns it from the first
// embedding it receives and rejects vectors of any other length afterwards.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Deterministic test double without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEncoder) return the ai.Encoder interface to
// prevent coupling to a concrete backend:
//
//	encoder, err := openai.NewEncoder(config)  // returns ai.Encoder
//
// Test utility constructors (mock.NewMockEncoder) return CONCRETE types so tests
// can inject behaviour and assert on call counts:
//
//	mockEnc := mock.NewMockEncoder()   // returns *mock.MockEncoder
//	mockEnc.EncodeFunc = ...           // needs concrete type
//	count := mockEnc.CallCount()       // test assertion
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithEmbeddingModel("nomic-embed-text"))
//	encoder, err := openai.NewEncoder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := encoder.Encode(ctx, "Machine learning is a subset of AI")
package ai
