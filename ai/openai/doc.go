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


// Package openai provides an ai.Encoder backed by OpenAI-compatible APIs.
//
// The encoder uses the langchaingo library to talk to OpenAI or any compatible
// service (Ollama, LocalAI, vLLM). An optional token bucket limits how many
// embedding requests per second are sent.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"),  // /v1 added automatically
//	    ai.WithEmbeddingModel("all-minilm"),
//	    ai.WithRequestsPerSecond(10),
//	)
//
//	encoder, err := openai.NewEncoder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	vector, err := encoder.Encode(ctx, "sample text")
//	vectors, err := encoder.EncodeBatch(ctx, []string{"first", "second"})
package openai
