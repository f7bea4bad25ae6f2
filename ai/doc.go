// Copyright 2026 Poiesic Systems
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


// Package ai provides abstractions for embedding services used in cohort.
//
// The hybrid search engine needs a query embedding at search time; catalog
// variable embeddings arrive precomputed from the catalog source. This
// package defines the Embedder interface and a Provider that owns its
// lifecycle, so the engine depends on abstractions rather than on a
// concrete embedding client.
//
// Sub-packages:
//   - openai: OpenAI-compatible implementation (Ollama, LocalAI, vLLM, OpenAI)
//   - mock: deterministic test doubles
package ai
