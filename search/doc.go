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


// Package search scores catalog variables against a parsed query.
//
// The Engine blends two signals:
//   - Keyword: exact-phrase and token-overlap matching over
//     description/category/theme, with numeric-range overlap boosts
//   - Semantic: cosine similarity between the query embedding and
//     precomputed variable embeddings
//
// When embeddings are unavailable the semantic weight is folded into the
// keyword weight, so scores stay comparable and callers are never blocked.
// Variables matching the query's inferred domain receive a configured
// boost. Ordering is deterministic: score descending, code ascending.
package search
