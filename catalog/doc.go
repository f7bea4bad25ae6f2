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


// Package catalog loads variable records into an immutable, queryable
// in-memory snapshot.
//
// A Catalog is built once by Load and never mutated afterwards, with one
// exception: embedding vectors may be attached later via AttachEmbeddings,
// which swaps in a new vector map atomically. Absence of embeddings never
// blocks search; it only disables the semantic scoring term.
package catalog
