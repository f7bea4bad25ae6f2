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


// Package storage provides the catalog source abstraction layer for cohort.
//
// This package defines repository interfaces that decouple the catalog
// source implementation from the engine. The engine only reads from these
// repositories; seeding them is the responsibility of the surrounding
// system (see cmd/cohort seed).
//
// Constructors in backend packages return these interfaces rather than
// concrete types, so different backends (BadgerDB, in-memory) can be used
// interchangeably.
package storage
