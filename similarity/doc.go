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


// Package similarity suppresses near-duplicate search results.
//
// Catalogs commonly carry dozens of variants of the same underlying
// variable ("contact with friends", "contact with friends - weekly", ...).
// Left alone these dominate a ranked result list. The filter groups
// results by a normalized base pattern, clusters each group with
// Jaro-Winkler string similarity, and keeps only the strongest
// representatives of each cluster.
//
// Filtering never fails: malformed or empty descriptions degrade to
// singleton treatment instead of aborting the batch.
package similarity
