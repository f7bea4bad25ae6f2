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


// Package query turns a raw audience description into a structured
// QueryContext: concept tokens, normalized numeric ranges and an inferred
// topical domain.
//
// Parsing never fails. Unknown or empty input yields an empty-concept
// QueryContext rather than an error, so callers can always proceed to
// search and let the engine fall back as appropriate.
package query
