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

// Package segment clusters population records into balanced, named
// segments using K-Medians.
//
// Per-dimension median centroids make the clustering robust to outliers,
// unlike mean-based K-Means. After convergence a repair pass moves members
// out of oversized clusters until every segment's population fraction lies
// inside the configured size band (5%-10% by default).
//
// Segmentation is deterministic: a fixed seed drives furthest-point
// centroid seeding, equidistant assignments resolve to the lower cluster
// index, and results are independent of worker pool size.
package segment
