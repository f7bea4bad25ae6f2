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


package core

import "errors"

// Domain errors. All errors are typed so the calling layer chooses
// user-facing phrasing; the core never emits user-facing text.
var (
	// ErrCatalogLoad indicates the catalog source was unreadable or malformed.
	// Fatal; surfaced immediately with no internal retry.
	ErrCatalogLoad = errors.New("catalog load failed")

	// ErrNotReady indicates the catalog has not been loaded yet.
	// Retryable by the caller.
	ErrNotReady = errors.New("catalog not ready")

	// ErrInsufficientData indicates the population is too small for the
	// requested segmentation.
	ErrInsufficientData = errors.New("insufficient data for segmentation")

	// ErrInvalidVariable indicates a Variable failed validation.
	ErrInvalidVariable = errors.New("invalid variable")

	// ErrUnknownVariable indicates a variable code not present in the catalog.
	ErrUnknownVariable = errors.New("unknown variable code")

	// ErrEmptyCode indicates the Code field is empty.
	ErrEmptyCode = errors.New("variable code cannot be empty")

	// ErrEmptyDescription indicates the Description field is empty.
	ErrEmptyDescription = errors.New("variable description cannot be empty")

	// ErrDuplicateCode indicates two catalog records share a code.
	ErrDuplicateCode = errors.New("duplicate variable code")
)
