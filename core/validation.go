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

import "fmt"

// ValidateVariable validates a Variable according to catalog rules.
//
// Validation rules:
//   - Code must not be empty
//   - Description must not be empty
//   - Category, Theme and Type must not be empty
//
// NOT validated:
//   - Context (free-form, may be empty)
//   - Embedding (attached asynchronously after load)
func ValidateVariable(v *Variable) error {
	if v == nil {
		return fmt.Errorf("%w: variable is nil", ErrInvalidVariable)
	}

	if v.Code == "" {
		return fmt.Errorf("%w: %w", ErrInvalidVariable, ErrEmptyCode)
	}

	if v.Description == "" {
		return fmt.Errorf("%w: %w (code %s)", ErrInvalidVariable, ErrEmptyDescription, v.Code)
	}

	if v.Category == "" {
		return fmt.Errorf("%w: category cannot be empty (code %s)", ErrInvalidVariable, v.Code)
	}

	if v.Theme == "" {
		return fmt.Errorf("%w: theme cannot be empty (code %s)", ErrInvalidVariable, v.Code)
	}

	if v.Type == "" {
		return fmt.Errorf("%w: type cannot be empty (code %s)", ErrInvalidVariable, v.Code)
	}

	return nil
}
