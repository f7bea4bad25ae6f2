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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/poiesic/cohort/core"
)

// vectorSer serializes embedding vectors as length-prefixed fixed-size floats.
var vectorSer = ord.NewSliceSer[float32](raw.Float32)

// MarshalVariable serializes a Variable to bytes.
// Fields are written in declaration order: code, description, category,
// theme, type, context, embedding.
func MarshalVariable(v *core.Variable) []byte {
	size := ord.String.Size(v.Code) +
		ord.String.Size(v.Description) +
		ord.String.Size(v.Category) +
		ord.String.Size(v.Theme) +
		ord.String.Size(v.Type) +
		ord.String.Size(v.Context) +
		vectorSer.Size(v.Embedding)

	buf := make([]byte, size)
	n := ord.String.Marshal(v.Code, buf)
	n += ord.String.Marshal(v.Description, buf[n:])
	n += ord.String.Marshal(v.Category, buf[n:])
	n += ord.String.Marshal(v.Theme, buf[n:])
	n += ord.String.Marshal(v.Type, buf[n:])
	n += ord.String.Marshal(v.Context, buf[n:])
	vectorSer.Marshal(v.Embedding, buf[n:])
	return buf
}

// UnmarshalVariable deserializes a Variable from bytes.
func UnmarshalVariable(data []byte) (*core.Variable, error) {
	var (
		v   core.Variable
		n   int
		err error
	)

	if v.Code, n, err = ord.String.Unmarshal(data); err != nil {
		return nil, wrapSerError("code", err)
	}
	data = data[n:]
	if v.Description, n, err = ord.String.Unmarshal(data); err != nil {
		return nil, wrapSerError("description", err)
	}
	data = data[n:]
	if v.Category, n, err = ord.String.Unmarshal(data); err != nil {
		return nil, wrapSerError("category", err)
	}
	data = data[n:]
	if v.Theme, n, err = ord.String.Unmarshal(data); err != nil {
		return nil, wrapSerError("theme", err)
	}
	data = data[n:]
	if v.Type, n, err = ord.String.Unmarshal(data); err != nil {
		return nil, wrapSerError("type", err)
	}
	data = data[n:]
	if v.Context, n, err = ord.String.Unmarshal(data); err != nil {
		return nil, wrapSerError("context", err)
	}
	data = data[n:]
	if v.Embedding, _, err = vectorSer.Unmarshal(data); err != nil {
		return nil, wrapSerError("embedding", err)
	}
	if len(v.Embedding) == 0 {
		v.Embedding = nil
	}
	return &v, nil
}

// MarshalEmbedding serializes an embedding vector to bytes.
func MarshalEmbedding(vector []float32) []byte {
	buf := make([]byte, vectorSer.Size(vector))
	vectorSer.Marshal(vector, buf)
	return buf
}

// UnmarshalEmbedding deserializes an embedding vector from bytes.
func UnmarshalEmbedding(data []byte) ([]float32, error) {
	vector, _, err := vectorSer.Unmarshal(data)
	if err != nil {
		return nil, wrapSerError("vector", err)
	}
	return vector, nil
}

func wrapSerError(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, field, err)
}
