// Copyright 2025 Poiesic Systems
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
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/sparse"
)

// MarshalManifest serializes a Manifest to bytes.
func MarshalManifest(m *Manifest) []byte {
	buf := make([]byte, ManifestMUS.Size(*m))
	ManifestMUS.Marshal(*m, buf)
	return buf
}

// UnmarshalManifest deserializes a Manifest from bytes.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	m, _, err := ManifestMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, DocumentMUS.Size(*doc))
	DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// MarshalFragment serializes a Fragment to bytes.
func MarshalFragment(f *core.Fragment) []byte {
	buf := make([]byte, FragmentMUS.Size(*f))
	FragmentMUS.Marshal(*f, buf)
	return buf
}

// UnmarshalFragment deserializes a Fragment from bytes.
func UnmarshalFragment(data []byte) (*core.Fragment, error) {
	f, _, err := FragmentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// MarshalEmbedding serializes a dense embedding to bytes.
func MarshalEmbedding(v []float32) []byte {
	buf := make([]byte, EmbeddingMUS.Size(v))
	EmbeddingMUS.Marshal(v, buf)
	return buf
}

// UnmarshalEmbedding deserializes a dense embedding from bytes.
func UnmarshalEmbedding(data []byte) ([]float32, error) {
	v, _, err := EmbeddingMUS.Unmarshal(data)
	return v, err
}

// MarshalVector serializes a sparse vector to bytes.
func MarshalVector(v sparse.Vector) []byte {
	buf := make([]byte, VectorMUS.Size(v))
	VectorMUS.Marshal(v, buf)
	return buf
}

// UnmarshalVector deserializes a sparse vector from bytes.
func UnmarshalVector(data []byte) (sparse.Vector, error) {
	v, _, err := VectorMUS.Unmarshal(data)
	return v, err
}

// MarshalVocabulary serializes sparse terms and IDF weights to bytes.
func MarshalVocabulary(v *Vocabulary) []byte {
	buf := make([]byte, VocabMUS.Size(*v))
	VocabMUS.Marshal(*v, buf)
	return buf
}

// UnmarshalVocabulary deserializes sparse terms and IDF weights from bytes.
func UnmarshalVocabulary(data []byte) (*Vocabulary, error) {
	v, _, err := VocabMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
