package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/sparse"
)

// Serializers for snapshot records. Each follows the mus-go serializer
// shape: Marshal writes into a buffer of at least Size bytes and returns the
// bytes written; Unmarshal returns the value and the bytes consumed.
var (
	ManifestMUS  = manifestSer{}
	DocumentMUS  = documentSer{}
	FragmentMUS  = fragmentSer{}
	EmbeddingMUS = embeddingSer{}
	VectorMUS    = vectorSer{}
	VocabMUS     = vocabSer{}
)

// Vocabulary is the persisted form of a sparse index's terms and weights.
type Vocabulary struct {
	Terms []string
	IDF   []float64
}

// decoder reads consecutive fields and remembers the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) length() int {
	l := d.int()
	if d.err == nil && (l < 0 || l > len(d.bs)-d.n) {
		d.err = fmt.Errorf("%w: length %d exceeds remaining %d bytes", ErrTruncatedData, l, len(d.bs)-d.n)
		return 0
	}
	return l
}

func (d *decoder) int32() int32 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int32.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) int64() int64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) bool() bool {
	if d.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) float32() float32 {
	if d.err != nil {
		return 0
	}
	v, n, err := raw.Float32.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) float64() float64 {
	if d.err != nil {
		return 0
	}
	v, n, err := raw.Float64.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.n:])
	d.n += n
	d.err = err
	return v
}

func (d *decoder) strings() []string {
	l := d.length()
	if d.err != nil || l == 0 {
		return nil
	}
	v := make([]string, l)
	for i := range v {
		v[i] = d.string()
	}
	return v
}

func (d *decoder) stringMap() map[string]string {
	l := d.length()
	if d.err != nil || l == 0 {
		return nil
	}
	m := make(map[string]string, l)
	for i := 0; i < l; i++ {
		k := d.string()
		m[k] = d.string()
	}
	return m
}

func (d *decoder) float32s() []float32 {
	l := d.length()
	if d.err != nil || l == 0 {
		return nil
	}
	v := make([]float32, l)
	for i := range v {
		v[i] = d.float32()
	}
	return v
}

func (d *decoder) result() (int, error) {
	if d.err != nil {
		return d.n, fmt.Errorf("%w: %w", ErrSerializationFailed, d.err)
	}
	return d.n, nil
}

func marshalStrings(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return
}

func sizeStrings(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return
}

func marshalStringMap(m map[string]string, bs []byte) (n int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n = varint.Int.Marshal(len(keys), bs)
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(m[k], bs[n:])
	}
	return
}

func sizeStringMap(m map[string]string) (size int) {
	size = varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return
}

func marshalFloat32s(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func sizeFloat32s(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

type manifestSer struct{}

func (manifestSer) Marshal(m Manifest, bs []byte) (n int) {
	n = varint.Int.Marshal(m.SchemaVersion, bs)
	n += ord.String.Marshal(m.EncoderModel, bs[n:])
	n += varint.Int.Marshal(m.Dimension, bs[n:])
	n += varint.Int.Marshal(m.ChunkSize, bs[n:])
	n += varint.Int.Marshal(m.ChunkOverlap, bs[n:])
	n += varint.Int.Marshal(m.Sparse.NgramMin, bs[n:])
	n += varint.Int.Marshal(m.Sparse.NgramMax, bs[n:])
	n += varint.Int.Marshal(m.Sparse.MaxFeatures, bs[n:])
	n += varint.Int.Marshal(m.Sparse.MinDF, bs[n:])
	n += raw.Float64.Marshal(m.Sparse.MaxDF, bs[n:])
	n += ord.Bool.Marshal(m.Sparse.StopWords, bs[n:])
	n += varint.Int.Marshal(m.Sparse.MaxQueryLength, bs[n:])
	n += varint.Int.Marshal(m.Documents, bs[n:])
	n += varint.Int.Marshal(m.Fragments, bs[n:])
	n += varint.Int.Marshal(m.SparseFeatures, bs[n:])
	n += varint.Int64.Marshal(savedAtNanos(m.SavedAt), bs[n:])
	return
}

func (manifestSer) Unmarshal(bs []byte) (m Manifest, n int, err error) {
	d := &decoder{bs: bs}
	m.SchemaVersion = d.int()
	m.EncoderModel = d.string()
	m.Dimension = d.int()
	m.ChunkSize = d.int()
	m.ChunkOverlap = d.int()
	m.Sparse.NgramMin = d.int()
	m.Sparse.NgramMax = d.int()
	m.Sparse.MaxFeatures = d.int()
	m.Sparse.MinDF = d.int()
	m.Sparse.MaxDF = d.float64()
	m.Sparse.StopWords = d.bool()
	m.Sparse.MaxQueryLength = d.int()
	m.Documents = d.int()
	m.Fragments = d.int()
	m.SparseFeatures = d.int()
	if nanos := d.int64(); nanos != 0 {
		m.SavedAt = time.Unix(0, nanos).UTC()
	}
	n, err = d.result()
	return
}

func (manifestSer) Size(m Manifest) (size int) {
	size = varint.Int.Size(m.SchemaVersion)
	size += ord.String.Size(m.EncoderModel)
	size += varint.Int.Size(m.Dimension)
	size += varint.Int.Size(m.ChunkSize)
	size += varint.Int.Size(m.ChunkOverlap)
	size += varint.Int.Size(m.Sparse.NgramMin)
	size += varint.Int.Size(m.Sparse.NgramMax)
	size += varint.Int.Size(m.Sparse.MaxFeatures)
	size += varint.Int.Size(m.Sparse.MinDF)
	size += raw.Float64.Size(m.Sparse.MaxDF)
	size += ord.Bool.Size(m.Sparse.StopWords)
	size += varint.Int.Size(m.Sparse.MaxQueryLength)
	size += varint.Int.Size(m.Documents)
	size += varint.Int.Size(m.Fragments)
	size += varint.Int.Size(m.SparseFeatures)
	size += varint.Int64.Size(savedAtNanos(m.SavedAt))
	return
}

func savedAtNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

type documentSer struct{}

func (documentSer) Marshal(doc core.Document, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(doc.Id), bs)
	n += ord.String.Marshal(doc.Identifier, bs[n:])
	n += ord.String.Marshal(doc.Title, bs[n:])
	n += marshalStrings(doc.Authors, bs[n:])
	n += ord.String.Marshal(doc.PublishedDate, bs[n:])
	n += marshalStrings(doc.Categories, bs[n:])
	n += ord.String.Marshal(doc.Abstract, bs[n:])
	n += ord.String.Marshal(doc.FullText, bs[n:])
	n += marshalStringMap(doc.Metadata, bs[n:])
	return
}

func (documentSer) Unmarshal(bs []byte) (doc core.Document, n int, err error) {
	d := &decoder{bs: bs}
	doc.Id = core.ID(d.uint64())
	doc.Identifier = d.string()
	doc.Title = d.string()
	doc.Authors = d.strings()
	doc.PublishedDate = d.string()
	doc.Categories = d.strings()
	doc.Abstract = d.string()
	doc.FullText = d.string()
	doc.Metadata = d.stringMap()
	n, err = d.result()
	return
}

func (documentSer) Size(doc core.Document) (size int) {
	size = varint.Uint64.Size(uint64(doc.Id))
	size += ord.String.Size(doc.Identifier)
	size += ord.String.Size(doc.Title)
	size += sizeStrings(doc.Authors)
	size += ord.String.Size(doc.PublishedDate)
	size += sizeStrings(doc.Categories)
	size += ord.String.Size(doc.Abstract)
	size += ord.String.Size(doc.FullText)
	size += sizeStringMap(doc.Metadata)
	return
}

type fragmentSer struct{}

func (fragmentSer) Marshal(f core.Fragment, bs []byte) (n int) {
	n = ord.String.Marshal(f.PointID, bs)
	n += varint.Int.Marshal(f.DocumentIndex, bs[n:])
	n += varint.Int.Marshal(f.Index, bs[n:])
	n += ord.String.Marshal(f.Text, bs[n:])
	n += varint.Int.Marshal(f.Length, bs[n:])
	n += varint.Int.Marshal(f.Total, bs[n:])
	return
}

func (fragmentSer) Unmarshal(bs []byte) (f core.Fragment, n int, err error) {
	d := &decoder{bs: bs}
	f.PointID = d.string()
	f.DocumentIndex = d.int()
	f.Index = d.int()
	f.Text = d.string()
	f.Length = d.int()
	f.Total = d.int()
	n, err = d.result()
	return
}

func (fragmentSer) Size(f core.Fragment) (size int) {
	size = ord.String.Size(f.PointID)
	size += varint.Int.Size(f.DocumentIndex)
	size += varint.Int.Size(f.Index)
	size += ord.String.Size(f.Text)
	size += varint.Int.Size(f.Length)
	size += varint.Int.Size(f.Total)
	return
}

type embeddingSer struct{}

func (embeddingSer) Marshal(v []float32, bs []byte) (n int) {
	return marshalFloat32s(v, bs)
}

func (embeddingSer) Unmarshal(bs []byte) (v []float32, n int, err error) {
	d := &decoder{bs: bs}
	v = d.float32s()
	n, err = d.result()
	return
}

func (embeddingSer) Size(v []float32) int {
	return sizeFloat32s(v)
}

type vectorSer struct{}

func (vectorSer) Marshal(v sparse.Vector, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v.Indices), bs)
	for _, idx := range v.Indices {
		n += varint.Int32.Marshal(idx, bs[n:])
	}
	n += marshalFloat32s(v.Values, bs[n:])
	return
}

func (vectorSer) Unmarshal(bs []byte) (v sparse.Vector, n int, err error) {
	d := &decoder{bs: bs}
	if l := d.length(); l > 0 {
		v.Indices = make([]int32, l)
		for i := range v.Indices {
			v.Indices[i] = d.int32()
		}
	}
	v.Values = d.float32s()
	n, err = d.result()
	return
}

func (vectorSer) Size(v sparse.Vector) (size int) {
	size = varint.Int.Size(len(v.Indices))
	for _, idx := range v.Indices {
		size += varint.Int32.Size(idx)
	}
	size += sizeFloat32s(v.Values)
	return
}

type vocabSer struct{}

func (vocabSer) Marshal(v Vocabulary, bs []byte) (n int) {
	n = marshalStrings(v.Terms, bs)
	n += varint.Int.Marshal(len(v.IDF), bs[n:])
	for _, w := range v.IDF {
		n += raw.Float64.Marshal(w, bs[n:])
	}
	return
}

func (vocabSer) Unmarshal(bs []byte) (v Vocabulary, n int, err error) {
	d := &decoder{bs: bs}
	v.Terms = d.strings()
	if l := d.length(); l > 0 {
		v.IDF = make([]float64, l)
		for i := range v.IDF {
			v.IDF[i] = d.float64()
		}
	}
	n, err = d.result()
	return
}

func (vocabSer) Size(v Vocabulary) (size int) {
	size = sizeStrings(v.Terms)
	size += varint.Int.Size(len(v.IDF))
	for _, w := range v.IDF {
		size += raw.Float64.Size(w)
	}
	return
}
