package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/retrievit/ai/mock"
	"github.com/poiesic/retrievit/core"
	"github.com/poiesic/retrievit/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingAdder implements DocumentAdder for testing.
type recordingAdder struct {
	batches [][]core.Document
	failAt  int // batch number that returns an error, -1 for none
}

func (a *recordingAdder) AddDocuments(_ context.Context, docs []core.Document) (*core.IngestReport, error) {
	if len(a.batches) == a.failAt {
		return nil, errors.New("store unavailable")
	}
	a.batches = append(a.batches, docs)

	report := &core.IngestReport{Total: len(docs)}
	for i, doc := range docs {
		if doc.FullText == "" {
			report.AddError(i, doc.Identifier, core.ErrEmptyContent)
			continue
		}
		report.Processed++
		report.FragmentsCreated++
	}
	report.SparseFeatures = len(a.batches) * 10
	return report, nil
}

func makeDocs(n int) []core.Document {
	docs := make([]core.Document, n)
	for i := range docs {
		docs[i] = core.Document{
			Identifier: fmt.Sprintf("doc-%d", i),
			FullText:   fmt.Sprintf("document number %d about retrieval", i),
		}
	}
	return docs
}

func TestNewPipeline(t *testing.T) {
	_, err := NewPipeline(nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	p, err := NewPipeline(&recordingAdder{failAt: -1}, WithBatchSize(0), WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, p.batchSize)
	assert.NotNil(t, p.logger)
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("batches and merged report", func(t *testing.T) {
		adder := &recordingAdder{failAt: -1}
		p, err := NewPipeline(adder, WithBatchSize(3))
		require.NoError(t, err)

		docs := makeDocs(7)
		docs[4].FullText = ""

		report, err := p.Run(ctx, docs)
		require.NoError(t, err)

		require.Len(t, adder.batches, 3)
		assert.Len(t, adder.batches[0], 3)
		assert.Len(t, adder.batches[2], 1)

		assert.Equal(t, 7, report.Total)
		assert.Equal(t, 6, report.Processed)
		assert.Equal(t, 1, report.Errors)
		require.Len(t, report.ErrorDetails, 1)
		assert.Equal(t, 4, report.ErrorDetails[0].Position, "position is relative to the whole input")
		assert.Equal(t, "doc-4", report.ErrorDetails[0].Identifier)
		assert.Equal(t, 30, report.SparseFeatures, "feature count comes from the last batch")
	})

	t.Run("store error stops the run", func(t *testing.T) {
		adder := &recordingAdder{failAt: 1}
		p, err := NewPipeline(adder, WithBatchSize(2))
		require.NoError(t, err)

		report, err := p.Run(ctx, makeDocs(5))
		assert.Error(t, err)
		assert.Equal(t, 2, report.Processed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		adder := &recordingAdder{failAt: -1}
		p, err := NewPipeline(adder)
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = p.Run(cctx, makeDocs(2))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, adder.batches)
	})

	t.Run("progress output", func(t *testing.T) {
		var buf bytes.Buffer
		p, err := NewPipeline(&recordingAdder{failAt: -1}, WithBatchSize(2), WithProgress(&buf))
		require.NoError(t, err)

		_, err = p.Run(ctx, makeDocs(4))
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "4/4")
		assert.Contains(t, buf.String(), "100.0%")
	})

	t.Run("real store", func(t *testing.T) {
		s, err := store.New(mock.NewMockEncoder(), store.WithChunking(200, 20))
		require.NoError(t, err)
		defer s.Close()

		p, err := NewPipeline(s, WithBatchSize(2))
		require.NoError(t, err)

		docs := makeDocs(5)
		docs[3] = core.Document{Identifier: "empty"}
		report, err := p.Run(ctx, docs)
		require.NoError(t, err)
		assert.Equal(t, 4, report.Processed)
		require.Len(t, report.ErrorDetails, 1)
		assert.Equal(t, 3, report.ErrorDetails[0].Position)
		assert.Equal(t, 4, s.Statistics().TotalDocuments)
		assert.Positive(t, report.SparseFeatures)
	})
}

func TestLoadDocuments(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "json array",
			input: `[{"identifier":"a","title":"A","full_text":"alpha"},{"identifier":"b","abstract":"beta"}]`,
			want:  []string{"a", "b"},
		},
		{
			name:  "json lines",
			input: "{\"identifier\":\"a\",\"full_text\":\"alpha\"}\n\n{\"identifier\":\"b\",\"full_text\":\"beta\"}\n",
			want:  []string{"a", "b"},
		},
		{
			name:  "leading whitespace before array",
			input: "\n  [ {\"identifier\":\"a\"} ]",
			want:  []string{"a"},
		},
		{
			name:  "arxiv_id alias in lines",
			input: "{\"arxiv_id\":\"2101.00001\",\"full_text\":\"alpha\"}\n{\"arxiv_id\":\"2101.00002\",\"full_text\":\"beta\"}\n",
			want:  []string{"2101.00001", "2101.00002"},
		},
		{
			name:  "arxiv_id alias in array",
			input: `[{"arxiv_id":"2101.00001","full_text":"alpha"}]`,
			want:  []string{"2101.00001"},
		},
		{
			name:  "identifier wins over arxiv_id",
			input: `[{"identifier":"a","arxiv_id":"2101.00001","full_text":"alpha"}]`,
			want:  []string{"a"},
		},
		{
			name:  "empty input",
			input: "   \n",
			want:  []string{},
		},
		{
			name:    "malformed line",
			input:   "{\"identifier\":\"a\"}\n{not json}\n",
			wantErr: true,
		},
		{
			name:    "malformed array",
			input:   `[{"identifier":"a"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := LoadDocuments(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)

			ids := make([]string, len(docs))
			for i, d := range docs {
				ids[i] = d.Identifier
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestLoadDocuments_Fields(t *testing.T) {
	input := `{"identifier":"2101.00001","title":"T","authors":["A","B"],"published_date":"2021-01-01",` +
		`"categories":["cs.IR"],"abstract":"abs","full_text":"body","metadata":{"source":"arxiv"}}`

	docs, err := LoadDocuments(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	d := docs[0]
	assert.Equal(t, "2101.00001", d.Identifier)
	assert.Equal(t, []string{"A", "B"}, d.Authors)
	assert.Equal(t, "2021-01-01", d.PublishedDate)
	assert.Equal(t, []string{"cs.IR"}, d.Categories)
	assert.Equal(t, "abs", d.Abstract)
	assert.Equal(t, "body", d.FullText)
	assert.Equal(t, map[string]string{"source": "arxiv"}, d.Metadata)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"identifier\":\"a\",\"full_text\":\"alpha\"}\n"), 0644))

	docs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "alpha", docs[0].FullText)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
