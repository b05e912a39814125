package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"tourrag/internal/adapter/chunker"
	"tourrag/internal/domain"
)

func newTestIngest(t *testing.T, emb *fakeEmbedder, dest Destination) *IngestUseCase {
	t.Helper()
	c, err := chunker.NewWindowChunker(chunker.DefaultSize, chunker.DefaultOverlap)
	require.NoError(t, err)
	return NewIngestUseCase(emb, c, dest, arbor.NewNoOpLogger())
}

func tenDocs() []domain.SourceDocument {
	docs := make([]domain.SourceDocument, 10)
	for i := range docs {
		content := fmt.Sprintf("Attraction number %d has a lovely view.", i)
		if i == 3 {
			content = "This one is broken and cannot be embedded."
		}
		docs[i] = domain.SourceDocument{
			ID:          fmt.Sprintf("doc-%d", i),
			SourceFile:  "data/notes.json",
			SourceLabel: "notes",
			Title:       fmt.Sprintf("Doc %d", i),
			Content:     content,
		}
	}
	return docs
}

func TestIngest_SkipsFailedChunks(t *testing.T) {
	emb := &fakeEmbedder{dim: 4, failOn: "broken"}
	idx := &fakeIndex{}
	store := &fakeStore{}

	report, err := newTestIngest(t, emb, Destination{Index: idx, Local: store}).Ingest(context.Background(), tenDocs())
	require.NoError(t, err)

	assert.Equal(t, 10, report.Chunks)
	assert.Equal(t, 9, report.Processed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 9, report.Uploaded)
	assert.Len(t, idx.records, 9)
	assert.Len(t, store.records, 9)
	assert.NotEmpty(t, report.RunID)

	assert.Equal(t, 4, idx.spec.Dimension)
	assert.Equal(t, 1, idx.textIndexes)
	for _, r := range idx.records {
		assert.NotEqual(t, "doc-3", r.Payload.DocumentID)
	}
}

func TestIngest_MalformedVectorCountsAsFailure(t *testing.T) {
	emb := &fakeEmbedder{dim: 4, short: "broken"}
	idx := &fakeIndex{}

	report, err := newTestIngest(t, emb, Destination{Index: idx}).Ingest(context.Background(), tenDocs())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 9, report.Uploaded)
}

func TestIngest_RecordIDsAndPayload(t *testing.T) {
	emb := &fakeEmbedder{dim: 4, failOn: "broken"}
	idx := &fakeIndex{}

	_, err := newTestIngest(t, emb, Destination{Index: idx}).Ingest(context.Background(), tenDocs())
	require.NoError(t, err)

	first := idx.records[0]
	assert.Equal(t, "notes_doc-0_0", first.ID)
	assert.Equal(t, "Doc 0", first.Payload.Title)
	assert.Equal(t, "document", first.Payload.Type)
	assert.Equal(t, "data/notes.json", first.Payload.SourceFile)
	require.NotNil(t, first.Payload.ChunkIndex)
	assert.Equal(t, 0, *first.Payload.ChunkIndex)
	assert.Equal(t, "Doc 0 Attraction number 0 has a lovely view.", first.Payload.Content)

	// The counter keeps running across the failed chunk.
	assert.Equal(t, "notes_doc-4_4", idx.records[3].ID)
}

func TestIngest_Idempotent(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	idx := &fakeIndex{}
	uc := newTestIngest(t, emb, Destination{Index: idx})

	first, err := uc.Ingest(context.Background(), tenDocs())
	require.NoError(t, err)
	firstRecords := append([]domain.EmbeddingRecord(nil), idx.records...)

	second, err := uc.Ingest(context.Background(), tenDocs())
	require.NoError(t, err)

	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, firstRecords, idx.records)
	assert.Equal(t, 2, idx.deletes)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestIngest_EmptyRunClearsLocalStore(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	idx := &fakeIndex{}
	store := &fakeStore{}
	uc := newTestIngest(t, emb, Destination{Index: idx, Local: store})

	_, err := uc.Ingest(context.Background(), tenDocs())
	require.NoError(t, err)
	require.Len(t, store.records, 10)

	emb.failOn = "Doc"
	report, err := uc.Ingest(context.Background(), tenDocs())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 10, report.Failed)
	assert.Equal(t, 0, report.Uploaded)
	assert.Equal(t, 2, store.saves)
	assert.Empty(t, store.records)
	assert.Empty(t, idx.records)
}

func TestIngest_StructuredRecords(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	store := &fakeStore{}

	docs := []domain.SourceDocument{
		{
			ID:          "chamarel",
			SourceLabel: "attractions",
			SourceFile:  "data/attractions.json",
			Attraction: &domain.AttractionRecord{
				Name:     "Chamarel Waterfall",
				Type:     "waterfall",
				Location: &domain.Location{Region: "Black River"},
			},
		},
		{
			ID:         "invalid",
			Attraction: &domain.AttractionRecord{Type: "beach"},
		},
		{ID: "empty"},
	}

	report, err := newTestIngest(t, emb, Destination{Local: store}).Ingest(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 2, report.Skipped)
	assert.Len(t, report.Warnings, 2)
	require.Len(t, store.records, 1)

	rec := store.records[0]
	assert.Equal(t, "attractions_chamarel_0", rec.ID)
	assert.Equal(t, "waterfall", rec.Metadata.Type)
	assert.Equal(t, "Black River", rec.Metadata.Region)
	assert.Equal(t, rec.Metadata.Content, rec.Document)
}

func TestIngest_IndexUnavailableIsFatal(t *testing.T) {
	emb := &fakeEmbedder{dim: 4}
	idx := &fakeIndex{upsertErr: errors.New("connection refused")}

	_, err := newTestIngest(t, emb, Destination{Index: idx}).Ingest(context.Background(), tenDocs())
	var idxErr *domain.IndexUnavailableError
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, "upsert", idxErr.Op)
}

func TestIngest_NoDestination(t *testing.T) {
	_, err := newTestIngest(t, &fakeEmbedder{dim: 4}, Destination{}).Ingest(context.Background(), tenDocs())
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestIngest_Progress(t *testing.T) {
	var calls, lastTotal int
	uc := newTestIngest(t, &fakeEmbedder{dim: 4}, Destination{Local: &fakeStore{}}).
		WithProgress(func(done, total int) {
			calls++
			lastTotal = total
		})

	_, err := uc.Ingest(context.Background(), tenDocs())
	require.NoError(t, err)
	assert.Equal(t, 10, calls)
	assert.Equal(t, 10, lastTotal)
}

func TestRecordID(t *testing.T) {
	tests := []struct {
		label, docID string
		counter      int
		want         string
	}{
		{"attractions", "chamarel", 0, "attractions_chamarel_0"},
		{"my notes", "île aux cerfs", 12, "my_notes__le_aux_cerfs_12"},
		{"a/b.json", "x-y_z", 3, "a_b_json_x-y_z_3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RecordID(tt.label, tt.docID, tt.counter))
	}
}
