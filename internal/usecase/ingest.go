package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"tourrag/internal/adapter/analyzer"
	"tourrag/internal/domain"
	"tourrag/internal/port"
)

// Destination selects where an ingestion run writes. At least one of Index
// and Local must be set; with both, the local store mirrors the index.
type Destination struct {
	Index port.VectorIndex
	Local port.LocalStore
}

// ProgressFunc is called after every chunk with the number of chunks
// handled so far and the total for the run.
type ProgressFunc func(done, total int)

// IngestUseCase turns source documents into embedding records and replaces
// the destination's contents with them. Concurrent runs against the same
// destination are not supported.
type IngestUseCase struct {
	embedder port.Embedder
	chunker  port.Chunker
	dest     Destination
	validate *validator.Validate
	logger   arbor.ILogger
	progress ProgressFunc
}

func NewIngestUseCase(
	embedder port.Embedder,
	chunker port.Chunker,
	dest Destination,
	logger arbor.ILogger,
) *IngestUseCase {
	return &IngestUseCase{
		embedder: embedder,
		chunker:  chunker,
		dest:     dest,
		validate: validator.New(),
		logger:   logger,
	}
}

// WithProgress sets the progress callback.
func (u *IngestUseCase) WithProgress(fn ProgressFunc) *IngestUseCase {
	u.progress = fn
	return u
}

type pendingChunk struct {
	doc   *domain.SourceDocument
	chunk domain.Chunk
}

// Ingest runs the whole pipeline. Per-chunk embedding failures are counted
// and skipped; failing to reach the destination is fatal.
func (u *IngestUseCase) Ingest(ctx context.Context, docs []domain.SourceDocument) (*domain.IngestReport, error) {
	if u.dest.Index == nil && u.dest.Local == nil {
		return nil, &domain.ConfigurationError{Field: "destination", Reason: "no vector index or local store configured"}
	}

	start := time.Now()
	report := &domain.IngestReport{RunID: uuid.NewString()}

	u.logger.Info().
		Str("run_id", report.RunID).
		Int("documents", len(docs)).
		Str("model", u.embedder.ModelName()).
		Msg("Starting ingestion")

	valid := u.validDocuments(docs, report)
	report.Documents = len(valid)

	if err := u.recreate(ctx); err != nil {
		return nil, err
	}

	var pending []pendingChunk
	for i := range valid {
		doc := &valid[i]
		chunks, err := u.chunker.Chunk(doc.ID, documentText(doc))
		if err != nil {
			return nil, fmt.Errorf("failed to chunk %s: %w", doc.ID, err)
		}
		for _, c := range chunks {
			pending = append(pending, pendingChunk{doc: doc, chunk: c})
		}
	}
	report.Chunks = len(pending)

	staged := make([]domain.EmbeddingRecord, 0, len(pending))
	want := u.embedder.Dimension()

	for counter, p := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vector, err := u.embedder.Embed(ctx, p.chunk.Text)
		switch {
		case err != nil:
			var embErr *domain.EmbeddingError
			if !errors.As(err, &embErr) {
				err = &domain.EmbeddingError{Input: p.chunk.Text, Err: err}
			}
			report.Failed++
			u.logger.Warn().Err(err).Str("document", p.doc.ID).Int("chunk", p.chunk.Index).Msg("Skipping chunk: embedding failed")
		case len(vector) != want:
			err = &domain.MalformedVectorError{Got: len(vector), Want: want}
			report.Failed++
			u.logger.Warn().Err(err).Str("document", p.doc.ID).Int("chunk", p.chunk.Index).Msg("Skipping chunk: malformed vector")
		default:
			staged = append(staged, newRecord(p.doc, p.chunk, counter, vector))
			report.Processed++
		}

		if u.progress != nil {
			u.progress(counter+1, len(pending))
		}
	}

	if len(staged) == 0 {
		report.Warnings = append(report.Warnings, "no records were produced; destination emptied")
		u.logger.Warn().Str("run_id", report.RunID).Msg("No records to upload")
	}
	if err := u.upload(ctx, staged); err != nil {
		return nil, err
	}
	report.Uploaded = len(staged)
	report.Duration = time.Since(start)

	u.logger.Info().
		Str("run_id", report.RunID).
		Int("chunks", report.Chunks).
		Int("processed", report.Processed).
		Int("failed", report.Failed).
		Int("uploaded", report.Uploaded).
		Dur("duration", report.Duration).
		Msg("Ingestion complete")

	return report, nil
}

func (u *IngestUseCase) validDocuments(docs []domain.SourceDocument, report *domain.IngestReport) []domain.SourceDocument {
	valid := make([]domain.SourceDocument, 0, len(docs))
	for _, doc := range docs {
		var err error
		if doc.Attraction != nil {
			err = u.validate.Struct(doc.Attraction)
		} else if strings.TrimSpace(doc.Content) == "" && strings.TrimSpace(doc.Title) == "" {
			err = errors.New("document has neither title nor content")
		}

		if err != nil {
			report.Skipped++
			report.Warnings = append(report.Warnings, fmt.Sprintf("skipped %s in %s: %v", doc.ID, doc.SourceFile, err))
			u.logger.Warn().Err(err).Str("document", doc.ID).Str("file", doc.SourceFile).Msg("Skipping invalid document")
			continue
		}
		valid = append(valid, doc)
	}
	return valid
}

// recreate drops and recreates the index collection so a run replaces its
// contents wholesale.
func (u *IngestUseCase) recreate(ctx context.Context) error {
	if u.dest.Index == nil {
		return nil
	}

	if err := u.dest.Index.DeleteCollection(ctx); err != nil {
		return asUnavailable("delete_collection", err)
	}
	spec := port.CollectionSpec{Dimension: u.embedder.Dimension(), Distance: port.DistanceCosine}
	if err := u.dest.Index.CreateCollection(ctx, spec); err != nil {
		return asUnavailable("create_collection", err)
	}

	if ts, ok := u.dest.Index.(port.TextSearcher); ok {
		if err := ts.EnsureTextIndex(ctx, contentField); err != nil {
			u.logger.Warn().Err(err).Msg("Failed to create text index; keyword fallback will retry")
		}
	}

	u.logger.Info().Str("collection", u.dest.Index.Name()).Int("dimension", spec.Dimension).Msg("Collection recreated")
	return nil
}

// upload writes staged records to every destination. The local store is
// always rewritten so it never outlives a recreated index.
func (u *IngestUseCase) upload(ctx context.Context, staged []domain.EmbeddingRecord) error {
	if u.dest.Index != nil && len(staged) > 0 {
		if err := u.dest.Index.Upsert(ctx, staged); err != nil {
			return asUnavailable("upsert", err)
		}
	}

	if u.dest.Local != nil {
		local := make([]domain.LocalRecord, len(staged))
		for i, r := range staged {
			local[i] = r.ToLocal()
		}
		if err := u.dest.Local.Save(ctx, local); err != nil {
			return fmt.Errorf("failed to save local store %s: %w", u.dest.Local.Path(), err)
		}
		u.logger.Info().Str("path", u.dest.Local.Path()).Int("records", len(local)).Msg("Local store written")
	}
	return nil
}

// documentText is the text a document is chunked from.
func documentText(doc *domain.SourceDocument) string {
	if doc.Attraction != nil {
		return analyzer.Normalize(analyzer.Flatten(*doc.Attraction))
	}
	if doc.Title == "" {
		return analyzer.Normalize(doc.Content)
	}
	return analyzer.Normalize(doc.Title + "\n" + doc.Content)
}

func newRecord(doc *domain.SourceDocument, chunk domain.Chunk, counter int, vector []float32) domain.EmbeddingRecord {
	idx := chunk.Index
	payload := domain.Metadata{
		Type:       doc.Kind(),
		Title:      doc.DisplayTitle(),
		Content:    chunk.Text,
		ChunkIndex: &idx,
		SourceFile: doc.SourceFile,
		DocumentID: doc.ID,
	}
	if doc.Attraction != nil && doc.Attraction.Location != nil {
		payload.Region = doc.Attraction.Location.Region
	}

	return domain.EmbeddingRecord{
		ID:      RecordID(doc.SourceLabel, doc.ID, counter),
		Vector:  vector,
		Payload: payload,
	}
}

// RecordID builds "{label}_{docID}_{counter}" with every rune outside
// [A-Za-z0-9_-] replaced by '_'.
func RecordID(label, docID string, counter int) string {
	return sanitizeID(label) + "_" + sanitizeID(docID) + "_" + strconv.Itoa(counter)
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
}

func asUnavailable(op string, err error) error {
	var idxErr *domain.IndexUnavailableError
	if errors.As(err, &idxErr) {
		return err
	}
	return &domain.IndexUnavailableError{Op: op, Err: err}
}
