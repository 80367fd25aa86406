package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github/itish2003/finrag/models"
)

// RAGService is everything the HTTP layer and the inbox watcher can ask of
// the current report.
type RAGService interface {
	Status(ctx context.Context) models.StatusResponse
	Ingest(ctx context.Context, upload Upload) (int, error)
	Ask(ctx context.Context, question string) (*models.AskResponse, error)

	Metrics(ctx context.Context) ([]models.Metric, error)
	TimeSeries(ctx context.Context) (models.TimeSeries, error)
	Segments(ctx context.Context) ([]models.Segment, error)
	KeyMetrics(ctx context.Context) (models.KeyMetrics, error)
	FinancialMetrics(ctx context.Context) (models.FinancialMetrics, error)
	RevenueBreakdown(ctx context.Context) ([]models.RevenueSegment, error)
	QuarterlyData(ctx context.Context) ([]models.QuarterlyPoint, error)
	Recommendations(ctx context.Context) ([]models.Recommendation, error)
	Insights(ctx context.Context) (*models.InsightsResponse, error)
	ExportInsights(ctx context.Context) ([]byte, error)

	GenerateQuiz(ctx context.Context) (*models.QuizResponse, error)
	CheckAnswer(ctx context.Context, req models.CheckAnswerRequest) (*models.CheckAnswerResponse, error)
}

// Upload is a document handed to Ingest. ContentType is what the client
// declared; it may be empty.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Dependencies struct {
	Session   *Session
	Extractor TextExtractor
	Chunker   *Chunker
	Builder   IndexBuilder
	LLM       LLM
	TopK      int
}

// ragServiceImpl holds the dependencies it needs to do its job
type ragServiceImpl struct {
	session   *Session
	extractor TextExtractor
	chunker   *Chunker
	builder   IndexBuilder
	llm       LLM
	topK      int
}

// NewRAGService creates a new RAG service instance
func NewRAGService(deps Dependencies) RAGService {
	return &ragServiceImpl{
		session:   deps.Session,
		extractor: deps.Extractor,
		chunker:   deps.Chunker,
		builder:   deps.Builder,
		llm:       deps.LLM,
		topK:      deps.TopK,
	}
}

func (r *ragServiceImpl) Status(ctx context.Context) models.StatusResponse {
	snap := r.session.Snapshot()
	if snap.Index == nil {
		return models.StatusResponse{Indexed: false}
	}
	indexedAt := snap.IndexedAt
	return models.StatusResponse{
		Indexed:   true,
		Document:  snap.Document,
		Chunks:    snap.Index.Len(),
		IndexedAt: &indexedAt,
		QuizReady: snap.Quiz != nil,
	}
}

// IsPDF accepts an explicit application/pdf declaration; generic or missing
// declarations are decided by sniffing the bytes.
func IsPDF(contentType string, data []byte) bool {
	declared := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch declared {
	case "application/pdf":
		return true
	case "", "application/octet-stream", "binary/octet-stream", "application/x-pdf":
		return mimetype.Detect(data).Is("application/pdf")
	default:
		return false
	}
}

// Ingest replaces the current index with one built from upload. Concurrent
// calls queue; a failed build keeps the previous report.
func (r *ragServiceImpl) Ingest(ctx context.Context, upload Upload) (int, error) {
	if !IsPDF(upload.ContentType, upload.Data) {
		return 0, ErrInvalidUpload
	}
	ctx, span := tracer.Start(ctx, "rag.ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("rag.document", upload.Filename),
		attribute.Int("rag.bytes", len(upload.Data)),
	)

	log.Info().Str("document", upload.Filename).Int("bytes", len(upload.Data)).Msg("SERVICE: ingesting report")
	idx, err := r.session.Rebuild(ctx, upload.Filename, func(ctx context.Context) (DocumentIndex, error) {
		text, err := r.extractor.ExtractText(ctx, upload.Data)
		if err != nil {
			return nil, err
		}
		chunks, err := r.chunker.Split(text)
		if err != nil {
			return nil, &IndexBuildError{Reason: "chunking failed", Err: err}
		}
		log.Info().Str("document", upload.Filename).Int("chunks", len(chunks)).Msg("SERVICE: split report")
		return r.builder.Build(ctx, chunks)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingest failed")
		log.Error().Err(err).Str("document", upload.Filename).Msg("SERVICE: indexing failed, previous report kept")
		return 0, err
	}

	span.SetAttributes(attribute.Int("rag.chunks", idx.Len()))
	log.Info().Str("document", upload.Filename).Str("index", idx.ID()).Int("chunks", idx.Len()).Msg("SERVICE: report indexed")
	return idx.Len(), nil
}

// retrieve searches the current index. The index is returned so callers can
// tie their result to it.
func (r *ragServiceImpl) retrieve(ctx context.Context, query string) (DocumentIndex, []models.SourceDocument, error) {
	snap, release, err := r.session.Acquire()
	if err != nil {
		return nil, nil, err
	}
	defer release()
	docs, err := r.search(ctx, snap.Index, query)
	if err != nil {
		return nil, nil, err
	}
	return snap.Index, docs, nil
}

func (r *ragServiceImpl) search(ctx context.Context, idx DocumentIndex, query string) ([]models.SourceDocument, error) {
	ctx, span := tracer.Start(ctx, "rag.retrieve")
	defer span.End()
	span.SetAttributes(attribute.String("rag.index", idx.ID()), attribute.Int("rag.k", r.topK))

	docs, err := idx.Search(ctx, query, r.topK)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	span.SetAttributes(attribute.Int("rag.hits", len(docs)))
	log.Debug().Str("index", idx.ID()).Int("hits", len(docs)).Msg("SERVICE: retrieved chunks")
	return docs, nil
}

// run retrieves context for a fixed task from the current index and returns
// the raw completion.
func (r *ragServiceImpl) run(ctx context.Context, task Task) (DocumentIndex, string, error) {
	snap, release, err := r.session.Acquire()
	if err != nil {
		return nil, "", err
	}
	defer release()
	raw, err := r.runOn(ctx, snap.Index, task)
	if err != nil {
		return nil, "", err
	}
	return snap.Index, raw, nil
}

// runOn is run against a given index, for requests that combine several tasks.
func (r *ragServiceImpl) runOn(ctx context.Context, idx DocumentIndex, task Task) (string, error) {
	docs, err := r.search(ctx, idx, task.Query)
	if err != nil {
		return "", err
	}
	return r.llm.Complete(ctx, CompletionRequest{
		Task:   task.Name,
		Prompt: ComposePrompt(models.Texts(docs), task.Instruction),
		Shape:  task.Shape,
	})
}

func (r *ragServiceImpl) Ask(ctx context.Context, question string) (*models.AskResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	log.Info().Str("question", question).Msg("SERVICE: answering question")

	_, docs, err := r.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	sources := models.Texts(docs)
	answer, err := r.llm.Complete(ctx, CompletionRequest{
		Task:   TaskAsk,
		Prompt: ComposePrompt(sources, question),
		Shape:  ShapeText,
	})
	if err != nil {
		return nil, err
	}
	return &models.AskResponse{Answer: strings.TrimSpace(answer), Sources: sources}, nil
}

func (r *ragServiceImpl) Metrics(ctx context.Context) ([]models.Metric, error) {
	_, raw, err := r.run(ctx, metricsTask)
	if err != nil {
		return nil, err
	}
	return parseStrict(TaskMetrics, raw, models.MetricsFromUntrusted)
}

func (r *ragServiceImpl) TimeSeries(ctx context.Context) (models.TimeSeries, error) {
	_, raw, err := r.run(ctx, timeSeriesTask)
	if err != nil {
		return models.TimeSeries{}, err
	}
	return parseStrict(TaskTimeSeries, raw, models.TimeSeriesFromUntrusted)
}

func (r *ragServiceImpl) Segments(ctx context.Context) ([]models.Segment, error) {
	_, raw, err := r.run(ctx, segmentsTask)
	if err != nil {
		return nil, err
	}
	return parseStrict(TaskSegments, raw, models.SegmentsFromUntrusted)
}

func (r *ragServiceImpl) QuarterlyData(ctx context.Context) ([]models.QuarterlyPoint, error) {
	_, raw, err := r.run(ctx, quarterlyDataTask)
	if err != nil {
		return nil, err
	}
	return parseStrict(TaskQuarterlyData, raw, models.QuarterlyDataFromUntrusted)
}

func (r *ragServiceImpl) KeyMetrics(ctx context.Context) (models.KeyMetrics, error) {
	snap, release, err := r.session.Acquire()
	if err != nil {
		return models.KeyMetrics{}, err
	}
	defer release()
	return r.keyMetricsOn(ctx, snap.Index)
}

func (r *ragServiceImpl) keyMetricsOn(ctx context.Context, idx DocumentIndex) (models.KeyMetrics, error) {
	raw, err := r.runOn(ctx, idx, keyMetricsTask)
	if err != nil {
		return models.KeyMetrics{}, err
	}
	return parseOrDefault(TaskKeyMetrics, raw, models.KeyMetricsFromUntrusted, models.DefaultKeyMetrics).Value, nil
}

func (r *ragServiceImpl) FinancialMetrics(ctx context.Context) (models.FinancialMetrics, error) {
	snap, release, err := r.session.Acquire()
	if err != nil {
		return models.FinancialMetrics{}, err
	}
	defer release()
	return r.financialMetricsOn(ctx, snap.Index)
}

func (r *ragServiceImpl) financialMetricsOn(ctx context.Context, idx DocumentIndex) (models.FinancialMetrics, error) {
	raw, err := r.runOn(ctx, idx, financialMetricsTask)
	if err != nil {
		return models.FinancialMetrics{}, err
	}
	return parseOrDefault(TaskFinancialMetrics, raw, models.FinancialMetricsFromUntrusted, models.DefaultFinancialMetrics).Value, nil
}

func (r *ragServiceImpl) RevenueBreakdown(ctx context.Context) ([]models.RevenueSegment, error) {
	snap, release, err := r.session.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return r.revenueBreakdownOn(ctx, snap.Index)
}

func (r *ragServiceImpl) revenueBreakdownOn(ctx context.Context, idx DocumentIndex) ([]models.RevenueSegment, error) {
	raw, err := r.runOn(ctx, idx, revenueBreakdownTask)
	if err != nil {
		return nil, err
	}
	return parseOrDefault(TaskRevenueBreakdown, raw, models.RevenueBreakdownFromUntrusted, models.DefaultRevenueBreakdown).Value, nil
}

func (r *ragServiceImpl) Recommendations(ctx context.Context) ([]models.Recommendation, error) {
	_, raw, err := r.run(ctx, recommendationsTask)
	if err != nil {
		return nil, err
	}
	return parseOrDefault(TaskRecommendations, raw, models.RecommendationsFromUntrusted, models.DefaultRecommendations).Value, nil
}

// Insights fetches the three insight records concurrently, all from the same
// report even if an upload replaces it meanwhile.
func (r *ragServiceImpl) Insights(ctx context.Context) (*models.InsightsResponse, error) {
	snap, release, err := r.session.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return r.insightsOn(ctx, snap.Index)
}

func (r *ragServiceImpl) insightsOn(ctx context.Context, idx DocumentIndex) (*models.InsightsResponse, error) {
	var out models.InsightsResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := r.keyMetricsOn(gctx, idx)
		out.KeyMetrics = v
		return err
	})
	g.Go(func() error {
		v, err := r.financialMetricsOn(gctx, idx)
		out.FinancialMetrics = v
		return err
	})
	g.Go(func() error {
		v, err := r.revenueBreakdownOn(gctx, idx)
		out.RevenueBreakdown = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ragServiceImpl) ExportInsights(ctx context.Context) ([]byte, error) {
	snap, release, err := r.session.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	insights, err := r.insightsOn(ctx, snap.Index)
	if err != nil {
		return nil, err
	}
	return BuildInsightsWorkbook(snap.Document, insights)
}
