package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	chromaemb "github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"github/itish2003/finrag/models"
)

// DefaultTopK is used when a search asks for k <= 0.
const DefaultTopK = 4

// IndexBuilder embeds chunks and returns a fresh, fully built index.
type IndexBuilder interface {
	Build(ctx context.Context, chunks []string) (DocumentIndex, error)
}

// DocumentIndex is an immutable nearest-neighbour index over one document.
type DocumentIndex interface {
	ID() string
	Len() int
	// Search returns at most k chunks, most similar first, ties in chunk order.
	Search(ctx context.Context, query string, k int) ([]models.SourceDocument, error)
	Close(ctx context.Context) error
}

func embedChunks(ctx context.Context, embedder Embedder, timeout time.Duration, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, &IndexBuildError{Reason: "document produced no text chunks"}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	vectors, err := embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, &IndexBuildError{Reason: "embedding failed", Err: err}
	}
	if len(vectors) != len(chunks) {
		return nil, &IndexBuildError{Reason: fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))}
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, &IndexBuildError{Reason: fmt.Sprintf("empty embedding for chunk %d", i)}
		}
	}
	return vectors, nil
}

func clampK(k, n int) int {
	if k <= 0 {
		k = DefaultTopK
	}
	if k > n {
		k = n
	}
	return k
}

// rank orders by score desc then chunk index asc and keeps the first k.
func rank(docs []models.SourceDocument, k int) []models.SourceDocument {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].ChunkIndex < docs[j].ChunkIndex
	})
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs
}

// =====================================================
// in-memory backend (chromem-go)

type memoryIndexBuilder struct {
	embedder Embedder
	timeout  time.Duration
}

func NewMemoryIndexBuilder(embedder Embedder, timeout time.Duration) IndexBuilder {
	return &memoryIndexBuilder{embedder: embedder, timeout: timeout}
}

func (b *memoryIndexBuilder) Build(ctx context.Context, chunks []string) (DocumentIndex, error) {
	vectors, err := embedChunks(ctx, b.embedder, b.timeout, chunks)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	db := chromem.NewDB()
	collection, err := db.CreateCollection("report-"+id, map[string]string{"source": "upload"}, b.embedder.EmbedQuery)
	if err != nil {
		return nil, &IndexBuildError{Reason: "cannot create collection", Err: err}
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Metadata:  map[string]string{"chunk_index": strconv.Itoa(i)},
			Embedding: vectors[i],
			Content:   chunk,
		}
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, &IndexBuildError{Reason: "cannot add chunks to collection", Err: err}
	}

	log.Info().Str("index", id).Int("chunks", len(chunks)).Msg("INDEXER: built in-memory index")
	return &memoryIndex{id: id, db: db, collection: collection, embedder: b.embedder}, nil
}

type memoryIndex struct {
	id         string
	db         *chromem.DB
	collection *chromem.Collection
	embedder   Embedder
}

func (m *memoryIndex) ID() string { return m.id }
func (m *memoryIndex) Len() int   { return m.collection.Count() }

func (m *memoryIndex) Search(ctx context.Context, query string, k int) ([]models.SourceDocument, error) {
	n := m.collection.Count()
	k = clampK(k, n)
	if k == 0 {
		return []models.SourceDocument{}, nil
	}
	q, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}

	// score every chunk so that ties at the cut-off are resolved by chunk order
	results, err := m.collection.QueryEmbedding(ctx, q, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	docs := make([]models.SourceDocument, 0, len(results))
	for _, r := range results {
		idx, err := strconv.Atoi(r.Metadata["chunk_index"])
		if err != nil {
			return nil, fmt.Errorf("chunk %s has no index: %w", r.ID, err)
		}
		docs = append(docs, models.SourceDocument{Text: r.Content, ChunkIndex: idx, Score: r.Similarity})
	}
	return rank(docs, k), nil
}

func (m *memoryIndex) Close(ctx context.Context) error {
	return m.db.DeleteCollection(m.collection.Name)
}

// =====================================================
// remote backend (Chroma)

const chromaAddBatch = 256

type chromaIndexBuilder struct {
	client   chromago.Client
	embedder Embedder
	timeout  time.Duration
}

func NewChromaIndexBuilder(client chromago.Client, embedder Embedder, timeout time.Duration) IndexBuilder {
	return &chromaIndexBuilder{client: client, embedder: embedder, timeout: timeout}
}

func (b *chromaIndexBuilder) Build(ctx context.Context, chunks []string) (DocumentIndex, error) {
	vectors, err := embedChunks(ctx, b.embedder, b.timeout, chunks)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	name := "report-" + id
	collection, err := b.client.GetOrCreateCollection(ctx, name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "financial report chunks"),
				chromago.NewStringAttribute("created_by", "finrag"),
			),
		),
	)
	if err != nil {
		return nil, &IndexBuildError{Reason: "cannot create chroma collection", Err: err}
	}

	for start := 0; start < len(chunks); start += chromaAddBatch {
		end := min(start+chromaAddBatch, len(chunks))
		ids := make([]chromago.DocumentID, 0, end-start)
		embs := make([]chromaemb.Embedding, 0, end-start)
		metas := make([]chromago.DocumentMetadata, 0, end-start)
		for i := start; i < end; i++ {
			ids = append(ids, chromago.DocumentID(fmt.Sprintf("%s-chunk%d", id, i)))
			embs = append(embs, chromaemb.NewEmbeddingFromFloat32(vectors[i]))
			metas = append(metas, chromago.NewDocumentMetadata(chromago.NewIntAttribute("chunk_index", int64(i))))
		}
		err = collection.Add(ctx,
			chromago.WithIDs(ids...),
			chromago.WithTexts(chunks[start:end]...),
			chromago.WithEmbeddings(embs...),
			chromago.WithMetadatas(metas...),
		)
		if err != nil {
			_ = b.client.DeleteCollection(ctx, name)
			return nil, &IndexBuildError{Reason: fmt.Sprintf("failed to add chunks %d..%d to chroma", start, end-1), Err: err}
		}
	}

	log.Info().Str("index", id).Str("collection", name).Int("chunks", len(chunks)).Msg("INDEXER: built chroma index")
	return &chromaIndex{
		id:         id,
		name:       name,
		client:     b.client,
		collection: collection,
		embedder:   b.embedder,
		vectors:    vectors,
	}, nil
}

type chromaIndex struct {
	id         string
	name       string
	client     chromago.Client
	collection chromago.Collection
	embedder   Embedder
	vectors    [][]float32
}

func (c *chromaIndex) ID() string { return c.id }
func (c *chromaIndex) Len() int   { return len(c.vectors) }

func (c *chromaIndex) Search(ctx context.Context, query string, k int) ([]models.SourceDocument, error) {
	k = clampK(k, len(c.vectors))
	if k == 0 {
		return []models.SourceDocument{}, nil
	}
	q, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}

	// over-fetch so that local re-ranking can settle ties at the cut-off
	candidates := min(len(c.vectors), k*3)
	results, err := c.collection.Query(ctx,
		chromago.WithQueryEmbeddings(chromaemb.NewEmbeddingFromFloat32(q)),
		chromago.WithNResults(candidates),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	if len(documentGroups) == 0 {
		return []models.SourceDocument{}, nil
	}
	docs := make([]models.SourceDocument, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		if i >= len(metadataGroups[0]) {
			break
		}
		idx, ok := chunkIndexOf(metadataGroups[0][i])
		if !ok || idx < 0 || idx >= len(c.vectors) {
			log.Warn().Int("position", i).Msg("INDEXER: chroma result without a usable chunk_index")
			continue
		}
		docs = append(docs, models.SourceDocument{
			Text:       doc.ContentString(),
			ChunkIndex: idx,
			Score:      cosine(q, c.vectors[idx]),
		})
	}
	return rank(docs, k), nil
}

func (c *chromaIndex) Close(ctx context.Context) error {
	return c.client.DeleteCollection(ctx, c.name)
}

// chunkIndexOf reads chunk_index from chroma metadata. DocumentMetadata has no
// public accessor for arbitrary keys, so it goes through its JSON form.
func chunkIndexOf(metadata chromago.DocumentMetadata) (int, bool) {
	if metadata == nil {
		return 0, false
	}
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		return 0, false
	}
	var metadataMap map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &metadataMap); err != nil {
		return 0, false
	}
	v, ok := metadataMap["chunk_index"].(float64)
	if !ok {
		return 0, false
	}
	return int(v), true
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
