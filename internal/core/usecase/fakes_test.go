package usecase

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"

	"github.com/dkravets/ragline/internal/core/domain"
)

var errStoreRejected = errors.New("vector store rejected chunk")

func chunkIndexTag(index int) string { return strconv.Itoa(index) }

type statusCall struct {
	status  domain.DocumentStatus
	message string
}

type repoFake struct {
	doc         *domain.Document
	getErr      error
	updateErr   error
	statusCalls []statusCall
	recordIDs   []string
	summary     string
}

func (f *repoFake) Create(context.Context, *domain.Document) error { return nil }

func (f *repoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, message string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.statusCalls = append(f.statusCalls, statusCall{status: status, message: message})
	f.doc.Status = status
	f.doc.StatusMessage = message
	return nil
}

func (f *repoFake) SetChunkRecordIDs(_ context.Context, _ string, recordIDs []string) error {
	f.recordIDs = recordIDs
	return nil
}

func (f *repoFake) SaveSummary(_ context.Context, _ string, summary string) error {
	f.summary = summary
	return nil
}

func (f *repoFake) statuses() []domain.DocumentStatus {
	out := make([]domain.DocumentStatus, 0, len(f.statusCalls))
	for _, call := range f.statusCalls {
		out = append(out, call.status)
	}
	return out
}

type blobFake struct {
	data      []byte
	err       error
	uploadErr error
}

func (f *blobFake) Upload(context.Context, string, string, io.Reader, int64) error {
	return f.uploadErr
}

func (f *blobFake) Download(context.Context, string, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type detectorFake struct {
	result   string
	err      error
	panicMsg string
	calls    int
}

func (f *detectorFake) Detect(context.Context, []byte, string) (string, error) {
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

type extractorFake struct {
	text  string
	err   error
	calls int
}

func (f *extractorFake) Extract(context.Context, []byte, string, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type chunkerFake struct {
	chunks []domain.Chunk
	err    error
	calls  int
}

func (f *chunkerFake) ChunkAndEmbed(context.Context, string) ([]domain.Chunk, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

type summarizerFake struct {
	summary string
	err     error
}

func (f *summarizerFake) Summarize(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

type storedRecord struct {
	collectionID string
	documentID   string
	chunkIndex   int
}

type vectorStoreFake struct {
	mu          sync.Mutex
	failIndexes map[int]bool
	storeErr    error
	stored      []storedRecord
	searchHits  []domain.RetrievedChunk
	searchErr   error
	searchTopK  int
}

func (f *vectorStoreFake) Store(_ context.Context, collectionID string, doc *domain.Document, chunk domain.Chunk) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return "", f.storeErr
	}
	if f.failIndexes[chunk.Index] {
		return "", errStoreRejected
	}
	f.stored = append(f.stored, storedRecord{
		collectionID: collectionID,
		documentID:   doc.ID,
		chunkIndex:   chunk.Index,
	})
	return "rec-" + chunkIndexTag(chunk.Index), nil
}

func (f *vectorStoreFake) Search(_ context.Context, _ string, _ []float32, topK int) ([]domain.RetrievedChunk, error) {
	f.searchTopK = topK
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchHits, nil
}

type fullTextFake struct {
	indexedCollection string
	indexedChunks     int
	indexErr          error
	searchHits        []domain.RetrievedChunk
	searchErr         error
	searchCalls       int
}

func (f *fullTextFake) IndexChunks(_ context.Context, collectionID string, _ *domain.Document, chunks []domain.Chunk) error {
	f.indexedCollection = collectionID
	f.indexedChunks = len(chunks)
	return f.indexErr
}

func (f *fullTextFake) Search(context.Context, string, string, int, domain.SearchOptions) ([]domain.RetrievedChunk, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchHits, nil
}

type settingsFake struct {
	settings domain.RepositorySettings
	err      error
	calls    int
}

func (f *settingsFake) GetRepositorySettings(context.Context, string) (domain.RepositorySettings, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.settings, nil
}

type embedderFake struct {
	vector []float32
	err    error
	calls  int
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentQueued(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentQueued(context.Context, func(context.Context, string) error) error {
	return nil
}
