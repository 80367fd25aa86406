package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github/itish2003/finrag/models"
)

// Session holds the current document index and quiz for the process.
//
// Uploads queue on ingestMu, so only one index build runs at a time. The
// build itself happens outside mu; installing the result is a single write
// locked assignment, so readers see either the old or the new index in full.
type Session struct {
	ingestMu sync.Mutex

	mu        sync.RWMutex
	index     DocumentIndex
	lease     *indexLease
	document  string
	indexedAt time.Time
	quiz      *models.Quiz
	// superseded quiz ids, answered with ErrStaleQuiz instead of scored
	retired map[string]bool
}

func NewSession() *Session {
	return &Session{retired: make(map[string]bool)}
}

// Snapshot is a consistent read of the session.
type Snapshot struct {
	Index     DocumentIndex
	Document  string
	IndexedAt time.Time
	Quiz      *models.Quiz
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Index: s.index, Document: s.document, IndexedAt: s.indexedAt, Quiz: s.quiz}
}

// Acquire returns a consistent snapshot whose index stays open until release
// is called, even if an upload replaces it in the meantime.
func (s *Session) Acquire() (Snapshot, func(), error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return Snapshot{}, nil, ErrNotIndexed
	}
	lease := s.lease
	lease.acquire()
	snap := Snapshot{Index: s.index, Document: s.document, IndexedAt: s.indexedAt, Quiz: s.quiz}
	var once sync.Once
	return snap, func() { once.Do(lease.release) }, nil
}

// Rebuild runs build while holding the ingest lock and installs its result.
// On failure the previous index and quiz are left untouched.
func (s *Session) Rebuild(ctx context.Context, document string, build func(context.Context) (DocumentIndex, error)) (DocumentIndex, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	idx, err := build(ctx)
	if err != nil {
		return nil, err
	}
	s.swap(ctx, idx, document)
	return idx, nil
}

func (s *Session) swap(ctx context.Context, idx DocumentIndex, document string) {
	s.mu.Lock()
	old := s.lease
	s.index = idx
	s.lease = &indexLease{index: idx, ctx: context.WithoutCancel(ctx)}
	s.document = document
	s.indexedAt = time.Now().UTC()
	if s.quiz != nil {
		s.retired[s.quiz.ID] = true
		s.quiz = nil
	}
	s.mu.Unlock()

	if old != nil {
		// no new reader can pick the old index up any more
		old.retire()
	}
}

// indexLease counts readers of one index and closes it once it has been
// replaced and the last reader is done.
type indexLease struct {
	index DocumentIndex
	ctx   context.Context

	mu      sync.Mutex
	readers int
	retired bool
}

func (l *indexLease) acquire() {
	l.mu.Lock()
	l.readers++
	l.mu.Unlock()
}

func (l *indexLease) release() {
	l.mu.Lock()
	l.readers--
	done := l.retired && l.readers == 0
	l.mu.Unlock()
	if done {
		l.close()
	}
}

func (l *indexLease) retire() {
	l.mu.Lock()
	l.retired = true
	done := l.readers == 0
	l.mu.Unlock()
	if done {
		l.close()
	}
}

func (l *indexLease) close() {
	if err := l.index.Close(l.ctx); err != nil {
		log.Warn().Err(err).Str("index", l.index.ID()).Msg("SERVICE: could not release previous index")
		return
	}
	log.Debug().Str("index", l.index.ID()).Msg("SERVICE: released previous index")
}

// SetQuiz installs q unless the index it was generated from has been replaced.
func (s *Session) SetQuiz(q *models.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil || s.index.ID() != q.IndexID {
		return ErrStaleQuiz
	}
	if s.quiz != nil {
		s.retired[s.quiz.ID] = true
	}
	s.quiz = q
	return nil
}

// Quiz resolves the quiz an answer refers to. An empty id means the current one.
func (s *Session) Quiz(id string) (*models.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil, ErrNotIndexed
	}
	if id != "" && s.retired[id] {
		return nil, ErrStaleQuiz
	}
	if s.quiz == nil {
		return nil, ErrNoQuiz
	}
	if id != "" && id != s.quiz.ID {
		return nil, ErrNoQuiz
	}
	return s.quiz, nil
}
