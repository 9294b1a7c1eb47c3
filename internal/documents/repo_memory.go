package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is the in-memory Repo used when no database is configured.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Document // userID -> documents
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string][]Document)}
}

var _ Repo = (*MemoryRepo)(nil)

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.Status == "" {
		doc.Status = StatusUploaded
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.UserID] = append(r.data[doc.UserID], doc)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc := r.find(userID, id)
	if doc == nil {
		return Document{}, ErrNotFound
	}
	return *doc, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var docs []Document
	for _, doc := range r.data[userID] {
		if doc.DeletedAt != nil {
			continue
		}
		if filter.Kind != "" && doc.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		docs = append(docs, doc)
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}
	return docs[offset:end], nil
}

func (r *MemoryRepo) MarkExtracting(ctx context.Context, userID, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.find(userID, id)
	if doc == nil {
		return false, ErrNotFound
	}
	if doc.ExtractedTextKey != "" {
		return false, nil
	}
	doc.Status = StatusExtracting
	doc.ErrorMessage = ""
	return true, nil
}

func (r *MemoryRepo) SetExtracted(ctx context.Context, userID, id, extractedKey string, charCount int, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.find(userID, id)
	if doc == nil || doc.ExtractedTextKey != "" {
		return ErrNotFound
	}
	doc.ExtractedTextKey = extractedKey
	doc.ExtractedAt = &at
	doc.CharCount = charCount
	doc.Status = StatusReady
	doc.ErrorMessage = ""
	return nil
}

func (r *MemoryRepo) SetFailed(ctx context.Context, userID, id, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.find(userID, id)
	if doc == nil {
		return ErrNotFound
	}
	doc.Status = StatusFailed
	doc.ErrorMessage = message
	return nil
}

func (r *MemoryRepo) SoftDelete(ctx context.Context, userID, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.find(userID, id)
	if doc == nil {
		return ErrNotFound
	}
	doc.DeletedAt = &at
	return nil
}

// find returns a pointer into the backing slice so callers can mutate the
// row. Callers hold r.mu and skip soft-deleted rows.
func (r *MemoryRepo) find(userID, id string) *Document {
	docs := r.data[userID]
	for i := range docs {
		if docs[i].ID == id && docs[i].DeletedAt == nil {
			return &docs[i]
		}
	}
	return nil
}
