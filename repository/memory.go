package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/quresis/go-quresis-server/types"
)

// MemoryRepository is an in-process Repository with CouchDB revision semantics.
// Used for single node deployments and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	dbName string
	docs   map[string][]byte
}

func NewMemoryRepository(dbName string) *MemoryRepository {
	return &MemoryRepository{
		dbName: dbName,
		docs:   make(map[string][]byte),
	}
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

// GetAll returns documents ordered by ID, like _all_docs
func (m *MemoryRepository) GetAll(ctx context.Context, limit int, skip int) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if skip > len(ids) {
		skip = len(ids)
	}
	ids = ids[skip:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		doc := make([]byte, len(m.docs[id]))
		copy(doc, m.docs[id])
		out = append(out, doc)
	}
	return out, nil
}

func (m *MemoryRepository) Save(ctx context.Context, docID string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %s", types.ErrBadRequest, err.Error())
	}
	// fields stay raw so u64 values are stored byte for byte
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: document must be a JSON object", types.ErrBadRequest)
	}
	var base types.BaseDocument
	if err := json.Unmarshal(raw, &base); err != nil {
		return fmt.Errorf("%w: %s", types.ErrBadRequest, err.Error())
	}
	rev, deleted := base.Rev, base.Deleted

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.docs[docID]
	currentRev := ""
	if exists {
		var base types.BaseDocument
		if err := json.Unmarshal(existing, &base); err != nil {
			return err
		}
		currentRev = base.Rev
	}
	if rev != currentRev {
		return types.ErrConflict
	}
	if deleted {
		if !exists {
			return types.ErrNotFound
		}
		delete(m.docs, docID)
		return nil
	}

	id, _ := json.Marshal(docID)
	nextRev, _ := json.Marshal(nextRevision(currentRev))
	doc["_id"] = id
	doc["_rev"] = nextRev
	delete(doc, "_deleted")
	stored, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[docID] = stored
	return nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return types.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MemoryRepository) GetDBName() string {
	return m.dbName
}

// nextRevision mimics CouchDB "N-hash" revisions
func nextRevision(current string) string {
	n := 0
	if current != "" {
		if idx := strings.IndexByte(current, '-'); idx > 0 {
			n, _ = strconv.Atoi(current[:idx])
		}
	}
	return fmt.Sprintf("%d-%s", n+1, strings.ReplaceAll(uuid.NewString(), "-", ""))
}
