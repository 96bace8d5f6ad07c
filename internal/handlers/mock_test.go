package handlers_test

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"sync"
	"time"

	"reciclaai/db"
	"reciclaai/internal/lifecycle"
	"reciclaai/internal/reputation"
	"reciclaai/models"
)

// MockStorage реализует StorageInterface в памяти с той же семантикой
// условных обновлений, что и Postgres-хранилище: гонки за accept
// разрешаются под мьютексом ровно один раз.
type MockStorage struct {
	mu           sync.Mutex
	producers    map[int]*models.Producer
	collectors   map[int]*models.Collector
	cooperatives map[int]*models.Cooperative
	requests     map[int]*models.CollectionRequest
	ratings      map[string]bool
	materials    map[int][]models.CooperativeMaterial
	nextID       int
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		producers:    map[int]*models.Producer{},
		collectors:   map[int]*models.Collector{},
		cooperatives: map[int]*models.Cooperative{},
		requests:     map[int]*models.CollectionRequest{},
		ratings:      map[string]bool{},
		materials:    map[int][]models.CooperativeMaterial{},
	}
}

func (m *MockStorage) id() int {
	m.nextID++
	return m.nextID
}

func (m *MockStorage) CreateProducer(ctx context.Context, p *models.Producer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.producers {
		if existing.Email == p.Email || existing.Document == p.Document {
			return db.ErrDuplicate
		}
	}
	p.ID = m.id()
	p.RatingAverage = "0.00"
	p.PointsBalance = "0.00"
	p.CreatedAt = time.Now()
	cp := *p
	m.producers[p.ID] = &cp
	return nil
}

func (m *MockStorage) GetProducer(ctx context.Context, id int) (*models.Producer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.producers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *MockStorage) FindProducerByIdentifier(ctx context.Context, identifier string) (*models.Producer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.producers {
		if p.Email == identifier || p.Document == identifier {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MockStorage) CreateCollector(ctx context.Context, c *models.Collector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.RatingAverage = "0.00"
	c.CreatedAt = time.Now()
	cp := *c
	m.collectors[c.ID] = &cp
	return nil
}

func (m *MockStorage) GetCollector(ctx context.Context, id int) (*models.Collector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collectors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *MockStorage) FindCollectorByIdentifier(ctx context.Context, identifier string) (*models.Collector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collectors {
		if c.Email == identifier || c.Document == identifier {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MockStorage) CreateCooperative(ctx context.Context, c *models.Cooperative) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.CreatedAt = time.Now()
	cp := *c
	m.cooperatives[c.ID] = &cp
	return nil
}

func (m *MockStorage) GetCooperative(ctx context.Context, id int) (*models.Cooperative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cooperatives[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *MockStorage) FindCooperativeByIdentifier(ctx context.Context, identifier string) (*models.Cooperative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cooperatives {
		if c.Email == identifier || c.Document == identifier {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *MockStorage) ListCooperatives(ctx context.Context) ([]models.Cooperative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Cooperative{}
	for _, c := range m.cooperatives {
		out = append(out, *c)
	}
	return out, nil
}

func (m *MockStorage) CreateCollectionRequest(ctx context.Context, r *models.CollectionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	r.Status = lifecycle.StatusRequested
	r.RequestedAt = time.Now()
	for i := range r.Items {
		r.Items[i].ID = m.id()
		r.Items[i].RequestID = r.ID
	}
	cp := *r
	cp.Items = append([]models.CollectionItem(nil), r.Items...)
	m.requests[r.ID] = &cp
	return nil
}

func (m *MockStorage) GetCollectionRequest(ctx context.Context, id int) (*models.CollectionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	cp.Items = append([]models.CollectionItem(nil), r.Items...)
	return &cp, nil
}

func (m *MockStorage) selectRequests(match func(*models.CollectionRequest) bool) []models.CollectionRequest {
	out := []models.CollectionRequest{}
	for _, r := range m.requests {
		if match(r) {
			cp := *r
			cp.Items = append([]models.CollectionItem(nil), r.Items...)
			out = append(out, cp)
		}
	}
	return out
}

func (m *MockStorage) ListProducerRequests(ctx context.Context, producerID int) ([]models.CollectionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectRequests(func(r *models.CollectionRequest) bool {
		return r.ProducerID == producerID
	}), nil
}

func (m *MockStorage) ListAvailableRequests(ctx context.Context) ([]models.CollectionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectRequests(func(r *models.CollectionRequest) bool {
		return r.Status == lifecycle.StatusRequested
	}), nil
}

func (m *MockStorage) ListCollectorRequests(ctx context.Context, collectorID int) ([]models.CollectionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectRequests(func(r *models.CollectionRequest) bool {
		return r.CollectorID != nil && *r.CollectorID == collectorID
	}), nil
}

func (m *MockStorage) ListCooperativePending(ctx context.Context, cooperativeID int) ([]models.CollectionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectRequests(func(r *models.CollectionRequest) bool {
		return r.CooperativeID != nil && *r.CooperativeID == cooperativeID &&
			r.Status == lifecycle.StatusAwaiting
	}), nil
}

func (m *MockStorage) AcceptCollectionRequest(ctx context.Context, id, collectorID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != lifecycle.StatusRequested || r.CollectorID != nil {
		return db.ErrNoMatch
	}
	cid := collectorID
	r.CollectorID = &cid
	r.Status = lifecycle.StatusAccepted
	return nil
}

func (m *MockStorage) CancelCollectionRequest(ctx context.Context, id, producerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.ProducerID != producerID || r.Status != lifecycle.StatusRequested {
		return db.ErrNoMatch
	}
	r.Status = lifecycle.StatusCancelled
	return nil
}

func (m *MockStorage) MarkAwaitingConfirmation(ctx context.Context, id, collectorID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != lifecycle.StatusAccepted ||
		r.CollectorID == nil || *r.CollectorID != collectorID || r.CooperativeID == nil {
		return db.ErrNoMatch
	}
	r.Status = lifecycle.StatusAwaiting
	return nil
}

func (m *MockStorage) ConfirmDelivery(ctx context.Context, id, cooperativeID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != lifecycle.StatusAwaiting ||
		r.CooperativeID == nil || *r.CooperativeID != cooperativeID {
		return db.ErrNoMatch
	}
	r.Status = lifecycle.StatusConfirmed
	return nil
}

func (m *MockStorage) AssociateCooperative(ctx context.Context, id, collectorID, cooperativeID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.CollectorID == nil || *r.CollectorID != collectorID ||
		!lifecycle.CanAssociateCooperative(r.Status) {
		return db.ErrNoMatch
	}
	cid := cooperativeID
	r.CooperativeID = &cid
	return nil
}

func (m *MockStorage) DeleteCollectionRequest(ctx context.Context, id, producerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.ProducerID != producerID || r.Status != lifecycle.StatusRequested {
		return db.ErrNoMatch
	}
	delete(m.requests, id)
	return nil
}

func (m *MockStorage) SubmitProducerRating(ctx context.Context, requestID, producerID int, score *big.Rat) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d/collector", requestID)
	if m.ratings[key] {
		return "", db.ErrDuplicate
	}
	p, ok := m.producers[producerID]
	if !ok {
		return "", sql.ErrNoRows
	}
	next, err := reputation.NextAverage(p.RatingAverage, p.RatingCount, score)
	if err != nil {
		return "", err
	}
	m.ratings[key] = true
	p.RatingAverage = next
	p.RatingCount++
	return next, nil
}

func (m *MockStorage) SubmitCollectorRating(ctx context.Context, requestID, collectorID int, score *big.Rat) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d/producer", requestID)
	if m.ratings[key] {
		return "", db.ErrDuplicate
	}
	c, ok := m.collectors[collectorID]
	if !ok {
		return "", sql.ErrNoRows
	}
	next, err := reputation.NextAverage(c.RatingAverage, c.RatingCount, score)
	if err != nil {
		return "", err
	}
	m.ratings[key] = true
	c.RatingAverage = next
	c.RatingCount++
	return next, nil
}

func (m *MockStorage) ReplaceCooperativeMaterials(ctx context.Context, cooperativeID int, materials []models.CooperativeMaterial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.materials[cooperativeID] = append([]models.CooperativeMaterial(nil), materials...)
	return nil
}

func (m *MockStorage) ListCooperativeMaterials(ctx context.Context, cooperativeID int) ([]models.CooperativeMaterial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CooperativeMaterial(nil), m.materials[cooperativeID]...), nil
}
