package db

import (
	"context"
	"database/sql"
	"errors"
	"math/big"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"reciclaai/internal/reputation"
	"reciclaai/models"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// ErrNoMatch — условное обновление не нашло строку в ожидаемом состоянии
var ErrNoMatch = errors.New("no row matched the expected state")

// ErrDuplicate — нарушено ограничение уникальности
var ErrDuplicate = errors.New("duplicate row")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Producer (Производитель)

func (s *Storage) CreateProducer(ctx context.Context, p *models.Producer) error {
	query := `
        INSERT INTO producer
            (name, email, password_hash, phone, document, postal_code, street, number, district, city, state, latitude, longitude)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id, rating_average, rating_count, points_balance, created_at`
	err := s.db.QueryRowContext(ctx, query,
		p.Name, p.Email, p.PasswordHash, p.Phone, p.Document, p.PostalCode,
		p.Street, p.Number, p.District, p.City, p.State, p.Latitude, p.Longitude).
		Scan(&p.ID, &p.RatingAverage, &p.RatingCount, &p.PointsBalance, &p.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Storage) GetProducer(ctx context.Context, id int) (*models.Producer, error) {
	p := &models.Producer{}
	query := `SELECT * FROM producer WHERE id=$1`
	err := s.db.GetContext(ctx, p, query, id)
	return p, err
}

func (s *Storage) FindProducerByIdentifier(ctx context.Context, identifier string) (*models.Producer, error) {
	p := &models.Producer{}
	query := `SELECT * FROM producer WHERE email=$1 OR document=$1`
	err := s.db.GetContext(ctx, p, query, identifier)
	return p, err
}

// Collector (Коллектор)

func (s *Storage) CreateCollector(ctx context.Context, c *models.Collector) error {
	query := `
        INSERT INTO collector
            (name, email, password_hash, phone, document, postal_code, city, state, latitude, longitude)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, rating_average, rating_count, created_at`
	err := s.db.QueryRowContext(ctx, query,
		c.Name, c.Email, c.PasswordHash, c.Phone, c.Document, c.PostalCode,
		c.City, c.State, c.Latitude, c.Longitude).
		Scan(&c.ID, &c.RatingAverage, &c.RatingCount, &c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Storage) GetCollector(ctx context.Context, id int) (*models.Collector, error) {
	c := &models.Collector{}
	query := `SELECT * FROM collector WHERE id=$1`
	err := s.db.GetContext(ctx, c, query, id)
	return c, err
}

func (s *Storage) FindCollectorByIdentifier(ctx context.Context, identifier string) (*models.Collector, error) {
	c := &models.Collector{}
	query := `SELECT * FROM collector WHERE email=$1 OR document=$1`
	err := s.db.GetContext(ctx, c, query, identifier)
	return c, err
}

// Cooperative (Кооператив)

func (s *Storage) CreateCooperative(ctx context.Context, c *models.Cooperative) error {
	query := `
        INSERT INTO cooperative
            (company_name, email, password_hash, phone, document, postal_code, street, number, district, city, state, latitude, longitude)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query,
		c.CompanyName, c.Email, c.PasswordHash, c.Phone, c.Document, c.PostalCode,
		c.Street, c.Number, c.District, c.City, c.State, c.Latitude, c.Longitude).
		Scan(&c.ID, &c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Storage) GetCooperative(ctx context.Context, id int) (*models.Cooperative, error) {
	c := &models.Cooperative{}
	query := `SELECT * FROM cooperative WHERE id=$1`
	err := s.db.GetContext(ctx, c, query, id)
	return c, err
}

func (s *Storage) FindCooperativeByIdentifier(ctx context.Context, identifier string) (*models.Cooperative, error) {
	c := &models.Cooperative{}
	query := `SELECT * FROM cooperative WHERE email=$1 OR document=$1`
	err := s.db.GetContext(ctx, c, query, identifier)
	return c, err
}

func (s *Storage) ListCooperatives(ctx context.Context) ([]models.Cooperative, error) {
	coops := []models.Cooperative{}
	query := `SELECT * FROM cooperative ORDER BY id ASC`
	err := s.db.SelectContext(ctx, &coops, query)
	return coops, err
}

// CollectionRequest (Заявка на сбор)

func (s *Storage) CreateCollectionRequest(ctx context.Context, r *models.CollectionRequest) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO collection_request
            (producer_id, status, requested_at, pickup_start, pickup_end, notes)
        VALUES
            ($1, 'REQUESTED', NOW(), $2, $3, $4)
        RETURNING id, status, requested_at`
	err = tx.QueryRowContext(ctx, query, r.ProducerID, r.PickupStart, r.PickupEnd, r.Notes).
		Scan(&r.ID, &r.Status, &r.RequestedAt)
	if err != nil {
		return err
	}

	// Позиции создаются атомарно вместе с заявкой и далее не редактируются
	for i := range r.Items {
		item := &r.Items[i]
		item.RequestID = r.ID
		err = tx.QueryRowContext(ctx, `
            INSERT INTO collection_item (request_id, material, quantity, unit)
            VALUES ($1, $2, $3, $4)
            RETURNING id`,
			item.RequestID, item.Material, item.Quantity, item.Unit).Scan(&item.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Storage) GetCollectionRequest(ctx context.Context, id int) (*models.CollectionRequest, error) {
	r := &models.CollectionRequest{}
	query := `SELECT * FROM collection_request WHERE id=$1`
	if err := s.db.GetContext(ctx, r, query, id); err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Storage) loadItems(ctx context.Context, r *models.CollectionRequest) error {
	items := []models.CollectionItem{}
	query := `SELECT * FROM collection_item WHERE request_id=$1 ORDER BY id ASC`
	if err := s.db.SelectContext(ctx, &items, query, r.ID); err != nil {
		return err
	}
	r.Items = items
	return nil
}

func (s *Storage) listRequests(ctx context.Context, query string, args ...interface{}) ([]models.CollectionRequest, error) {
	requests := []models.CollectionRequest{}
	if err := s.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, err
	}
	for i := range requests {
		if err := s.loadItems(ctx, &requests[i]); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (s *Storage) ListProducerRequests(ctx context.Context, producerID int) ([]models.CollectionRequest, error) {
	query := `SELECT * FROM collection_request WHERE producer_id=$1 ORDER BY id DESC`
	return s.listRequests(ctx, query, producerID)
}

func (s *Storage) ListAvailableRequests(ctx context.Context) ([]models.CollectionRequest, error) {
	query := `SELECT * FROM collection_request WHERE status='REQUESTED' ORDER BY id DESC`
	return s.listRequests(ctx, query)
}

func (s *Storage) ListCollectorRequests(ctx context.Context, collectorID int) ([]models.CollectionRequest, error) {
	query := `SELECT * FROM collection_request WHERE collector_id=$1 ORDER BY id DESC`
	return s.listRequests(ctx, query, collectorID)
}

func (s *Storage) ListCooperativePending(ctx context.Context, cooperativeID int) ([]models.CollectionRequest, error) {
	query := `
        SELECT * FROM collection_request
        WHERE cooperative_id=$1 AND status='AWAITING_CONFIRMATION'
        ORDER BY id DESC`
	return s.listRequests(ctx, query, cooperativeID)
}

// Все мутации ниже — одиночные условные UPDATE/DELETE: строка меняется,
// только если всё ещё находится в ожидаемом состоянии. Проигравший гонку
// получает ErrNoMatch.

func (s *Storage) AcceptCollectionRequest(ctx context.Context, id, collectorID int) error {
	query := `
        UPDATE collection_request
        SET collector_id=$1, status='ACCEPTED'
        WHERE id=$2 AND status='REQUESTED' AND collector_id IS NULL`
	res, err := s.db.ExecContext(ctx, query, collectorID, id)
	if err != nil {
		return err
	}
	return requireMatch(res)
}

func (s *Storage) CancelCollectionRequest(ctx context.Context, id, producerID int) error {
	query := `
        UPDATE collection_request
        SET status='CANCELLED'
        WHERE id=$1 AND producer_id=$2 AND status='REQUESTED'`
	res, err := s.db.ExecContext(ctx, query, id, producerID)
	if err != nil {
		return err
	}
	return requireMatch(res)
}

func (s *Storage) MarkAwaitingConfirmation(ctx context.Context, id, collectorID int) error {
	query := `
        UPDATE collection_request
        SET status='AWAITING_CONFIRMATION'
        WHERE id=$1 AND collector_id=$2 AND status='ACCEPTED' AND cooperative_id IS NOT NULL`
	res, err := s.db.ExecContext(ctx, query, id, collectorID)
	if err != nil {
		return err
	}
	return requireMatch(res)
}

func (s *Storage) ConfirmDelivery(ctx context.Context, id, cooperativeID int) error {
	query := `
        UPDATE collection_request
        SET status='CONFIRMED'
        WHERE id=$1 AND cooperative_id=$2 AND status='AWAITING_CONFIRMATION'`
	res, err := s.db.ExecContext(ctx, query, id, cooperativeID)
	if err != nil {
		return err
	}
	return requireMatch(res)
}

func (s *Storage) AssociateCooperative(ctx context.Context, id, collectorID, cooperativeID int) error {
	query := `
        UPDATE collection_request
        SET cooperative_id=$1
        WHERE id=$2 AND collector_id=$3 AND status IN ('ACCEPTED', 'AWAITING_CONFIRMATION')`
	res, err := s.db.ExecContext(ctx, query, cooperativeID, id, collectorID)
	if err != nil {
		return err
	}
	return requireMatch(res)
}

func (s *Storage) DeleteCollectionRequest(ctx context.Context, id, producerID int) error {
	query := `
        DELETE FROM collection_request
        WHERE id=$1 AND producer_id=$2 AND status='REQUESTED'`
	res, err := s.db.ExecContext(ctx, query, id, producerID)
	if err != nil {
		return err
	}
	return requireMatch(res)
}

func requireMatch(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoMatch
	}
	return nil
}

// Rating (Оценки)

// SubmitProducerRating обновляет репутацию производителя одной атомарной
// операцией чтения-изменения-записи: строка производителя блокируется на
// время пересчёта, повторная оценка той же заявки той же стороной
// отклоняется ограничением уникальности.
func (s *Storage) SubmitProducerRating(ctx context.Context, requestID, producerID int, score *big.Rat) (string, error) {
	return s.submitRating(ctx, requestID, producerID, score, "collector", "producer")
}

// SubmitCollectorRating — симметричное обновление репутации коллектора
func (s *Storage) SubmitCollectorRating(ctx context.Context, requestID, collectorID int, score *big.Rat) (string, error) {
	return s.submitRating(ctx, requestID, collectorID, score, "producer", "collector")
}

func (s *Storage) submitRating(ctx context.Context, requestID, rateeID int, score *big.Rat, raterRole, rateeTable string) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO rating_submission (request_id, rater_role)
        VALUES ($1, $2)`, requestID, raterRole)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", err
	}

	var average string
	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT rating_average, rating_count FROM `+rateeTable+` WHERE id=$1 FOR UPDATE`,
		rateeID).Scan(&average, &count)
	if err != nil {
		return "", err
	}

	next, err := reputation.NextAverage(average, count, score)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE `+rateeTable+` SET rating_average=$1, rating_count=$2 WHERE id=$3`,
		next, count+1, rateeID)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return next, nil
}

// CooperativeMaterial (Прайс-лист кооператива)

// ReplaceCooperativeMaterials перезаписывает прайс-лист кооператива целиком:
// присланные позиции создаются или обновляются, остальные удаляются.
func (s *Storage) ReplaceCooperativeMaterials(ctx context.Context, cooperativeID int, materials []models.CooperativeMaterial) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	kept := make([]string, 0, len(materials))
	for _, m := range materials {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO cooperative_material (cooperative_id, material, offered_price)
            VALUES ($1, $2, $3)
            ON CONFLICT (cooperative_id, material) DO UPDATE SET offered_price = EXCLUDED.offered_price`,
			cooperativeID, m.Material, m.OfferedPrice)
		if err != nil {
			return err
		}
		kept = append(kept, m.Material)
	}

	_, err = tx.ExecContext(ctx, `
        DELETE FROM cooperative_material
        WHERE cooperative_id=$1 AND material != ALL($2)`,
		cooperativeID, pq.Array(kept))
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Storage) ListCooperativeMaterials(ctx context.Context, cooperativeID int) ([]models.CooperativeMaterial, error) {
	materials := []models.CooperativeMaterial{}
	query := `SELECT * FROM cooperative_material WHERE cooperative_id=$1 ORDER BY material ASC`
	err := s.db.SelectContext(ctx, &materials, query, cooperativeID)
	return materials, err
}
