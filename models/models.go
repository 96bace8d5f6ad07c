package models

import "time"

// Роли аккаунтов в маркетплейсе
const (
	RoleProducer    = "producer"
	RoleCollector   = "collector"
	RoleCooperative = "cooperative"
)

// Сущность Производителя (генерирует отходы, создаёт заявки)
type Producer struct {
	ID            int       `db:"id" json:"id"`
	Name          string    `db:"name" json:"name" validate:"required,max=100"`
	Email         string    `db:"email" json:"email" validate:"required,max=100"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	Phone         string    `db:"phone" json:"phone,omitempty"`
	Document      string    `db:"document" json:"document" validate:"required,max=18"`
	PostalCode    string    `db:"postal_code" json:"postalCode,omitempty"`
	Street        string    `db:"street" json:"street,omitempty"`
	Number        string    `db:"number" json:"number,omitempty"`
	District      string    `db:"district" json:"district,omitempty"`
	City          string    `db:"city" json:"city,omitempty"`
	State         string    `db:"state" json:"state,omitempty"`
	Latitude      *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64  `db:"longitude" json:"longitude,omitempty"`
	RatingAverage string    `db:"rating_average" json:"ratingAverage"`
	RatingCount   int       `db:"rating_count" json:"ratingCount"`
	PointsBalance string    `db:"points_balance" json:"pointsBalance"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Сущность Коллектора (принимает и выполняет заявки)
type Collector struct {
	ID            int       `db:"id" json:"id"`
	Name          string    `db:"name" json:"name" validate:"required,max=100"`
	Email         string    `db:"email" json:"email" validate:"required,max=100"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	Phone         string    `db:"phone" json:"phone,omitempty"`
	Document      string    `db:"document" json:"document" validate:"required,max=14"`
	PostalCode    string    `db:"postal_code" json:"postalCode,omitempty"`
	City          string    `db:"city" json:"city,omitempty"`
	State         string    `db:"state" json:"state,omitempty"`
	Latitude      *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64  `db:"longitude" json:"longitude,omitempty"`
	RatingAverage string    `db:"rating_average" json:"ratingAverage"`
	RatingCount   int       `db:"rating_count" json:"ratingCount"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Сущность Кооператива (покупает сортированный материал)
type Cooperative struct {
	ID           int       `db:"id" json:"id"`
	CompanyName  string    `db:"company_name" json:"companyName" validate:"required,max=150"`
	Email        string    `db:"email" json:"email" validate:"required,max=100"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Phone        string    `db:"phone" json:"phone,omitempty"`
	Document     string    `db:"document" json:"document" validate:"required,max=18"`
	PostalCode   string    `db:"postal_code" json:"postalCode,omitempty"`
	Street       string    `db:"street" json:"street,omitempty"`
	Number       string    `db:"number" json:"number,omitempty"`
	District     string    `db:"district" json:"district,omitempty"`
	City         string    `db:"city" json:"city,omitempty"`
	State        string    `db:"state" json:"state,omitempty"`
	Latitude     *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude    *float64  `db:"longitude" json:"longitude,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Сущность Заявки на сбор
type CollectionRequest struct {
	ID            int              `db:"id" json:"id"`
	ProducerID    int              `db:"producer_id" json:"producerId"`
	CollectorID   *int             `db:"collector_id" json:"collectorId,omitempty"`
	CooperativeID *int             `db:"cooperative_id" json:"cooperativeId,omitempty"`
	Status        string           `db:"status" json:"status"`
	RequestedAt   time.Time        `db:"requested_at" json:"requestedAt"`
	PickupStart   time.Time        `db:"pickup_start" json:"pickupStart"`
	PickupEnd     time.Time        `db:"pickup_end" json:"pickupEnd"`
	Notes         string           `db:"notes" json:"notes,omitempty" validate:"max=200"`
	Items         []CollectionItem `db:"-" json:"items"`
}

// Сущность Позиции заявки
type CollectionItem struct {
	ID        int    `db:"id" json:"id"`
	RequestID int    `db:"request_id" json:"-"`
	Material  string `db:"material" json:"material" validate:"required,oneof=Glass Metal Paper Plastic"`
	Quantity  string `db:"quantity" json:"quantity"`
	Unit      string `db:"unit" json:"unit" validate:"required,oneof=KG UN VOLUME"`
}

// Допустимые типы материалов и единицы измерения
const (
	MaterialGlass   = "Glass"
	MaterialMetal   = "Metal"
	MaterialPaper   = "Paper"
	MaterialPlastic = "Plastic"

	UnitKG     = "KG"
	UnitCount  = "UN"
	UnitVolume = "VOLUME"
)

// Сущность Прайс-листа кооператива
type CooperativeMaterial struct {
	ID            int    `db:"id" json:"id"`
	CooperativeID int    `db:"cooperative_id" json:"-"`
	Material      string `db:"material" json:"material" validate:"required,oneof=Glass Metal Paper Plastic"`
	OfferedPrice  string `db:"offered_price" json:"offeredPrice"`
}
