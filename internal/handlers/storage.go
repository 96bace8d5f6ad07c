package handlers

import (
	"context"
	"math/big"

	"reciclaai/models"
)

type StorageInterface interface {
	CreateProducer(ctx context.Context, p *models.Producer) error
	GetProducer(ctx context.Context, id int) (*models.Producer, error)
	FindProducerByIdentifier(ctx context.Context, identifier string) (*models.Producer, error)

	CreateCollector(ctx context.Context, c *models.Collector) error
	GetCollector(ctx context.Context, id int) (*models.Collector, error)
	FindCollectorByIdentifier(ctx context.Context, identifier string) (*models.Collector, error)

	CreateCooperative(ctx context.Context, c *models.Cooperative) error
	GetCooperative(ctx context.Context, id int) (*models.Cooperative, error)
	FindCooperativeByIdentifier(ctx context.Context, identifier string) (*models.Cooperative, error)
	ListCooperatives(ctx context.Context) ([]models.Cooperative, error)

	CreateCollectionRequest(ctx context.Context, r *models.CollectionRequest) error
	GetCollectionRequest(ctx context.Context, id int) (*models.CollectionRequest, error)
	ListProducerRequests(ctx context.Context, producerID int) ([]models.CollectionRequest, error)
	ListAvailableRequests(ctx context.Context) ([]models.CollectionRequest, error)
	ListCollectorRequests(ctx context.Context, collectorID int) ([]models.CollectionRequest, error)
	ListCooperativePending(ctx context.Context, cooperativeID int) ([]models.CollectionRequest, error)

	AcceptCollectionRequest(ctx context.Context, id, collectorID int) error
	CancelCollectionRequest(ctx context.Context, id, producerID int) error
	MarkAwaitingConfirmation(ctx context.Context, id, collectorID int) error
	ConfirmDelivery(ctx context.Context, id, cooperativeID int) error
	AssociateCooperative(ctx context.Context, id, collectorID, cooperativeID int) error
	DeleteCollectionRequest(ctx context.Context, id, producerID int) error

	SubmitProducerRating(ctx context.Context, requestID, producerID int, score *big.Rat) (string, error)
	SubmitCollectorRating(ctx context.Context, requestID, collectorID int, score *big.Rat) (string, error)

	ReplaceCooperativeMaterials(ctx context.Context, cooperativeID int, materials []models.CooperativeMaterial) error
	ListCooperativeMaterials(ctx context.Context, cooperativeID int) ([]models.CooperativeMaterial, error)
}
