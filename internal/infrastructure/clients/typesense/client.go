package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	"github.com/CiaranKeogh/Portfolio-Projects/pkg/config"
	"github.com/CiaranKeogh/Portfolio-Projects/pkg/retry"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const (
	PacksCollection = "packs"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(ctx context.Context, cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 5
	retryCfg.MaxTotalTimeout = 20 * time.Second

	logger := observability.LoggerFromContext(ctx)
	err := retry.DoWithLog(
		ctx,
		retryCfg,
		"Typesense",
		func() error {
			healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_, err := client.Health(healthCtx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Typesense connection attempt failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	logger.Info().Msg("Successfully connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// PacksSchema is the collection schema for priced packs
func PacksSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: PacksCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "vpid", Type: "int64"},
			{Name: "vppid", Type: "int64"},
			{Name: "apid", Type: "int64"},
			{Name: "vtmid", Type: "int64", Optional: pointer.True()},
			{Name: "is_brand", Type: "bool", Facet: pointer.True()},
			{Name: "nhs_price", Type: "int64", Optional: pointer.True()},
			{Name: "dt_price", Type: "int64", Optional: pointer.True()},
			{Name: "calculation_method", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "price_status", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
		},
	}
}

// InitSchema ensures the packs collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	logger := observability.LoggerFromContext(ctx)
	for _, col := range collections {
		if col.Name == PacksCollection {
			logger.Debug().Str("collection", PacksCollection).Msg("Typesense collection already exists")
			return nil
		}
	}

	if _, err := c.client.Collections().Create(ctx, PacksSchema()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	logger.Info().Str("collection", PacksCollection).Msg("Created Typesense collection")
	return nil
}

// DropSchema deletes the packs collection if it exists
func (c *Client) DropSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}
	for _, col := range collections {
		if col.Name == PacksCollection {
			if _, err := c.client.Collection(PacksCollection).Delete(ctx); err != nil {
				return fmt.Errorf("failed to delete collection: %w", err)
			}
			return nil
		}
	}
	return nil
}

// UpsertPack creates or replaces a document in the packs collection
func (c *Client) UpsertPack(ctx context.Context, document map[string]interface{}) error {
	_, err := c.client.Collection(PacksCollection).Documents().Upsert(ctx, document)
	return err
}
