package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// productDocument is the stored shape of a product. Prices are kept as Decimal128.
type productDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Category    string               `bson:"category"`
	Stock       int                  `bson:"stock"`
	Unit        string               `bson:"unit"`
	Image       string               `bson:"image,omitempty"`
	Farmer      string               `bson:"farmer"`
	Location    string               `bson:"location"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

func toDocument(p models.Product) (productDocument, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return productDocument{}, fmt.Errorf("invalid price %s: %w", p.Price, err)
	}
	doc := productDocument{
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Category:    string(p.Category),
		Stock:       p.Stock,
		Unit:        p.Unit,
		Image:       p.Image,
		Farmer:      p.Farmer,
		Location:    p.Location,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.ID != "" {
		id, err := primitive.ObjectIDFromHex(p.ID)
		if err != nil {
			return productDocument{}, apperr.NotFound("Product not found")
		}
		doc.ID = id
	}
	return doc, nil
}

func (d productDocument) model() models.Product {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		price = decimal.Zero
	}
	return models.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Category:    models.Category(d.Category),
		Stock:       d.Stock,
		Unit:        d.Unit,
		Image:       d.Image,
		Farmer:      d.Farmer,
		Location:    d.Location,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// ProductStore keeps the catalog in a MongoDB collection.
type ProductStore struct {
	collection *mongo.Collection
}

func productFilter(filter models.ProductFilter) bson.M {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = string(filter.Category)
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}
	return query
}

func (s *ProductStore) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.collection.Find(ctx, productFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.model())
	}
	return products, nil
}

func (s *ProductStore) Get(ctx context.Context, id string) (models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Product{}, apperr.NotFound("Product not found")
	}

	var doc productDocument
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, apperr.NotFound("Product not found")
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.model(), nil
}

// GetMany returns the products that exist among ids, keyed by id. Unknown or malformed
// ids are skipped.
func (s *ProductStore) GetMany(ctx context.Context, ids []string) (map[string]models.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}

	found := make(map[string]models.Product, len(oids))
	if len(oids) == 0 {
		return found, nil
	}

	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	for _, doc := range docs {
		p := doc.model()
		found[p.ID] = p
	}
	return found, nil
}

func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	p.ID = ""
	doc, err := toDocument(*p)
	if err != nil {
		return err
	}

	res, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid.Hex()
	}
	return nil
}

func (s *ProductStore) Update(ctx context.Context, p models.Product) error {
	doc, err := toDocument(p)
	if err != nil {
		return err
	}

	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("Product not found")
	}
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("Product not found")
	}

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("Product not found")
	}
	return nil
}

// AdjustStock adds delta to the product's stock. No floor is enforced here; two
// concurrent orders may both decrement the last unit.
func (s *ProductStore) AdjustStock(ctx context.Context, id string, delta int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("Product not found")
	}

	update := bson.M{
		"$inc": bson.M{"stock": delta},
		"$set": bson.M{"updated_at": time.Now()},
	}
	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("Product not found")
	}
	return nil
}

func (s *ProductStore) Count(ctx context.Context) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}
