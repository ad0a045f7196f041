package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/example/farmmarket/pkg/apperr"
	"github.com/example/farmmarket/pkg/auth"
	"github.com/example/farmmarket/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const errMsgAdminRequired = "Admin access required"

// ProductInput is the editable part of a product.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    models.Category `json:"category"`
	Stock       int             `json:"stock"`
	Unit        string          `json:"unit"`
	Image       string          `json:"image,omitempty"`
	Farmer      string          `json:"farmer"`
	Location    string          `json:"location"`
}

func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.InvalidArgument("Name is required")
	}
	if !in.Category.Valid() {
		return apperr.Newf(apperr.KindInvalidArgument, "Unknown category %q", in.Category)
	}
	if in.Price.IsNegative() {
		return apperr.InvalidArgument("Price must not be negative")
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return apperr.InvalidArgument("Price must have at most 2 decimal places")
	}
	if in.Stock < 0 {
		return apperr.InvalidArgument("Stock must not be negative")
	}
	if strings.TrimSpace(in.Unit) == "" {
		return apperr.InvalidArgument("Unit is required")
	}
	return nil
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Category = in.Category
	p.Stock = in.Stock
	p.Unit = in.Unit
	p.Farmer = in.Farmer
	p.Location = in.Location
	if in.Image != "" {
		p.Image = in.Image
	}
}

type CatalogService struct {
	products ProductRepository
	images   ImageUploader
	audit    AuditLogger
	logger   *zap.Logger
	now      Clock
}

func NewCatalogService(products ProductRepository, images ImageUploader, audit AuditLogger, logger *zap.Logger, now Clock) *CatalogService {
	return &CatalogService{
		products: products,
		images:   images,
		audit:    audit,
		logger:   logger.Named("catalog"),
		now:      now,
	}
}

func (s *CatalogService) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "Unknown category %q", filter.Category)
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.products.List(ctx, filter)
}

func (s *CatalogService) Get(ctx context.Context, id string) (models.Product, error) {
	return s.products.Get(ctx, id)
}

// Lookup resolves products for a set of ids in one round trip.
func (s *CatalogService) Lookup(ctx context.Context, ids []string) (map[string]models.Product, error) {
	return s.products.GetMany(ctx, ids)
}

func (s *CatalogService) Create(ctx context.Context, sess auth.Session, in ProductInput) (models.Product, error) {
	if !sess.IsAdmin() {
		return models.Product{}, apperr.Forbidden(errMsgAdminRequired)
	}
	if err := in.Validate(); err != nil {
		return models.Product{}, err
	}

	now := s.now()
	p := models.Product{CreatedAt: now, UpdatedAt: now}
	in.apply(&p)
	if err := s.products.Create(ctx, &p); err != nil {
		return models.Product{}, err
	}

	s.logger.Info("Product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	s.record(ctx, sess, "create_product", p.ID, map[string]interface{}{"name": p.Name, "stock": p.Stock})
	return p, nil
}

func (s *CatalogService) Update(ctx context.Context, sess auth.Session, id string, in ProductInput) (models.Product, error) {
	if !sess.IsAdmin() {
		return models.Product{}, apperr.Forbidden(errMsgAdminRequired)
	}
	if err := in.Validate(); err != nil {
		return models.Product{}, err
	}

	p, err := s.products.Get(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	in.apply(&p)
	p.UpdatedAt = s.now()
	if err := s.products.Update(ctx, p); err != nil {
		return models.Product{}, err
	}

	s.record(ctx, sess, "update_product", p.ID, map[string]interface{}{"price": p.Price.String(), "stock": p.Stock})
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, sess auth.Session, id string) error {
	if !sess.IsAdmin() {
		return apperr.Forbidden(errMsgAdminRequired)
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, sess, "delete_product", id, nil)
	return nil
}

// UploadImage stores an image for the product and points the product at it.
func (s *CatalogService) UploadImage(ctx context.Context, sess auth.Session, id, filename, contentType string, body io.Reader) (models.Product, error) {
	if !sess.IsAdmin() {
		return models.Product{}, apperr.Forbidden(errMsgAdminRequired)
	}
	if s.images == nil {
		return models.Product{}, apperr.New(apperr.KindUnavailable, "Image storage is not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return models.Product{}, apperr.InvalidArgument("Only image uploads are allowed")
	}

	p, err := s.products.Get(ctx, id)
	if err != nil {
		return models.Product{}, err
	}

	key := fmt.Sprintf("%s/%d%s", p.ID, s.now().UnixNano(), strings.ToLower(path.Ext(filename)))
	url, err := s.images.Upload(ctx, key, contentType, body)
	if err != nil {
		return models.Product{}, apperr.Wrap(apperr.KindUnavailable, "Image upload failed", err)
	}

	p.Image = url
	p.UpdatedAt = s.now()
	if err := s.products.Update(ctx, p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (s *CatalogService) record(ctx context.Context, sess auth.Session, action, entityID string, data map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["actor"] = sess.UserID
	err := s.audit.CreateAuditLog(ctx, &models.AuditEntry{
		Service:   "catalog",
		Action:    action,
		EntityID:  entityID,
		Data:      data,
		CreatedAt: s.now(),
	})
	if err != nil {
		s.logger.Warn("Failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
