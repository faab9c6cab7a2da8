package catalog

import (
	"context"

	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/shared"
	"go.uber.org/zap"
)

// ProductService manages the product catalog and serves product reads
// through a cache that is evicted whenever stock is recalculated.
type ProductService struct {
	scope        stock.TransactionScope
	cache        catalog.ProductCache
	recalculator *stock.Recalculator
	logger       *zap.Logger
}

// NewProductService creates a new ProductService. cache may be nil.
func NewProductService(scope stock.TransactionScope, cache catalog.ProductCache, recalculator *stock.Recalculator, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		scope:        scope,
		cache:        cache,
		recalculator: recalculator,
		logger:       logger,
	}
}

// CreateProduct registers a product with zero warehouse stock
func (s *ProductService) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(req.ASIN, req.SellerSKU, req.Title, req.SupplierID)
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		if _, err := repos.Products().FindByASIN(ctx, product.ASIN); err == nil {
			return shared.NewDomainError(shared.CodeDuplicateKey, "Product with ASIN "+product.ASIN+" already exists")
		} else if !shared.HasCode(err, shared.CodeNotFound) {
			return err
		}
		if product.SupplierID != nil {
			if _, err := repos.Suppliers().FindByID(ctx, *product.SupplierID); err != nil {
				return err
			}
		}
		return repos.Products().Save(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("asin", product.ASIN),
	)
	resp := ToProductResponse(product)
	return &resp, nil
}

// GetProduct returns a product, reading through the cache
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*ProductResponse, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Product cache read failed", zap.Int64("product_id", id), zap.Error(err))
		} else if cached != nil {
			resp := ToProductResponse(cached)
			return &resp, nil
		}
	}

	var product *catalog.Product
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		product, err = repos.Products().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, product, 0); err != nil {
			s.logger.Warn("Product cache write failed", zap.Int64("product_id", id), zap.Error(err))
		}
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// ListProducts lists products matching filter. Listings bypass the cache.
func (s *ProductService) ListProducts(ctx context.Context, filter ProductListFilter) (shared.Paginated[ProductResponse], error) {
	f := catalog.ProductFilter{
		Filter:     shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize(),
		SupplierID: filter.SupplierID,
		ActiveOnly: filter.ActiveOnly,
		InStock:    filter.InStock,
	}
	var (
		products []catalog.Product
		total    int64
	)
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		products, total, err = repos.Products().FindAll(ctx, f)
		return err
	})
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	items := make([]ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, ToProductResponse(&products[i]))
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// RecalculateStock rebuilds one product's warehouse stock from the ledger
func (s *ProductService) RecalculateStock(ctx context.Context, id int64) (*stock.Level, error) {
	return s.recalculator.Recalculate(ctx, id)
}
