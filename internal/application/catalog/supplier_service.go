package catalog

import (
	"context"

	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/domain/catalog"
	"go.uber.org/zap"
)

// SupplierService manages suppliers
type SupplierService struct {
	scope  stock.TransactionScope
	logger *zap.Logger
}

// NewSupplierService creates a new SupplierService
func NewSupplierService(scope stock.TransactionScope, logger *zap.Logger) *SupplierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplierService{scope: scope, logger: logger}
}

// CreateSupplier registers a supplier. Duplicate names surface as
// DUPLICATE_KEY from the unique index.
func (s *SupplierService) CreateSupplier(ctx context.Context, req CreateSupplierRequest) (*SupplierResponse, error) {
	supplier, err := catalog.NewSupplier(req.Name, req.Contact, req.Email)
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		return repos.Suppliers().Save(ctx, supplier)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Supplier created", zap.Int64("supplier_id", supplier.ID), zap.String("name", supplier.Name))
	resp := ToSupplierResponse(supplier)
	return &resp, nil
}

// GetSupplier returns a supplier
func (s *SupplierService) GetSupplier(ctx context.Context, id int64) (*SupplierResponse, error) {
	var supplier *catalog.Supplier
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		supplier, err = repos.Suppliers().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToSupplierResponse(supplier)
	return &resp, nil
}
