package purchasing

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a purchase order
type OrderStatus string

// Purchase order statuses
const (
	OrderStatusRejected                   OrderStatus = "Rejected"
	OrderStatusPending                    OrderStatus = "Pending"
	OrderStatusGoodToGo                   OrderStatus = "Good to go"
	OrderStatusCancelled                  OrderStatus = "Cancelled"
	OrderStatusInTransit                  OrderStatus = "In transit"
	OrderStatusArrived                    OrderStatus = "Arrived"
	OrderStatusClosed                     OrderStatus = "Closed"
	OrderStatusWaitingForSupplierApproval OrderStatus = "Waiting for supplier approval"
)

var validStatuses = map[OrderStatus]struct{}{
	OrderStatusRejected:                   {},
	OrderStatusPending:                    {},
	OrderStatusGoodToGo:                   {},
	OrderStatusCancelled:                  {},
	OrderStatusInTransit:                  {},
	OrderStatusArrived:                    {},
	OrderStatusClosed:                     {},
	OrderStatusWaitingForSupplierApproval: {},
}

// ParseOrderStatus validates a status string
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.TrimSpace(s))
	if _, ok := validStatuses[status]; !ok {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Unknown purchase order status: "+s)
	}
	return status, nil
}

// PurchaseOrder is the header of a supplier order. It exclusively owns its
// line items and is soft-deleted through IsActive while pallets reference it.
type PurchaseOrder struct {
	shared.BaseEntity
	OrderNumber string                 `gorm:"type:varchar(100);not null;uniqueIndex" json:"order_number"`
	SupplierID  int64                  `gorm:"not null;index" json:"supplier_id"`
	Status      OrderStatus            `gorm:"type:varchar(40);not null;default:'Pending'" json:"status"`
	TotalPrice  decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0" json:"total_price"`
	IsActive    bool                   `gorm:"not null;default:true;index" json:"is_active"`
	Notes       string                 `gorm:"type:text" json:"notes"`
	Products    []PurchaseOrderProduct `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE" json:"products,omitempty"`
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// NewPurchaseOrder creates a Pending purchase order. Line items are added
// with AddProduct before the order is persisted.
func NewPurchaseOrder(orderNumber string, supplierID int64, notes string) (*PurchaseOrder, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order number cannot be empty")
	}
	if supplierID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Supplier is required")
	}
	return &PurchaseOrder{
		OrderNumber: orderNumber,
		SupplierID:  supplierID,
		Status:      OrderStatusPending,
		TotalPrice:  decimal.Zero,
		IsActive:    true,
		Notes:       notes,
	}, nil
}

// AddProduct appends a line item and refreshes the order total
func (po *PurchaseOrder) AddProduct(productID int64, quantity int, unitPrice, productCost decimal.Decimal) error {
	line, err := NewPurchaseOrderProduct(productID, quantity, unitPrice, productCost)
	if err != nil {
		return err
	}
	for _, existing := range po.Products {
		if existing.ProductID == productID {
			return shared.NewDomainError(shared.CodeInvalidInput, "Product already listed on this purchase order")
		}
	}
	po.Products = append(po.Products, *line)
	po.recalculateTotal()
	return nil
}

func (po *PurchaseOrder) recalculateTotal() {
	total := decimal.Zero
	for _, p := range po.Products {
		if p.IsActive {
			total = total.Add(p.TotalAmount)
		}
	}
	po.TotalPrice = total
}

// ChangeStatus moves the order to a new status. Closed, Cancelled and
// Rejected orders are final.
func (po *PurchaseOrder) ChangeStatus(status OrderStatus) error {
	if _, ok := validStatuses[status]; !ok {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unknown purchase order status: "+string(status))
	}
	if po.IsFinal() && status != po.Status {
		return shared.NewDomainError(shared.CodeInvalidState, "Purchase order is "+string(po.Status)+" and can no longer change status")
	}
	po.Status = status
	return nil
}

// IsFinal reports whether the order reached a terminal status
func (po *PurchaseOrder) IsFinal() bool {
	switch po.Status {
	case OrderStatusClosed, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Deactivate soft-deletes the order together with its lines
func (po *PurchaseOrder) Deactivate() {
	po.IsActive = false
	for i := range po.Products {
		po.Products[i].IsActive = false
	}
}
