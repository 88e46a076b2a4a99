package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Proveedor represents a supplier with commercial data.
type Proveedor struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RazonSocial   string    `gorm:"not null"`
	CUIT          string    `gorm:"column:cuit;uniqueIndex;not null"`
	Telefono      *string
	Email         *string
	Direccion     *string
	CondicionPago *string
	Activo        bool `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Productos []Producto       `gorm:"foreignKey:ProveedorID"`
	Cuentas   []CuentaPorPagar `gorm:"foreignKey:ProveedorID"`
}

func (Proveedor) TableName() string { return "proveedores" }

// Estados de cuenta por pagar.
const (
	CuentaPendiente = "pendiente"
	CuentaParcial   = "parcial"
	CuentaPagada    = "pagada"
)

// CuentaPorPagar is a supplier debt. SaldoPendiente decreases as payments are
// registered; the debt itself is never deleted once payments exist.
type CuentaPorPagar struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProveedorID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	Concepto       string          `gorm:"not null"`
	MontoTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SaldoPendiente decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Estado         string          `gorm:"type:varchar(20);not null;default:'pendiente'"`
	Vencimiento    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Proveedor *Proveedor      `gorm:"foreignKey:ProveedorID"`
	Pagos     []PagoProveedor `gorm:"foreignKey:CuentaPorPagarID"`
}

func (CuentaPorPagar) TableName() string { return "cuentas_por_pagar" }

// PagoProveedor is one payment against a supplier debt. Cash payments come out
// of the drawer and therefore also produce a caja movement of tipo
// pago_proveedor referencing this record.
type PagoProveedor struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CuentaPorPagarID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Monto            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago       string          `gorm:"type:varchar(20);not null"`
	Descripcion      *string
	RegistradoPor    uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt        time.Time
}

func (PagoProveedor) TableName() string { return "pagos_proveedor" }
