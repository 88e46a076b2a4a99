package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estados de sesión de caja.
const (
	SesionAbierta = "abierta"
	SesionCerrada = "cerrada"
)

// SesionCaja represents one working period of the cash drawer, from open to
// close. A closed session can be reopened; at most one session is in estado
// "abierta" at any time, enforced by the service against the store.
// Sessions are permanent historical records — never deleted.
type SesionCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Estado       string          `gorm:"type:varchar(20);not null;default:'abierta';index"`
	MontoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AbiertaPor   uuid.UUID       `gorm:"type:uuid;not null"`
	CerradaPor   *uuid.UUID      `gorm:"type:uuid"`
	// Arqueo metadata — recorded at close when the operator declares a manual
	// count. Audit-only: never feeds back into the expected balance.
	MontoDeclarado      *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Desvio              *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DesvioPct           *decimal.Decimal `gorm:"type:decimal(5,2)"`
	ClasificacionDesvio *string          `gorm:"type:varchar(20)"` // "normal" | "advertencia" | "critico"
	// Observaciones is an append-only audit trail: open notes, close notes,
	// and system notes generated by reopen/auto-close.
	Observaciones *string
	OpenedAt      time.Time
	ClosedAt      *time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

// Tipos de movimiento. Venta y pago_proveedor son movimientos direccionales:
// venta suma, pago_proveedor resta. Anulacion es el único tipo con monto
// firmado — compensa una venta anulada sin tocar los movimientos originales.
const (
	MovVenta         = "venta"
	MovIngreso       = "ingreso"
	MovEgreso        = "egreso"
	MovAjuste        = "ajuste"
	MovPagoProveedor = "pago_proveedor"
	MovAnulacion     = "anulacion"
)

// Métodos de pago aceptados en movimientos de tipo venta.
const (
	MetodoEfectivo      = "efectivo"
	MetodoDebito        = "debito"
	MetodoCredito       = "credito"
	MetodoTransferencia = "transferencia"
	MetodoMixto         = "mixto"
)

// MovimientoCaja is an immutable entry in the cash register ledger, tied to
// exactly one SesionCaja. Monto is strictly positive for every tipo except
// anulacion; direction comes from Tipo, never from the sign.
// Movements are NEVER updated or deleted — corrections create inverse entries.
type MovimientoCaja struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID `gorm:"type:uuid;index;not null"`
	Tipo         string    `gorm:"type:varchar(20);not null"`
	// MetodoPago is set on venta and anulacion movements; nil for manual ones.
	MetodoPago  *string         `gorm:"type:varchar(20)"`
	Monto       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descripcion string          `gorm:"not null"`
	// ReferenciaID links to the originating Venta or PagoProveedor for
	// traceability; nil for manual movements.
	ReferenciaID  *uuid.UUID `gorm:"type:uuid"`
	RegistradoPor uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt     time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
