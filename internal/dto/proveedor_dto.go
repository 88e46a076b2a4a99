package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProveedorRequest struct {
	RazonSocial   string  `json:"razon_social"   validate:"required,min=2"`
	CUIT          string  `json:"cuit"           validate:"required"`
	Telefono      *string `json:"telefono"`
	Email         *string `json:"email"          validate:"omitempty,email"`
	Direccion     *string `json:"direccion"`
	CondicionPago *string `json:"condicion_pago"`
}

type CrearCuentaPorPagarRequest struct {
	Concepto    string          `json:"concepto"    validate:"required,min=3"`
	MontoTotal  decimal.Decimal `json:"monto_total" validate:"required,gt=0"`
	Vencimiento *string         `json:"vencimiento" validate:"omitempty,datetime=2006-01-02"`
}

type RegistrarPagoRequest struct {
	Monto       decimal.Decimal `json:"monto"       validate:"required,gt=0"`
	MetodoPago  string          `json:"metodo_pago" validate:"required,oneof=efectivo debito credito transferencia"`
	Descripcion *string         `json:"descripcion"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProveedorResponse struct {
	ID            string  `json:"id"`
	RazonSocial   string  `json:"razon_social"`
	CUIT          string  `json:"cuit"`
	Telefono      *string `json:"telefono"`
	Email         *string `json:"email"`
	Direccion     *string `json:"direccion"`
	CondicionPago *string `json:"condicion_pago"`
	Activo        bool    `json:"activo"`
	// SaldoTotal is the sum of saldo_pendiente across the supplier's open debts.
	SaldoTotal decimal.Decimal `json:"saldo_total"`
}

type CuentaPorPagarResponse struct {
	ID             string          `json:"id"`
	ProveedorID    string          `json:"proveedor_id"`
	Concepto       string          `json:"concepto"`
	MontoTotal     decimal.Decimal `json:"monto_total"`
	SaldoPendiente decimal.Decimal `json:"saldo_pendiente"`
	Estado         string          `json:"estado"`
	Vencimiento    *string         `json:"vencimiento"`
	CreatedAt      string          `json:"created_at"`
}

type PagoProveedorResponse struct {
	ID               string          `json:"id"`
	CuentaPorPagarID string          `json:"cuenta_por_pagar_id"`
	Monto            decimal.Decimal `json:"monto"`
	MetodoPago       string          `json:"metodo_pago"`
	Descripcion      *string         `json:"descripcion"`
	CreatedAt        string          `json:"created_at"`
	// SaldoRestante is the debt's saldo after this payment was applied.
	SaldoRestante decimal.Decimal `json:"saldo_restante"`
}
