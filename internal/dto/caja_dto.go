package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	MontoInicial  decimal.Decimal `json:"monto_inicial" validate:"min=0"`
	Observaciones *string         `json:"observaciones"`
}

type MovimientoCajaRequest struct {
	Tipo        string          `json:"tipo"        validate:"required,oneof=ingreso egreso ajuste"`
	MetodoPago  *string         `json:"metodo_pago" validate:"omitempty,oneof=efectivo debito credito transferencia mixto"`
	Monto       decimal.Decimal `json:"monto"       validate:"required,gt=0"`
	Descripcion string          `json:"descripcion" validate:"required,min=3"`
}

type CerrarCajaRequest struct {
	// MontoDeclarado triggers the optional arqueo: the declared physical count
	// is compared against the expected balance and the deviation recorded.
	MontoDeclarado *decimal.Decimal `json:"monto_declarado" validate:"omitempty"`
	Observaciones  *string          `json:"observaciones"`
}

type ReabrirCajaRequest struct {
	Observaciones *string `json:"observaciones"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionCajaResponse struct {
	ID            string          `json:"id"`
	Estado        string          `json:"estado"`
	MontoInicial  decimal.Decimal `json:"monto_inicial"`
	AbiertaPor    string          `json:"abierta_por"`
	CerradaPor    *string         `json:"cerrada_por"`
	Observaciones *string         `json:"observaciones"`
	OpenedAt      string          `json:"opened_at"`
	ClosedAt      *string         `json:"closed_at"`
}

type MovimientoCajaResponse struct {
	ID           string          `json:"id"`
	SesionCajaID string          `json:"sesion_caja_id"`
	Tipo         string          `json:"tipo"`
	MetodoPago   *string         `json:"metodo_pago"`
	Monto        decimal.Decimal `json:"monto"`
	Descripcion  string          `json:"descripcion"`
	ReferenciaID *string         `json:"referencia_id"`
	CreatedAt    string          `json:"created_at"`
}

// VentasPorMetodo breaks total sales down by payment method. The buckets are
// informational; only Efectivo participates in the expected drawer balance.
type VentasPorMetodo struct {
	Efectivo      decimal.Decimal `json:"efectivo"`
	Debito        decimal.Decimal `json:"debito"`
	Credito       decimal.Decimal `json:"credito"`
	Transferencia decimal.Decimal `json:"transferencia"`
	Mixto         decimal.Decimal `json:"mixto"`
}

// ResumenSesion is the derived view of a session and its ledger. It is
// recomputed on every read and never persisted.
type ResumenSesion struct {
	Sesion              SesionCajaResponse `json:"sesion"`
	TotalIngresos       decimal.Decimal    `json:"total_ingresos"`
	TotalEgresos        decimal.Decimal    `json:"total_egresos"`
	TotalAjustes        decimal.Decimal    `json:"total_ajustes"`
	TotalVentas         decimal.Decimal    `json:"total_ventas"`
	VentasPorMetodo     VentasPorMetodo    `json:"ventas_por_metodo"`
	TotalAnulaciones    decimal.Decimal    `json:"total_anulaciones"` // signed, <= 0
	TotalPagosProveedor decimal.Decimal    `json:"total_pagos_proveedor"`
	// Resultado is a simplified P&L over the session window:
	// ventas + anulaciones − pagos a proveedor − egresos.
	Resultado decimal.Decimal `json:"resultado"`
	// SaldoEsperado is the expected physical drawer content. Can be negative;
	// an overdrawn drawer is surfaced, never clamped.
	SaldoEsperado decimal.Decimal `json:"saldo_esperado"`
	// Arqueo comparison, present only when a count was declared at close.
	Desvio      *DesvioResponse          `json:"desvio,omitempty"`
	Movimientos []MovimientoCajaResponse `json:"movimientos"`
}

type DesvioResponse struct {
	MontoDeclarado decimal.Decimal `json:"monto_declarado"`
	Monto          decimal.Decimal `json:"monto"`
	Porcentaje     decimal.Decimal `json:"porcentaje"`
	Clasificacion  string          `json:"clasificacion"` // normal | advertencia | critico
}

type SesionCajaListResponse struct {
	Data  []SesionCajaResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
