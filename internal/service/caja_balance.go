package service

import (
	"ferrepos/internal/dto"
	"ferrepos/internal/model"

	"github.com/shopspring/decimal"
)

// ResumirSesion folds a session's full ledger into its derived totals.
// Pure: no clock, no store, no hidden state — the same session and movement
// set always produces the same ResumenSesion. Summation is commutative, so
// the order of movs never changes the result.
//
// saldo_esperado models a physical drawer, not a bank account: only the
// efectivo portion of sales (and of their anulaciones) moves it. Card and
// transfer sales raise total_ventas without adding physical cash.
func ResumirSesion(sesion *model.SesionCaja, movs []model.MovimientoCaja) dto.ResumenSesion {
	var (
		ingresos    = decimal.Zero
		egresos     = decimal.Zero
		ajustes     = decimal.Zero
		ventas      = decimal.Zero
		anulaciones = decimal.Zero
		pagosProv   = decimal.Zero
		porMetodo   dto.VentasPorMetodo
		// efectivo que entró/salió de la bandeja por ventas y anulaciones
		ventasEfectivo = decimal.Zero
	)
	porMetodo = dto.VentasPorMetodo{
		Efectivo:      decimal.Zero,
		Debito:        decimal.Zero,
		Credito:       decimal.Zero,
		Transferencia: decimal.Zero,
		Mixto:         decimal.Zero,
	}

	for _, m := range movs {
		switch m.Tipo {
		case model.MovIngreso:
			ingresos = ingresos.Add(m.Monto)
		case model.MovEgreso:
			egresos = egresos.Add(m.Monto)
		case model.MovAjuste:
			ajustes = ajustes.Add(m.Monto)
		case model.MovPagoProveedor:
			pagosProv = pagosProv.Add(m.Monto)
		case model.MovVenta:
			ventas = ventas.Add(m.Monto)
			switch metodoDe(m) {
			case model.MetodoEfectivo:
				porMetodo.Efectivo = porMetodo.Efectivo.Add(m.Monto)
				ventasEfectivo = ventasEfectivo.Add(m.Monto)
			case model.MetodoDebito:
				porMetodo.Debito = porMetodo.Debito.Add(m.Monto)
			case model.MetodoCredito:
				porMetodo.Credito = porMetodo.Credito.Add(m.Monto)
			case model.MetodoTransferencia:
				porMetodo.Transferencia = porMetodo.Transferencia.Add(m.Monto)
			default:
				porMetodo.Mixto = porMetodo.Mixto.Add(m.Monto)
			}
		case model.MovAnulacion:
			// Monto is already signed (negative) — it compensates a venta.
			anulaciones = anulaciones.Add(m.Monto)
			if metodoDe(m) == model.MetodoEfectivo {
				ventasEfectivo = ventasEfectivo.Add(m.Monto)
			}
		}
	}

	saldoEsperado := sesion.MontoInicial.
		Add(ingresos).
		Add(ventasEfectivo).
		Add(ajustes).
		Sub(egresos).
		Sub(pagosProv)

	resultado := ventas.Add(anulaciones).Sub(pagosProv).Sub(egresos)

	resumen := dto.ResumenSesion{
		Sesion:              sesionToResponse(sesion),
		TotalIngresos:       ingresos,
		TotalEgresos:        egresos,
		TotalAjustes:        ajustes,
		TotalVentas:         ventas,
		VentasPorMetodo:     porMetodo,
		TotalAnulaciones:    anulaciones,
		TotalPagosProveedor: pagosProv,
		Resultado:           resultado,
		SaldoEsperado:       saldoEsperado,
		Movimientos:         make([]dto.MovimientoCajaResponse, 0, len(movs)),
	}
	for _, m := range movs {
		resumen.Movimientos = append(resumen.Movimientos, movimientoToResponse(&m))
	}

	// Arqueo comparison persisted at close, surfaced verbatim.
	if sesion.MontoDeclarado != nil && sesion.Desvio != nil && sesion.DesvioPct != nil && sesion.ClasificacionDesvio != nil {
		resumen.Desvio = &dto.DesvioResponse{
			MontoDeclarado: *sesion.MontoDeclarado,
			Monto:          *sesion.Desvio,
			Porcentaje:     *sesion.DesvioPct,
			Clasificacion:  *sesion.ClasificacionDesvio,
		}
	}

	return resumen
}

func metodoDe(m model.MovimientoCaja) string {
	if m.MetodoPago == nil {
		return ""
	}
	return *m.MetodoPago
}

// clasificarDesvio returns "normal" | "advertencia" | "critico"
// normal: |desvio| <= 1%, advertencia: <= 5%, critico: > 5%
func clasificarDesvio(pct decimal.Decimal) string {
	abs := pct.Abs()
	one := decimal.NewFromInt(1)
	five := decimal.NewFromInt(5)
	switch {
	case abs.LessThanOrEqual(one):
		return "normal"
	case abs.LessThanOrEqual(five):
		return "advertencia"
	default:
		return "critico"
	}
}
