package infra

// pdf.go — closing-report generation using go-pdf/fpdf.
// Produces an A4 "reporte de cierre de caja": session header, totals per
// movement kind, sales broken down by payment method, expected balance and
// arqueo deviation, plus the full ledger.
//
// The output file is saved to storagePath/cierre_{sesionID}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"ferrepos/internal/dto"

	"github.com/go-pdf/fpdf"
)

// GenerateReporteCierrePDF renders a session's ResumenSesion to a PDF file and
// returns the absolute path to the generated file.
func GenerateReporteCierrePDF(resumen *dto.ResumenSesion, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("cierre_%s.pdf", resumen.Sesion.ID)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Reporte de Cierre de Caja", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Sesión: "+resumen.Sesion.ID, "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, "Apertura: "+resumen.Sesion.OpenedAt, "", 1, "L", false, 0, "")
	if resumen.Sesion.ClosedAt != nil {
		pdf.CellFormat(contentW, 5, "Cierre: "+*resumen.Sesion.ClosedAt, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(3)

	labelW := contentW * 0.6
	valueW := contentW * 0.4

	row := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(labelW, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 6, value, "", 1, "R", false, 0, "")
	}

	// ── Totales ──────────────────────────────────────────────────────────────
	row("Monto inicial", "$"+resumen.Sesion.MontoInicial.StringFixed(2), false)
	row("Ingresos manuales", "$"+resumen.TotalIngresos.StringFixed(2), false)
	row("Egresos manuales", "-$"+resumen.TotalEgresos.StringFixed(2), false)
	row("Ajustes", "$"+resumen.TotalAjustes.StringFixed(2), false)
	row("Ventas", "$"+resumen.TotalVentas.StringFixed(2), false)
	row("Anulaciones", "$"+resumen.TotalAnulaciones.StringFixed(2), false)
	row("Pagos a proveedores", "-$"+resumen.TotalPagosProveedor.StringFixed(2), false)
	pdf.Ln(2)
	row("Resultado del turno", "$"+resumen.Resultado.StringFixed(2), true)
	row("Saldo esperado en bandeja", "$"+resumen.SaldoEsperado.StringFixed(2), true)
	pdf.Ln(3)

	// ── Ventas por método ────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, "Ventas por método de pago", "B", 1, "L", false, 0, "")
	row("Efectivo", "$"+resumen.VentasPorMetodo.Efectivo.StringFixed(2), false)
	row("Débito", "$"+resumen.VentasPorMetodo.Debito.StringFixed(2), false)
	row("Crédito", "$"+resumen.VentasPorMetodo.Credito.StringFixed(2), false)
	row("Transferencia", "$"+resumen.VentasPorMetodo.Transferencia.StringFixed(2), false)
	row("Mixto", "$"+resumen.VentasPorMetodo.Mixto.StringFixed(2), false)
	pdf.Ln(3)

	// ── Arqueo ───────────────────────────────────────────────────────────────
	if resumen.Desvio != nil {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW, 6, "Arqueo", "B", 1, "L", false, 0, "")
		row("Monto declarado", "$"+resumen.Desvio.MontoDeclarado.StringFixed(2), false)
		row("Desvío", "$"+resumen.Desvio.Monto.StringFixed(2), false)
		row("Desvío %", resumen.Desvio.Porcentaje.StringFixed(2)+"%", false)
		row("Clasificación", resumen.Desvio.Clasificacion, true)
		pdf.Ln(3)
	}

	// ── Movimientos ──────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Movimientos (%d)", len(resumen.Movimientos)), "B", 1, "L", false, 0, "")

	col1 := contentW * 0.18 // tipo
	col2 := contentW * 0.14 // metodo
	col3 := contentW * 0.48 // descripcion
	col4 := contentW * 0.20 // monto

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col1, 5, "Tipo", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Método", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 5, "Descripción", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 5, "Monto", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, m := range resumen.Movimientos {
		metodo := ""
		if m.MetodoPago != nil {
			metodo = *m.MetodoPago
		}
		desc := m.Descripcion
		if len(desc) > 48 {
			desc = desc[:47] + "…"
		}
		pdf.CellFormat(col1, 5, m.Tipo, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, metodo, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, desc, "", 0, "L", false, 0, "")
		pdf.CellFormat(col4, 5, "$"+m.Monto.StringFixed(2), "", 1, "R", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
