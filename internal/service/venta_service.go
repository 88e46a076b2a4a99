package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ferrepos/internal/dto"
	"ferrepos/internal/model"
	"ferrepos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrVentaNoEncontrada  = errors.New("venta no encontrada")
	ErrVentaYaAnulada     = errors.New("la venta ya está anulada")
	ErrPagosInsuficientes = errors.New("el monto total de pagos es insuficiente")
	ErrVueltoSinEfectivo  = errors.New("el vuelto no puede superar lo pagado en efectivo")
	ErrStockInsuficiente  = errors.New("stock insuficiente")
	ErrProductoInactivo   = errors.New("el producto está inactivo y no puede venderse")
)

type VentaService interface {
	RegistrarVenta(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	AnularVenta(ctx context.Context, id, usuarioID uuid.UUID, motivo string) error
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
}

type ventaService struct {
	repo         repository.VentaRepository
	cajaRepo     repository.CajaRepository
	productoRepo repository.ProductoRepository
	inventario   InventarioService
}

func NewVentaService(
	repo repository.VentaRepository,
	cajaRepo repository.CajaRepository,
	productoRepo repository.ProductoRepository,
	inventario InventarioService,
) VentaService {
	return &ventaService{
		repo:         repo,
		cajaRepo:     cajaRepo,
		productoRepo: productoRepo,
		inventario:   inventario,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// RegistrarVenta:
//  1. resuelve la sesión de caja abierta (se relee del store, nunca se cachea)
//  2. resuelve productos, calcula totales y valida stock
//  3. valida suficiencia de pagos
//  4. en una transacción: nextval ticket, crea venta+items+pagos, descuenta
//     stock con su auditoría, y crea un movimiento de caja por método de pago
func (s *ventaService) RegistrarVenta(ctx context.Context, usuarioID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	sesion, err := s.cajaRepo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, ErrSinSesionActiva
	}

	type resolvedItem struct {
		productoID uuid.UUID
		nombre     string
		precio     decimal.Decimal
		cantidad   int
		descuento  decimal.Decimal
		subtotal   decimal.Decimal
	}

	var resolved []resolvedItem
	subtotal := decimal.Zero
	descuentoTotal := decimal.Zero

	for _, item := range req.Items {
		pid, err := uuid.Parse(item.ProductoID)
		if err != nil {
			return nil, fmt.Errorf("producto_id inválido: %w", err)
		}
		p, err := s.productoRepo.FindByID(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("producto %s no encontrado", item.ProductoID)
		}
		if !p.Activo {
			return nil, fmt.Errorf("%w: %s", ErrProductoInactivo, p.Nombre)
		}
		if p.StockActual < item.Cantidad {
			return nil, fmt.Errorf("%w: %s (disponible %d, pedido %d)",
				ErrStockInsuficiente, p.Nombre, p.StockActual, item.Cantidad)
		}
		lineSubtotal := p.PrecioVenta.Mul(decimal.NewFromInt(int64(item.Cantidad))).Sub(item.Descuento)
		subtotal = subtotal.Add(lineSubtotal)
		descuentoTotal = descuentoTotal.Add(item.Descuento)
		resolved = append(resolved, resolvedItem{
			productoID: pid,
			nombre:     p.Nombre,
			precio:     p.PrecioVenta,
			cantidad:   item.Cantidad,
			descuento:  item.Descuento,
			subtotal:   lineSubtotal,
		})
	}

	total := subtotal

	totalPagos := decimal.Zero
	totalEfectivo := decimal.Zero
	for _, pago := range req.Pagos {
		if !pago.Monto.IsPositive() {
			return nil, ErrMontoInvalido
		}
		totalPagos = totalPagos.Add(pago.Monto)
		if pago.Metodo == model.MetodoEfectivo {
			totalEfectivo = totalEfectivo.Add(pago.Monto)
		}
	}
	if totalPagos.LessThan(total) {
		return nil, ErrPagosInsuficientes
	}
	vuelto := totalPagos.Sub(total)
	// El vuelto sale físicamente de la bandeja; solo el efectivo lo cubre.
	if vuelto.GreaterThan(totalEfectivo) {
		return nil, ErrVueltoSinEfectivo
	}

	var venta model.Venta
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ticketNum, err := s.repo.NextTicketNumber(ctx, tx)
		if err != nil {
			return err
		}

		venta = model.Venta{
			NumeroTicket:   ticketNum,
			SesionCajaID:   sesion.ID,
			UsuarioID:      usuarioID,
			Subtotal:       subtotal,
			DescuentoTotal: descuentoTotal,
			Total:          total,
			Estado:         model.VentaCompletada,
		}
		for _, r := range resolved {
			venta.Items = append(venta.Items, model.VentaItem{
				ProductoID:     r.productoID,
				Cantidad:       r.cantidad,
				PrecioUnitario: r.precio,
				DescuentoItem:  r.descuento,
				Subtotal:       r.subtotal,
			})
		}
		for _, pago := range req.Pagos {
			venta.Pagos = append(venta.Pagos, model.VentaPago{
				Metodo: pago.Metodo,
				Monto:  pago.Monto,
			})
		}
		if err := s.repo.Create(ctx, tx, &venta); err != nil {
			return err
		}

		for _, r := range resolved {
			if err := s.inventario.DescontarStockTx(ctx, tx, r.productoID, r.cantidad,
				fmt.Sprintf("Venta #%d", ticketNum), &venta.ID); err != nil {
				return fmt.Errorf("error descontando stock de %s: %w", r.nombre, err)
			}
		}

		// Un movimiento de caja por método. El efectivo se registra neto del
		// vuelto: la bandeja recibe lo pagado menos lo devuelto. Si el vuelto
		// supera un pago en efectivo, el resto se descuenta de los siguientes.
		vueltoRestante := vuelto
		for _, pago := range req.Pagos {
			metodo := pago.Metodo
			monto := pago.Monto
			if metodo == model.MetodoEfectivo && vueltoRestante.IsPositive() {
				aplicado := decimal.Min(monto, vueltoRestante)
				monto = monto.Sub(aplicado)
				vueltoRestante = vueltoRestante.Sub(aplicado)
				if !monto.IsPositive() {
					continue
				}
			}
			mov := model.MovimientoCaja{
				SesionCajaID:  sesion.ID,
				Tipo:          model.MovVenta,
				MetodoPago:    &metodo,
				Monto:         monto,
				Descripcion:   fmt.Sprintf("Venta #%d", ticketNum),
				ReferenciaID:  &venta.ID,
				RegistradoPor: usuarioID,
			}
			if err := s.cajaRepo.CreateMovimientoTx(tx, &mov); err != nil {
				return err
			}
		}

		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	resp := ventaToResponse(&venta)
	resp.Vuelto = vuelto
	for i, r := range resolved {
		resp.Items[i].Producto = r.nombre
	}
	return resp, nil
}

// AnularVenta marca la venta como anulada, restaura el stock de cada ítem y
// escribe movimientos de caja compensatorios (tipo anulacion, monto negativo)
// en la sesión abierta actual. Los movimientos originales nunca se tocan.
func (s *ventaService) AnularVenta(ctx context.Context, id, usuarioID uuid.UUID, motivo string) error {
	venta, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrVentaNoEncontrada
	}
	if venta.Estado == model.VentaAnulada {
		return ErrVentaYaAnulada
	}

	sesion, err := s.cajaRepo.FindSesionAbierta(ctx)
	if err != nil {
		return err
	}
	if sesion == nil {
		return ErrSinSesionActiva
	}

	// Se compensa lo asentado, no lo pagado: el efectivo se registró neto
	// del vuelto, así que negar los pagos sobre-restaría el vuelto.
	originales, err := s.cajaRepo.ListMovimientosVenta(ctx, id)
	if err != nil {
		return err
	}

	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		for _, item := range venta.Items {
			if err := s.inventario.RestaurarStockTx(ctx, tx, item.ProductoID, item.Cantidad,
				fmt.Sprintf("Anulación venta #%d — %s", venta.NumeroTicket, motivo), &venta.ID); err != nil {
				return err
			}
		}

		for _, orig := range originales {
			var metodo *string
			if orig.MetodoPago != nil {
				m := *orig.MetodoPago
				metodo = &m
			}
			mov := model.MovimientoCaja{
				SesionCajaID:  sesion.ID,
				Tipo:          model.MovAnulacion,
				MetodoPago:    metodo,
				Monto:         orig.Monto.Neg(),
				Descripcion:   fmt.Sprintf("Anulación venta #%d — %s", venta.NumeroTicket, motivo),
				ReferenciaID:  &venta.ID,
				RegistradoPor: usuarioID,
			}
			if err := s.cajaRepo.CreateMovimientoTx(tx, &mov); err != nil {
				return err
			}
		}

		return s.repo.UpdateEstadoTx(tx, id, model.VentaAnulada, &motivo)
	})
}

func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	venta, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrVentaNoEncontrada
	}
	return ventaToResponse(venta), nil
}

// ListVentas returns a paginated list of sales, filtered by date and estado.
// Default filter: today's completed sales.
func (s *ventaService) ListVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.Estado == "" {
		filter.Estado = model.VentaCompletada
	}
	ventas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		data = append(data, *ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	items := make([]dto.ItemVentaResponse, 0, len(v.Items))
	for _, item := range v.Items {
		nombre := ""
		if item.Producto != nil {
			nombre = item.Producto.Nombre
		}
		items = append(items, dto.ItemVentaResponse{
			Producto:       nombre,
			Cantidad:       item.Cantidad,
			PrecioUnitario: item.PrecioUnitario,
			Subtotal:       item.Subtotal,
		})
	}
	pagos := make([]dto.PagoRequest, 0, len(v.Pagos))
	for _, p := range v.Pagos {
		pagos = append(pagos, dto.PagoRequest{Metodo: p.Metodo, Monto: p.Monto})
	}
	return &dto.VentaResponse{
		ID:             v.ID.String(),
		NumeroTicket:   v.NumeroTicket,
		SesionCajaID:   v.SesionCajaID.String(),
		Items:          items,
		Subtotal:       v.Subtotal,
		DescuentoTotal: v.DescuentoTotal,
		Total:          v.Total,
		Pagos:          pagos,
		Estado:         v.Estado,
		CreatedAt:      v.CreatedAt.Format(time.RFC3339),
	}
}
