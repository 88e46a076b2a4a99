package service

import (
	"context"
	"errors"

	"ferrepos/internal/dto"
	"ferrepos/internal/model"
	"ferrepos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrProductoNoEncontrado = errors.New("producto no encontrado")

// InventarioService maneja stock y su auditoría (movimientos_stock).
// Cada cambio de stock deja exactamente un movimiento con el antes/después.
type InventarioService interface {
	// DescontarStockTx y RestaurarStockTx se llaman dentro de la transacción
	// de una venta / anulación; el tx debe ser el mismo de la operación.
	DescontarStockTx(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, cantidad int, motivo string, referenciaID *uuid.UUID) error
	RestaurarStockTx(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, cantidad int, motivo string, referenciaID *uuid.UUID) error

	AjustarStock(ctx context.Context, productoID uuid.UUID, req dto.AjustarStockRequest) (*dto.ProductoResponse, error)
	ObtenerAlertas(ctx context.Context) ([]dto.AlertaStockResponse, error)
	ListarMovimientos(ctx context.Context, filter repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error)
}

type inventarioService struct {
	productoRepo repository.ProductoRepository
	movRepo      repository.MovimientoStockRepository
}

func NewInventarioService(productoRepo repository.ProductoRepository, movRepo repository.MovimientoStockRepository) InventarioService {
	return &inventarioService{productoRepo: productoRepo, movRepo: movRepo}
}

func (s *inventarioService) DescontarStockTx(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, cantidad int, motivo string, referenciaID *uuid.UUID) error {
	return s.moverStockTx(ctx, tx, productoID, -cantidad, "venta", motivo, referenciaID)
}

func (s *inventarioService) RestaurarStockTx(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, cantidad int, motivo string, referenciaID *uuid.UUID) error {
	return s.moverStockTx(ctx, tx, productoID, cantidad, "restore_anulacion", motivo, referenciaID)
}

func (s *inventarioService) moverStockTx(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, delta int, tipo, motivo string, referenciaID *uuid.UUID) error {
	p, err := s.productoRepo.FindByID(ctx, productoID)
	if err != nil {
		return ErrProductoNoEncontrado
	}

	if err := s.productoRepo.UpdateStockTx(tx, productoID, delta); err != nil {
		return err
	}

	mov := &model.MovimientoStock{
		ProductoID:    productoID,
		Tipo:          tipo,
		Cantidad:      delta,
		StockAnterior: p.StockActual,
		StockNuevo:    p.StockActual + delta,
		Motivo:        motivo,
		ReferenciaID:  referenciaID,
	}
	return s.movRepo.CreateTx(tx, mov)
}

// AjustarStock aplica una corrección manual (conteo físico, rotura, merma).
// El delta puede ser negativo; el stock resultante no puede quedar bajo cero.
func (s *inventarioService) AjustarStock(ctx context.Context, productoID uuid.UUID, req dto.AjustarStockRequest) (*dto.ProductoResponse, error) {
	p, err := s.productoRepo.FindByID(ctx, productoID)
	if err != nil {
		return nil, ErrProductoNoEncontrado
	}
	if p.StockActual+req.Delta < 0 {
		return nil, ErrStockInsuficiente
	}

	if err := s.productoRepo.AjustarStock(ctx, productoID, req.Delta); err != nil {
		return nil, err
	}

	mov := &model.MovimientoStock{
		ProductoID:    productoID,
		Tipo:          "ajuste_manual",
		Cantidad:      req.Delta,
		StockAnterior: p.StockActual,
		StockNuevo:    p.StockActual + req.Delta,
		Motivo:        req.Motivo,
	}
	if err := s.movRepo.Create(ctx, mov); err != nil {
		return nil, err
	}

	p.StockActual += req.Delta
	resp := productoToResponse(p)
	return &resp, nil
}

// ObtenerAlertas lista los productos activos en o bajo su stock mínimo.
func (s *inventarioService) ObtenerAlertas(ctx context.Context) ([]dto.AlertaStockResponse, error) {
	productos, err := s.productoRepo.ListBajoStock(ctx)
	if err != nil {
		return nil, err
	}
	alertas := make([]dto.AlertaStockResponse, 0, len(productos))
	for _, p := range productos {
		alertas = append(alertas, dto.AlertaStockResponse{
			ProductoID:  p.ID.String(),
			Nombre:      p.Nombre,
			StockActual: p.StockActual,
			StockMinimo: p.StockMinimo,
		})
	}
	return alertas, nil
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, filter repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.movRepo.List(ctx, filter)
}
