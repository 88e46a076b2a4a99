package tests

import (
	"context"
	"testing"
	"time"

	"ferrepos/internal/dto"
	"ferrepos/internal/model"
	"ferrepos/internal/repository"
	"ferrepos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── In-memory HistorialPrecioRepository ──────────────────────────────────────

type fakeHistorialRepo struct {
	registros []model.HistorialPrecio
}

func (r *fakeHistorialRepo) Create(_ context.Context, h *model.HistorialPrecio) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	h.CreatedAt = time.Now()
	r.registros = append(r.registros, *h)
	return nil
}

func (r *fakeHistorialRepo) ListByProducto(_ context.Context, productoID uuid.UUID, _, _ int) ([]model.HistorialPrecio, int64, error) {
	var result []model.HistorialPrecio
	for _, h := range r.registros {
		if h.ProductoID == productoID {
			result = append(result, h)
		}
	}
	return result, int64(len(result)), nil
}

var _ repository.HistorialPrecioRepository = (*fakeHistorialRepo)(nil)

// ── Productos ────────────────────────────────────────────────────────────────

func TestCrearProductoCalculaMargen(t *testing.T) {
	repo := newFakeProductoRepo()
	svc := service.NewProductoService(repo, &fakeHistorialRepo{})

	resp, err := svc.Crear(context.Background(), dto.CrearProductoRequest{
		CodigoBarras: "7791234567890",
		Nombre:       "Cemento x 50kg",
		Categoria:    "construccion",
		PrecioCosto:  decimal.NewFromFloat(8000),
		PrecioVenta:  decimal.NewFromFloat(10000),
		StockActual:  30,
		StockMinimo:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, "25", resp.MargenPct.String())
	assert.Equal(t, "unidad", resp.UnidadMedida)
	assert.True(t, resp.Activo)
}

func TestCrearProductoBarcodeDuplicado(t *testing.T) {
	repo := newFakeProductoRepo()
	svc := service.NewProductoService(repo, &fakeHistorialRepo{})

	req := dto.CrearProductoRequest{
		CodigoBarras: "7791234567890",
		Nombre:       "Cemento x 50kg",
		Categoria:    "construccion",
		PrecioCosto:  decimal.NewFromFloat(8000),
		PrecioVenta:  decimal.NewFromFloat(10000),
	}
	_, err := svc.Crear(context.Background(), req)
	require.NoError(t, err)

	req.Nombre = "Otro producto con el mismo código"
	_, err = svc.Crear(context.Background(), req)
	assert.ErrorIs(t, err, service.ErrBarcodeDuplicado)
}

func TestCrearProductoPrecioBajoCosto(t *testing.T) {
	repo := newFakeProductoRepo()
	svc := service.NewProductoService(repo, &fakeHistorialRepo{})

	_, err := svc.Crear(context.Background(), dto.CrearProductoRequest{
		CodigoBarras: "7790000111222",
		Nombre:       "Arandela plana",
		Categoria:    "buloneria",
		PrecioCosto:  decimal.NewFromFloat(100),
		PrecioVenta:  decimal.NewFromFloat(90),
	})
	assert.ErrorIs(t, err, service.ErrPrecioInvalido)
}

func TestActualizarProductoRecalculaMargen(t *testing.T) {
	repo := newFakeProductoRepo()
	svc := service.NewProductoService(repo, &fakeHistorialRepo{})

	resp, err := svc.Crear(context.Background(), dto.CrearProductoRequest{
		CodigoBarras: "7795555666777",
		Nombre:       "Disco de corte 115mm",
		Categoria:    "abrasivos",
		PrecioCosto:  decimal.NewFromFloat(1000),
		PrecioVenta:  decimal.NewFromFloat(1500),
	})
	require.NoError(t, err)
	assert.Equal(t, "50", resp.MargenPct.String())

	nuevoPrecio := decimal.NewFromFloat(2000)
	actualizado, err := svc.Actualizar(context.Background(), uuid.MustParse(resp.ID), dto.ActualizarProductoRequest{
		PrecioVenta: &nuevoPrecio,
	})
	require.NoError(t, err)
	assert.Equal(t, "100", actualizado.MargenPct.String())
}

func TestActualizarProductoRegistraHistorialDePrecio(t *testing.T) {
	repo := newFakeProductoRepo()
	historial := &fakeHistorialRepo{}
	svc := service.NewProductoService(repo, historial)

	resp, err := svc.Crear(context.Background(), dto.CrearProductoRequest{
		CodigoBarras: "7798888999000",
		Nombre:       "Cable unipolar 2.5mm x m",
		Categoria:    "electricidad",
		PrecioCosto:  decimal.NewFromFloat(500),
		PrecioVenta:  decimal.NewFromFloat(800),
	})
	require.NoError(t, err)
	id := uuid.MustParse(resp.ID)

	// Cambio de nombre sin tocar precios: no genera registro
	nombre := "Cable unipolar 2,5mm x metro"
	_, err = svc.Actualizar(context.Background(), id, dto.ActualizarProductoRequest{Nombre: &nombre})
	require.NoError(t, err)
	assert.Empty(t, historial.registros)

	nuevoPrecio := decimal.NewFromFloat(950)
	_, err = svc.Actualizar(context.Background(), id, dto.ActualizarProductoRequest{PrecioVenta: &nuevoPrecio})
	require.NoError(t, err)

	registros, total, err := historial.ListByProducto(context.Background(), id, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	h := registros[0]
	assert.Equal(t, "800", h.VentaAntes.String())
	assert.Equal(t, "950", h.VentaDespues.String())
	assert.Equal(t, "500", h.CostoAntes.String())
	assert.Equal(t, "500", h.CostoDespues.String())
	assert.Equal(t, "manual", h.Motivo)
}

// ── Ajustes de stock ─────────────────────────────────────────────────────────

func TestAjustarStockRegistraMovimiento(t *testing.T) {
	productoRepo := newFakeProductoRepo()
	movRepo := &fakeMovStockRepo{}
	svc := service.NewInventarioService(productoRepo, movRepo)

	f := &ventaFixture{productoRepo: productoRepo}
	id := f.agregarProducto(t, "Clavos 2 pulgadas x kg", 1800, 40)

	resp, err := svc.AjustarStock(context.Background(), id, dto.AjustarStockRequest{
		Delta:  -5,
		Motivo: "merma por caja dañada",
	})
	require.NoError(t, err)
	assert.Equal(t, 35, resp.StockActual)

	require.Len(t, movRepo.movimientos, 1)
	mov := movRepo.movimientos[0]
	assert.Equal(t, "ajuste_manual", mov.Tipo)
	assert.Equal(t, -5, mov.Cantidad)
	assert.Equal(t, 40, mov.StockAnterior)
	assert.Equal(t, 35, mov.StockNuevo)
	assert.Equal(t, "merma por caja dañada", mov.Motivo)
}

func TestAjustarStockNoPermiteNegativo(t *testing.T) {
	productoRepo := newFakeProductoRepo()
	movRepo := &fakeMovStockRepo{}
	svc := service.NewInventarioService(productoRepo, movRepo)

	f := &ventaFixture{productoRepo: productoRepo}
	id := f.agregarProducto(t, "Masilla plástica", 3500, 3)

	_, err := svc.AjustarStock(context.Background(), id, dto.AjustarStockRequest{
		Delta:  -4,
		Motivo: "conteo físico",
	})
	assert.ErrorIs(t, err, service.ErrStockInsuficiente)
	assert.Empty(t, movRepo.movimientos)
}

func TestAjustarStockProductoInexistente(t *testing.T) {
	svc := service.NewInventarioService(newFakeProductoRepo(), &fakeMovStockRepo{})

	_, err := svc.AjustarStock(context.Background(), uuid.New(), dto.AjustarStockRequest{
		Delta:  1,
		Motivo: "alta inicial",
	})
	assert.ErrorIs(t, err, service.ErrProductoNoEncontrado)
}

// ── Alertas ──────────────────────────────────────────────────────────────────

func TestObtenerAlertasBajoStock(t *testing.T) {
	productoRepo := newFakeProductoRepo()
	svc := service.NewInventarioService(productoRepo, &fakeMovStockRepo{})

	f := &ventaFixture{productoRepo: productoRepo}
	f.agregarProducto(t, "Producto con stock sano", 1000, 50)
	bajoID := f.agregarProducto(t, "Producto en mínimo", 1000, 2) // StockMinimo: 2
	inactivoID := f.agregarProducto(t, "Producto inactivo agotado", 1000, 0)
	require.NoError(t, productoRepo.SoftDelete(context.Background(), inactivoID))

	alertas, err := svc.ObtenerAlertas(context.Background())
	require.NoError(t, err)
	// Solo los activos en o bajo el mínimo alertan
	require.Len(t, alertas, 1)
	assert.Equal(t, bajoID.String(), alertas[0].ProductoID)
	assert.Equal(t, 2, alertas[0].StockActual)
	assert.Equal(t, 2, alertas[0].StockMinimo)
}

// ── Historial de movimientos ─────────────────────────────────────────────────

func TestListarMovimientosFiltraPorTipo(t *testing.T) {
	productoRepo := newFakeProductoRepo()
	movRepo := &fakeMovStockRepo{}
	svc := service.NewInventarioService(productoRepo, movRepo)

	f := &ventaFixture{productoRepo: productoRepo}
	id := f.agregarProducto(t, "Alambre galvanizado", 2200, 100)

	for _, delta := range []int{-10, 5} {
		_, err := svc.AjustarStock(context.Background(), id, dto.AjustarStockRequest{
			Delta:  delta,
			Motivo: "ajuste de inventario",
		})
		require.NoError(t, err)
	}
	require.NoError(t, svc.DescontarStockTx(context.Background(), nil, id, 3, "Venta #99", nil))

	ajustes, total, err := svc.ListarMovimientos(context.Background(), repository.MovimientoStockFilter{Tipo: "ajuste_manual"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, ajustes, 2)

	ventas, _, err := svc.ListarMovimientos(context.Background(), repository.MovimientoStockFilter{Tipo: "venta"})
	require.NoError(t, err)
	require.Len(t, ventas, 1)
	assert.Equal(t, -3, ventas[0].Cantidad)
}
