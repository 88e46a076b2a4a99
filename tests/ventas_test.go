package tests

import (
	"context"
	"errors"
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
	"gorm.io/gorm"
)

// ── In-memory VentaRepository ────────────────────────────────────────────────

type fakeVentaRepo struct {
	ventas map[uuid.UUID]*model.Venta
	ticket int
}

func newFakeVentaRepo() *fakeVentaRepo {
	return &fakeVentaRepo{ventas: make(map[uuid.UUID]*model.Venta)}
}

func (r *fakeVentaRepo) DB() *gorm.DB { return nil }

func (r *fakeVentaRepo) Create(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = time.Now()
	for i := range v.Items {
		v.Items[i].ID = uuid.New()
		v.Items[i].VentaID = v.ID
	}
	for i := range v.Pagos {
		v.Pagos[i].ID = uuid.New()
		v.Pagos[i].VentaID = v.ID
	}
	copia := *v
	r.ventas[v.ID] = &copia
	return nil
}

func (r *fakeVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	v, ok := r.ventas[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copia := *v
	return &copia, nil
}

func (r *fakeVentaRepo) UpdateEstadoTx(_ *gorm.DB, id uuid.UUID, estado string, motivo *string) error {
	v, ok := r.ventas[id]
	if !ok {
		return errors.New("not found")
	}
	v.Estado = estado
	v.MotivoAnulacion = motivo
	return nil
}

func (r *fakeVentaRepo) NextTicketNumber(_ context.Context, _ *gorm.DB) (int, error) {
	r.ticket++
	return r.ticket, nil
}

func (r *fakeVentaRepo) List(_ context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	var result []model.Venta
	for _, v := range r.ventas {
		if filter.Estado != "all" && v.Estado != filter.Estado {
			continue
		}
		result = append(result, *v)
	}
	return result, int64(len(result)), nil
}

var _ repository.VentaRepository = (*fakeVentaRepo)(nil)

// ── In-memory ProductoRepository ─────────────────────────────────────────────

type fakeProductoRepo struct {
	productos map[uuid.UUID]*model.Producto
}

func newFakeProductoRepo() *fakeProductoRepo {
	return &fakeProductoRepo{productos: make(map[uuid.UUID]*model.Producto)}
}

func (r *fakeProductoRepo) Create(_ context.Context, p *model.Producto) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	copia := *p
	r.productos[p.ID] = &copia
	return nil
}

func (r *fakeProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.productos[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copia := *p
	return &copia, nil
}

func (r *fakeProductoRepo) FindByBarcode(_ context.Context, barcode string) (*model.Producto, error) {
	for _, p := range r.productos {
		if p.CodigoBarras == barcode {
			copia := *p
			return &copia, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeProductoRepo) List(_ context.Context, _ dto.ProductoFilter) ([]model.Producto, int64, error) {
	all := make([]model.Producto, 0, len(r.productos))
	for _, p := range r.productos {
		all = append(all, *p)
	}
	return all, int64(len(all)), nil
}

func (r *fakeProductoRepo) ListBajoStock(_ context.Context) ([]model.Producto, error) {
	var result []model.Producto
	for _, p := range r.productos {
		if p.Activo && p.StockActual <= p.StockMinimo {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeProductoRepo) Update(_ context.Context, p *model.Producto) error {
	copia := *p
	r.productos[p.ID] = &copia
	return nil
}

func (r *fakeProductoRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	p, ok := r.productos[id]
	if !ok {
		return errors.New("not found")
	}
	p.Activo = false
	return nil
}

func (r *fakeProductoRepo) Reactivar(_ context.Context, id uuid.UUID) error {
	p, ok := r.productos[id]
	if !ok {
		return errors.New("not found")
	}
	p.Activo = true
	return nil
}

func (r *fakeProductoRepo) FindByProveedorID(_ context.Context, proveedorID uuid.UUID) ([]model.Producto, error) {
	var result []model.Producto
	for _, p := range r.productos {
		if p.ProveedorID != nil && *p.ProveedorID == proveedorID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeProductoRepo) UpdateStockTx(_ *gorm.DB, id uuid.UUID, delta int) error {
	p, ok := r.productos[id]
	if !ok {
		return errors.New("not found")
	}
	p.StockActual += delta
	return nil
}

func (r *fakeProductoRepo) AjustarStock(_ context.Context, id uuid.UUID, delta int) error {
	return r.UpdateStockTx(nil, id, delta)
}

var _ repository.ProductoRepository = (*fakeProductoRepo)(nil)

// ── In-memory MovimientoStockRepository ──────────────────────────────────────

type fakeMovStockRepo struct {
	movimientos []model.MovimientoStock
}

func (r *fakeMovStockRepo) Create(_ context.Context, m *model.MovimientoStock) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *fakeMovStockRepo) CreateTx(_ *gorm.DB, m *model.MovimientoStock) error {
	return r.Create(context.Background(), m)
}

func (r *fakeMovStockRepo) List(_ context.Context, filter repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	var result []model.MovimientoStock
	for _, m := range r.movimientos {
		if filter.ProductoID != nil && m.ProductoID != *filter.ProductoID {
			continue
		}
		if filter.Tipo != "" && m.Tipo != filter.Tipo {
			continue
		}
		result = append(result, m)
	}
	return result, int64(len(result)), nil
}

var _ repository.MovimientoStockRepository = (*fakeMovStockRepo)(nil)

// ── Helpers ──────────────────────────────────────────────────────────────────

type ventaFixture struct {
	cajaRepo     *fullCajaRepo
	ventaRepo    *fakeVentaRepo
	productoRepo *fakeProductoRepo
	movStockRepo *fakeMovStockRepo
	svc          service.VentaService
	sesionID     uuid.UUID
}

func newVentaFixture(t *testing.T, conSesion bool) *ventaFixture {
	t.Helper()
	f := &ventaFixture{
		cajaRepo:     newFullCajaRepo(),
		ventaRepo:    newFakeVentaRepo(),
		productoRepo: newFakeProductoRepo(),
		movStockRepo: &fakeMovStockRepo{},
	}
	inventario := service.NewInventarioService(f.productoRepo, f.movStockRepo)
	f.svc = service.NewVentaService(f.ventaRepo, f.cajaRepo, f.productoRepo, inventario)

	if conSesion {
		s := &model.SesionCaja{
			Estado:       model.SesionAbierta,
			MontoInicial: decimal.NewFromFloat(1000),
			AbiertaPor:   uuid.New(),
			OpenedAt:     time.Now(),
		}
		require.NoError(t, f.cajaRepo.CreateSesion(context.Background(), s))
		f.sesionID = s.ID
	}
	return f
}

func (f *ventaFixture) agregarProducto(t *testing.T, nombre string, precio float64, stock int) uuid.UUID {
	t.Helper()
	p := &model.Producto{
		CodigoBarras: uuid.NewString(),
		Nombre:       nombre,
		Categoria:    "ferreteria",
		PrecioCosto:  decimal.NewFromFloat(precio / 2),
		PrecioVenta:  decimal.NewFromFloat(precio),
		StockActual:  stock,
		StockMinimo:  2,
		Activo:       true,
	}
	require.NoError(t, f.productoRepo.Create(context.Background(), p))
	return p.ID
}

// ── Registro de ventas ───────────────────────────────────────────────────────

func TestRegistrarVentaEfectivoConVuelto(t *testing.T) {
	f := newVentaFixture(t, true)
	martilloID := f.agregarProducto(t, "Martillo galponero", 1500, 10)

	resp, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: martilloID.String(), Cantidad: 2}},
		Pagos: []dto.PagoRequest{{Metodo: "efectivo", Monto: decimal.NewFromFloat(5000)}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.NumeroTicket)
	assert.Equal(t, "3000", resp.Total.String())
	assert.Equal(t, "2000", resp.Vuelto.String())
	assert.Equal(t, "completada", resp.Estado)
	assert.Equal(t, "Martillo galponero", resp.Items[0].Producto)

	// El movimiento de caja en efectivo se registra NETO del vuelto:
	// la bandeja recibe 5000 y devuelve 2000.
	require.Len(t, f.cajaRepo.movimientos, 1)
	mov := f.cajaRepo.movimientos[0]
	assert.Equal(t, model.MovVenta, mov.Tipo)
	assert.Equal(t, "3000", mov.Monto.String())
	assert.Equal(t, f.sesionID, mov.SesionCajaID)

	// Stock descontado con auditoría
	p, _ := f.productoRepo.FindByID(context.Background(), martilloID)
	assert.Equal(t, 8, p.StockActual)
	require.Len(t, f.movStockRepo.movimientos, 1)
	assert.Equal(t, -2, f.movStockRepo.movimientos[0].Cantidad)
	assert.Equal(t, "venta", f.movStockRepo.movimientos[0].Tipo)
	assert.Equal(t, 10, f.movStockRepo.movimientos[0].StockAnterior)
	assert.Equal(t, 8, f.movStockRepo.movimientos[0].StockNuevo)
}

func TestRegistrarVentaPagoMixto(t *testing.T) {
	f := newVentaFixture(t, true)
	tornilloID := f.agregarProducto(t, "Tornillo autoperforante x100", 3000, 50)

	resp, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: tornilloID.String(), Cantidad: 1}},
		Pagos: []dto.PagoRequest{
			{Metodo: "efectivo", Monto: decimal.NewFromFloat(1000)},
			{Metodo: "debito", Monto: decimal.NewFromFloat(2000)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "0", resp.Vuelto.String())

	// Un movimiento de caja por método de pago
	require.Len(t, f.cajaRepo.movimientos, 2)
	montos := map[string]string{}
	for _, m := range f.cajaRepo.movimientos {
		montos[*m.MetodoPago] = m.Monto.String()
	}
	assert.Equal(t, "1000", montos["efectivo"])
	assert.Equal(t, "2000", montos["debito"])
}

func TestRegistrarVentaConDescuento(t *testing.T) {
	f := newVentaFixture(t, true)
	pinturaID := f.agregarProducto(t, "Pintura latex 20L", 10000, 5)

	resp, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{
			ProductoID: pinturaID.String(),
			Cantidad:   1,
			Descuento:  decimal.NewFromFloat(500),
		}},
		Pagos: []dto.PagoRequest{{Metodo: "transferencia", Monto: decimal.NewFromFloat(9500)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "9500", resp.Total.String())
	assert.Equal(t, "500", resp.DescuentoTotal.String())
}

func TestRegistrarVentaVueltoRepartidoEntreEfectivos(t *testing.T) {
	// Cuando el vuelto supera el primer pago en efectivo, el resto se
	// descuenta de los siguientes: la bandeja recibe exactamente el total.
	f := newVentaFixture(t, true)
	id := f.agregarProducto(t, "Pincel N°20", 400, 10)

	resp, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: id.String(), Cantidad: 1}},
		Pagos: []dto.PagoRequest{
			{Metodo: "efectivo", Monto: decimal.NewFromFloat(100)},
			{Metodo: "efectivo", Monto: decimal.NewFromFloat(500)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "200", resp.Vuelto.String())

	// El primer pago queda absorbido por el vuelto; el segundo se asienta
	// por los 400 restantes.
	require.Len(t, f.cajaRepo.movimientos, 1)
	assert.Equal(t, "400", f.cajaRepo.movimientos[0].Monto.String())

	total := decimal.Zero
	for _, m := range f.cajaRepo.movimientos {
		total = total.Add(m.Monto)
	}
	assert.Equal(t, "400", total.String())
}

func TestRegistrarVentaSinSesion(t *testing.T) {
	f := newVentaFixture(t, false)
	id := f.agregarProducto(t, "Llave francesa", 2000, 3)

	_, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: id.String(), Cantidad: 1}},
		Pagos: []dto.PagoRequest{{Metodo: "efectivo", Monto: decimal.NewFromFloat(2000)}},
	})
	assert.ErrorIs(t, err, service.ErrSinSesionActiva)
}

func TestRegistrarVentaStockInsuficiente(t *testing.T) {
	f := newVentaFixture(t, true)
	id := f.agregarProducto(t, "Taladro percutor", 45000, 1)

	_, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: id.String(), Cantidad: 2}},
		Pagos: []dto.PagoRequest{{Metodo: "efectivo", Monto: decimal.NewFromFloat(90000)}},
	})
	assert.ErrorIs(t, err, service.ErrStockInsuficiente)
	// Nada se persiste cuando la venta se rechaza
	assert.Empty(t, f.ventaRepo.ventas)
	assert.Empty(t, f.cajaRepo.movimientos)
}

func TestRegistrarVentaProductoInactivo(t *testing.T) {
	f := newVentaFixture(t, true)
	id := f.agregarProducto(t, "Sierra circular", 60000, 4)
	require.NoError(t, f.productoRepo.SoftDelete(context.Background(), id))

	_, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: id.String(), Cantidad: 1}},
		Pagos: []dto.PagoRequest{{Metodo: "efectivo", Monto: decimal.NewFromFloat(60000)}},
	})
	assert.ErrorIs(t, err, service.ErrProductoInactivo)
}

func TestRegistrarVentaPagosInsuficientes(t *testing.T) {
	f := newVentaFixture(t, true)
	id := f.agregarProducto(t, "Amoladora angular", 30000, 2)

	_, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: id.String(), Cantidad: 1}},
		Pagos: []dto.PagoRequest{{Metodo: "efectivo", Monto: decimal.NewFromFloat(25000)}},
	})
	assert.ErrorIs(t, err, service.ErrPagosInsuficientes)
}

func TestRegistrarVentaVueltoSinEfectivo(t *testing.T) {
	// Un sobrepago con tarjeta no genera vuelto: el vuelto sale de la
	// bandeja física y solo lo cubre el efectivo.
	f := newVentaFixture(t, true)
	id := f.agregarProducto(t, "Cinta métrica 5m", 3000, 10)

	_, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: id.String(), Cantidad: 1}},
		Pagos: []dto.PagoRequest{{Metodo: "debito", Monto: decimal.NewFromFloat(4000)}},
	})
	assert.ErrorIs(t, err, service.ErrVueltoSinEfectivo)
}

// ── Anulación ────────────────────────────────────────────────────────────────

func TestAnularVenta(t *testing.T) {
	f := newVentaFixture(t, true)
	id := f.agregarProducto(t, "Destornillador plano", 1200, 6)

	resp, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: id.String(), Cantidad: 3}},
		Pagos: []dto.PagoRequest{{Metodo: "efectivo", Monto: decimal.NewFromFloat(3600)}},
	})
	require.NoError(t, err)
	ventaID := uuid.MustParse(resp.ID)
	movimientosPrevios := len(f.cajaRepo.movimientos)

	err = f.svc.AnularVenta(context.Background(), ventaID, uuid.New(), "cliente devolvió la compra")
	require.NoError(t, err)

	// La venta cambia de estado, con el motivo registrado
	venta := f.ventaRepo.ventas[ventaID]
	assert.Equal(t, model.VentaAnulada, venta.Estado)
	require.NotNil(t, venta.MotivoAnulacion)
	assert.Equal(t, "cliente devolvió la compra", *venta.MotivoAnulacion)

	// Stock restaurado con su propio movimiento de auditoría
	p, _ := f.productoRepo.FindByID(context.Background(), id)
	assert.Equal(t, 6, p.StockActual)
	assert.Equal(t, "restore_anulacion", f.movStockRepo.movimientos[1].Tipo)
	assert.Equal(t, 3, f.movStockRepo.movimientos[1].Cantidad)

	// Movimiento compensatorio firmado; los originales no se tocan
	require.Len(t, f.cajaRepo.movimientos, movimientosPrevios+1)
	anulacion := f.cajaRepo.movimientos[len(f.cajaRepo.movimientos)-1]
	assert.Equal(t, model.MovAnulacion, anulacion.Tipo)
	assert.Equal(t, "-3600", anulacion.Monto.String())
	assert.Equal(t, model.MovVenta, f.cajaRepo.movimientos[0].Tipo)
	assert.Equal(t, "3600", f.cajaRepo.movimientos[0].Monto.String())

	// El ledger completo pliega a un efecto neto nulo sobre la bandeja
	sesion, _ := f.cajaRepo.FindSesionByID(context.Background(), f.sesionID)
	movs, _ := f.cajaRepo.ListMovimientos(context.Background(), f.sesionID)
	resumen := service.ResumirSesion(sesion, movs)
	assert.Equal(t, "1000", resumen.SaldoEsperado.String())
	assert.Equal(t, "0", resumen.Resultado.String())
}

func TestAnularVentaConVueltoCompensaElNeto(t *testing.T) {
	// El movimiento original se asentó neto del vuelto; la anulación niega
	// lo asentado, no lo pagado. El ledger vuelve al saldo de apertura.
	f := newVentaFixture(t, true)
	id := f.agregarProducto(t, "Martillo galponero", 1500, 10)

	resp, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: id.String(), Cantidad: 2}},
		Pagos: []dto.PagoRequest{{Metodo: "efectivo", Monto: decimal.NewFromFloat(5000)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2000", resp.Vuelto.String())

	err = f.svc.AnularVenta(context.Background(), uuid.MustParse(resp.ID), uuid.New(), "producto fallado")
	require.NoError(t, err)

	require.Len(t, f.cajaRepo.movimientos, 2)
	anulacion := f.cajaRepo.movimientos[1]
	assert.Equal(t, model.MovAnulacion, anulacion.Tipo)
	assert.Equal(t, "-3000", anulacion.Monto.String())

	sesion, _ := f.cajaRepo.FindSesionByID(context.Background(), f.sesionID)
	movs, _ := f.cajaRepo.ListMovimientos(context.Background(), f.sesionID)
	resumen := service.ResumirSesion(sesion, movs)
	assert.Equal(t, "1000", resumen.SaldoEsperado.String())
}

func TestAnularVentaYaAnulada(t *testing.T) {
	f := newVentaFixture(t, true)
	id := f.agregarProducto(t, "Pala ancha", 8000, 3)

	resp, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: id.String(), Cantidad: 1}},
		Pagos: []dto.PagoRequest{{Metodo: "efectivo", Monto: decimal.NewFromFloat(8000)}},
	})
	require.NoError(t, err)
	ventaID := uuid.MustParse(resp.ID)

	require.NoError(t, f.svc.AnularVenta(context.Background(), ventaID, uuid.New(), "error de carga"))
	err = f.svc.AnularVenta(context.Background(), ventaID, uuid.New(), "error de carga")
	assert.ErrorIs(t, err, service.ErrVentaYaAnulada)
}

func TestAnularVentaRequiereSesionAbierta(t *testing.T) {
	// Los movimientos compensatorios van a la sesión abierta actual:
	// sin sesión abierta no hay dónde asentarlos.
	f := newVentaFixture(t, true)
	id := f.agregarProducto(t, "Candado 60mm", 4500, 5)

	resp, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
		Items: []dto.ItemVentaRequest{{ProductoID: id.String(), Cantidad: 1}},
		Pagos: []dto.PagoRequest{{Metodo: "efectivo", Monto: decimal.NewFromFloat(4500)}},
	})
	require.NoError(t, err)

	sesion := f.cajaRepo.sesiones[f.sesionID]
	sesion.Estado = model.SesionCerrada

	err = f.svc.AnularVenta(context.Background(), uuid.MustParse(resp.ID), uuid.New(), "devolución tardía")
	assert.ErrorIs(t, err, service.ErrSinSesionActiva)
}

func TestAnularVentaInexistente(t *testing.T) {
	f := newVentaFixture(t, true)
	err := f.svc.AnularVenta(context.Background(), uuid.New(), uuid.New(), "no existe")
	assert.ErrorIs(t, err, service.ErrVentaNoEncontrada)
}

// ── Consulta ─────────────────────────────────────────────────────────────────

func TestListVentasFiltraPorEstado(t *testing.T) {
	f := newVentaFixture(t, true)
	id := f.agregarProducto(t, "Guantes de trabajo", 2500, 20)

	for i := 0; i < 3; i++ {
		_, err := f.svc.RegistrarVenta(context.Background(), uuid.New(), dto.RegistrarVentaRequest{
			Items: []dto.ItemVentaRequest{{ProductoID: id.String(), Cantidad: 1}},
			Pagos: []dto.PagoRequest{{Metodo: "efectivo", Monto: decimal.NewFromFloat(2500)}},
		})
		require.NoError(t, err)
	}

	lista, err := f.svc.ListVentas(context.Background(), dto.VentaFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), lista.Total)
	// El filtro por defecto excluye anuladas
	assert.Equal(t, "completada", lista.Data[0].Estado)
}
