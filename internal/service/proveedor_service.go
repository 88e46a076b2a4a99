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
	ErrProveedorNoEncontrado = errors.New("proveedor no encontrado")
	ErrCuentaNoEncontrada    = errors.New("cuenta por pagar no encontrada")
	ErrCuentaYaPagada        = errors.New("la cuenta ya está pagada")
	ErrPagoExcedeSaldo       = errors.New("el pago supera el saldo pendiente")
	ErrCUITDuplicado         = errors.New("ya existe un proveedor con ese CUIT")
)

type ProveedorService interface {
	Crear(ctx context.Context, req dto.CrearProveedorRequest) (*dto.ProveedorResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.ProveedorResponse, error)
	Listar(ctx context.Context) ([]dto.ProveedorResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.CrearProveedorRequest) (*dto.ProveedorResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error

	CrearCuenta(ctx context.Context, proveedorID uuid.UUID, req dto.CrearCuentaPorPagarRequest) (*dto.CuentaPorPagarResponse, error)
	ListarCuentas(ctx context.Context, proveedorID uuid.UUID) ([]dto.CuentaPorPagarResponse, error)
	// RegistrarPago aplica un pago a una deuda. Si el método es efectivo, el
	// dinero sale de la bandeja: exige caja abierta y escribe un movimiento
	// pago_proveedor referenciando el pago, todo en la misma transacción.
	RegistrarPago(ctx context.Context, cuentaID, usuarioID uuid.UUID, req dto.RegistrarPagoRequest) (*dto.PagoProveedorResponse, error)
	ListarPagos(ctx context.Context, cuentaID uuid.UUID) ([]dto.PagoProveedorResponse, error)
}

type proveedorService struct {
	repo     repository.ProveedorRepository
	cajaRepo repository.CajaRepository
}

func NewProveedorService(repo repository.ProveedorRepository, cajaRepo repository.CajaRepository) ProveedorService {
	return &proveedorService{repo: repo, cajaRepo: cajaRepo}
}

func (s *proveedorService) Crear(ctx context.Context, req dto.CrearProveedorRequest) (*dto.ProveedorResponse, error) {
	if existente, err := s.repo.FindByCUIT(ctx, req.CUIT); err != nil {
		return nil, err
	} else if existente != nil {
		return nil, ErrCUITDuplicado
	}
	p := &model.Proveedor{
		RazonSocial:   req.RazonSocial,
		CUIT:          req.CUIT,
		Telefono:      req.Telefono,
		Email:         req.Email,
		Direccion:     req.Direccion,
		CondicionPago: req.CondicionPago,
		Activo:        true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, p)
}

func (s *proveedorService) Obtener(ctx context.Context, id uuid.UUID) (*dto.ProveedorResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrProveedorNoEncontrado
	}
	return s.toResponse(ctx, p)
}

func (s *proveedorService) Listar(ctx context.Context) ([]dto.ProveedorResponse, error) {
	proveedores, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProveedorResponse, 0, len(proveedores))
	for i := range proveedores {
		resp, err := s.toResponse(ctx, &proveedores[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *proveedorService) Actualizar(ctx context.Context, id uuid.UUID, req dto.CrearProveedorRequest) (*dto.ProveedorResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrProveedorNoEncontrado
	}
	if req.CUIT != p.CUIT {
		if existente, err := s.repo.FindByCUIT(ctx, req.CUIT); err != nil {
			return nil, err
		} else if existente != nil {
			return nil, ErrCUITDuplicado
		}
	}
	p.RazonSocial = req.RazonSocial
	p.CUIT = req.CUIT
	p.Telefono = req.Telefono
	p.Email = req.Email
	p.Direccion = req.Direccion
	p.CondicionPago = req.CondicionPago
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, p)
}

func (s *proveedorService) Desactivar(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *proveedorService) CrearCuenta(ctx context.Context, proveedorID uuid.UUID, req dto.CrearCuentaPorPagarRequest) (*dto.CuentaPorPagarResponse, error) {
	if _, err := s.repo.FindByID(ctx, proveedorID); err != nil {
		return nil, ErrProveedorNoEncontrado
	}
	c := &model.CuentaPorPagar{
		ProveedorID:    proveedorID,
		Concepto:       req.Concepto,
		MontoTotal:     req.MontoTotal,
		SaldoPendiente: req.MontoTotal,
		Estado:         model.CuentaPendiente,
	}
	if req.Vencimiento != nil {
		venc, err := time.Parse("2006-01-02", *req.Vencimiento)
		if err != nil {
			return nil, err
		}
		c.Vencimiento = &venc
	}
	if err := s.repo.CreateCuenta(ctx, c); err != nil {
		return nil, err
	}
	resp := cuentaToResponse(c)
	return &resp, nil
}

func (s *proveedorService) ListarCuentas(ctx context.Context, proveedorID uuid.UUID) ([]dto.CuentaPorPagarResponse, error) {
	cuentas, err := s.repo.ListCuentasByProveedor(ctx, proveedorID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CuentaPorPagarResponse, 0, len(cuentas))
	for i := range cuentas {
		out = append(out, cuentaToResponse(&cuentas[i]))
	}
	return out, nil
}

func (s *proveedorService) RegistrarPago(ctx context.Context, cuentaID, usuarioID uuid.UUID, req dto.RegistrarPagoRequest) (*dto.PagoProveedorResponse, error) {
	cuenta, err := s.repo.FindCuentaByID(ctx, cuentaID)
	if err != nil {
		return nil, ErrCuentaNoEncontrada
	}
	if cuenta.Estado == model.CuentaPagada {
		return nil, ErrCuentaYaPagada
	}
	if req.Monto.GreaterThan(cuenta.SaldoPendiente) {
		return nil, ErrPagoExcedeSaldo
	}

	var sesion *model.SesionCaja
	if req.MetodoPago == model.MetodoEfectivo {
		sesion, err = s.cajaRepo.FindSesionAbierta(ctx)
		if err != nil {
			return nil, err
		}
		if sesion == nil {
			return nil, ErrSinSesionActiva
		}
	}

	pago := &model.PagoProveedor{
		CuentaPorPagarID: cuentaID,
		Monto:            req.Monto,
		MetodoPago:       req.MetodoPago,
		Descripcion:      req.Descripcion,
		RegistradoPor:    usuarioID,
	}

	nuevoSaldo := cuenta.SaldoPendiente.Sub(req.Monto)
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreatePagoTx(tx, pago); err != nil {
			return err
		}

		cuenta.SaldoPendiente = nuevoSaldo
		if nuevoSaldo.IsZero() {
			cuenta.Estado = model.CuentaPagada
		} else {
			cuenta.Estado = model.CuentaParcial
		}
		if err := s.repo.UpdateCuentaTx(tx, cuenta); err != nil {
			return err
		}

		if sesion != nil {
			metodo := model.MetodoEfectivo
			mov := model.MovimientoCaja{
				SesionCajaID:  sesion.ID,
				Tipo:          model.MovPagoProveedor,
				MetodoPago:    &metodo,
				Monto:         req.Monto,
				Descripcion:   fmt.Sprintf("Pago a proveedor — %s", cuenta.Concepto),
				ReferenciaID:  &pago.ID,
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

	resp := pagoToResponse(pago)
	resp.SaldoRestante = nuevoSaldo
	return &resp, nil
}

func (s *proveedorService) ListarPagos(ctx context.Context, cuentaID uuid.UUID) ([]dto.PagoProveedorResponse, error) {
	cuenta, err := s.repo.FindCuentaByID(ctx, cuentaID)
	if err != nil {
		return nil, ErrCuentaNoEncontrada
	}
	pagos, err := s.repo.ListPagosByCuenta(ctx, cuentaID)
	if err != nil {
		return nil, err
	}
	// Reconstruye el saldo después de cada pago recorriendo el historial.
	saldo := cuenta.MontoTotal
	out := make([]dto.PagoProveedorResponse, 0, len(pagos))
	for i := range pagos {
		saldo = saldo.Sub(pagos[i].Monto)
		resp := pagoToResponse(&pagos[i])
		resp.SaldoRestante = saldo
		out = append(out, resp)
	}
	return out, nil
}

func (s *proveedorService) toResponse(ctx context.Context, p *model.Proveedor) (*dto.ProveedorResponse, error) {
	saldo, err := s.repo.SumSaldoPendiente(ctx, p.ID)
	if err != nil {
		saldo = decimal.Zero
	}
	return &dto.ProveedorResponse{
		ID:            p.ID.String(),
		RazonSocial:   p.RazonSocial,
		CUIT:          p.CUIT,
		Telefono:      p.Telefono,
		Email:         p.Email,
		Direccion:     p.Direccion,
		CondicionPago: p.CondicionPago,
		Activo:        p.Activo,
		SaldoTotal:    saldo,
	}, nil
}

func cuentaToResponse(c *model.CuentaPorPagar) dto.CuentaPorPagarResponse {
	resp := dto.CuentaPorPagarResponse{
		ID:             c.ID.String(),
		ProveedorID:    c.ProveedorID.String(),
		Concepto:       c.Concepto,
		MontoTotal:     c.MontoTotal,
		SaldoPendiente: c.SaldoPendiente,
		Estado:         c.Estado,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
	if c.Vencimiento != nil {
		venc := c.Vencimiento.Format("2006-01-02")
		resp.Vencimiento = &venc
	}
	return resp
}

func pagoToResponse(p *model.PagoProveedor) dto.PagoProveedorResponse {
	return dto.PagoProveedorResponse{
		ID:               p.ID.String(),
		CuentaPorPagarID: p.CuentaPorPagarID.String(),
		Monto:            p.Monto,
		MetodoPago:       p.MetodoPago,
		Descripcion:      p.Descripcion,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
	}
}
