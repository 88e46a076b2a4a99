package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"ferrepos/internal/dto"
	"ferrepos/internal/model"
	"ferrepos/internal/repository"
)

var (
	ErrCajaYaAbierta      = errors.New("ya existe una sesión de caja abierta")
	ErrSinSesionActiva    = errors.New("no hay ninguna sesión de caja abierta")
	ErrSesionNoCerrada    = errors.New("la sesión de caja no está cerrada")
	ErrSesionNoEncontrada = errors.New("sesión de caja no encontrada")
	ErrMontoInvalido      = errors.New("el monto debe ser mayor a cero")
)

type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error)
	Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.ResumenSesion, error)
	Reabrir(ctx context.Context, sesionID, usuarioID uuid.UUID, req dto.ReabrirCajaRequest) (*dto.SesionCajaResponse, error)
	Resumen(ctx context.Context, sesionID uuid.UUID) (*dto.ResumenSesion, error)
	SesionActiva(ctx context.Context) (*dto.ResumenSesion, error)
	Historial(ctx context.Context, page, limit int) (*dto.SesionCajaListResponse, error)
}

// CierreDispatcher encola la generación asíncrona del reporte de cierre.
// La implementación real vive en el worker pool sobre Redis.
type CierreDispatcher interface {
	EnqueueCierre(ctx context.Context, sesionID uuid.UUID) error
}

type cajaService struct {
	repo       repository.CajaRepository
	dispatcher CierreDispatcher
}

// NewCajaService crea el servicio de caja. dispatcher puede ser nil
// (los cierres simplemente no encolan el reporte).
func NewCajaService(repo repository.CajaRepository, dispatcher CierreDispatcher) CajaService {
	return &cajaService{repo: repo, dispatcher: dispatcher}
}

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	abierta, err := s.repo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, err
	}
	if abierta != nil {
		return nil, ErrCajaYaAbierta
	}
	if req.MontoInicial.IsNegative() {
		return nil, ErrMontoInvalido
	}

	sesion := &model.SesionCaja{
		Estado:       model.SesionAbierta,
		MontoInicial: req.MontoInicial,
		AbiertaPor:   usuarioID,
		OpenedAt:     time.Now(),
	}
	if req.Observaciones != nil && *req.Observaciones != "" {
		sesion.Observaciones = req.Observaciones
	}
	if err := s.repo.CreateSesion(ctx, sesion); err != nil {
		return nil, err
	}

	log.Info().
		Str("sesion_id", sesion.ID.String()).
		Str("usuario_id", usuarioID.String()).
		Str("monto_inicial", sesion.MontoInicial.String()).
		Msg("sesión de caja abierta")

	resp := sesionToResponse(sesion)
	return &resp, nil
}

func (s *cajaService) RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error) {
	sesion, err := s.repo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, ErrSinSesionActiva
	}
	if !req.Monto.IsPositive() {
		return nil, ErrMontoInvalido
	}

	mov := &model.MovimientoCaja{
		SesionCajaID:  sesion.ID,
		Tipo:          req.Tipo,
		MetodoPago:    req.MetodoPago,
		Monto:         req.Monto,
		Descripcion:   req.Descripcion,
		RegistradoPor: usuarioID,
	}
	if err := s.repo.CreateMovimiento(ctx, mov); err != nil {
		return nil, err
	}

	resp := movimientoToResponse(mov)
	return &resp, nil
}

func (s *cajaService) Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.ResumenSesion, error) {
	sesion, err := s.repo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, ErrSinSesionActiva
	}

	movs, err := s.repo.ListMovimientos(ctx, sesion.ID)
	if err != nil {
		return nil, err
	}
	resumen := ResumirSesion(sesion, movs)

	now := time.Now()
	sesion.Estado = model.SesionCerrada
	sesion.CerradaPor = &usuarioID
	sesion.ClosedAt = &now
	if req.Observaciones != nil && *req.Observaciones != "" {
		sesion.Observaciones = appendNota(sesion.Observaciones, *req.Observaciones)
	}

	// Arqueo opcional: el conteo físico declarado se compara contra el
	// saldo esperado y la diferencia queda registrada, nunca corregida.
	if req.MontoDeclarado != nil {
		desvio := req.MontoDeclarado.Sub(resumen.SaldoEsperado)
		pct := desvioPorcentual(desvio, resumen.SaldoEsperado)
		clasif := clasificarDesvio(pct)

		sesion.MontoDeclarado = req.MontoDeclarado
		sesion.Desvio = &desvio
		sesion.DesvioPct = &pct
		sesion.ClasificacionDesvio = &clasif

		if clasif == "critico" {
			log.Warn().
				Str("sesion_id", sesion.ID.String()).
				Str("desvio", desvio.String()).
				Str("desvio_pct", pct.String()).
				Msg("desvío crítico en arqueo de caja")
		}
	}

	if err := s.repo.UpdateSesion(ctx, sesion); err != nil {
		return nil, err
	}

	resumen.Sesion = sesionToResponse(sesion)
	if sesion.MontoDeclarado != nil {
		resumen.Desvio = &dto.DesvioResponse{
			MontoDeclarado: *sesion.MontoDeclarado,
			Monto:          *sesion.Desvio,
			Porcentaje:     *sesion.DesvioPct,
			Clasificacion:  *sesion.ClasificacionDesvio,
		}
	}

	log.Info().
		Str("sesion_id", sesion.ID.String()).
		Str("usuario_id", usuarioID.String()).
		Str("saldo_esperado", resumen.SaldoEsperado.String()).
		Msg("sesión de caja cerrada")

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueCierre(ctx, sesion.ID); err != nil {
			log.Warn().Err(err).Str("sesion_id", sesion.ID.String()).Msg("no se pudo encolar el reporte de cierre")
		}
	}

	return &resumen, nil
}

func (s *cajaService) Reabrir(ctx context.Context, sesionID, usuarioID uuid.UUID, req dto.ReabrirCajaRequest) (*dto.SesionCajaResponse, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, ErrSesionNoEncontrada
	}
	if sesion.Estado != model.SesionCerrada {
		return nil, ErrSesionNoCerrada
	}

	// Solo puede haber una sesión abierta: si otra lo está, se cierra
	// automáticamente dejando rastro en ambas sesiones.
	abierta, err := s.repo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, err
	}
	if abierta != nil {
		now := time.Now()
		abierta.Estado = model.SesionCerrada
		abierta.CerradaPor = &usuarioID
		abierta.ClosedAt = &now
		abierta.Observaciones = appendNota(abierta.Observaciones,
			fmt.Sprintf("[sistema] cerrada automáticamente al reabrir la sesión %s", sesion.ID))
		if err := s.repo.UpdateSesion(ctx, abierta); err != nil {
			return nil, err
		}
		log.Warn().
			Str("sesion_cerrada", abierta.ID.String()).
			Str("sesion_reabierta", sesion.ID.String()).
			Msg("sesión abierta cerrada automáticamente por reapertura")
	}

	sesion.Estado = model.SesionAbierta
	sesion.CerradaPor = nil
	sesion.ClosedAt = nil
	// El arqueo anterior ya no describe la sesión que vuelve a recibir movimientos.
	sesion.MontoDeclarado = nil
	sesion.Desvio = nil
	sesion.DesvioPct = nil
	sesion.ClasificacionDesvio = nil
	sesion.Observaciones = appendNota(sesion.Observaciones,
		fmt.Sprintf("[sistema] reabierta por el usuario %s", usuarioID))
	if req.Observaciones != nil && *req.Observaciones != "" {
		sesion.Observaciones = appendNota(sesion.Observaciones, *req.Observaciones)
	}

	if err := s.repo.UpdateSesion(ctx, sesion); err != nil {
		return nil, err
	}

	log.Info().
		Str("sesion_id", sesion.ID.String()).
		Str("usuario_id", usuarioID.String()).
		Msg("sesión de caja reabierta")

	resp := sesionToResponse(sesion)
	return &resp, nil
}

func (s *cajaService) Resumen(ctx context.Context, sesionID uuid.UUID) (*dto.ResumenSesion, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, ErrSesionNoEncontrada
	}
	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	resumen := ResumirSesion(sesion, movs)
	return &resumen, nil
}

func (s *cajaService) SesionActiva(ctx context.Context) (*dto.ResumenSesion, error) {
	sesion, err := s.repo.FindSesionAbierta(ctx)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, ErrSinSesionActiva
	}
	movs, err := s.repo.ListMovimientos(ctx, sesion.ID)
	if err != nil {
		return nil, err
	}
	resumen := ResumirSesion(sesion, movs)
	return &resumen, nil
}

func (s *cajaService) Historial(ctx context.Context, page, limit int) (*dto.SesionCajaListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sesiones, total, err := s.repo.ListSesiones(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	resp := &dto.SesionCajaListResponse{
		Data:  make([]dto.SesionCajaResponse, 0, len(sesiones)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for i := range sesiones {
		resp.Data = append(resp.Data, sesionToResponse(&sesiones[i]))
	}
	return resp, nil
}

// desvioPorcentual evita la división por cero cuando el saldo esperado es 0:
// cualquier diferencia contra un esperado nulo se reporta como 100%.
func desvioPorcentual(desvio, esperado decimal.Decimal) decimal.Decimal {
	if esperado.IsZero() {
		if desvio.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return desvio.Div(esperado).Mul(decimal.NewFromInt(100)).Round(2)
}

func appendNota(obs *string, nota string) *string {
	if obs == nil || *obs == "" {
		return &nota
	}
	combinada := *obs + "\n" + nota
	return &combinada
}

func sesionToResponse(s *model.SesionCaja) dto.SesionCajaResponse {
	resp := dto.SesionCajaResponse{
		ID:            s.ID.String(),
		Estado:        s.Estado,
		MontoInicial:  s.MontoInicial,
		AbiertaPor:    s.AbiertaPor.String(),
		Observaciones: s.Observaciones,
		OpenedAt:      s.OpenedAt.Format(time.RFC3339),
	}
	if s.CerradaPor != nil {
		cerradaPor := s.CerradaPor.String()
		resp.CerradaPor = &cerradaPor
	}
	if s.ClosedAt != nil {
		closedAt := s.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closedAt
	}
	return resp
}

func movimientoToResponse(m *model.MovimientoCaja) dto.MovimientoCajaResponse {
	resp := dto.MovimientoCajaResponse{
		ID:           m.ID.String(),
		SesionCajaID: m.SesionCajaID.String(),
		Tipo:         m.Tipo,
		MetodoPago:   m.MetodoPago,
		Monto:        m.Monto,
		Descripcion:  m.Descripcion,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
	}
	if m.ReferenciaID != nil {
		ref := m.ReferenciaID.String()
		resp.ReferenciaID = &ref
	}
	return resp
}
