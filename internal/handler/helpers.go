package handler

import (
	"errors"
	"net/http"
	"reflect"

	"ferrepos/internal/apierror"
	"ferrepos/internal/middleware"
	"ferrepos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON inválido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// usuarioIDDeClaims extracts the authenticated user id from the JWT claims.
func usuarioIDDeClaims(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, apierror.New("no autenticado"))
		return uuid.Nil, false
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New("token mal formado"))
		return uuid.Nil, false
	}
	return uid, true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service sentinel errors onto HTTP statuses.
// Not-found sentinels → 404, state conflicts → 409, everything else → 400.
func respondError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, service.ErrSesionNoEncontrada),
		errors.Is(err, service.ErrVentaNoEncontrada),
		errors.Is(err, service.ErrProductoNoEncontrado),
		errors.Is(err, service.ErrProveedorNoEncontrado),
		errors.Is(err, service.ErrCuentaNoEncontrada),
		errors.Is(err, service.ErrCategoriaNoEncontrada),
		errors.Is(err, service.ErrUsuarioNoEncontrado):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrCajaYaAbierta),
		errors.Is(err, service.ErrSinSesionActiva),
		errors.Is(err, service.ErrSesionNoCerrada),
		errors.Is(err, service.ErrVentaYaAnulada),
		errors.Is(err, service.ErrCuentaYaPagada),
		errors.Is(err, service.ErrStockInsuficiente),
		errors.Is(err, service.ErrBarcodeDuplicado),
		errors.Is(err, service.ErrCUITDuplicado):
		status = http.StatusConflict
	case errors.Is(err, service.ErrCredencialesInvalidas):
		status = http.StatusUnauthorized
	}
	c.JSON(status, apierror.New(err.Error()))
}
