package handler

import (
	"net/http"
	"strconv"
	"time"

	"ferrepos/internal/dto"
	"ferrepos/internal/model"
	"ferrepos/internal/repository"

	"github.com/gin-gonic/gin"
)

// HistorialPreciosHandler serves the immutable price-change history.
type HistorialPreciosHandler struct {
	repo repository.HistorialPrecioRepository
}

func NewHistorialPreciosHandler(repo repository.HistorialPrecioRepository) *HistorialPreciosHandler {
	return &HistorialPreciosHandler{repo: repo}
}

// ListarPorProducto godoc
// @Summary Historial de precios de un producto
// @Tags productos
// @Produce json
// @Security BearerAuth
// @Param id path string true "UUID del producto"
// @Param page query int false "Página (default 1)"
// @Param limit query int false "Registros por página (default 50, max 200)"
// @Success 200 {object} dto.HistorialPrecioListResponse
// @Router /v1/productos/{id}/historial-precios [get]
func (h *HistorialPreciosHandler) ListarPorProducto(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	rows, total, err := h.repo.ListByProducto(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]dto.HistorialPrecioItem, 0, len(rows))
	for i := range rows {
		data = append(data, historialToDTO(&rows[i]))
	}

	c.JSON(http.StatusOK, dto.HistorialPrecioListResponse{
		Data:  data,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func historialToDTO(h *model.HistorialPrecio) dto.HistorialPrecioItem {
	return dto.HistorialPrecioItem{
		ID:           h.ID.String(),
		ProductoID:   h.ProductoID.String(),
		CostoAntes:   h.CostoAntes,
		CostoDespues: h.CostoDespues,
		VentaAntes:   h.VentaAntes,
		VentaDespues: h.VentaDespues,
		Motivo:       h.Motivo,
		CreatedAt:    h.CreatedAt.Format(time.RFC3339),
	}
}
