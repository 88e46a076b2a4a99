package worker

// cierre_worker.go
// Processes closing-report jobs from QueueCierre: recomputes the session's
// resumen, renders the PDF and, when a recipient is configured, enqueues an
// email job with the report attached.

import (
	"context"
	"encoding/json"
	"fmt"

	"ferrepos/internal/dto"
	"ferrepos/internal/infra"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ResumenProvider resolves a session's derived view. Satisfied by the caja
// service; an interface here keeps the dependency one-directional.
type ResumenProvider interface {
	Resumen(ctx context.Context, sesionID uuid.UUID) (*dto.ResumenSesion, error)
}

type CierreWorker struct {
	resumenes      ResumenProvider
	dispatcher     *Dispatcher
	pdfStoragePath string
	reporteEmail   string
}

func NewCierreWorker(resumenes ResumenProvider, dispatcher *Dispatcher, pdfStoragePath, reporteEmail string) *CierreWorker {
	return &CierreWorker{
		resumenes:      resumenes,
		dispatcher:     dispatcher,
		pdfStoragePath: pdfStoragePath,
		reporteEmail:   reporteEmail,
	}
}

// Process generates the closing-report PDF for a closed session.
func (w *CierreWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var job CierreJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return err
	}

	resumen, err := w.resumenes.Resumen(ctx, job.SesionID)
	if err != nil {
		return fmt.Errorf("cierre_worker: resumen de sesión %s: %w", job.SesionID, err)
	}

	pdfPath, err := infra.GenerateReporteCierrePDF(resumen, w.pdfStoragePath)
	if err != nil {
		return err
	}
	log.Info().Str("sesion_id", job.SesionID.String()).Str("pdf", pdfPath).Msg("reporte de cierre generado")

	if w.reporteEmail == "" {
		return nil
	}
	return w.dispatcher.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: w.reporteEmail,
		Subject: fmt.Sprintf("Cierre de caja — sesión %s", job.SesionID),
		Body:    fmt.Sprintf("Se adjunta el reporte de cierre de la sesión %s.", job.SesionID),
		PDFPath: pdfPath,
	})
}
