// Package app arma el pipeline Factur-X a partir de la configuración.
// Lo comparten el servidor HTTP y la CLI.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturx/internal/application/billing"
	"github.com/jhoicas/facturx/internal/infrastructure/cii"
	"github.com/jhoicas/facturx/internal/infrastructure/facturx"
	"github.com/jhoicas/facturx/internal/infrastructure/numbering"
	"github.com/jhoicas/facturx/internal/infrastructure/pdf"
	"github.com/jhoicas/facturx/internal/infrastructure/postgres"
	"github.com/jhoicas/facturx/pkg/config"
	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
	"github.com/jhoicas/facturx/pkg/logger"
)

// Resources dependencias externas del pipeline: numeración y registro opcional.
type Resources struct {
	Sequence billing.NumberSequence
	Recorder billing.InvoiceRecorder // nil si FACTURX_REGISTRY=false
	pool     *pgxpool.Pool
}

// Close libera el pool PostgreSQL, si se abrió.
func (r *Resources) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Open crea la secuencia elegida en FACTURX_SEQUENCE y, si se pide, el registro de facturas.
// Solo conecta a PostgreSQL cuando alguno de los dos lo necesita.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Resources, error) {
	res := &Resources{}
	fx := cfg.FacturX

	if cfg.NeedsDatabase() {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		res.pool = pool
	}

	switch fx.Sequence {
	case config.SequenceCounter:
		log.Warn().Int64("start", fx.CounterStart).Msg("numeración en memoria: se reinicia con el proceso")
		res.Sequence = numbering.NewCounterSequence(fx.NumberPrefix, fx.CounterStart)

	case config.SequencePostgres:
		seq := postgres.NewInvoiceSequence(res.pool, fx.SequenceName, fx.NumberPrefix)
		if err := seq.EnsureSequence(ctx, fx.CounterStart); err != nil {
			res.Close()
			return nil, err
		}
		log.Info().Str("sequence", fx.SequenceName).Msg("numeración con secuencia PostgreSQL")
		res.Sequence = seq

	default:
		res.Sequence = numbering.NewUUIDSequence(fx.NumberPrefix)
	}

	if fx.Registry {
		reg := postgres.NewInvoiceRegistry(res.pool)
		if err := reg.EnsureSchema(ctx); err != nil {
			res.Close()
			return nil, err
		}
		log.Info().Msg("registro de facturas emitidas activo")
		res.Recorder = reg
	}
	return res, nil
}

// NewGenerateUseCase construye el caso de uso con las implementaciones concretas.
func NewGenerateUseCase(cfg *config.Config, res *Resources, log *logger.Logger) (*billing.GenerateFacturXUseCase, error) {
	profile, err := pkgfacturx.ParseProfile(cfg.FacturX.Profile)
	if err != nil {
		return nil, err
	}
	uc := billing.NewGenerateFacturXUseCase(
		cii.NewXMLBuilderService(),
		pdf.NewMarotoPDFRenderer(cfg.FacturX.Producer),
		facturx.NewPackagerService(cfg.FacturX.Producer),
		res.Sequence,
		profile,
		log,
	)
	if res.Recorder != nil {
		uc.WithRecorder(res.Recorder)
	}
	return uc, nil
}
