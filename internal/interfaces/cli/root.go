// Package cli implementa los comandos de la herramienta de línea de comandos facturx.
// Es la única capa que lee y escribe archivos.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jhoicas/facturx/internal/app"
	"github.com/jhoicas/facturx/internal/application/billing"
	"github.com/jhoicas/facturx/internal/application/dto"
	"github.com/jhoicas/facturx/pkg/config"
	"github.com/jhoicas/facturx/pkg/logger"
)

var version = "1.0.0"

// Options dependencias de la CLI.
type Options struct {
	LoadConfig func() (*config.Config, error)
	Logger     *logger.Logger
}

// NewRootCmd construye el árbol de comandos.
func NewRootCmd(opts Options) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	root := &cobra.Command{
		Use:   "facturx",
		Short: "Genera e inspecciona facturas Factur-X (PDF/A-3 + XML CII)",
		Long: `facturx convierte un registro de factura (YAML o JSON) en un documento
Factur-X: un PDF legible con el XML Cross Industry Invoice embebido.

La configuración se lee de variables de entorno (FACTURX_PROFILE,
FACTURX_SEQUENCE, FACTURX_NUMBER_PREFIX, ...) o de config.env.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newGenerateCmd(opts), newTotalsCmd(opts), newExtractCmd(opts))
	return root
}

// Execute ejecuta la CLI y termina el proceso con código 1 si falla.
func Execute(opts Options) {
	root := NewRootCmd(opts)
	if err := root.Execute(); err != nil {
		if opts.Logger != nil {
			opts.Logger.Error().Err(err).Msg("comando fallido")
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// readRequest carga un registro de factura. YAML es superconjunto de JSON: sirve para ambos.
func readRequest(path string) (*dto.GenerateInvoiceRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer %s: %w", path, err)
	}
	var req dto.GenerateInvoiceRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("interpretar %s: %w", path, err)
	}
	return &req, nil
}

// newUseCase arma el pipeline según la configuración. El cierre libera la secuencia.
func newUseCase(ctx context.Context, opts Options) (*billing.GenerateFacturXUseCase, func(), error) {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return nil, func() {}, err
	}
	res, err := app.Open(ctx, cfg, opts.Logger)
	if err != nil {
		return nil, func() {}, err
	}
	uc, err := app.NewGenerateUseCase(cfg, res, opts.Logger)
	if err != nil {
		res.Close()
		return nil, func() {}, err
	}
	return uc, res.Close, nil
}
