package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
)

func newGenerateCmd(opts Options) *cobra.Command {
	var (
		input   string
		output  string
		profile string
		xmlOut  string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Genera un documento Factur-X a partir de un registro de factura",
		Example: `  # PDF en el directorio actual (factur-x_<número>.pdf)
  facturx generate -i invoice.yaml

  # Perfil EN 16931 y copia del XML
  facturx generate -i invoice.yaml -o out.pdf --profile EN16931 --xml out.xml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readRequest(input)
			if err != nil {
				return err
			}
			if profile != "" {
				req.Profile = profile
			}

			uc, closeSeq, err := newUseCase(cmd.Context(), opts)
			defer closeSeq()
			if err != nil {
				return err
			}

			inv, err := req.ToEntity()
			if err != nil {
				return err
			}
			p, err := req.ParsedProfile(uc.DefaultProfile())
			if err != nil {
				return err
			}
			res, err := uc.Generate(cmd.Context(), inv, p)
			if err != nil {
				return err
			}

			if output == "" {
				output = res.Filename
			}
			if err := writeFile(output, res.PDF); err != nil {
				return err
			}
			if xmlOut != "" {
				if err := writeFile(xmlOut, res.XML); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s EUR\t%s\n",
				output, res.InvoiceNumber, res.Totals.TotalGross.StringFixed(2), res.XMLDigest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "registro de factura (YAML o JSON)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "PDF de salida (por defecto factur-x_<número>.pdf)")
	cmd.Flags().StringVar(&profile, "profile", "", fmt.Sprintf("perfil Factur-X (%s, %s, %s)",
		pkgfacturx.ProfileMinimum, pkgfacturx.ProfileBasic, pkgfacturx.ProfileEN16931))
	cmd.Flags().StringVar(&xmlOut, "xml", "", "escribe también el XML CII en esta ruta")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// writeFile escribe en un temporal y renombra: nunca queda un PDF a medias.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".facturx-*")
	if err != nil {
		return fmt.Errorf("crear temporal en %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("escribir %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("escribir %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renombrar a %s: %w", path, err)
	}
	return nil
}
