package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturx/internal/infrastructure/cii"
	"github.com/jhoicas/facturx/internal/infrastructure/facturx"
)

func newExtractCmd(_ Options) *cobra.Command {
	var (
		input    string
		output   string
		metadata bool
		summary  bool
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extrae el XML CII (o el XMP) de un documento Factur-X",
		Example: `  facturx extract -i factur-x_FA-0001.pdf
  facturx extract -i factur-x_FA-0001.pdf --summary
  facturx extract -i factur-x_FA-0001.pdf --metadata`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pdf, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("leer %s: %w", input, err)
			}

			var data []byte
			if metadata {
				data, err = facturx.ReadMetadata(pdf)
			} else {
				data, err = facturx.ExtractXML(pdf)
			}
			if err != nil {
				return err
			}

			if summary && !metadata {
				s, err := cii.Read(data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "number:\t%s\nprofile:\t%s\nseller:\t%s\nissue_date:\t%s\ntotal_net:\t%s\ntotal_vat:\t%s\ntotal_gross:\t%s %s\n",
					s.Number, s.GuidelineID, s.SellerName, s.IssueDate.Format("2006-01-02"),
					s.Totals.TotalNet.StringFixed(2), s.Totals.TotalVAT.StringFixed(2),
					s.Totals.TotalGross.StringFixed(2), s.Currency)
				return nil
			}

			if output != "" {
				return writeFile(output, data)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "documento Factur-X")
	cmd.Flags().StringVarP(&output, "output", "o", "", "archivo de salida (por defecto stdout)")
	cmd.Flags().BoolVar(&metadata, "metadata", false, "extrae el paquete XMP en lugar del XML")
	cmd.Flags().BoolVar(&summary, "summary", false, "imprime un resumen legible del XML")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
