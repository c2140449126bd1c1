package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturx/internal/application/dto"
)

func newTotalsCmd(opts Options) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Valida un registro de factura e imprime el desglose de totales (JSON)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readRequest(input)
			if err != nil {
				return err
			}
			inv, err := req.ToEntity()
			if err != nil {
				return err
			}

			uc, closeSeq, err := newUseCase(cmd.Context(), opts)
			defer closeSeq()
			if err != nil {
				return err
			}
			totals, err := uc.Preview(cmd.Context(), inv)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.NewTotalsResponse(inv.Number, inv.CurrencyOrDefault(), totals))
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "registro de factura (YAML o JSON)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
