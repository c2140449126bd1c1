package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturx/internal/app"
	"github.com/jhoicas/facturx/internal/infrastructure/numbering"
	"github.com/jhoicas/facturx/pkg/config"
	pkgfacturx "github.com/jhoicas/facturx/pkg/facturx"
	"github.com/jhoicas/facturx/pkg/logger"
)

func testConfig(sequence string) *config.Config {
	return &config.Config{
		FacturX: config.FacturXConfig{
			Profile:      "en16931",
			NumberPrefix: "FA-",
			Sequence:     sequence,
			CounterStart: 10,
			Producer:     "facturx-test",
		},
	}
}

func TestOpen_SinBaseDeDatos(t *testing.T) {
	ctx := context.Background()

	res, err := app.Open(ctx, testConfig(config.SequenceCounter), logger.Nop())
	require.NoError(t, err)
	defer res.Close()
	require.IsType(t, &numbering.CounterSequence{}, res.Sequence)
	assert.Nil(t, res.Recorder)

	n, err := res.Sequence.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FA-000010", n)

	res, err = app.Open(ctx, testConfig(config.SequenceUUID), logger.Nop())
	require.NoError(t, err)
	defer res.Close()
	assert.IsType(t, &numbering.UUIDSequence{}, res.Sequence)
}

func TestNewGenerateUseCase(t *testing.T) {
	res := &app.Resources{Sequence: numbering.NewUUIDSequence("FA-")}
	uc, err := app.NewGenerateUseCase(testConfig(config.SequenceUUID), res, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, pkgfacturx.ProfileEN16931, uc.DefaultProfile())

	cfg := testConfig(config.SequenceUUID)
	cfg.FacturX.Profile = "XRECHNUNG"
	_, err = app.NewGenerateUseCase(cfg, res, logger.Nop())
	assert.Error(t, err)
}
