//go:build integration

package dataset_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/internal/infrastructure/dataset"
	"github.com/sibi-seeni/credit-churn-deploy/pkg/testutil"
)

func TestPostgresSource_Load(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)

	pc.Exec(t, `CREATE TABLE bank_churners (
		"CLIENTNUM" BIGINT,
		"Attrition_Flag" TEXT,
		"Credit_Limit" NUMERIC(10,1),
		"Gender" TEXT
	)`)
	pc.Exec(t, `INSERT INTO bank_churners VALUES
		(768805383, 'Existing Customer', 12691.0, 'M'),
		(818770008, 'Attrited Customer', 8256.5, 'F')`)

	src := dataset.NewPostgresSource(pc.DSN, "public.bank_churners", slog.Default())
	ds, err := src.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"CLIENTNUM", "Attrition_Flag", "Credit_Limit", "Gender"}, ds.Columns)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, []string{"818770008", "Attrited Customer", "8256.5", "F"}, ds.Rows[1])

	_, err = dataset.NewPostgresSource(pc.DSN, "missing_table", slog.Default()).Load(ctx)
	var notFound *model.DataNotFoundError
	assert.True(t, errors.As(err, &notFound))
}
