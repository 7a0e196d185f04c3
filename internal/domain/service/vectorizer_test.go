package service_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/service"
)

func newTestVectorizer(t *testing.T) *service.Vectorizer {
	t.Helper()

	gender, err := model.BuildEncoding("Gender", []string{"M", "F"})
	require.NoError(t, err)
	card, err := model.BuildEncoding("Card_Category", []string{"Blue", "Gold", "Silver"})
	require.NoError(t, err)
	registry, err := model.NewRegistry(gender, card)
	require.NoError(t, err)

	schema, err := model.CaptureSchema([]string{"Customer_Age", "Gender", "Card_Category", "Credit_Limit"})
	require.NoError(t, err)

	v, err := service.NewVectorizer(registry, schema)
	require.NoError(t, err)
	return v
}

func TestVectorizer_Vectorize(t *testing.T) {
	v := newTestVectorizer(t)
	assert.Equal(t, 4, v.Width())

	t.Run("encodes and orders by schema", func(t *testing.T) {
		record := model.Record{
			"Credit_Limit":  json.Number("12691.0"),
			"Card_Category": "Silver",
			"Gender":        "M",
			"Customer_Age":  json.Number("45"),
			"CLIENTNUM":     "768805383",
		}

		vec, err := v.Vectorize(record)
		require.NoError(t, err)
		assert.Equal(t, []float64{45, 1, 2, 12691}, vec)
	})

	t.Run("does not modify the input record", func(t *testing.T) {
		record := model.Record{
			"Credit_Limit":  1000.0,
			"Card_Category": "Blue",
			"Gender":        "F",
			"Customer_Age":  30,
		}

		_, err := v.Vectorize(record)
		require.NoError(t, err)
		assert.Equal(t, "F", record["Gender"])
		assert.Equal(t, "Blue", record["Card_Category"])
	})

	t.Run("is deterministic", func(t *testing.T) {
		record := model.Record{"Credit_Limit": 1.5, "Card_Category": "Gold", "Gender": "F", "Customer_Age": 51.0}

		first, err := v.Vectorize(record)
		require.NoError(t, err)
		second, err := v.Vectorize(record)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestVectorizer_Rejections(t *testing.T) {
	v := newTestVectorizer(t)

	valid := func() model.Record {
		return model.Record{
			"Customer_Age":  json.Number("45"),
			"Gender":        "M",
			"Card_Category": "Blue",
			"Credit_Limit":  json.Number("1000"),
		}
	}

	t.Run("missing categorical column", func(t *testing.T) {
		rec := valid()
		delete(rec, "Gender")

		_, err := v.Vectorize(rec)
		var missing *model.MissingColumnError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "Gender", missing.Column)
	})

	t.Run("missing numeric column", func(t *testing.T) {
		rec := valid()
		delete(rec, "Credit_Limit")

		_, err := v.Vectorize(rec)
		var missing *model.MissingColumnError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "Credit_Limit", missing.Column)
	})

	t.Run("unseen category", func(t *testing.T) {
		rec := valid()
		rec["Gender"] = "X"

		_, err := v.Vectorize(rec)
		var unseen *model.UnseenCategoryError
		require.True(t, errors.As(err, &unseen))
		assert.Equal(t, "Gender", unseen.Column)
		assert.Equal(t, "X", unseen.Value)
	})

	t.Run("numeric column given as string", func(t *testing.T) {
		rec := valid()
		rec["Customer_Age"] = "45"

		_, err := v.Vectorize(rec)
		var invalid *model.InvalidValueError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "Customer_Age", invalid.Column)
	})

	t.Run("numeric column given as bool", func(t *testing.T) {
		rec := valid()
		rec["Credit_Limit"] = true

		_, err := v.Vectorize(rec)
		var invalid *model.InvalidValueError
		require.True(t, errors.As(err, &invalid))
	})

	t.Run("non-finite number", func(t *testing.T) {
		rec := valid()
		rec["Credit_Limit"] = math.Inf(1)

		_, err := v.Vectorize(rec)
		var invalid *model.InvalidValueError
		require.True(t, errors.As(err, &invalid))
	})
}

func TestNewVectorizer_RejectsCategoricalOutsideSchema(t *testing.T) {
	gender, err := model.BuildEncoding("Gender", []string{"M", "F"})
	require.NoError(t, err)
	registry, err := model.NewRegistry(gender)
	require.NoError(t, err)
	schema, err := model.CaptureSchema([]string{"Customer_Age"})
	require.NoError(t, err)

	_, err = service.NewVectorizer(registry, schema)
	assert.Error(t, err)

	_, err = service.NewVectorizer(nil, schema)
	assert.Error(t, err)
}
