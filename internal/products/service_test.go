package products

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	productID     int64
	productErr    error
	variantErrs   map[int64]error
	variantsSaved []VariantFields
}

func (m *mockRepo) UpsertProduct(ctx context.Context, storeID, externalID int64, title string) (int64, error) {
	if m.productErr != nil {
		return 0, m.productErr
	}
	return m.productID, nil
}

func (m *mockRepo) UpsertVariant(ctx context.Context, storeID, productID int64, fields VariantFields) error {
	if err, ok := m.variantErrs[fields.ExternalID]; ok {
		return err
	}
	m.variantsSaved = append(m.variantsSaved, fields)
	return nil
}

func (m *mockRepo) GetByExternalID(ctx context.Context, storeID, externalID int64) (*Product, error) {
	return nil, ErrNotFound
}

func (m *mockRepo) ListVariants(ctx context.Context, storeID, productID int64) ([]Variant, error) {
	return nil, nil
}

func input(variantIDs ...int64) Input {
	in := Input{ExternalID: 100, Title: "Widget"}
	for _, id := range variantIDs {
		in.Variants = append(in.Variants, VariantFields{ExternalID: id})
	}
	return in
}

func TestApplyAllSucceeded(t *testing.T) {
	repo := &mockRepo{productID: 55}
	svc := NewService(repo)

	id, report, err := svc.Apply(context.Background(), 1, input(21, 22))
	require.NoError(t, err)
	assert.Equal(t, int64(55), id)
	assert.Equal(t, AllSucceeded, report.Outcome())
	assert.Equal(t, 2, report.Applied)
	assert.Len(t, repo.variantsSaved, 2)
}

func TestApplyProductFailureIsTerminal(t *testing.T) {
	repo := &mockRepo{productErr: errors.New("down")}
	svc := NewService(repo)

	_, _, err := svc.Apply(context.Background(), 1, input(21))
	require.Error(t, err)
	assert.Empty(t, repo.variantsSaved, "variants must not apply without their product")
}

func TestApplyCollectsVariantFailuresWithoutAborting(t *testing.T) {
	repo := &mockRepo{
		productID:   55,
		variantErrs: map[int64]error{22: errors.New("bad row")},
	}
	svc := NewService(repo)

	_, report, err := svc.Apply(context.Background(), 1, input(21, 22, 23))
	require.NoError(t, err)
	assert.Equal(t, PartialFailure, report.Outcome())
	assert.Equal(t, 2, report.Applied)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, int64(22), report.Failed[0].ExternalID)

	// Siblings after the failed variant were still attempted, in order.
	require.Len(t, repo.variantsSaved, 2)
	assert.Equal(t, int64(21), repo.variantsSaved[0].ExternalID)
	assert.Equal(t, int64(23), repo.variantsSaved[1].ExternalID)
}

func TestApplyAllFailed(t *testing.T) {
	repo := &mockRepo{
		productID: 55,
		variantErrs: map[int64]error{
			21: errors.New("x"),
			22: errors.New("y"),
		},
	}
	svc := NewService(repo)

	_, report, err := svc.Apply(context.Background(), 1, input(21, 22))
	require.NoError(t, err)
	assert.Equal(t, AllFailed, report.Outcome())
}

func TestOutcomeOfEmptyBatch(t *testing.T) {
	assert.Equal(t, AllSucceeded, BatchReport{}.Outcome())
}
