package products

import (
	"context"
	"fmt"
)

// Service applies product webhooks: one product upsert followed by its
// variant batch.
type Service struct {
	repo Repository
}

// NewService constructs the product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Apply upserts the product, then its variants in payload order. The product
// upsert is the primary write: if it fails the whole request fails so the
// sender redelivers. Variant failures are collected, never fatal to their
// siblings.
func (s *Service) Apply(ctx context.Context, storeID int64, in Input) (int64, BatchReport, error) {
	productID, err := s.repo.UpsertProduct(ctx, storeID, in.ExternalID, in.Title)
	if err != nil {
		return 0, BatchReport{}, fmt.Errorf("upsert product %d: %w", in.ExternalID, err)
	}

	var report BatchReport
	for _, v := range in.Variants {
		if err := s.repo.UpsertVariant(ctx, storeID, productID, v); err != nil {
			report.Failed = append(report.Failed, FailedVariant{
				ExternalID: v.ExternalID,
				Reason:     err.Error(),
			})
			continue
		}
		report.Applied++
	}
	return productID, report, nil
}
