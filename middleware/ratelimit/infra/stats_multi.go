package infra

import (
	"context"
	"errors"

	"recipe-gateway/middleware/ratelimit/domain"
)

// MultiStats repassa o evento para todos os stores; um erro não impede os demais.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errList []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
