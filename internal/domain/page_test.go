package domain_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetledger/backoffice/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestNewPaginationParams_Defaults(t *testing.T) {
	p := domain.NewPaginationParams(nil, nil)
	assert.Equal(t, domain.PaginationParams{Page: 1, Limit: domain.DefaultPageLimit}, p)
	assert.Zero(t, p.Offset())

	p = domain.NewPaginationParams(intPtr(0), intPtr(-3))
	assert.Equal(t, domain.PaginationParams{Page: 1, Limit: domain.DefaultPageLimit}, p)
}

func TestNewPaginationParams_CapsLimit(t *testing.T) {
	p := domain.NewPaginationParams(intPtr(3), intPtr(500))
	assert.Equal(t, domain.MaxPageLimit, p.Limit)
	assert.Equal(t, 200, p.Offset())
}

func TestNewPaginationParams_HugePageKeepsOffsetInRange(t *testing.T) {
	for _, page := range []int{math.MaxInt32, math.MaxInt, math.MaxInt/2 + 1} {
		p := domain.NewPaginationParams(intPtr(page), intPtr(domain.MaxPageLimit))

		assert.Positive(t, p.Offset())
		assert.LessOrEqual(t, p.Page*p.Limit, math.MaxInt32)
	}
}

func TestPage_TotalPages(t *testing.T) {
	page := domain.Page[int]{Total: 41, PaginationParams: domain.PaginationParams{Page: 1, Limit: 20}}
	assert.EqualValues(t, 3, page.TotalPages())
}
