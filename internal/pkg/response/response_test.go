package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestPaginated(t *testing.T) {
	p := Paginated([]int{1, 2, 3}, 1, 20, 3)
	assert.Equal(t, int64(1), p.Pages)
	assert.Equal(t, int64(3), p.Total)

	p = Paginated([]int{}, 2, 10, 45)
	assert.Equal(t, int64(5), p.Pages)

	p = Paginated([]int{}, 1, 10, 0)
	assert.Equal(t, int64(0), p.Pages)
}

// Pages is always ceil(total/limit): every row lands on exactly one page.
func TestPaginatedPagesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 100).Draw(t, "limit")
		total := rapid.Int64Range(0, 1000000).Draw(t, "total")

		p := Paginated(nil, 1, limit, total)

		if p.Pages*int64(limit) < total {
			t.Fatalf("Pages too small: %d pages of %d cannot hold %d rows", p.Pages, limit, total)
		}
		if total > 0 && (p.Pages-1)*int64(limit) >= total {
			t.Fatalf("Pages too large: %d pages of %d for %d rows", p.Pages, limit, total)
		}
	})
}
