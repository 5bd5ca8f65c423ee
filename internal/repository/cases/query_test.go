package cases

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"bizdiag/internal/types"
)

func tierPtr(t types.Tier) *types.Tier { return &t }

func catPtr(c types.SolutionCategory) *types.SolutionCategory { return &c }

func sample() []types.Case {
	mk := func(id string, tier types.Tier, symptom, rc string, cats ...types.SolutionCategory) types.Case {
		c := types.Case{ID: id, Symptom: symptom, RootCause: rc, Tier: tier}
		for _, cat := range cats {
			c.Solutions = append(c.Solutions, types.Solution{Category: cat, Description: string(cat)})
		}
		return c
	}
	return []types.Case{
		mk("2025-01-03T00:00:00.000000000Z", 3, "Ventas bajas", "Precio alto", types.CategoryOrganization),
		mk("2025-01-05T00:00:00.000000000Z", 1, "Envíos lentos", "Aprobación manual", types.CategoryProcess, types.CategoryTechnology),
		mk("2025-01-01T00:00:00.000000000Z", 1, "Rotación de personal", "Falta de ENVÍOS claros", types.CategoryOrganization),
		mk("2025-01-04T00:00:00.000000000Z", 4, "Clientes perdidos", "Sin CRM", types.CategoryTechnology),
	}
}

func ids(cs []types.Case) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID[:10]
	}
	return out
}

func TestQueryEmptyFilterReturnsAllByIDDesc(t *testing.T) {
	got := Query(sample(), Filter{}, DefaultSort)
	want := []string{"2025-01-05", "2025-01-04", "2025-01-03", "2025-01-01"}
	if diff := cmp.Diff(want, ids(got)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryTextMatchesSymptomOrRootCauseCaseInsensitively(t *testing.T) {
	got := Query(sample(), Filter{Text: "  envíos "}, DefaultSort)
	assert.Equal(t, []string{"2025-01-05", "2025-01-01"}, ids(got))
}

func TestQueryTierAndCategory(t *testing.T) {
	got := Query(sample(), Filter{Tier: tierPtr(1)}, DefaultSort)
	assert.Equal(t, []string{"2025-01-05", "2025-01-01"}, ids(got))

	got = Query(sample(), Filter{Category: catPtr(types.CategoryTechnology)}, DefaultSort)
	assert.Equal(t, []string{"2025-01-05", "2025-01-04"}, ids(got))

	got = Query(sample(), Filter{Tier: tierPtr(1), Category: catPtr(types.CategoryOrganization)}, DefaultSort)
	assert.Equal(t, []string{"2025-01-01"}, ids(got))
}

func TestQueryTierSortBreaksTiesByRecency(t *testing.T) {
	got := Query(sample(), Filter{}, TierSort)
	assert.Equal(t, []string{"2025-01-05", "2025-01-01", "2025-01-03", "2025-01-04"}, ids(got))

	got = Query(sample(), Filter{}, Sort{Key: SortByID})
	assert.Equal(t, []string{"2025-01-01", "2025-01-03", "2025-01-04", "2025-01-05"}, ids(got))
}

func TestQueryResultIsSubsetSatisfyingPredicates(t *testing.T) {
	all := sample()
	filters := []Filter{
		{}, {Text: "a"}, {Text: "sin"}, {Tier: tierPtr(4)}, {Tier: tierPtr(2)},
		{Category: catPtr(types.CategoryProcess)}, {Text: "e", Tier: tierPtr(1), Category: catPtr(types.CategoryOrganization)},
	}
	for i, f := range filters {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			got := Query(all, f, DefaultSort)
			for _, c := range got {
				assert.Contains(t, all, c)
				assert.True(t, f.normalized().match(c))
			}
		})
	}
}

func TestQueryDoesNotMutateInput(t *testing.T) {
	in := sample()
	before := ids(in)
	_ = Query(in, Filter{}, TierSort)
	assert.Equal(t, before, ids(in))
}
