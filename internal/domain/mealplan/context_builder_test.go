package mealplan

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/meal-planner/pkg/errors"
)

func newBuilder(f *fixture) *contextBuilder {
	return &contextBuilder{
		cfg:      Config{}.withDefaults(),
		catalog:  f.catalog,
		profiles: f.profiles,
		ratings:  f.ratings,
		logger:   discardLogger(),
	}
}

func TestFilterHardConstraints(t *testing.T) {
	peanut := recipe("satay", nil)
	peanut.Allergens = []string{"PEANUT"}
	vegan := recipe("tofu bowl", nil)
	vegan.Diets = []string{"Vegan", "vegetarian"}
	vegetarianOnly := recipe("omelette", nil)
	vegetarianOnly.Diets = []string{"vegetarian"}
	plain := recipe("chicken", nil)

	members := []MemberProfile{
		{MemberID: uuid.New(), Allergens: []string{"peanut"}},
		{MemberID: uuid.New(), Diets: []string{" vegan ", "low_sodium"}},
	}

	kept := filterHardConstraints([]RecipeCandidate{peanut, vegan, vegetarianOnly, plain}, members, DefaultStrictDiets)
	require.Len(t, kept, 1)
	require.Equal(t, vegan.ID, kept[0].ID)
}

func TestFilterHardConstraintsIgnoresSoftDiets(t *testing.T) {
	plain := recipe("chicken", nil)
	members := []MemberProfile{{MemberID: uuid.New(), Diets: []string{"low_carb"}}}

	kept := filterHardConstraints([]RecipeCandidate{plain}, members, DefaultStrictDiets)
	require.Len(t, kept, 1)
}

func TestBuildMergesExclusionsAndDefaults(t *testing.T) {
	lowRated := recipe("burnt toast", nil)
	callerExcluded := recipe("liver", nil)
	good := recipe("porridge", nil)
	f := newFixture(lowRated, callerExcluded, good)
	f.ratings.ids = []uuid.UUID{lowRated.ID}

	req, err := newBuilder(f).Build(context.Background(), GenerateRequest{
		CustomerID:       uuid.New(),
		MemberIDs:        []uuid.UUID{f.member.MemberID, f.member.MemberID},
		StartDate:        "2024-03-01",
		EndDate:          "2024-03-03",
		ExcludeRecipeIDs: []uuid.UUID{callerExcluded.ID},
	})
	require.NoError(t, err)
	require.Len(t, req.Members, 1)
	require.Equal(t, DefaultMealsPerDay, req.MealsPerDay)
	require.ElementsMatch(t, []uuid.UUID{lowRated.ID, callerExcluded.ID}, req.ExcludedRecipeIDs)
	require.Len(t, req.Candidates, 1)
	require.Equal(t, good.ID, req.Candidates[0].ID)
	require.Equal(t, 150, f.catalog.filters[0].Limit)
	require.Equal(t, 9, req.SlotCount())
}

func TestBuildRelaxesCuisineFilter(t *testing.T) {
	italian := uuid.New()
	r := recipe("curry", nil)
	f := newFixture(r)

	req, err := newBuilder(f).Build(context.Background(), GenerateRequest{
		MemberIDs:           []uuid.UUID{f.member.MemberID},
		StartDate:           "2024-03-01",
		EndDate:             "2024-03-01",
		PreferredCuisineIDs: []uuid.UUID{italian},
	})
	require.NoError(t, err)
	require.True(t, req.CuisineFallbackApplied)
	require.Len(t, req.Candidates, 1)
	require.Len(t, f.catalog.filters, 2)
	require.Equal(t, []uuid.UUID{italian}, f.catalog.filters[0].CuisineIDs)
	require.Empty(t, f.catalog.filters[1].CuisineIDs)
}

func TestBuildKeepsCuisineNamesWhenMatched(t *testing.T) {
	italian := uuid.New()
	r := recipe("risotto", nil)
	r.CuisineID = &italian
	r.Cuisine = "Italian"
	f := newFixture(r)

	req, err := newBuilder(f).Build(context.Background(), GenerateRequest{
		MemberIDs:           []uuid.UUID{f.member.MemberID},
		StartDate:           "2024-03-01",
		EndDate:             "2024-03-01",
		PreferredCuisineIDs: []uuid.UUID{italian},
	})
	require.NoError(t, err)
	require.False(t, req.CuisineFallbackApplied)
	require.Equal(t, []string{"Italian"}, req.PreferredCuisines)
}

func TestBuildValidatesInput(t *testing.T) {
	f := newFixture(recipe("a", nil))
	member := f.member.MemberID
	tooMany := make([]uuid.UUID, 13)
	for i := range tooMany {
		tooMany[i] = uuid.New()
	}

	cases := map[string]GenerateRequest{
		"bad start":      {MemberIDs: []uuid.UUID{member}, StartDate: "03/01/2024", EndDate: "2024-03-01"},
		"end before":     {MemberIDs: []uuid.UUID{member}, StartDate: "2024-03-05", EndDate: "2024-03-01"},
		"horizon":        {MemberIDs: []uuid.UUID{member}, StartDate: "2024-03-01", EndDate: "2024-04-01"},
		"meal type":      {MemberIDs: []uuid.UUID{member}, StartDate: "2024-03-01", EndDate: "2024-03-01", MealsPerDay: []string{"brunch"}},
		"no members":     {StartDate: "2024-03-01", EndDate: "2024-03-01"},
		"too many":       {MemberIDs: tooMany, StartDate: "2024-03-01", EndDate: "2024-03-01"},
		"unknown member": {MemberIDs: []uuid.UUID{uuid.New()}, StartDate: "2024-03-01", EndDate: "2024-03-01"},
	}
	for name, req := range cases {
		_, err := newBuilder(f).Build(context.Background(), req)
		require.True(t, apperrors.IsCode(err, "invalid_input"), name)
	}
}

func TestBuildAcceptsThirtyOneDays(t *testing.T) {
	f := newFixture(recipe("a", nil))
	req, err := newBuilder(f).Build(context.Background(), GenerateRequest{
		MemberIDs:   []uuid.UUID{f.member.MemberID},
		StartDate:   "2024-03-01",
		EndDate:     "2024-03-31",
		MealsPerDay: []string{"Dinner", "dinner", "snack"},
	})
	require.NoError(t, err)
	require.Equal(t, []MealType{Dinner, Snack}, req.MealsPerDay)
}

func TestBuildReportsStorageErrors(t *testing.T) {
	f := newFixture(recipe("a", nil))
	f.catalog.err = errors.New("connection refused")

	_, err := newBuilder(f).Build(context.Background(), GenerateRequest{
		MemberIDs: []uuid.UUID{f.member.MemberID},
		StartDate: "2024-03-01",
		EndDate:   "2024-03-01",
	})
	require.True(t, apperrors.IsCode(err, "storage_error"))
}

func TestBuildFailsWhenCatalogEmpty(t *testing.T) {
	nuts := recipe("nut loaf", nil)
	nuts.Allergens = []string{"tree_nut"}
	f := newFixture(nuts)
	f.member.Allergens = []string{"tree_nut"}
	f.profiles.profiles[f.member.MemberID] = f.member

	_, err := newBuilder(f).Build(context.Background(), GenerateRequest{
		MemberIDs: []uuid.UUID{f.member.MemberID},
		StartDate: "2024-03-01",
		EndDate:   "2024-03-01",
	})
	require.True(t, apperrors.IsCode(err, "catalog_empty"))
}
