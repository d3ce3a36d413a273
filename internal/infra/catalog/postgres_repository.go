package catalog

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/meal-planner/internal/domain/mealplan"
)

const defaultLimit = 150

// PostgresRepository serves recipes, member profiles and ratings from Postgres.
type PostgresRepository struct {
	pool               *pgxpool.Pool
	lowRatingThreshold int
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool, lowRatingThreshold int) *PostgresRepository {
	if lowRatingThreshold <= 0 {
		lowRatingThreshold = defaultLowRatingThreshold
	}
	return &PostgresRepository{pool: pool, lowRatingThreshold: lowRatingThreshold}
}

// FetchCandidates returns a random sample of recipes matching the filter, or
// a seed-stable one when filter.SampleSeed is set.
func (r *PostgresRepository) FetchCandidates(ctx context.Context, filter mealplan.CandidateFilter) ([]mealplan.RecipeCandidate, error) {
	query := `
		SELECT r.id, r.title, r.meal_type, r.cuisine_id, COALESCE(c.name, ''),
		       r.calories, r.protein, r.carbs, r.fat,
		       r.cook_time_minutes, r.estimated_cost,
		       COALESCE(r.allergens, '{}'), COALESCE(r.diets, '{}')
		FROM recipes r
		LEFT JOIN cuisines c ON c.id = r.cuisine_id
		WHERE r.archived_at IS NULL
	`
	args := []any{}
	argPos := 1
	if len(filter.ExcludeIDs) > 0 {
		query += ` AND NOT (r.id = ANY($` + itoa(argPos) + `))`
		args = append(args, filter.ExcludeIDs)
		argPos++
	}
	if filter.MaxCookTimeMinutes != nil {
		query += ` AND (r.cook_time_minutes IS NULL OR r.cook_time_minutes <= $` + itoa(argPos) + `)`
		args = append(args, *filter.MaxCookTimeMinutes)
		argPos++
	}
	if len(filter.CuisineIDs) > 0 {
		query += ` AND r.cuisine_id = ANY($` + itoa(argPos) + `)`
		args = append(args, filter.CuisineIDs)
		argPos++
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if filter.SampleSeed != "" {
		query += ` ORDER BY md5(r.id::text || $` + itoa(argPos) + `), r.id`
		args = append(args, filter.SampleSeed)
		argPos++
	} else {
		query += ` ORDER BY random()`
	}
	query += ` LIMIT $` + itoa(argPos)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []mealplan.RecipeCandidate
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, candidate)
	}
	return out, rows.Err()
}

// GetConstraintProfiles loads member profiles by id. Missing ids are omitted.
func (r *PostgresRepository) GetConstraintProfiles(ctx context.Context, memberIDs []uuid.UUID) (map[uuid.UUID]mealplan.MemberProfile, error) {
	out := make(map[uuid.UUID]mealplan.MemberProfile, len(memberIDs))
	if len(memberIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(display_name, ''), age,
		       COALESCE(allergens, '{}'), COALESCE(diets, '{}'), COALESCE(conditions, '{}'),
		       target_calories, target_protein, target_carbs, target_fat
		FROM household_members
		WHERE id = ANY($1)
	`, memberIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p mealplan.MemberProfile
		if err := rows.Scan(
			&p.MemberID, &p.Name, &p.Age,
			&p.Allergens, &p.Diets, &p.Conditions,
			&p.Targets.Calories, &p.Targets.Protein, &p.Targets.Carbs, &p.Targets.Fat,
		); err != nil {
			return nil, err
		}
		out[p.MemberID] = p
	}
	return out, rows.Err()
}

// GetLowRatedRecipeIDs lists recipes the customer rated at or below the threshold.
func (r *PostgresRepository) GetLowRatedRecipeIDs(ctx context.Context, customerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT recipe_id
		FROM recipe_ratings
		WHERE customer_id = $1 AND rating <= $2
	`, customerID, r.lowRatingThreshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (mealplan.RecipeCandidate, error) {
	var (
		c        mealplan.RecipeCandidate
		mealType *string
	)
	if err := row.Scan(
		&c.ID, &c.Title, &mealType, &c.CuisineID, &c.Cuisine,
		&c.Calories, &c.Protein, &c.Carbs, &c.Fat,
		&c.CookTimeMinutes, &c.EstimatedCost,
		&c.Allergens, &c.Diets,
	); err != nil {
		return mealplan.RecipeCandidate{}, err
	}
	if mealType != nil {
		if mt, ok := mealplan.ParseMealType(*mealType); ok {
			c.MealType = &mt
		}
	}
	return c, nil
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

var (
	_ mealplan.CatalogRepository = (*PostgresRepository)(nil)
	_ mealplan.ProfileRepository = (*PostgresRepository)(nil)
	_ mealplan.RatingRepository  = (*PostgresRepository)(nil)
)
