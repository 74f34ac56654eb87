package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hot Drinks":        "hot-drinks",
		"  Rice   Bowls  ":  "rice-bowls",
		"Snacks & Sides":    "snacks-sides",
		"Kopi_Susu-Special": "kopi-susu-special",
		"Beverage":          "beverage",
		"---":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}

func TestCanonicalCategory_SlugPassesThrough(t *testing.T) {
	lookup := func(context.Context, uuid.UUID) (string, error) {
		t.Fatal("lookup should not be called for a slug")
		return "", nil
	}

	slug, err := CanonicalCategory(context.Background(), "Main Course", lookup)
	require.NoError(t, err)
	assert.Equal(t, "main-course", slug)
}

func TestCanonicalCategory_IDResolvesToSlug(t *testing.T) {
	id := uuid.New()
	lookup := func(_ context.Context, got uuid.UUID) (string, error) {
		assert.Equal(t, id, got)
		return "desserts", nil
	}

	slug, err := CanonicalCategory(context.Background(), id.String(), lookup)
	require.NoError(t, err)
	assert.Equal(t, "desserts", slug)
}

func TestCanonicalCategory_Errors(t *testing.T) {
	_, err := CanonicalCategory(context.Background(), " ", nil)
	assert.ErrorIs(t, err, ErrUnknownCategory)

	boom := errors.New("boom")
	_, err = CanonicalCategory(context.Background(), uuid.NewString(), func(context.Context, uuid.UUID) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestBucket(t *testing.T) {
	assert.Equal(t, enum.DiscountClassBeverage, Bucket("smoothies", enum.DiscountClassBeverage))
	assert.Equal(t, enum.DiscountClassFood, Bucket("beverage", enum.DiscountClassFood))
	assert.Equal(t, enum.DiscountClassBeverage, Bucket("drinks", ""))
	assert.Equal(t, enum.DiscountClassFood, Bucket("pastry", ""))
}

func TestParseRecipes(t *testing.T) {
	id := uuid.New()
	lines, err := ParseRecipes([]byte(`[{"ingredient_id":"` + id.String() + `","quantity":"0.25"}]`))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, id, lines[0].IngredientID)
	assert.Equal(t, "0.25", lines[0].Quantity.String())

	lines, err = ParseRecipes(nil)
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, err = ParseRecipes([]byte(`{"bad":`))
	assert.ErrorIs(t, err, ErrInvalidRecipe)
}

func TestValidateRecipes(t *testing.T) {
	ok := []RecipeLine{{IngredientID: uuid.New(), Quantity: decimal.RequireFromString("2")}}
	assert.NoError(t, ValidateRecipes(ok))

	missing := []RecipeLine{{Quantity: decimal.RequireFromString("1")}}
	assert.ErrorIs(t, ValidateRecipes(missing), ErrInvalidRecipe)

	zero := []RecipeLine{{IngredientID: uuid.New(), Quantity: decimal.Zero}}
	assert.ErrorIs(t, ValidateRecipes(zero), ErrInvalidRecipe)
}
