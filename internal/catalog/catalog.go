// Package catalog normalises category references and maps categories to
// discount buckets.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/HanzKay/KrasandApps-V1/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidRecipe   = errors.New("invalid recipe")
)

// Slugify lowercases name and reduces it to [a-z0-9-], joining words with '-'.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r == ' ', r == '-', r == '_', r == '\t':
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// SlugLookup resolves a category ID to its slug.
type SlugLookup func(ctx context.Context, id uuid.UUID) (string, error)

// CanonicalCategory accepts either a slug or a category ID and returns the
// slug. IDs are accepted only for older clients that still send them.
func CanonicalCategory(ctx context.Context, ref string, lookup SlugLookup) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrUnknownCategory
	}
	if id, err := uuid.Parse(ref); err == nil {
		slug, err := lookup(ctx, id)
		if err != nil {
			return "", err
		}
		return slug, nil
	}
	return Slugify(ref), nil
}

// Bucket returns the discount class for a category. class is the stored
// discount_class of the category, empty when the category is unknown.
func Bucket(slug, class string) string {
	if enum.IsDiscountClass(class) {
		return class
	}
	switch slug {
	case "beverage", "beverages", "drink", "drinks":
		return enum.DiscountClassBeverage
	}
	return enum.DiscountClassFood
}

// RecipeLine is the amount of one ingredient consumed per unit of a product.
type RecipeLine struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// ParseRecipes decodes a stored recipe list. Empty input is an empty recipe.
func ParseRecipes(raw []byte) ([]RecipeLine, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var lines []RecipeLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}
	return lines, nil
}

func ValidateRecipes(lines []RecipeLine) error {
	for i, l := range lines {
		if l.IngredientID == uuid.Nil {
			return fmt.Errorf("%w: recipes[%d]: ingredient_id is required", ErrInvalidRecipe, i)
		}
		if !l.Quantity.IsPositive() {
			return fmt.Errorf("%w: recipes[%d]: quantity must be > 0", ErrInvalidRecipe, i)
		}
	}
	return nil
}
