package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessGetRecipes       = "success get recipes"
	MessageSuccessGetRecipeDetail  = "success get recipe detail"
	MessageSuccessCreateRecipe     = "recipe created successfully"
	MessageSuccessUpdateRecipe     = "recipe updated successfully"
	MessageSuccessDeleteRecipe     = "recipe deleted successfully"
	MessageSuccessFavoriteRecipe   = "recipe added to favorites"
	MessageSuccessUnfavoriteRecipe = "recipe removed from favorites"
	MessageSuccessAddToCart        = "recipe added to shopping cart"
	MessageSuccessRemoveFromCart   = "recipe removed from shopping cart"

	MessageFailedGetRecipes      = "failed to get recipes"
	MessageFailedGetRecipeDetail = "failed to get recipe detail"
	MessageFailedCreateRecipe    = "failed to create recipe"
	MessageFailedUpdateRecipe    = "failed to update recipe"
	MessageFailedDeleteRecipe    = "failed to delete recipe"
	MessageFailedFavoriteRecipe  = "failed to update favorites"
	MessageFailedUpdateCart      = "failed to update shopping cart"
	MessageFailedDownloadCart    = "failed to download shopping cart"

	ErrRecipeNotFound          = errors.New("recipe not found")
	ErrNotRecipeAuthor         = errors.New("only the author may modify this recipe")
	ErrRecipeNameTaken         = errors.New("recipe name already taken")
	ErrInvalidCookingTime      = errors.New("cooking time must be a positive number of minutes")
	ErrNoTags                  = errors.New("at least one tag is required")
	ErrDuplicateTags           = errors.New("tags must be unique")
	ErrTagNotFound             = errors.New("tag not found")
	ErrNoIngredientLines       = errors.New("at least one ingredient is required")
	ErrInvalidIngredientAmount = errors.New("ingredient amount must be positive")
	ErrDuplicateIngredients    = errors.New("ingredients must be unique")
	ErrIngredientNotFound      = errors.New("ingredient not found")
	ErrInvalidImage            = errors.New("invalid image data")
)

type (
	IngredientLineRequest struct {
		ID     string `json:"id" validate:"required,uuid"`
		Amount int    `json:"amount"`
	}

	CreateRecipeRequest struct {
		Name        string                  `json:"name" validate:"required,max=200"`
		Image       string                  `json:"image" validate:"required"`
		Text        string                  `json:"text" validate:"max=10000"`
		CookingTime int                     `json:"cooking_time"`
		TagIDs      []string                `json:"tags"`
		Ingredients []IngredientLineRequest `json:"ingredients"`
	}

	// UpdateRecipeRequest keeps scalar fields optional: empty values mean
	// "retain". The tag set and ingredient set are always replaced in full.
	UpdateRecipeRequest struct {
		Name        string                  `json:"name" validate:"omitempty,max=200"`
		Image       string                  `json:"image"`
		Text        string                  `json:"text" validate:"omitempty,max=10000"`
		CookingTime int                     `json:"cooking_time"`
		TagIDs      []string                `json:"tags"`
		Ingredients []IngredientLineRequest `json:"ingredients"`
	}

	IngredientLineResponse struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeResponse struct {
		ID               string                   `json:"id"`
		Tags             []TagResponse            `json:"tags"`
		Author           UserResponse             `json:"author"`
		Ingredients      []IngredientLineResponse `json:"ingredients"`
		IsFavorited      bool                     `json:"is_favorited"`
		IsInShoppingCart bool                     `json:"is_in_shopping_cart"`
		Name             string                   `json:"name"`
		Image            string                   `json:"image"`
		Text             string                   `json:"text"`
		CookingTime      int                      `json:"cooking_time"`
		CreatedAt        time.Time                `json:"created_at"`
	}

	RecipeMinifiedResponse struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	// RecipeFilter combines conjunctively; slugs within TagSlugs are a union.
	RecipeFilter struct {
		AuthorIDs      []string
		TagSlugs       []string
		FavoritedBy    string
		InShoppingCart string
	}

	ShoppingListItem struct {
		IngredientID    string `json:"ingredient_id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Total           int    `json:"total"`
	}
)
