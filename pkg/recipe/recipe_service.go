package recipe

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"Foodgram-Backend/internal/utils/storage"
	"Foodgram-Backend/pkg/ingredient"
	"Foodgram-Backend/pkg/tag"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, authorID string) (domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, editorID string) (domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, recipeID, editorID string) error
		GetRecipeDetail(ctx context.Context, recipeID, viewerID string) (domain.RecipeResponse, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string, page, limit int) ([]domain.RecipeResponse, int64, error)

		FavoriteRecipe(ctx context.Context, recipeID, userID string) (domain.RecipeMinifiedResponse, error)
		UnfavoriteRecipe(ctx context.Context, recipeID, userID string) error
		AddToShoppingCart(ctx context.Context, recipeID, userID string) (domain.RecipeMinifiedResponse, error)
		RemoveFromShoppingCart(ctx context.Context, recipeID, userID string) error
		DownloadShoppingCart(ctx context.Context, userID string) ([]byte, error)
	}

	recipeService struct {
		recipeRepository     RecipeRepository
		tagRepository        tag.TagRepository
		ingredientRepository ingredient.IngredientRepository
		s3                   storage.AwsS3
	}
)

func NewRecipeService(
	recipeRepository RecipeRepository,
	tagRepository tag.TagRepository,
	ingredientRepository ingredient.IngredientRepository,
	s3 storage.AwsS3,
) RecipeService {
	return &recipeService{
		recipeRepository:     recipeRepository,
		tagRepository:        tagRepository,
		ingredientRepository: ingredientRepository,
		s3:                   s3,
	}
}

// resolveRecipePayload runs the consistency checks shared by create and
// update. The checks are ordered; the first failing rule decides the error.
func (s *recipeService) resolveRecipePayload(ctx context.Context, cookingTime int, tagIDs []string, lines []domain.IngredientLineRequest) ([]*entities.Tag, []uuid.UUID, error) {
	if cookingTime <= 0 {
		return nil, nil, domain.ErrInvalidCookingTime
	}

	if len(tagIDs) == 0 {
		return nil, nil, domain.ErrNoTags
	}
	seenTags := make(map[string]bool, len(tagIDs))
	for _, id := range tagIDs {
		if seenTags[id] {
			return nil, nil, domain.ErrDuplicateTags
		}
		seenTags[id] = true
	}
	tags, err := s.tagRepository.GetTagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(tags) != len(tagIDs) {
		return nil, nil, domain.ErrTagNotFound
	}

	if len(lines) == 0 {
		return nil, nil, domain.ErrNoIngredientLines
	}
	for _, line := range lines {
		if line.Amount <= 0 {
			return nil, nil, domain.ErrInvalidIngredientAmount
		}
	}
	seenIngredients := make(map[string]bool, len(lines))
	ingredientIDs := make([]uuid.UUID, 0, len(lines))
	rawIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		if seenIngredients[line.ID] {
			return nil, nil, domain.ErrDuplicateIngredients
		}
		seenIngredients[line.ID] = true

		id, err := uuid.Parse(line.ID)
		if err != nil {
			return nil, nil, domain.ErrParseUUID
		}
		ingredientIDs = append(ingredientIDs, id)
		rawIDs = append(rawIDs, line.ID)
	}

	ingredients, err := s.ingredientRepository.GetIngredientsByIDs(ctx, rawIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(ingredients) != len(lines) {
		return nil, nil, domain.ErrIngredientNotFound
	}

	return tags, ingredientIDs, nil
}

func decodeImage(data string) ([]byte, string, error) {
	payload := data
	contentType := "image/png"

	if strings.HasPrefix(data, "data:") {
		parts := strings.SplitN(data, ",", 2)
		if len(parts) != 2 {
			return nil, "", domain.ErrInvalidImage
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(parts[0], "data:"), ";base64")
		payload = parts[1]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", domain.ErrInvalidImage
	}
	return raw, contentType, nil
}

func (s *recipeService) uploadImage(ctx context.Context, recipeID uuid.UUID, image string) (string, error) {
	raw, contentType, err := decodeImage(image)
	if err != nil {
		return "", err
	}

	ext := strings.TrimPrefix(contentType, "image/")
	if ext == "" || ext == contentType {
		ext = "png"
	}
	key := fmt.Sprintf("recipes/%s.%s", recipeID.String(), ext)

	return s.s3.UploadFile(ctx, key, raw, contentType)
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, authorID string) (domain.RecipeResponse, error) {
	authorUUID, err := uuid.Parse(authorID)
	if err != nil {
		return domain.RecipeResponse{}, domain.ErrParseUUID
	}

	tags, ingredientIDs, err := s.resolveRecipePayload(ctx, req.CookingTime, req.TagIDs, req.Ingredients)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	if _, err := s.recipeRepository.GetRecipeByName(ctx, req.Name); err == nil {
		return domain.RecipeResponse{}, domain.ErrRecipeNameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RecipeResponse{}, err
	}

	recipeID := uuid.New()
	imageURL, err := s.uploadImage(ctx, recipeID, req.Image)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	newRecipe := &entities.Recipe{
		ID:          recipeID,
		AuthorID:    authorUUID,
		Name:        req.Name,
		ImageURL:    imageURL,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}
	lines := buildIngredientLines(recipeID, ingredientIDs, req.Ingredients)

	if err := s.recipeRepository.CreateRecipe(ctx, newRecipe, tags, lines); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeResponse{}, domain.ErrRecipeNameTaken
		}
		return domain.RecipeResponse{}, err
	}

	return s.GetRecipeDetail(ctx, recipeID.String(), authorID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, editorID string) (domain.RecipeResponse, error) {
	existing, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	if existing.AuthorID.String() != editorID {
		return domain.RecipeResponse{}, domain.ErrNotRecipeAuthor
	}

	tags, ingredientIDs, err := s.resolveRecipePayload(ctx, req.CookingTime, req.TagIDs, req.Ingredients)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	if req.Name != "" && req.Name != existing.Name {
		if _, err := s.recipeRepository.GetRecipeByName(ctx, req.Name); err == nil {
			return domain.RecipeResponse{}, domain.ErrRecipeNameTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, err
		}
		existing.Name = req.Name
	}
	if req.Text != "" {
		existing.Text = req.Text
	}
	existing.CookingTime = req.CookingTime
	if req.Image != "" {
		imageURL, err := s.uploadImage(ctx, existing.ID, req.Image)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		existing.ImageURL = imageURL
	}

	lines := buildIngredientLines(existing.ID, ingredientIDs, req.Ingredients)
	existing.Tags = nil
	existing.IngredientLines = nil

	if err := s.recipeRepository.UpdateRecipe(ctx, existing, tags, lines); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeResponse{}, domain.ErrRecipeNameTaken
		}
		return domain.RecipeResponse{}, err
	}

	return s.GetRecipeDetail(ctx, recipeID, editorID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID, editorID string) error {
	existing, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if existing.AuthorID.String() != editorID {
		return domain.ErrNotRecipeAuthor
	}

	return s.recipeRepository.DeleteRecipe(ctx, recipeID)
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, recipeID, viewerID string) (domain.RecipeResponse, error) {
	found, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	return s.buildRecipeResponse(ctx, found, viewerID), nil
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string, page, limit int) ([]domain.RecipeResponse, int64, error) {
	// The favorited/in-cart filters have no meaning without an identity;
	// anonymous callers get them ignored rather than rejected.
	if viewerID == "" {
		filter.FavoritedBy = ""
		filter.InShoppingCart = ""
	}

	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]domain.RecipeResponse, 0, len(recipes))
	for _, found := range recipes {
		result = append(result, s.buildRecipeResponse(ctx, found, viewerID))
	}
	return result, count, nil
}

func (s *recipeService) FavoriteRecipe(ctx context.Context, recipeID, userID string) (domain.RecipeMinifiedResponse, error) {
	found, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeMinifiedResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeMinifiedResponse{}, err
	}

	if err := s.recipeRepository.AddFavorite(ctx, userID, recipeID); err != nil {
		return domain.RecipeMinifiedResponse{}, err
	}
	return minifyRecipe(found), nil
}

func (s *recipeService) UnfavoriteRecipe(ctx context.Context, recipeID, userID string) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}
	return s.recipeRepository.RemoveFavorite(ctx, userID, recipeID)
}

func (s *recipeService) AddToShoppingCart(ctx context.Context, recipeID, userID string) (domain.RecipeMinifiedResponse, error) {
	found, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeMinifiedResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeMinifiedResponse{}, err
	}

	if err := s.recipeRepository.AddToShoppingCart(ctx, userID, recipeID); err != nil {
		return domain.RecipeMinifiedResponse{}, err
	}
	return minifyRecipe(found), nil
}

func (s *recipeService) RemoveFromShoppingCart(ctx context.Context, recipeID, userID string) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}
	return s.recipeRepository.RemoveFromShoppingCart(ctx, userID, recipeID)
}

// DownloadShoppingCart renders the aggregated shopping list as a plain text
// document, one line per distinct ingredient. An empty cart yields an empty
// document.
func (s *recipeService) DownloadShoppingCart(ctx context.Context, userID string) ([]byte, error) {
	items, err := s.recipeRepository.GetShoppingList(ctx, userID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for _, item := range items {
		fmt.Fprintf(&buf, "%s (%s) — %d\n", item.Name, item.MeasurementUnit, item.Total)
	}
	return buf.Bytes(), nil
}

func buildIngredientLines(recipeID uuid.UUID, ingredientIDs []uuid.UUID, reqs []domain.IngredientLineRequest) []*entities.IngredientLine {
	lines := make([]*entities.IngredientLine, 0, len(reqs))
	for i, req := range reqs {
		lines = append(lines, &entities.IngredientLine{
			ID:           uuid.New(),
			RecipeID:     recipeID,
			IngredientID: ingredientIDs[i],
			Amount:       req.Amount,
		})
	}
	return lines
}

func minifyRecipe(recipe *entities.Recipe) domain.RecipeMinifiedResponse {
	return domain.RecipeMinifiedResponse{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		Image:       recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}
}

func (s *recipeService) buildRecipeResponse(ctx context.Context, recipe *entities.Recipe, viewerID string) domain.RecipeResponse {
	tags := make([]domain.TagResponse, 0, len(recipe.Tags))
	for _, t := range recipe.Tags {
		tags = append(tags, domain.TagResponse{
			ID:    t.ID.String(),
			Name:  t.Name,
			Color: t.Color,
			Slug:  t.Slug,
		})
	}

	ingredients := make([]domain.IngredientLineResponse, 0, len(recipe.IngredientLines))
	for _, line := range recipe.IngredientLines {
		res := domain.IngredientLineResponse{
			ID:     line.IngredientID.String(),
			Amount: line.Amount,
		}
		if line.Ingredient != nil {
			res.Name = line.Ingredient.Name
			res.MeasurementUnit = line.Ingredient.MeasurementUnit
		}
		ingredients = append(ingredients, res)
	}

	// Viewer-relative flags are derived per request and never stored on the
	// recipe itself. Anonymous viewers always see false.
	isFavorited := false
	isInCart := false
	author := domain.UserResponse{}
	if recipe.Author != nil {
		author = domain.UserResponse{
			ID:        recipe.Author.ID.String(),
			Username:  recipe.Author.Username,
			Email:     recipe.Author.Email,
			FirstName: recipe.Author.FirstName,
			LastName:  recipe.Author.LastName,
		}
	}
	if viewerID != "" {
		isFavorited, _ = s.recipeRepository.IsFavorited(ctx, viewerID, recipe.ID.String())
		isInCart, _ = s.recipeRepository.IsInShoppingCart(ctx, viewerID, recipe.ID.String())
		if recipe.Author != nil {
			author.IsSubscribed, _ = s.recipeRepository.IsSubscribed(ctx, viewerID, recipe.AuthorID.String())
		}
	}

	return domain.RecipeResponse{
		ID:               recipe.ID.String(),
		Tags:             tags,
		Author:           author,
		Ingredients:      ingredients,
		IsFavorited:      isFavorited,
		IsInShoppingCart: isInCart,
		Name:             recipe.Name,
		Image:            recipe.ImageURL,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
		CreatedAt:        recipe.CreatedAt,
	}
}
