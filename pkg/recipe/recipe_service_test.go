package recipe

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"Foodgram-Backend/pkg/ingredient"
	"Foodgram-Backend/pkg/tag"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testImage = "data:image/png;base64,aGVsbG8="

type fakeStorage struct{}

func (fakeStorage) UploadFile(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://files.test/" + key, nil
}

func (fakeStorage) DeleteFile(_ context.Context, _ string) error { return nil }

type testEnv struct {
	db      *gorm.DB
	repo    RecipeRepository
	service RecipeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// a single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&entities.User{},
		&entities.Follow{},
		&entities.Tag{},
		&entities.Ingredient{},
		&entities.Recipe{},
		&entities.IngredientLine{},
		&entities.Favorite{},
		&entities.ShoppingCart{},
	))

	repo := NewRecipeRepository(db)
	service := NewRecipeService(repo, tag.NewTagRepository(db), ingredient.NewIngredientRepository(db), fakeStorage{})
	return &testEnv{db: db, repo: repo, service: service}
}

func (e *testEnv) seedUser(t *testing.T, username string) *entities.User {
	t.Helper()
	user := &entities.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  "User",
		Password:  "irrelevant",
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) seedTag(t *testing.T, name, slug, color string) *entities.Tag {
	t.Helper()
	tg := &entities.Tag{
		ID:    uuid.New(),
		Name:  name,
		Color: &color,
		Slug:  slug,
	}
	require.NoError(t, e.db.Create(tg).Error)
	return tg
}

func (e *testEnv) seedIngredient(t *testing.T, id uuid.UUID, name, unit string) *entities.Ingredient {
	t.Helper()
	ing := &entities.Ingredient{
		ID:              id,
		Name:            name,
		MeasurementUnit: unit,
	}
	require.NoError(t, e.db.Create(ing).Error)
	return ing
}

func (e *testEnv) createRecipe(t *testing.T, authorID, name string, tagIDs []string, lines []domain.IngredientLineRequest) domain.RecipeResponse {
	t.Helper()
	res, err := e.service.CreateRecipe(context.Background(), domain.CreateRecipeRequest{
		Name:        name,
		Image:       testImage,
		Text:        "cook it",
		CookingTime: 30,
		TagIDs:      tagIDs,
		Ingredients: lines,
	}, authorID)
	require.NoError(t, err)
	return res
}

func TestCreateRecipe_ReturnsFullDetail(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "chef")
	breakfast := env.seedTag(t, "Breakfast", "breakfast", "#E26C2D")
	flour := env.seedIngredient(t, uuid.New(), "flour", "g")

	res := env.createRecipe(t, author.ID.String(), "Pancakes",
		[]string{breakfast.ID.String()},
		[]domain.IngredientLineRequest{{ID: flour.ID.String(), Amount: 200}},
	)

	require.Equal(t, "Pancakes", res.Name)
	require.Equal(t, 30, res.CookingTime)
	require.Equal(t, author.Username, res.Author.Username)
	require.Len(t, res.Tags, 1)
	require.Equal(t, "breakfast", res.Tags[0].Slug)
	require.Len(t, res.Ingredients, 1)
	require.Equal(t, "flour", res.Ingredients[0].Name)
	require.Equal(t, "g", res.Ingredients[0].MeasurementUnit)
	require.Equal(t, 200, res.Ingredients[0].Amount)
	require.Contains(t, res.Image, "https://files.test/recipes/")
	// the author has not favorited their own fresh recipe
	require.False(t, res.IsFavorited)
	require.False(t, res.IsInShoppingCart)
}

func TestCreateRecipe_ValidationOrder(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "chef")
	breakfast := env.seedTag(t, "Breakfast", "breakfast", "#E26C2D")
	flour := env.seedIngredient(t, uuid.New(), "flour", "g")

	validLines := []domain.IngredientLineRequest{{ID: flour.ID.String(), Amount: 100}}
	validTags := []string{breakfast.ID.String()}

	tests := []struct {
		name        string
		cookingTime int
		tagIDs      []string
		lines       []domain.IngredientLineRequest
		wantErr     error
	}{
		{
			// cooking time is checked before everything else
			name:        "zero cooking time wins over missing tags",
			cookingTime: 0,
			tagIDs:      nil,
			lines:       nil,
			wantErr:     domain.ErrInvalidCookingTime,
		},
		{
			name:        "no tags",
			cookingTime: 10,
			tagIDs:      nil,
			lines:       validLines,
			wantErr:     domain.ErrNoTags,
		},
		{
			name:        "duplicate tags",
			cookingTime: 10,
			tagIDs:      []string{breakfast.ID.String(), breakfast.ID.String()},
			lines:       validLines,
			wantErr:     domain.ErrDuplicateTags,
		},
		{
			name:        "unknown tag",
			cookingTime: 10,
			tagIDs:      []string{uuid.NewString()},
			lines:       validLines,
			wantErr:     domain.ErrTagNotFound,
		},
		{
			name:        "no ingredients",
			cookingTime: 10,
			tagIDs:      validTags,
			lines:       nil,
			wantErr:     domain.ErrNoIngredientLines,
		},
		{
			name:        "non-positive amount",
			cookingTime: 10,
			tagIDs:      validTags,
			lines:       []domain.IngredientLineRequest{{ID: flour.ID.String(), Amount: 0}},
			wantErr:     domain.ErrInvalidIngredientAmount,
		},
		{
			name:        "duplicate ingredients",
			cookingTime: 10,
			tagIDs:      validTags,
			lines: []domain.IngredientLineRequest{
				{ID: flour.ID.String(), Amount: 100},
				{ID: flour.ID.String(), Amount: 50},
			},
			wantErr: domain.ErrDuplicateIngredients,
		},
		{
			name:        "unknown ingredient",
			cookingTime: 10,
			tagIDs:      validTags,
			lines:       []domain.IngredientLineRequest{{ID: uuid.NewString(), Amount: 100}},
			wantErr:     domain.ErrIngredientNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.CreateRecipe(context.Background(), domain.CreateRecipeRequest{
				Name:        "Broken " + tt.name,
				Image:       testImage,
				CookingTime: tt.cookingTime,
				TagIDs:      tt.tagIDs,
				Ingredients: tt.lines,
			}, author.ID.String())
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateRecipe_NameTaken(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "chef")
	other := env.seedUser(t, "rival")
	breakfast := env.seedTag(t, "Breakfast", "breakfast", "#E26C2D")
	flour := env.seedIngredient(t, uuid.New(), "flour", "g")

	lines := []domain.IngredientLineRequest{{ID: flour.ID.String(), Amount: 100}}
	env.createRecipe(t, author.ID.String(), "Pancakes", []string{breakfast.ID.String()}, lines)

	_, err := env.service.CreateRecipe(context.Background(), domain.CreateRecipeRequest{
		Name:        "Pancakes",
		Image:       testImage,
		CookingTime: 15,
		TagIDs:      []string{breakfast.ID.String()},
		Ingredients: lines,
	}, other.ID.String())
	require.ErrorIs(t, err, domain.ErrRecipeNameTaken)
}

func TestUpdateRecipe_ReplacesIngredientsAndTags(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "chef")
	breakfast := env.seedTag(t, "Breakfast", "breakfast", "#E26C2D")
	dinner := env.seedTag(t, "Dinner", "dinner", "#499B54")
	flour := env.seedIngredient(t, uuid.New(), "flour", "g")
	sugar := env.seedIngredient(t, uuid.New(), "sugar", "kg")

	created := env.createRecipe(t, author.ID.String(), "Pancakes",
		[]string{breakfast.ID.String()},
		[]domain.IngredientLineRequest{{ID: flour.ID.String(), Amount: 200}},
	)

	updated, err := env.service.UpdateRecipe(context.Background(), created.ID, domain.UpdateRecipeRequest{
		CookingTime: 45,
		TagIDs:      []string{dinner.ID.String()},
		Ingredients: []domain.IngredientLineRequest{{ID: sugar.ID.String(), Amount: 2}},
	}, author.ID.String())
	require.NoError(t, err)

	// empty scalar fields are retained, cooking time is always taken
	require.Equal(t, "Pancakes", updated.Name)
	require.Equal(t, 45, updated.CookingTime)

	require.Len(t, updated.Tags, 1)
	require.Equal(t, "dinner", updated.Tags[0].Slug)
	require.Len(t, updated.Ingredients, 1)
	require.Equal(t, "sugar", updated.Ingredients[0].Name)

	// the old line set is gone, not merged
	var lineCount int64
	require.NoError(t, env.db.Model(&entities.IngredientLine{}).
		Where("recipe_id = ?", created.ID).Count(&lineCount).Error)
	require.EqualValues(t, 1, lineCount)
}

func TestUpdateRecipe_RejectsNonAuthor(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "chef")
	intruder := env.seedUser(t, "intruder")
	breakfast := env.seedTag(t, "Breakfast", "breakfast", "#E26C2D")
	flour := env.seedIngredient(t, uuid.New(), "flour", "g")

	lines := []domain.IngredientLineRequest{{ID: flour.ID.String(), Amount: 100}}
	created := env.createRecipe(t, author.ID.String(), "Pancakes", []string{breakfast.ID.String()}, lines)

	_, err := env.service.UpdateRecipe(context.Background(), created.ID, domain.UpdateRecipeRequest{
		CookingTime: 10,
		TagIDs:      []string{breakfast.ID.String()},
		Ingredients: lines,
	}, intruder.ID.String())
	require.ErrorIs(t, err, domain.ErrNotRecipeAuthor)

	_, err = env.service.UpdateRecipe(context.Background(), uuid.NewString(), domain.UpdateRecipeRequest{
		CookingTime: 10,
		TagIDs:      []string{breakfast.ID.String()},
		Ingredients: lines,
	}, author.ID.String())
	require.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestDeleteRecipe_CleansUpEdges(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "chef")
	fan := env.seedUser(t, "fan")
	breakfast := env.seedTag(t, "Breakfast", "breakfast", "#E26C2D")
	flour := env.seedIngredient(t, uuid.New(), "flour", "g")

	created := env.createRecipe(t, author.ID.String(), "Pancakes",
		[]string{breakfast.ID.String()},
		[]domain.IngredientLineRequest{{ID: flour.ID.String(), Amount: 100}},
	)

	ctx := context.Background()
	_, err := env.service.FavoriteRecipe(ctx, created.ID, fan.ID.String())
	require.NoError(t, err)
	_, err = env.service.AddToShoppingCart(ctx, created.ID, fan.ID.String())
	require.NoError(t, err)

	require.ErrorIs(t, env.service.DeleteRecipe(ctx, created.ID, fan.ID.String()), domain.ErrNotRecipeAuthor)
	require.NoError(t, env.service.DeleteRecipe(ctx, created.ID, author.ID.String()))

	_, err = env.service.GetRecipeDetail(ctx, created.ID, "")
	require.ErrorIs(t, err, domain.ErrRecipeNotFound)

	for _, model := range []any{&entities.IngredientLine{}, &entities.Favorite{}, &entities.ShoppingCart{}} {
		var count int64
		require.NoError(t, env.db.Model(model).Where("recipe_id = ?", created.ID).Count(&count).Error)
		require.Zero(t, count)
	}
}

func TestFavorite_ToggleIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	author := env.seedUser(t, "chef")
	fan := env.seedUser(t, "fan")
	breakfast := env.seedTag(t, "Breakfast", "breakfast", "#E26C2D")
	flour := env.seedIngredient(t, uuid.New(), "flour", "g")

	created := env.createRecipe(t, author.ID.String(), "Pancakes",
		[]string{breakfast.ID.String()},
		[]domain.IngredientLineRequest{{ID: flour.ID.String(), Amount: 100}},
	)

	ctx := context.Background()

	mini, err := env.service.FavoriteRecipe(ctx, created.ID, fan.ID.String())
	require.NoError(t, err)
	require.Equal(t, created.ID, mini.ID)
	require.Equal(t, "Pancakes", mini.Name)

	// favoriting twice stays a single edge
	_, err = env.service.FavoriteRecipe(ctx, created.ID, fan.ID.String())
	require.NoError(t, err)

	var count int64
	require.NoError(t, env.db.Model(&entities.Favorite{}).
		Where("user_id = ?", fan.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	detail, err := env.service.GetRecipeDetail(ctx, created.ID, fan.ID.String())
	require.NoError(t, err)
	require.True(t, detail.IsFavorited)

	// anonymous viewers never see viewer-relative flags
	detail, err = env.service.GetRecipeDetail(ctx, created.ID, "")
	require.NoError(t, err)
	require.False(t, detail.IsFavorited)

	require.NoError(t, env.service.UnfavoriteRecipe(ctx, created.ID, fan.ID.String()))
	require.NoError(t, env.service.UnfavoriteRecipe(ctx, created.ID, fan.ID.String()))

	_, err = env.service.FavoriteRecipe(ctx, uuid.NewString(), fan.ID.String())
	require.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestGetRecipes_Filters(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	breakfast := env.seedTag(t, "Breakfast", "breakfast", "#E26C2D")
	dinner := env.seedTag(t, "Dinner", "dinner", "#499B54")
	flour := env.seedIngredient(t, uuid.New(), "flour", "g")
	lines := []domain.IngredientLineRequest{{ID: flour.ID.String(), Amount: 100}}

	pancakes := env.createRecipe(t, alice.ID.String(), "Pancakes", []string{breakfast.ID.String()}, lines)
	env.createRecipe(t, alice.ID.String(), "Stew", []string{dinner.ID.String()}, lines)
	env.createRecipe(t, bob.ID.String(), "Roast", []string{dinner.ID.String()}, lines)

	ctx := context.Background()

	// tag slugs combine as a union
	_, count, err := env.service.GetRecipes(ctx, domain.RecipeFilter{
		TagSlugs: []string{"breakfast", "dinner"},
	}, "", 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	// distinct filters combine conjunctively
	res, count, err := env.service.GetRecipes(ctx, domain.RecipeFilter{
		AuthorIDs: []string{alice.ID.String()},
		TagSlugs:  []string{"dinner"},
	}, "", 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, "Stew", res[0].Name)

	_, err = env.service.FavoriteRecipe(ctx, pancakes.ID, bob.ID.String())
	require.NoError(t, err)

	res, count, err = env.service.GetRecipes(ctx, domain.RecipeFilter{
		FavoritedBy: bob.ID.String(),
	}, bob.ID.String(), 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, "Pancakes", res[0].Name)
	require.True(t, res[0].IsFavorited)

	// anonymous callers get the viewer-relative filters ignored, not an error
	_, count, err = env.service.GetRecipes(ctx, domain.RecipeFilter{
		FavoritedBy: bob.ID.String(),
	}, "", 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
}

func TestDownloadShoppingCart_AggregatesAcrossRecipes(t *testing.T) {
	env := newTestEnv(t)
	chef := env.seedUser(t, "chef")
	shopper := env.seedUser(t, "shopper")
	breakfast := env.seedTag(t, "Breakfast", "breakfast", "#E26C2D")

	// fixed ids pin the export order
	flour := env.seedIngredient(t, uuid.MustParse("11111111-1111-1111-1111-111111111111"), "flour", "g")
	sugar := env.seedIngredient(t, uuid.MustParse("22222222-2222-2222-2222-222222222222"), "sugar", "kg")

	pancakes := env.createRecipe(t, chef.ID.String(), "Pancakes",
		[]string{breakfast.ID.String()},
		[]domain.IngredientLineRequest{
			{ID: flour.ID.String(), Amount: 3},
			{ID: sugar.ID.String(), Amount: 1},
		},
	)
	waffles := env.createRecipe(t, chef.ID.String(), "Waffles",
		[]string{breakfast.ID.String()},
		[]domain.IngredientLineRequest{{ID: flour.ID.String(), Amount: 2}},
	)

	ctx := context.Background()
	_, err := env.service.AddToShoppingCart(ctx, pancakes.ID, shopper.ID.String())
	require.NoError(t, err)
	_, err = env.service.AddToShoppingCart(ctx, waffles.ID, shopper.ID.String())
	require.NoError(t, err)

	doc, err := env.service.DownloadShoppingCart(ctx, shopper.ID.String())
	require.NoError(t, err)
	require.Equal(t, "flour (g) — 5\nsugar (kg) — 1\n", string(doc))
}

func TestDownloadShoppingCart_EmptyCart(t *testing.T) {
	env := newTestEnv(t)
	shopper := env.seedUser(t, "shopper")

	doc, err := env.service.DownloadShoppingCart(context.Background(), shopper.ID.String())
	require.NoError(t, err)
	require.Empty(t, doc)
}
