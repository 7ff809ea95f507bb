package user

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"Foodgram-Backend/pkg/jwt"
	"Foodgram-Backend/pkg/recipe"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db      *gorm.DB
	service UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

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

	service := NewUserService(NewUserRepository(db), recipe.NewRecipeRepository(db), jwt.NewJWTService())
	return &testEnv{db: db, service: service}
}

func (e *testEnv) register(t *testing.T, username, email string) domain.UserResponse {
	t.Helper()
	res, err := e.service.RegisterUser(context.Background(), domain.RegisterRequest{
		Username:  username,
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Password:  "swordfish42",
	})
	require.NoError(t, err)
	return res
}

func TestRegisterUser_NormalizesEmail(t *testing.T) {
	env := newTestEnv(t)

	res := env.register(t, "alice", "Alice@Example.COM")
	require.Equal(t, "alice@example.com", res.Email)
	require.Equal(t, "alice", res.Username)
	require.False(t, res.IsSubscribed)

	// login accepts any casing of the registered address
	login, err := env.service.Login(context.Background(), domain.LoginRequest{
		Email:    "ALICE@example.com",
		Password: "swordfish42",
	})
	require.NoError(t, err)
	require.NotEmpty(t, login.Token)
	require.Equal(t, res.ID, login.User.ID)
}

func TestRegisterUser_RejectsReservedAndTaken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com")

	ctx := context.Background()

	_, err := env.service.RegisterUser(ctx, domain.RegisterRequest{
		Username: "Me", Email: "me@example.com",
		FirstName: "M", LastName: "E", Password: "swordfish42",
	})
	require.ErrorIs(t, err, domain.ErrUsernameReserved)

	_, err = env.service.RegisterUser(ctx, domain.RegisterRequest{
		Username: "alice", Email: "other@example.com",
		FirstName: "A", LastName: "B", Password: "swordfish42",
	})
	require.ErrorIs(t, err, domain.ErrUsernameTaken)

	_, err = env.service.RegisterUser(ctx, domain.RegisterRequest{
		Username: "alice2", Email: "ALICE@example.com",
		FirstName: "A", LastName: "B", Password: "swordfish42",
	})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com")

	ctx := context.Background()

	_, err := env.service.Login(ctx, domain.LoginRequest{
		Email: "alice@example.com", Password: "wrong-password",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	// unknown address yields the same error as a bad password
	_, err = env.service.Login(ctx, domain.LoginRequest{
		Email: "nobody@example.com", Password: "swordfish42",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSetPassword(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "alice@example.com")

	ctx := context.Background()

	err := env.service.SetPassword(ctx, domain.SetPasswordRequest{
		CurrentPassword: "not-the-password",
		NewPassword:     "newpassword99",
	}, alice.ID)
	require.ErrorIs(t, err, domain.ErrWrongPassword)

	require.NoError(t, env.service.SetPassword(ctx, domain.SetPasswordRequest{
		CurrentPassword: "swordfish42",
		NewPassword:     "newpassword99",
	}, alice.ID))

	_, err = env.service.Login(ctx, domain.LoginRequest{
		Email: "alice@example.com", Password: "newpassword99",
	})
	require.NoError(t, err)
}

func TestUpdateUser_UsernameRules(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "alice@example.com")
	env.register(t, "bob", "bob@example.com")

	ctx := context.Background()

	_, err := env.service.UpdateUser(ctx, domain.UpdateUserRequest{Username: "bob"}, alice.ID)
	require.ErrorIs(t, err, domain.ErrUsernameTaken)

	_, err = env.service.UpdateUser(ctx, domain.UpdateUserRequest{Username: "me"}, alice.ID)
	require.ErrorIs(t, err, domain.ErrUsernameReserved)

	res, err := env.service.UpdateUser(ctx, domain.UpdateUserRequest{
		Username:  "alice_cooks",
		FirstName: "Alicia",
	}, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alice_cooks", res.Username)
	require.Equal(t, "Alicia", res.FirstName)
	// untouched fields are retained
	require.Equal(t, "User", res.LastName)
}

func TestSubscribe_Rules(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "alice@example.com")
	bob := env.register(t, "bob", "bob@example.com")

	ctx := context.Background()

	_, err := env.service.Subscribe(ctx, alice.ID, alice.ID)
	require.ErrorIs(t, err, domain.ErrSelfFollow)

	_, err = env.service.Subscribe(ctx, alice.ID, uuid.NewString())
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	sub, err := env.service.Subscribe(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, "bob", sub.Username)
	require.True(t, sub.IsSubscribed)

	// a second follow of the same author is an error, not a no-op
	_, err = env.service.Subscribe(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyFollowing)
}

func TestUnsubscribe_NoopWhenNotFollowing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "alice@example.com")
	bob := env.register(t, "bob", "bob@example.com")

	ctx := context.Background()

	require.ErrorIs(t, env.service.Unsubscribe(ctx, alice.ID, uuid.NewString()), domain.ErrUserNotFound)
	require.NoError(t, env.service.Unsubscribe(ctx, alice.ID, bob.ID))

	_, err := env.service.Subscribe(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, env.service.Unsubscribe(ctx, alice.ID, bob.ID))
	require.NoError(t, env.service.Unsubscribe(ctx, alice.ID, bob.ID))
}

func TestGetSubscriptions_RecipePreview(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "alice@example.com")
	bob := env.register(t, "bob", "bob@example.com")

	bobUUID := uuid.MustParse(bob.ID)
	for i := 0; i < 3; i++ {
		require.NoError(t, env.db.Create(&entities.Recipe{
			ID:          uuid.New(),
			AuthorID:    bobUUID,
			Name:        fmt.Sprintf("Dish %d", i),
			CookingTime: 10 + i,
		}).Error)
	}

	ctx := context.Background()
	_, err := env.service.Subscribe(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	subs, count, err := env.service.GetSubscriptions(ctx, alice.ID, 2, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Len(t, subs, 1)
	require.Equal(t, "bob", subs[0].Username)
	// the preview is capped by recipes_limit while the count stays total
	require.Len(t, subs[0].Recipes, 2)
	require.EqualValues(t, 3, subs[0].RecipesCount)

	// recipes_limit of zero means no cap
	subs, _, err = env.service.GetSubscriptions(ctx, alice.ID, 0, 1, 10)
	require.NoError(t, err)
	require.Len(t, subs[0].Recipes, 3)
}
