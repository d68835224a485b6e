package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/fit_go_server/internal/testutil"
)

func TestUserRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	_ = NewUserRepository(db)

	email := "test@example.com"
	user := testutil.TestUser(t, db, testutil.WithEmail(email))

	assert.NotZero(t, user.ID)
	assert.Equal(t, email, user.Email)
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	existing := testutil.TestUser(t, db)

	dup := *existing
	dup.ID = 0
	dup.Username = "another"
	err := repo.Create(context.Background(), &dup)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestUserRepository_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	created := testutil.TestUser(t, db)

	found, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, created.Username, found.Username)
	assert.Equal(t, created.WorkoutDays, found.WorkoutDays)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	_, err := repo.GetByID(context.Background(), 99999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	email := "unique@example.com"
	testutil.TestUser(t, db, testutil.WithEmail(email))

	found, err := repo.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, email, found.Email)
}

func TestUserRepository_ExistsByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	ctx := context.Background()

	email := "exists@example.com"
	user := testutil.TestUser(t, db, testutil.WithEmail(email))

	exists, err := repo.ExistsByEmail(ctx, email)
	require.NoError(t, err)
	assert.True(t, exists)

	notExists, err := repo.ExistsByEmail(ctx, "notexists@example.com")
	require.NoError(t, err)
	assert.False(t, notExists)

	// 自己的邮箱不算冲突
	taken, err := repo.ExistsByEmailExcept(ctx, email, user.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUserRepository_ExistsByUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	testutil.TestUser(t, db, testutil.WithUsername("taken"))

	exists, err := repo.ExistsByUsername(context.Background(), "taken")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserRepository_UpdateFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	user := testutil.TestUser(t, db)

	err := repo.UpdateFields(ctx, user.ID, map[string]interface{}{"goal": "run a marathon", "weight": 70.5})
	require.NoError(t, err)

	found, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "run a marathon", found.Goal)
	assert.Equal(t, 70.5, found.Weight)
	assert.Equal(t, user.Height, found.Height)
}

func TestUserRepository_ConsumeResetToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	user := testutil.TestUser(t, db, testutil.WithToken("reset-token"))

	id, err := repo.ConsumeResetToken(ctx, "reset-token", "new-hash")
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	found, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", found.PasswordHash)
	assert.Nil(t, found.VerificationToken)

	// 第二次使用同一 token
	_, err = repo.ConsumeResetToken(ctx, "reset-token", "other-hash")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_ConsumeResetToken_UsedMidTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	user := testutil.TestUser(t, db, testutil.WithToken("reset-token"))

	// 另一个重置请求在本次 UPDATE 之前消费了同一 token
	testutil.InterleaveWrite(t, db, "users", func(tx *gorm.DB) {
		require.NoError(t, tx.Exec("UPDATE users SET verification_token = NULL, password_hash = ? WHERE id = ?", "winner-hash", user.ID).Error)
	})

	_, err := repo.ConsumeResetToken(ctx, "reset-token", "loser-hash")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "loser-hash", found.PasswordHash)
}

func TestUserRepository_SetVerificationToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	user := testutil.TestUser(t, db)

	require.NoError(t, repo.SetVerificationToken(ctx, user.ID, "abc"))

	found, err := repo.GetByVerificationToken(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestUserRepository_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	user := testutil.TestUser(t, db)

	require.NoError(t, repo.Delete(ctx, user.ID))

	_, err := repo.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, user.ID), gorm.ErrRecordNotFound)
}
