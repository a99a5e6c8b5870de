package repository

import (
	"context"
	"testing"
	"time"

	"modellion/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

func TestUserRepository(t *testing.T) {
	truncateAll(t)
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		Username:     "admin",
		PasswordHash: string(hashed),
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected generated id to be filled in")
	}

	t.Run("duplicate username is rejected", func(t *testing.T) {
		err := repo.Create(ctx, &domain.User{
			Username:     "admin",
			PasswordHash: "x",
			Role:         domain.RoleReadonly,
			CreatedAt:    time.Now().UTC(),
		})
		if err != ErrUserAlreadyExists {
			t.Errorf("expected ErrUserAlreadyExists, got %v", err)
		}
	})

	t.Run("find by username", func(t *testing.T) {
		found, err := repo.FindByUsername(ctx, "admin")
		if err != nil {
			t.Fatalf("FindByUsername failed: %v", err)
		}
		if found.Role != domain.RoleAdmin {
			t.Errorf("expected role %q, got %q", domain.RoleAdmin, found.Role)
		}
		if _, err := repo.FindByUsername(ctx, "nobody"); err != ErrUserNotFound {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("password hash rotation", func(t *testing.T) {
		rotated, err := bcrypt.GenerateFromPassword([]byte("new-secret"), bcrypt.DefaultCost)
		if err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}
		if err := repo.UpdatePasswordHash(ctx, user.ID, string(rotated)); err != nil {
			t.Fatalf("UpdatePasswordHash failed: %v", err)
		}
		found, _ := repo.FindByUsername(ctx, "admin")
		if bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte("new-secret")) != nil {
			t.Error("rotated hash does not verify")
		}
		if err := repo.UpdatePasswordHash(ctx, 99999, "x"); err != ErrUserNotFound {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}
