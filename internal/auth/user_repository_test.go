package auth

import (
	"errors"
	"testing"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := t.Context()

	user := &User{
		Name:         "Ada Lovelace",
		Email:        "  Ada@Campus.EDU ",
		PasswordHash: "hash",
		Role:         RoleFaculty,
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("Create() should assign an ID")
	}
	if user.Email != "ada@campus.edu" {
		t.Errorf("Email = %q, want normalised", user.Email)
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	byID, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Name != "Ada Lovelace" || byID.Role != RoleFaculty || byID.PasswordHash != "hash" {
		t.Errorf("GetByID() = %+v", byID)
	}
	if !byID.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", byID.CreatedAt, user.CreatedAt)
	}

	byEmail, err := repo.GetByEmail(ctx, "ADA@campus.edu")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetByEmail() ID = %q, want %q", byEmail.ID, user.ID)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := t.Context()

	if _, err := repo.GetByID(ctx, "usr-missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@x.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrUserNotFound", err)
	}
	if err := repo.Delete(ctx, "usr-missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Delete() error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	seedTestUser(t, repo, "a@x.com", RoleStudent)

	dup := &User{Email: "A@X.com", PasswordHash: "h", Role: RoleFaculty}
	if err := repo.Create(t.Context(), dup); !errors.Is(err, ErrEmailExists) {
		t.Errorf("Create() duplicate error = %v, want ErrEmailExists", err)
	}
}

func TestUserRepository_ListDeleteCount(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := t.Context()

	users, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Errorf("List() on empty store = %v, want empty slice", users)
	}

	a := seedTestUser(t, repo, "a@x.com", RoleStudent)
	seedTestUser(t, repo, "b@x.com", RoleAdmin)

	users, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("List() = %d users, want 2", len(users))
	}
	if users[0].Email != "a@x.com" {
		t.Errorf("List()[0] = %q, want creation order", users[0].Email)
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestUserRepository_RejectsUnknownRole(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	err := repo.Create(t.Context(), &User{Email: "x@x.com", PasswordHash: "h", Role: "OWNER"})
	if err == nil {
		t.Error("Create() should fail the role CHECK constraint")
	}
}

func TestUserPublic(t *testing.T) {
	u := &User{ID: "usr-1", Name: "N", Email: "e@x.com", PasswordHash: "secret", Role: RoleStudent}
	pub := u.Public()
	if pub != (PublicUser{ID: "usr-1", Name: "N", Email: "e@x.com", Role: RoleStudent}) {
		t.Errorf("Public() = %+v", pub)
	}
}
