package service

import (
	"context"
	"errors"
	"testing"

	"shoptalk/internal/domain"
	"shoptalk/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func newTestUserService(repo repository.UserRepository) UserService {
	return NewUserService(repo, "test-secret", 60)
}

func TestSignup_HashesPassword(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestUserService(repo)

	user, err := svc.Signup(context.Background(), "Ahmed", "ahmed@example.com", "secret-pass", "Ahmed General Store")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if user.PasswordHash == "secret-pass" {
		t.Error("password stored as plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-pass")); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
	if user.Role != "shopkeeper" {
		t.Errorf("role = %q, want %q", user.Role, "shopkeeper")
	}
	if !user.Active {
		t.Error("new account should be active")
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc := newTestUserService(newMockUserRepository())
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "Ahmed", "ahmed@example.com", "secret-pass", "Shop"); err != nil {
		t.Fatalf("first Signup() error = %v", err)
	}
	if _, err := svc.Signup(ctx, "Other", "ahmed@example.com", "other-pass", "Other Shop"); !errors.Is(err, repository.ErrUserAlreadyExists) {
		t.Errorf("second Signup() error = %v, want ErrUserAlreadyExists", err)
	}
}

func TestLogin_IssuesValidToken(t *testing.T) {
	svc := newTestUserService(newMockUserRepository())
	ctx := context.Background()

	created, err := svc.Signup(ctx, "Ahmed", "ahmed@example.com", "secret-pass", "Shop")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	token, user, err := svc.Login(ctx, "ahmed@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("user ID = %v, want %v", user.ID, created.ID)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != created.ID {
		t.Errorf("claims user ID = %v, want %v", claims.UserID, created.ID)
	}
	if claims.Role != "shopkeeper" {
		t.Errorf("claims role = %q, want %q", claims.Role, "shopkeeper")
	}
}

func TestLogin_Failures(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestUserService(repo)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "Ahmed", "ahmed@example.com", "secret-pass", "Shop"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if _, _, err := svc.Login(ctx, "ahmed@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "secret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", err)
	}

	repo.users["ahmed@example.com"].Active = false
	if _, _, err := svc.Login(ctx, "ahmed@example.com", "secret-pass"); !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("disabled account error = %v, want ErrAccountDisabled", err)
	}
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	svc := newTestUserService(newMockUserRepository())

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.ValidateToken(token); err == nil {
			t.Errorf("ValidateToken(%q) error = nil, want an error", token)
		}
	}
}

func TestProperty_PasswordsAlwaysHashed(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("stored hash never equals the plaintext and always verifies", prop.ForAll(
		func(password string) bool {
			svc := newTestUserService(newMockUserRepository())
			user, err := svc.Signup(context.Background(), "Name", "user@example.com", password, "Shop")
			if err != nil {
				return true
			}
			if user.PasswordHash == password {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
