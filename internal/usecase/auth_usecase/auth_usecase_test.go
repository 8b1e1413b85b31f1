package auth

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// =====================
// Mock: UserRepository
// =====================

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	args := m.Called(ctx, tokenHash, now)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, page int, limit int) ([]model.User, int64, error) {
	panic("not used in auth tests")
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	panic("not used in auth tests")
}

// =====================
// Fakes
// =====================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// bcryptは遅いのでテストでは素通し
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (plainHasher) Verify(plain, hashed string) bool  { return hashed == "hashed:"+plain }

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func validRegisterInput() RegisterUserInput {
	return RegisterUserInput{
		FirstName:    "Ana",
		LastName:     "Lopez",
		DNI:          "30111222",
		Email:        "  Ana@Example.com ",
		Password:     "s3cure-pass",
		Age:          30,
		State:        "Buenos Aires",
		City:         "La Plata",
		Street:       "Calle 7",
		StreetNumber: "123",
		PostalCode:   "1900",
	}
}

func activeUser() *model.User {
	return &model.User{ID: 7, Email: "ana@example.com", PasswordHash: "hashed:s3cure-pass", Role: model.RoleClient, IsActive: true}
}

// =====================
// Register
// =====================

func TestRegister_Success(t *testing.T) {
	users := new(MockUserRepository)
	uc := NewRegisterUserUsecase(users, plainHasher{}, fixedClock{testNow})

	users.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, repository.ErrNotFound).Once()
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "ana@example.com" && u.PasswordHash == "hashed:s3cure-pass" &&
			u.Role == model.RoleClient && u.IsActive
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 42
	}).Return(nil).Once()

	out, err := uc.Execute(context.Background(), validRegisterInput())
	require.NoError(t, err)
	assert.Equal(t, int64(42), out.User.ID)
	assert.Equal(t, testNow, out.User.CreatedAt)
	users.AssertExpectations(t)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *RegisterUserInput)
		msg    string
	}{
		{"blank city", func(in *RegisterUserInput) { in.City = " " }, "all fields are required"},
		{"bad email", func(in *RegisterUserInput) { in.Email = "nope" }, "invalid email format"},
		{"under 18", func(in *RegisterUserInput) { in.Age = 17 }, "must be at least 18 years old"},
		{"short password", func(in *RegisterUserInput) { in.Password = "short" }, "password must be at least 8 characters"},
		{"weak password", func(in *RegisterUserInput) { in.Password = "Password123" }, "password is too common"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			uc := NewRegisterUserUsecase(users, plainHasher{}, fixedClock{testNow})
			in := validRegisterInput()
			tt.mutate(&in)

			_, err := uc.Execute(context.Background(), in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.msg, ve.Message)
			users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := new(MockUserRepository)
	uc := NewRegisterUserUsecase(users, plainHasher{}, fixedClock{testNow})
	users.On("FindByEmail", mock.Anything, "ana@example.com").Return(activeUser(), nil).Once()

	_, err := uc.Execute(context.Background(), validRegisterInput())
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegister_DuplicateDNIFromDB(t *testing.T) {
	users := new(MockUserRepository)
	uc := NewRegisterUserUsecase(users, plainHasher{}, fixedClock{testNow})
	users.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, repository.ErrNotFound).Once()
	users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate).Once()

	_, err := uc.Execute(context.Background(), validRegisterInput())
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestBuildUser_Role(t *testing.T) {
	u, err := BuildUser(validRegisterInput(), model.RoleAdmin, plainHasher{})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)

	_, err = BuildUser(validRegisterInput(), model.Role("root"), plainHasher{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "invalid role", ve.Message)
}

// =====================
// Login
// =====================

func newLogin(users *MockUserRepository) (*LoginUsecase, *JWTManager) {
	jm := NewJWTManager("test-secret", time.Hour)
	return NewLoginUsecase(users, plainHasher{}, jm, fixedClock{testNow}), jm
}

func TestLogin_Success(t *testing.T) {
	users := new(MockUserRepository)
	uc, jm := newLogin(users)

	users.On("FindByEmail", mock.Anything, "ana@example.com").Return(activeUser(), nil).Once()
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.LastLoginAt != nil && u.LastLoginAt.Equal(testNow)
	})).Return(nil).Once()

	out, err := uc.Execute(context.Background(), LoginInput{Email: " ANA@example.com", Password: "s3cure-pass"})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour), out.ExpiresAt)
	assert.NotEmpty(t, out.Token)

	//検証は実時間で行うので、発行時刻を今にした別トークンで確認
	raw, _, err := jm.Issue(out.User, time.Now())
	require.NoError(t, err)
	claims, err := jm.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, model.RoleClient, claims.Role)
	users.AssertExpectations(t)
}

func TestLogin_Failures(t *testing.T) {
	inactive := activeUser()
	inactive.IsActive = false

	tests := []struct {
		name  string
		in    LoginInput
		found *model.User
		err   error
		want  error
	}{
		{"unknown email", LoginInput{Email: "x@example.com", Password: "s3cure-pass"}, nil, repository.ErrNotFound, ErrInvalidCredentials},
		{"wrong password", LoginInput{Email: "ana@example.com", Password: "wrong-pass"}, activeUser(), nil, ErrInvalidCredentials},
		{"inactive", LoginInput{Email: "ana@example.com", Password: "s3cure-pass"}, inactive, nil, ErrUserInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			uc, _ := newLogin(users)
			users.On("FindByEmail", mock.Anything, mock.Anything).Return(tt.found, tt.err).Once()

			_, err := uc.Execute(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
			users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}
}

func TestLogin_MissingFields(t *testing.T) {
	uc, _ := newLogin(new(MockUserRepository))

	_, err := uc.Execute(context.Background(), LoginInput{Email: "ana@example.com"})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

// =====================
// JWT
// =====================

func TestJWTManager_RejectsTampered(t *testing.T) {
	jm := NewJWTManager("test-secret", time.Hour)
	raw, _, err := jm.Issue(model.User{ID: 1, Email: "a@example.com", Role: model.RoleAdmin}, time.Now())
	require.NoError(t, err)

	_, err = NewJWTManager("other-secret", time.Hour).Parse(raw)
	assert.Error(t, err)

	expired, _, err := jm.Issue(model.User{ID: 1, Role: model.RoleAdmin}, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = jm.Parse(expired)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, Role: model.RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = jm.Parse(none)
	assert.Error(t, err)
}

func TestBcrypt_HashAndVerify(t *testing.T) {
	h := NewBcryptPasswordHasher(bcrypt.MinCost)
	hashed, err := h.Hash("s3cure-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cure-pass", hashed)

	v := NewBcryptPasswordVerifier()
	assert.True(t, v.Verify("s3cure-pass", hashed))
	assert.False(t, v.Verify("other-pass", hashed))
}

// =====================
// Password reset
// =====================

func newReset(users *MockUserRepository) *PasswordResetUsecase {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewPasswordResetUsecase(users, plainHasher{}, fixedClock{testNow}, "http://localhost:3000", log)
}

func TestPasswordReset_RoundTrip(t *testing.T) {
	users := new(MockUserRepository)
	uc := newReset(users)
	user := activeUser()

	users.On("FindByEmail", mock.Anything, "ana@example.com").Return(user, nil).Once()
	users.On("Update", mock.Anything, user).Return(nil).Twice()

	link, err := uc.RequestReset(context.Background(), "Ana@Example.com")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "http://localhost:3000/reset-password?token="))
	require.NotNil(t, user.ResetTokenHash)
	assert.Equal(t, testNow.Add(resetTokenTTL), *user.ResetTokenExpiresAt)

	u, err := url.Parse(link)
	require.NoError(t, err)
	plain := u.Query().Get("token")
	//平文は保存しない
	assert.NotEqual(t, plain, *user.ResetTokenHash)

	users.On("FindByResetTokenHash", mock.Anything, hashToken(plain), testNow).Return(user, nil).Once()
	err = uc.Reset(context.Background(), ResetPasswordInput{Token: plain, Password: "new-pass-99", ConfirmPassword: "new-pass-99"})
	require.NoError(t, err)
	assert.Equal(t, "hashed:new-pass-99", user.PasswordHash)
	assert.Nil(t, user.ResetTokenHash)
	assert.Nil(t, user.ResetTokenExpiresAt)
	users.AssertExpectations(t)
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	users := new(MockUserRepository)
	uc := newReset(users)
	users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, repository.ErrNotFound).Once()

	link, err := uc.RequestReset(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, link)
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestPasswordReset_ResetFailures(t *testing.T) {
	users := new(MockUserRepository)
	uc := newReset(users)

	err := uc.Reset(context.Background(), ResetPasswordInput{Token: "t", Password: "new-pass-99", ConfirmPassword: "other-pass-99"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "passwords do not match", ve.Message)

	users.On("FindByResetTokenHash", mock.Anything, hashToken("expired"), testNow).Return(nil, repository.ErrNotFound).Once()
	err = uc.Reset(context.Background(), ResetPasswordInput{Token: "expired", Password: "new-pass-99", ConfirmPassword: "new-pass-99"})
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	users.On("FindByResetTokenHash", mock.Anything, hashToken("broken"), testNow).Return(nil, errors.New("db down")).Once()
	err = uc.Reset(context.Background(), ResetPasswordInput{Token: "broken", Password: "new-pass-99", ConfirmPassword: "new-pass-99"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidResetToken)
}
