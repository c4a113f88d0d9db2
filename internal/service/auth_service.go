package service

import (
	"errors"
	"net/mail"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
	"volunteerhub/internal/pkg"
	"volunteerhub/internal/repository/mysql"
	"volunteerhub/internal/repository/redis"
)

// SessionStore tracks the single active access token per user.
type SessionStore interface {
	AddUserToken(userID uint64, token string) error
	GetUserToken(userID uint64) (string, error)
	ExtendUserToken(userID uint64) error
	DeleteUserToken(userID uint64) error
}

// ResetCodeStore holds emailed reset codes through their two phases:
// pending until the user proves they received it, confirmed until the
// password is actually changed.
type ResetCodeStore interface {
	PutPending(email, code string) error
	GetPending(email string) (string, error)
	Confirm(email string) error
	DeletePending(email string) error
	GetConfirmed(email string) (string, error)
	DeleteConfirmed(email string) error
}

// AuthDeps are the side-effect collaborators of AuthService. Any of them
// may be nil, which disables the corresponding behavior.
type AuthDeps struct {
	Sessions   SessionStore
	ResetCodes ResetCodeStore
	SendEmail  func(to, subject, htmlBody string) error
}

var (
	_ SessionStore   = (*redis.SessionRepository)(nil)
	_ ResetCodeStore = (*redis.ResetCodeRepository)(nil)
)

type AuthService struct {
	users *mysql.UserRepository
	deps  AuthDeps
	log   *zap.Logger
}

func NewAuthService(db *gorm.DB, log *zap.Logger, deps AuthDeps) *AuthService {
	return &AuthService{
		users: &mysql.UserRepository{DB: db},
		deps:  deps,
		log:   log,
	}
}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
}

// Register creates a volunteer account and logs it in. Elevated roles are
// never self-service; see CreatePrivileged.
func (s *AuthService) Register(input RegisterInput) (*model.User, *pkg.Pair, error) {
	user, err := s.createUser(input, model.RoleVolunteer)
	if err != nil {
		return nil, nil, err
	}

	pair, err := pkg.GeneratePair(user.ID, user.Role)
	if err != nil {
		return nil, nil, apperr.Dependency("failed to issue tokens", err)
	}
	s.rememberSession(user.ID, pair.AccessToken)

	s.log.Info("user registered", zap.Uint64("user_id", user.ID))
	return user, pair, nil
}

// CreatePrivileged creates an organizer or admin account. The caller is
// guarded at the route level; the created user still gets full validation.
func (s *AuthService) CreatePrivileged(input RegisterInput, role model.Role) (*model.User, error) {
	if role != model.RoleOrganizer && role != model.RoleAdmin {
		return nil, apperr.Validation("invalid account", "role must be ORGANIZER or ADMIN")
	}
	user, err := s.createUser(input, role)
	if err != nil {
		return nil, err
	}
	s.log.Info("privileged user created",
		zap.Uint64("user_id", user.ID),
		zap.String("role", string(role)))
	return user, nil
}

func (s *AuthService) createUser(input RegisterInput, role model.Role) (*model.User, error) {
	if details := validateRegistration(input); len(details) > 0 {
		return nil, apperr.Validation("invalid account", details...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Dependency("failed to hash password", err)
	}

	user := &model.User{
		Email:     input.Email,
		Password:  string(hash),
		Role:      role,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Location:  input.Location,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict(apperr.ReasonEmailTaken, "email is already registered")
		}
		return nil, apperr.Dependency("failed to create user", err)
	}
	return user, nil
}

func validateRegistration(input RegisterInput) []string {
	var details []string
	if _, err := mail.ParseAddress(input.Email); err != nil || len(input.Email) > 64 {
		details = append(details, "email must be a valid address")
	}
	details = append(details, validatePassword(input.Password)...)
	if n := len([]rune(input.FirstName)); n < 1 || n > 50 {
		details = append(details, "first name must be 1-50 characters")
	}
	if n := len([]rune(input.LastName)); n < 1 || n > 50 {
		details = append(details, "last name must be 1-50 characters")
	}
	if len(input.Phone) > 20 {
		details = append(details, "phone must be at most 20 characters")
	}
	if len([]rune(input.Location)) > 255 {
		details = append(details, "location must be at most 255 characters")
	}
	return details
}

func validatePassword(pw string) []string {
	var details []string
	if n := len(pw); n < 8 || n > 72 {
		details = append(details, "password must be 8-72 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		details = append(details, "password must contain upper case, lower case and a digit")
	}
	return details
}

func (s *AuthService) Login(email, password string) (*model.User, *pkg.Pair, error) {
	user, err := s.users.FindByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, nil, apperr.Dependency("failed to load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, apperr.Unauthenticated("invalid email or password")
	}

	pair, err := pkg.GeneratePair(user.ID, user.Role)
	if err != nil {
		return nil, nil, apperr.Dependency("failed to issue tokens", err)
	}
	s.rememberSession(user.ID, pair.AccessToken)

	s.log.Info("user logged in", zap.Uint64("user_id", user.ID))
	return user, pair, nil
}

func (s *AuthService) Logout(userID uint64) error {
	if s.deps.Sessions == nil {
		return nil
	}
	if err := s.deps.Sessions.DeleteUserToken(userID); err != nil {
		return apperr.Dependency("failed to end session", err)
	}
	return nil
}

// RefreshPair rotates a refresh token into a fresh token pair. The account
// must still exist; deleted users cannot mint new tokens.
func (s *AuthService) RefreshPair(refreshToken string) (*pkg.Pair, error) {
	pair, err := pkg.Refresh(refreshToken)
	switch {
	case err == nil:
	case errors.Is(err, pkg.ErrRefreshExpired):
		return nil, apperr.Unauthenticated("refresh token expired")
	default:
		return nil, apperr.Unauthenticated("refresh token invalid")
	}

	claims, err := pkg.ParseAccess(pair.AccessToken)
	if err != nil {
		return nil, apperr.Dependency("failed to issue tokens", err)
	}
	if _, err := s.users.FindByID(claims.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Valid token, deleted account: the identity is gone, which is
			// not the same as failing to authenticate.
			return nil, apperr.NotFound("account no longer exists")
		}
		return nil, apperr.Dependency("failed to load user", err)
	}
	s.rememberSession(claims.UserID, pair.AccessToken)
	return pair, nil
}

func (s *AuthService) Profile(userID uint64) (*model.User, error) {
	user, err := s.users.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to load user", err)
	}
	return user, nil
}

type ProfileUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Location  *string `json:"location"`
}

func (s *AuthService) UpdateProfile(userID uint64, update ProfileUpdate) (*model.User, error) {
	fields := map[string]any{}
	var details []string
	if update.FirstName != nil {
		if n := len([]rune(*update.FirstName)); n < 1 || n > 50 {
			details = append(details, "first name must be 1-50 characters")
		}
		fields["first_name"] = *update.FirstName
	}
	if update.LastName != nil {
		if n := len([]rune(*update.LastName)); n < 1 || n > 50 {
			details = append(details, "last name must be 1-50 characters")
		}
		fields["last_name"] = *update.LastName
	}
	if update.Phone != nil {
		if len(*update.Phone) > 20 {
			details = append(details, "phone must be at most 20 characters")
		}
		fields["phone"] = *update.Phone
	}
	if update.Location != nil {
		if len([]rune(*update.Location)) > 255 {
			details = append(details, "location must be at most 255 characters")
		}
		fields["location"] = *update.Location
	}
	if len(details) > 0 {
		return nil, apperr.Validation("invalid profile", details...)
	}
	if len(fields) == 0 {
		return s.Profile(userID)
	}

	if err := s.users.UpdateProfile(userID, fields); err != nil {
		return nil, apperr.Dependency("failed to update profile", err)
	}
	return s.Profile(userID)
}

func (s *AuthService) ChangePassword(userID uint64, current, next string) error {
	if details := validatePassword(next); len(details) > 0 {
		return apperr.Validation("invalid password", details...)
	}

	user, err := s.users.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return apperr.Dependency("failed to load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return apperr.Unauthenticated("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Dependency("failed to hash password", err)
	}
	if err := s.users.UpdatePassword(user, string(hash)); err != nil {
		return apperr.Dependency("failed to update password", err)
	}

	// Force a fresh login everywhere.
	if s.deps.Sessions != nil {
		_ = s.deps.Sessions.DeleteUserToken(userID)
	}
	s.log.Info("password changed", zap.Uint64("user_id", userID))
	return nil
}

// RequestPasswordReset emails a short-lived numeric code. Unknown emails
// still return success so the endpoint does not leak which addresses exist.
func (s *AuthService) RequestPasswordReset(email string) error {
	if s.deps.ResetCodes == nil || s.deps.SendEmail == nil {
		return apperr.Dependency("password reset is not configured", nil)
	}

	if _, err := s.users.FindByEmail(email); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Info("reset requested for unknown email")
			return nil
		}
		return apperr.Dependency("failed to load user", err)
	}

	code, err := pkg.NewResetCode()
	if err != nil {
		return apperr.Dependency("failed to generate code", err)
	}
	if err := s.deps.ResetCodes.PutPending(email, code); err != nil {
		return apperr.Dependency("failed to store code", err)
	}
	if err := s.deps.SendEmail(email, "Your password reset code",
		pkg.ResetCodeHTML(code, redis.DefaultResetCodeTTL)); err != nil {
		// The user never saw this code; a later request starts clean.
		_ = s.deps.ResetCodes.DeletePending(email)
		return apperr.Dependency("failed to send email", err)
	}
	return nil
}

// VerifyResetCode promotes a correctly echoed pending code to confirmed.
func (s *AuthService) VerifyResetCode(email, code string) error {
	if s.deps.ResetCodes == nil {
		return apperr.Dependency("password reset is not configured", nil)
	}
	pending, err := s.deps.ResetCodes.GetPending(email)
	if err != nil || pending != code {
		return apperr.Unauthenticated("reset code is invalid or expired")
	}
	if err := s.deps.ResetCodes.Confirm(email); err != nil {
		return apperr.Dependency("failed to confirm code", err)
	}
	return nil
}

// ResetPassword finishes the flow: the confirmed code must be echoed one
// more time along with the new password.
func (s *AuthService) ResetPassword(email, code, newPassword string) error {
	if s.deps.ResetCodes == nil {
		return apperr.Dependency("password reset is not configured", nil)
	}
	if details := validatePassword(newPassword); len(details) > 0 {
		return apperr.Validation("invalid password", details...)
	}

	confirmed, err := s.deps.ResetCodes.GetConfirmed(email)
	if err != nil || confirmed != code {
		return apperr.Unauthenticated("reset code is invalid or expired")
	}

	user, err := s.users.FindByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Unauthenticated("reset code is invalid or expired")
	}
	if err != nil {
		return apperr.Dependency("failed to load user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Dependency("failed to hash password", err)
	}
	if err := s.users.UpdatePassword(user, string(hash)); err != nil {
		return apperr.Dependency("failed to update password", err)
	}

	_ = s.deps.ResetCodes.DeleteConfirmed(email)
	if s.deps.Sessions != nil {
		_ = s.deps.Sessions.DeleteUserToken(user.ID)
	}
	s.log.Info("password reset", zap.Uint64("user_id", user.ID))
	return nil
}

// rememberSession is best effort: when the session store is down login
// still succeeds, the middleware just loses its revocation cross-check.
func (s *AuthService) rememberSession(userID uint64, token string) {
	if s.deps.Sessions == nil {
		return
	}
	if err := s.deps.Sessions.AddUserToken(userID, token); err != nil {
		s.log.Warn("failed to store session token",
			zap.Uint64("user_id", userID), zap.Error(err))
	}
}
