package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/elbarril/appalapapa/internal/audit"
	"github.com/elbarril/appalapapa/internal/users"
	pkgAuth "github.com/elbarril/appalapapa/pkg/auth"
	"github.com/elbarril/appalapapa/pkg/auth/session"
	"github.com/elbarril/appalapapa/pkg/config"
	"github.com/elbarril/appalapapa/pkg/db"
	"github.com/elbarril/appalapapa/pkg/db/models"
	"github.com/elbarril/appalapapa/pkg/enums"
	pkgerrors "github.com/elbarril/appalapapa/pkg/errors"
	"github.com/elbarril/appalapapa/pkg/security"
)

const auditTable = "users"

// The legacy reset flow accepts any answer containing the practice's
// anniversary date fragment. Kept for parity until an email-based reset
// replaces it.
const legacyAnswerFragment = "-08-17"

const (
	msgCredentialsRequired = "Email y contraseña son requeridos."
	msgBadCredentials      = "Email o contraseña incorrecto."
	msgAccountDisabled     = "Esta cuenta está desactivada."
	msgEmailNotAllowed     = "Este email no está autorizado para registrarse."
	msgEmailTaken          = "Este email ya está registrado."
	msgWrongCurrentPass    = "La contraseña actual es incorrecta."
	msgWrongSecurityAnswer = "La respuesta a la pregunta de seguridad es incorrecta."
	msgNoAccountForEmail   = "No existe una cuenta registrada con ese email."
)

// Service defines the authentication behavior needed by the controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*UserSummary, error)
	ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	Logout(ctx context.Context, userID int64, accessID string, meta audit.Actor) error
	Refresh(ctx context.Context, accessToken, refreshToken string) (*LoginResponse, error)
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type recorder interface {
	Record(ctx context.Context, input audit.RecordInput) (*models.AuditLog, error)
}

type service struct {
	users       userRepository
	session     sessionManager
	audit       recorder
	jwtCfg      config.JWTConfig
	authCfg     config.AuthConfig
	passwordCfg config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	Recorder       recorder
	JWTConfig      config.JWTConfig
	AuthConfig     config.AuthConfig
	PasswordConfig config.PasswordConfig
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		audit:       params.Recorder,
		jwtCfg:      params.JWTConfig,
		authCfg:     params.AuthConfig,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgCredentialsRequired)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			// Unknown identity: audited with a null user id.
			s.recordLoginFailed(ctx, req.Meta, nil, map[string]any{"email": email})
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgBadCredentials)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgAccountDisabled)
	}
	if user.IsDeleted() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgBadCredentials)
	}

	valid, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		s.recordLoginFailed(ctx, req.Meta, &user.ID, nil)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgBadCredentials)
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	meta := req.Meta
	meta.UserID = &user.ID
	if _, err := s.audit.Record(ctx, audit.RecordInput{
		Actor:     meta,
		Action:    enums.AuditActionLogin,
		TableName: auditTable,
		RecordID:  &user.ID,
	}); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user, now)
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*UserSummary, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgCredentialsRequired)
	}

	if !s.authCfg.EmailAllowed(email) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgEmailNotAllowed)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, msgEmailTaken)
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	role := req.Role
	if role == "" {
		role = enums.UserRoleTherapist
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, msgEmailTaken)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	if _, err := s.audit.Record(ctx, audit.RecordInput{
		Actor:     req.Meta,
		Action:    enums.AuditActionCreate,
		TableName: auditTable,
		RecordID:  &user.ID,
		NewValues: map[string]any{"email": email, "role": role.String()},
	}); err != nil {
		return nil, err
	}

	summary := FromModel(user)
	return &summary, nil
}

func (s *service) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, msgBadCredentials)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeValidation, msgWrongCurrentPass)
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}

	meta := req.Meta
	meta.UserID = &user.ID
	_, err = s.audit.Record(ctx, audit.RecordInput{
		Actor:     meta,
		Action:    enums.AuditActionUpdate,
		TableName: auditTable,
		RecordID:  &user.ID,
		OldValues: map[string]any{"password_hash": "REDACTED"},
		NewValues: map[string]any{"password_hash": "REDACTED"},
	})
	return err
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if !strings.Contains(req.SecurityAnswer, legacyAnswerFragment) {
		return pkgerrors.New(pkgerrors.CodeValidation, msgWrongSecurityAnswer)
	}

	user, err := s.users.FindByEmail(ctx, users.NormalizeEmail(req.Email))
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, msgNoAccountForEmail)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}

	meta := req.Meta
	meta.UserID = &user.ID
	_, err = s.audit.Record(ctx, audit.RecordInput{
		Actor:     meta,
		Action:    enums.AuditActionPasswordReset,
		TableName: auditTable,
		RecordID:  &user.ID,
		OldValues: map[string]any{"password_hash": "REDACTED"},
		NewValues: map[string]any{"password_hash": "REDACTED"},
	})
	return err
}

func (s *service) Logout(ctx context.Context, userID int64, accessID string, meta audit.Actor) error {
	if accessID != "" {
		if err := s.session.Revoke(ctx, accessID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
		}
	}

	meta.UserID = &userID
	_, err := s.audit.Record(ctx, audit.RecordInput{
		Actor:     meta,
		Action:    enums.AuditActionLogout,
		TableName: auditTable,
		RecordID:  &userID,
	})
	return err
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*LoginResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgBadCredentials)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgBadCredentials)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive || user.IsDeleted() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgAccountDisabled)
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgBadCredentials)
	}

	accessTokenStr, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken:  accessTokenStr,
		RefreshToken: newRefreshToken,
		User:         FromModel(user),
	}, nil
}

func (s *service) issueTokens(ctx context.Context, user *models.User, now time.Time) (*LoginResponse, error) {
	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         FromModel(user),
	}, nil
}

func (s *service) recordLoginFailed(ctx context.Context, meta audit.Actor, recordID *int64, values map[string]any) {
	// Failed-attempt audit writes are best-effort: the caller already has
	// a denial to return, and a second error would mask it.
	_, _ = s.audit.Record(ctx, audit.RecordInput{
		Actor:     audit.Actor{IPAddress: meta.IPAddress, UserAgent: meta.UserAgent},
		Action:    enums.AuditActionLoginFailed,
		TableName: auditTable,
		RecordID:  recordID,
		NewValues: values,
	})
}
