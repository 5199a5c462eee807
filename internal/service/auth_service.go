package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/backstack/internal/apperr"
	"github.com/mmynk/backstack/internal/auth"
	"github.com/mmynk/backstack/internal/middleware"
	"github.com/mmynk/backstack/internal/models"
)

// AuthServiceName is the fully-qualified name of the AuthService.
const AuthServiceName = "backstack.v1.AuthService"

// AuthService procedure paths.
const (
	AuthServiceRegisterProcedure       = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure          = "/" + AuthServiceName + "/Login"
	AuthServiceGetCurrentUserProcedure = "/" + AuthServiceName + "/GetCurrentUser"
)

// AuthService implements account registration and login.
type AuthService struct {
	authenticator auth.Authenticator
	users         auth.UserStorage
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, users auth.UserStorage, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		users:         users,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// NewAuthServiceHandler builds an HTTP handler serving svc and returns the
// path on which to mount it.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(AuthServiceRegisterProcedure, connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...))
	mux.Handle(AuthServiceLoginProcedure, connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...))
	mux.Handle(AuthServiceGetCurrentUserProcedure, connect.NewUnaryHandler(AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts...))
	return "/" + AuthServiceName + "/", mux
}

// Register creates a new user account.
// Request: {email, password, password_confirm, display_name}. Response: {user, token}.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()
	email := fields["email"].GetStringValue()
	password := fields["password"].GetStringValue()
	confirm := fields["password_confirm"].GetStringValue()
	displayName := fields["display_name"].GetStringValue()

	s.logger.Info("Register request", "email", email)

	// Validate input
	missing := map[string]apperr.Code{}
	if email == "" {
		missing["email"] = apperr.CodeRequiredField
	}
	if password == "" {
		missing["password"] = apperr.CodeRequiredField
	}
	if len(missing) > 0 {
		return nil, connectError(apperr.Validation(missing))
	}
	if confirm != password {
		return nil, connectError(apperr.Field("password_confirm", apperr.CodePasswordMismatch))
	}

	user, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		s.logger.Warn("Registration failed", "email", email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return nil, connectError(apperr.Field("email", apperr.CodeDuplicateUniqueValue))
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, connectError(apperr.Field("password", apperr.CodePasswordWeak))
		}
		return nil, connectError(err)
	}

	resp, err := s.session(user)
	if err != nil {
		return nil, connectError(err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.GetEmail())
	return connect.NewResponse(resp), nil
}

// Login authenticates a user and returns a JWT token.
// Request: {email, password}. Response: {user, token}.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()
	email := fields["email"].GetStringValue()
	password := fields["password"].GetStringValue()

	s.logger.Info("Login request", "email", email)

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, connectError(apperr.Field(apperr.GlobalField, apperr.CodeAuthEmailPasswordInvalid))
		}
		return nil, connectError(err)
	}

	resp, err := s.session(user)
	if err != nil {
		return nil, connectError(err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.GetEmail())
	return connect.NewResponse(resp), nil
}

// GetCurrentUser returns the authenticated user's account.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	userID := middleware.GetUserID(ctx)
	if userID == 0 {
		return nil, connectError(apperr.Unauthenticated())
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, connectError(err)
	}
	if user == nil {
		return nil, connectError(apperr.NotFound())
	}

	msg, err := toStruct(map[string]any{"user": user})
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(msg), nil
}

// session issues a token for user.
func (s *AuthService) session(user *models.User) (*structpb.Struct, error) {
	token, err := s.jwtManager.Generate(auth.PrincipalOf(user))
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}
	return toStruct(map[string]any{"user": user, "token": token})
}
