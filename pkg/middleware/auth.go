package middleware

import (
	"errors"
	"net/http"
	"strings"

	"homestay-booking/internal/data/entity"
	"homestay-booking/internal/data/repository"
	"homestay-booking/pkg/clock"
	"homestay-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	errMissingToken = errors.New("missing authorization token")
	errTokenFormat  = errors.New("invalid token format. Use: Bearer <token>")
	errNoSession    = errors.New("invalid or expired session")
)

// Authenticator turns a bearer session token into an entity.Actor.
type Authenticator struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	clock    clock.Clock
	log      *zap.Logger
}

func NewAuthenticator(sessions repository.SessionRepository, users repository.UserRepository, c clock.Clock, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		sessions: sessions,
		users:    users,
		clock:    c,
		log:      logger.With(zap.String("middleware", "auth")),
	}
}

// AuthSession rejects requests without a valid session.
func (a *Authenticator) AuthSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, token, err := a.resolve(r)
		if err != nil {
			a.reject(w, err)
			return
		}

		ctx := utils.SetActorContext(r.Context(), actor)
		ctx = utils.SetTokenContext(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth lets anonymous callers through as guests. A token that is
// present but invalid is still rejected.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, token, err := a.resolve(r)
		switch {
		case errors.Is(err, errMissingToken):
			next.ServeHTTP(w, r.WithContext(utils.SetActorContext(r.Context(), entity.GuestActor{})))
			return
		case err != nil:
			a.reject(w, err)
			return
		}

		ctx := utils.SetActorContext(r.Context(), actor)
		ctx = utils.SetTokenContext(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly requires an owner or admin. Must run after AuthSession.
func AdminOnly(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch actor := utils.GetActorFromContext(r.Context()).(type) {
			case entity.AdminActor:
				next.ServeHTTP(w, r)
			case entity.RegisteredUserActor:
				logger.Warn("Admin check: non-admin access attempt",
					zap.String("user_id", actor.UserID.String()),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Owner or admin access required")
			default:
				utils.ResponseUnauthorized(w, "Authentication required")
			}
		})
	}
}

func (a *Authenticator) resolve(r *http.Request) (entity.Actor, string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, "", errMissingToken
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, "", errTokenFormat
	}
	token := parts[1]
	tokenID, err := uuid.Parse(token)
	if err != nil {
		return nil, "", errNoSession
	}

	// 1. Find valid session
	session, err := a.sessions.FindValidSession(r.Context(), tokenID, a.clock.Now())
	if err != nil {
		a.log.Error("Failed to validate session", zap.Error(err))
		return nil, "", err
	}
	if session == nil {
		a.log.Warn("Invalid or expired session", zap.String("path", r.URL.Path))
		return nil, "", errNoSession
	}

	// 2. Load the account behind it
	user, err := a.users.FindByID(r.Context(), session.UserID)
	if err != nil {
		a.log.Error("Failed to load session user", zap.Error(err), zap.String("user_id", session.UserID.String()))
		return nil, "", err
	}
	if user == nil || !user.IsActive {
		a.log.Warn("Session user missing or inactive", zap.String("user_id", session.UserID.String()))
		return nil, "", errNoSession
	}

	return entity.ActorFor(user), token, nil
}

func (a *Authenticator) reject(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errMissingToken):
		utils.ResponseUnauthorized(w, "Missing authorization token")
	case errors.Is(err, errTokenFormat):
		utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
	case errors.Is(err, errNoSession):
		utils.ResponseUnauthorized(w, "Invalid or expired session")
	default:
		utils.ResponseInternalError(w, "Internal server error")
	}
}
