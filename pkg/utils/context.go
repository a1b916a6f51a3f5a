package utils

import (
	"context"

	"homestay-booking/internal/data/entity"

	"github.com/google/uuid"
)

type contextKey string

const (
	ActorKey contextKey = "actor"
	TokenKey contextKey = "token"
)

// SetActorContext stores the resolved caller.
func SetActorContext(ctx context.Context, actor entity.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActorFromContext returns the caller, or a GuestActor when none was set.
func GetActorFromContext(ctx context.Context) entity.Actor {
	if actor, ok := ctx.Value(ActorKey).(entity.Actor); ok && actor != nil {
		return actor
	}
	return entity.GuestActor{}
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return entity.ActorUserID(GetActorFromContext(ctx))
}

// GetTokenFromContext mendapatkan token dari context
func GetTokenFromContext(ctx context.Context) (string, bool) {
	tokenVal := ctx.Value(TokenKey)
	if tokenVal == nil {
		return "", false
	}

	token, ok := tokenVal.(string)
	return token, ok
}

// SetTokenContext menambahkan token ke context
func SetTokenContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}
