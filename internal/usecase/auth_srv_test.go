package usecase

import (
	"context"
	"testing"
	"time"

	"homestay-booking/internal/dto/request"
	"homestay-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hash, err := utils.HashPassword("s3cret-pass")
	require.NoError(t, err)
	f.customer.PasswordHash = hash
	f.store.PutUser(f.customer)

	inactive := newUser("inactive", f.customer.Role)
	inactive.PasswordHash = hash
	inactive.IsActive = false
	f.store.PutUser(inactive)

	_, err = f.svc.Auth.Login(ctx, &request.LoginRequest{Email: f.customer.Email, Password: "wrong-pass"}, "", "")
	requireKind(t, err, utils.KindUnauthorized)

	_, err = f.svc.Auth.Login(ctx, &request.LoginRequest{Email: "nobody@example.test", Password: "s3cret-pass"}, "", "")
	requireKind(t, err, utils.KindUnauthorized)

	_, err = f.svc.Auth.Login(ctx, &request.LoginRequest{Email: inactive.Email, Password: "s3cret-pass"}, "", "")
	requireKind(t, err, utils.KindForbidden)

	_, err = f.svc.Auth.Login(ctx, &request.LoginRequest{Email: "not-an-email", Password: "s3cret-pass"}, "", "")
	requireKind(t, err, utils.KindInvalidInput)

	resp, err := f.svc.Auth.Login(ctx, &request.LoginRequest{Email: f.customer.Email, Password: "s3cret-pass"}, "go-test", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, f.customer.ID.String(), resp.UserID)
	assert.NotEmpty(t, resp.Token)

	token := uuid.MustParse(resp.Token)
	session, err := f.store.Repository().Session.FindValidSession(ctx, token, f.clock.Now())
	require.NoError(t, err)
	require.NotNil(t, session)
	require.NotNil(t, session.UserAgent)
	assert.Equal(t, "go-test", *session.UserAgent)

	require.NoError(t, f.svc.Auth.Logout(ctx, resp.Token))

	session, err = f.store.Repository().Session.FindValidSession(ctx, token, f.clock.Now())
	require.NoError(t, err)
	assert.Nil(t, session)

	requireKind(t, f.svc.Auth.Logout(ctx, resp.Token), utils.KindUnauthorized)
	requireKind(t, f.svc.Auth.Logout(ctx, "garbage"), utils.KindInvalidInput)

	again, err := f.svc.Auth.Login(ctx, &request.LoginRequest{Email: f.customer.Email, Password: "s3cret-pass"}, "", "")
	require.NoError(t, err)
	f.clock.Advance(25 * time.Hour)
	session, err = f.store.Repository().Session.FindValidSession(ctx, uuid.MustParse(again.Token), f.clock.Now())
	require.NoError(t, err)
	assert.Nil(t, session, "expired by the service clock")
}
