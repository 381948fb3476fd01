package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/finkeeper/internal/client/client"
	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestRemoteStrategy(t *testing.T) {
	log := logging.NewNopLogger()
	ctx := context.Background()

	tests := []struct {
		name string
		fc   *fakeClient
		want Result
	}{
		{"match", &fakeClient{AuthRet: &client.RemoteUser{ID: 2, Username: "Bob"}},
			Result{Outcome: Matched, User: models.User{Username: "Bob"}.WithRemoteID(2)}},
		{"no match", &fakeClient{}, Result{Outcome: NotMatched}},
		{"down", &fakeClient{AuthErr: errDown}, Result{Outcome: Unavailable}},
		{"unauthorized", &fakeClient{AuthErr: client.ErrUnauthorized}, Result{Outcome: Unavailable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRemoteStrategy(tt.fc, DefaultRemoteTimeout, log)
			assert.Equal(t, tt.want, s.Authenticate(ctx, "bob", "x"))
		})
	}
}

func TestRemoteStrategy_AppliesTimeout(t *testing.T) {
	var deadlineSet bool
	fc := &deadlineClient{check: func(ctx context.Context) { _, deadlineSet = ctx.Deadline() }}

	NewRemoteStrategy(fc, DefaultRemoteTimeout, logging.NewNopLogger()).Authenticate(context.Background(), "a", "b")
	assert.True(t, deadlineSet)
}

type deadlineClient struct {
	fakeClient
	check func(ctx context.Context)
}

func (d *deadlineClient) Authenticate(ctx context.Context, username, secret string) (*client.RemoteUser, error) {
	d.check(ctx)
	return nil, nil
}

func TestLocalFallbackStrategy(t *testing.T) {
	hashed, err := testHasher.Hash("pw")
	assert.NoError(t, err)

	tests := []struct {
		name    string
		profile *models.User
		user    string
		secret  string
		want    Outcome
	}{
		{"no profile", nil, "a", "pw", Unavailable},
		{"hashed match", &models.User{Username: "a", Secret: hashed}, "a", "pw", Matched},
		{"hashed mismatch", &models.User{Username: "a", Secret: hashed}, "a", "nope", NotMatched},
		{"other user", &models.User{Username: "a", Secret: hashed}, "b", "pw", NotMatched},
		{"legacy plaintext", &models.User{Username: "a", Secret: "pw"}, "a", "pw", Matched},
		{"broken hash", &models.User{Username: "a", Secret: "$argon2id$garbage"}, "a", "pw", NotMatched},
		{"zero rounds", &models.User{Username: "a", Secret: "$argon2id$v=19$m=1024,t=0,p=1$c2FsdA$a2V5"}, "a", "pw", NotMatched},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewLocalFallbackStrategy(func() *models.User { return tt.profile }, testHasher, logging.NewNopLogger())
			res := s.Authenticate(context.Background(), tt.user, tt.secret)
			assert.Equal(t, tt.want, res.Outcome)
			if tt.want == Matched {
				assert.Equal(t, *tt.profile, res.User)
			}
		})
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "matched", Matched.String())
	assert.Equal(t, "not_matched", NotMatched.String())
	assert.Equal(t, "unavailable", Unavailable.String())
}
