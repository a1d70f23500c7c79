package service

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/go-starwars-api/internal/config"
	"github.com/pribylovaa/go-starwars-api/internal/models"
	"github.com/pribylovaa/go-starwars-api/internal/security"
	"github.com/pribylovaa/go-starwars-api/internal/token"
	"github.com/pribylovaa/go-starwars-api/mocks"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "unit-access-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenSecret: "unit-refresh-secret",
		RefreshTokenTTL:    7 * 24 * time.Hour,
		Issuer:             "starwars-api",
		Audience:           []string{"starwars-api"},
		StoreTimeout:       time.Second,
		BcryptCost:         bcrypt.MinCost,
	}
}

func testSigner() *token.Signer {
	cfg := testCfg()
	return token.NewSigner(cfg.Issuer, cfg.Audience)
}

func testHasher() security.BcryptHasher {
	return security.NewBcryptHasher(bcrypt.MinCost)
}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	return New(st, testHasher(), testSigner(), testCfg()), st
}

func newSvcWithSigner(t *testing.T, signer TokenSigner) (*Service, *mocks.MockStorage) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	return New(st, testHasher(), signer, testCfg()), st
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := testHasher().Hash(pw)
	require.NoError(t, err)
	return h
}

// failingSigner отказывает в подписи токенов заданного вида.
type failingSigner struct {
	*token.Signer
	failKind models.TokenKind
}

func (f failingSigner) Issue(p models.TokenPayload, key token.Key) (string, time.Time, error) {
	if key.Kind == f.failKind {
		return "", time.Time{}, token.ErrSigning
	}
	return f.Signer.Issue(p, key)
}
