package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-starwars-api/internal/config"
	"github.com/pribylovaa/go-starwars-api/internal/models"
	"github.com/stretchr/testify/require"
)

func testKeys() Keys {
	return KeysFrom(config.AuthConfig{
		AccessTokenSecret:  "access-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenSecret: "refresh-secret",
		RefreshTokenTTL:    7 * 24 * time.Hour,
	})
}

func testPayload() models.TokenPayload {
	return models.TokenPayload{
		SubjectID: uuid.New(),
		Email:     "a@b.com",
		Role:      models.RoleAdmin,
	}
}

func newTestSigner(opts ...Option) *Signer {
	return NewSigner("starwars-api", []string{"starwars-api"}, opts...)
}

func TestKeysFrom(t *testing.T) {
	t.Parallel()

	k := testKeys()
	require.Equal(t, models.TokenAccess, k.Access.Kind)
	require.Equal(t, models.TokenRefresh, k.Refresh.Kind)
	require.Equal(t, "access-secret", k.Access.Secret)
	require.Equal(t, 7*24*time.Hour, k.Refresh.TTL)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestSigner()
	keys := testKeys()

	for _, key := range []Key{keys.Access, keys.Refresh} {
		p := testPayload()

		tok, exp, err := s.Issue(p, key)
		require.NoError(t, err)
		require.NotEmpty(t, tok)
		require.WithinDuration(t, time.Now().Add(key.TTL), exp, 2*time.Second)

		got, err := s.Verify(tok, key)
		require.NoError(t, err)
		require.Equal(t, p, got)
	}
}

func TestIssue_UniqueJTI(t *testing.T) {
	t.Parallel()

	s := newTestSigner()
	p := testPayload()

	a, _, err := s.Issue(p, testKeys().Access)
	require.NoError(t, err)
	b, _, err := s.Issue(p, testKeys().Access)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestIssue_SigningErrors(t *testing.T) {
	t.Parallel()

	s := newTestSigner()
	p := testPayload()

	_, _, err := s.Issue(p, Key{Kind: models.TokenAccess, TTL: time.Minute})
	require.ErrorIs(t, err, ErrSigning)

	_, _, err = s.Issue(p, Key{Kind: models.TokenAccess, Secret: "x"})
	require.ErrorIs(t, err, ErrSigning)

	_, _, err = s.Issue(p, Key{Kind: models.TokenAccess, Secret: "x", TTL: -time.Second})
	require.ErrorIs(t, err, ErrSigning)
}

func TestVerify_Expired_IsIdempotent(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-2 * time.Hour)
	issuer := newTestSigner(WithClock(func() time.Time { return past }))
	verifier := newTestSigner()

	key := testKeys().Access
	tok, _, err := issuer.Issue(testPayload(), key)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := verifier.Verify(tok, key)
		require.ErrorIs(t, err, ErrExpired)
	}
}

func TestVerify_ExpiryWithinLeeway_Accepted(t *testing.T) {
	t.Parallel()

	now := time.Now()
	issuer := newTestSigner(WithClock(func() time.Time { return now.Add(-time.Minute) }))

	key := Key{Kind: models.TokenAccess, Secret: "s", TTL: time.Minute}
	tok, _, err := issuer.Issue(testPayload(), key)
	require.NoError(t, err)

	lenient := newTestSigner(WithClock(func() time.Time { return now }), WithLeeway(10*time.Second))
	_, err = lenient.Verify(tok, key)
	require.NoError(t, err)

	strict := newTestSigner(WithClock(func() time.Time { return now.Add(time.Minute) }), WithLeeway(0))
	_, err = strict.Verify(tok, key)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_CrossSecret_FailsInvalid(t *testing.T) {
	t.Parallel()

	s := newTestSigner()
	keys := testKeys()
	p := testPayload()

	refresh, _, err := s.Issue(p, keys.Refresh)
	require.NoError(t, err)
	_, err = s.Verify(refresh, keys.Access)
	require.ErrorIs(t, err, ErrInvalid)

	access, _, err := s.Issue(p, keys.Access)
	require.NoError(t, err)
	_, err = s.Verify(access, keys.Refresh)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_ExpiredWithWrongSecret_IsInvalid(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-48 * time.Hour)
	issuer := newTestSigner(WithClock(func() time.Time { return past }))
	keys := testKeys()

	tok, _, err := issuer.Issue(testPayload(), keys.Access)
	require.NoError(t, err)

	_, err = newTestSigner().Verify(tok, keys.Refresh)
	require.ErrorIs(t, err, ErrInvalid)
	require.NotErrorIs(t, err, ErrExpired)
}

func TestVerify_KindMismatch_SameSecret(t *testing.T) {
	t.Parallel()

	s := newTestSigner()
	access := Key{Kind: models.TokenAccess, Secret: "shared", TTL: time.Minute}
	refresh := Key{Kind: models.TokenRefresh, Secret: "shared", TTL: time.Hour}

	tok, _, err := s.Issue(testPayload(), access)
	require.NoError(t, err)

	_, err = s.Verify(tok, refresh)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_IssuerAudienceMismatch(t *testing.T) {
	t.Parallel()

	key := testKeys().Access

	tok, _, err := NewSigner("other", []string{"starwars-api"}).Issue(testPayload(), key)
	require.NoError(t, err)
	_, err = newTestSigner().Verify(tok, key)
	require.ErrorIs(t, err, ErrInvalid)

	tok, _, err = NewSigner("starwars-api", []string{"someone-else"}).Issue(testPayload(), key)
	require.NoError(t, err)
	_, err = newTestSigner().Verify(tok, key)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	s := newTestSigner()
	key := testKeys().Access

	tok, _, err := s.Issue(testPayload(), key)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	for _, bad := range []string{"", "garbage", "a.b.c", tampered} {
		_, err := s.Verify(bad, key)
		require.ErrorIs(t, err, ErrInvalid, bad)
	}

	_, err = s.Verify(tok, Key{Kind: models.TokenAccess})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	c := claims{
		UserID: uuid.NewString(),
		Role:   "ADMIN",
		Kind:   models.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "starwars-api",
			Audience:  jwt.ClaimStrings{"starwars-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	c.Subject = c.UserID

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = newTestSigner().Verify(none, testKeys().Access)
	require.ErrorIs(t, err, ErrInvalid)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, c).SignedString([]byte("access-secret"))
	require.NoError(t, err)
	_, err = newTestSigner().Verify(hs512, testKeys().Access)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_UnknownRoleClaim(t *testing.T) {
	t.Parallel()

	uid := uuid.NewString()
	c := claims{
		UserID: uid,
		Role:   "SITH",
		Kind:   models.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "starwars-api",
			Subject:   uid,
			Audience:  jwt.ClaimStrings{"starwars-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = newTestSigner().Verify(tok, testKeys().Access)
	require.ErrorIs(t, err, ErrInvalid)
}
