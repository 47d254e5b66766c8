package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "storefront-auth"

var alice = jwtx.Subject{ID: "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", Username: "alice"}

func newIssuer(t *testing.T) *jwtx.Issuer {
	t.Helper()
	iss, err := jwtx.NewIssuer(exampleIssuer,
		jwtx.KindConfig{Secret: []byte("access-secret"), TTL: jwtx.DefaultAccessTokenTTL},
		jwtx.KindConfig{Secret: []byte("refresh-secret"), TTL: jwtx.DefaultRefreshTokenTTL},
	)
	require.NoError(t, err)
	return iss
}

func TestNewIssuerValidation(t *testing.T) {
	good := jwtx.KindConfig{Secret: []byte("a"), TTL: time.Minute}

	tests := []struct {
		name    string
		access  jwtx.KindConfig
		refresh jwtx.KindConfig
		wantErr error
	}{
		{"empty access secret", jwtx.KindConfig{TTL: time.Minute}, good, jwtx.ErrEmptySecret},
		{"empty refresh secret", good, jwtx.KindConfig{TTL: time.Minute}, jwtx.ErrEmptySecret},
		{"zero ttl", jwtx.KindConfig{Secret: []byte("b")}, good, jwtx.ErrBadTTL},
		{"shared secret", good, jwtx.KindConfig{Secret: []byte("a"), TTL: time.Hour}, jwtx.ErrSharedSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jwtx.NewIssuer(exampleIssuer, tt.access, tt.refresh)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	iss := newIssuer(t)

	for _, kind := range []jwtx.Kind{jwtx.Access, jwtx.Refresh} {
		t.Run(kind.String(), func(t *testing.T) {
			token, exp, err := iss.Issue(alice, kind, 0)
			require.NoError(t, err)
			require.Equal(t, 3, strings.Count(token, ".")+1)
			require.WithinDuration(t, time.Now().Add(iss.TTL(kind)), exp, 2*time.Second)

			claims, err := iss.Verify(token, kind)
			require.NoError(t, err)
			require.Equal(t, alice, claims.Identity())
			require.Equal(t, kind.String(), claims.Kind)
			require.Equal(t, exampleIssuer, claims.Issuer)
			require.NotEmpty(t, claims.ID)
			require.WithinDuration(t, time.Now(), claims.IssuedAtTime(), 2*time.Second)
		})
	}
}

func TestIssueCustomTTL(t *testing.T) {
	iss := newIssuer(t)

	_, exp, err := iss.Issue(alice, jwtx.Access, 2*time.Hour)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(2*time.Hour), exp, 2*time.Second)
}

func TestIssueRequiresSubject(t *testing.T) {
	iss := newIssuer(t)
	_, _, err := iss.Issue(jwtx.Subject{Username: "nobody"}, jwtx.Access, 0)
	require.Error(t, err)
}

func TestVerifyExpired(t *testing.T) {
	iss := newIssuer(t)
	start := time.Now()
	iss.Now = func() time.Time { return start }

	token, _, err := iss.Issue(alice, jwtx.Access, 0)
	require.NoError(t, err)

	iss.Now = func() time.Time { return start.Add(jwtx.DefaultAccessTokenTTL - time.Minute) }
	_, err = iss.Verify(token, jwtx.Access)
	require.NoError(t, err)

	iss.Now = func() time.Time { return start.Add(jwtx.DefaultAccessTokenTTL + time.Minute) }
	_, err = iss.Verify(token, jwtx.Access)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyInvalid(t *testing.T) {
	iss := newIssuer(t)

	access, _, err := iss.Issue(alice, jwtx.Access, 0)
	require.NoError(t, err)

	t.Run("kinds do not cross", func(t *testing.T) {
		_, err := iss.Verify(access, jwtx.Refresh)
		require.ErrorIs(t, err, jwtx.ErrInvalid)

		refresh, _, err := iss.Issue(alice, jwtx.Refresh, 0)
		require.NoError(t, err)
		_, err = iss.Verify(refresh, jwtx.Access)
		require.ErrorIs(t, err, jwtx.ErrInvalid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(access, ".")
		forged, _, err := iss.Issue(jwtx.Subject{ID: "someone-else"}, jwtx.Access, 0)
		require.NoError(t, err)
		parts[1] = strings.Split(forged, ".")[1]
		parts[2] = strings.Split(access, ".")[2]

		_, err = iss.Verify(strings.Join(parts, "."), jwtx.Access)
		require.ErrorIs(t, err, jwtx.ErrInvalid)
	})

	t.Run("tampered signature", func(t *testing.T) {
		b := []byte(access)
		if b[len(b)-2] == 'A' {
			b[len(b)-2] = 'B'
		} else {
			b[len(b)-2] = 'A'
		}
		_, err := iss.Verify(string(b), jwtx.Access)
		require.ErrorIs(t, err, jwtx.ErrInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		for _, tok := range []string{"", "abc", "a.b.c"} {
			_, err := iss.Verify(tok, jwtx.Access)
			require.ErrorIs(t, err, jwtx.ErrInvalid)
		}
	})

	t.Run("foreign secret", func(t *testing.T) {
		other, err := jwtx.NewIssuer(exampleIssuer,
			jwtx.KindConfig{Secret: []byte("other-access"), TTL: time.Minute},
			jwtx.KindConfig{Secret: []byte("other-refresh"), TTL: time.Hour},
		)
		require.NoError(t, err)
		token, _, err := other.Issue(alice, jwtx.Access, 0)
		require.NoError(t, err)

		_, err = iss.Verify(token, jwtx.Access)
		require.ErrorIs(t, err, jwtx.ErrInvalid)
	})

	t.Run("expired forgery is invalid not expired", func(t *testing.T) {
		claims := jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    exampleIssuer,
				Subject:   alice.ID,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
			Kind: "access",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("guess"))
		require.NoError(t, err)

		_, err = iss.Verify(token, jwtx.Access)
		require.ErrorIs(t, err, jwtx.ErrInvalid)
	})

	t.Run("alg none rejected", func(t *testing.T) {
		claims := jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    exampleIssuer,
				Subject:   alice.ID,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Kind: "access",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = iss.Verify(token, jwtx.Access)
		require.ErrorIs(t, err, jwtx.ErrInvalid)
	})
}

func TestKindString(t *testing.T) {
	require.Equal(t, "access", jwtx.Access.String())
	require.Equal(t, "refresh", jwtx.Refresh.String())
	require.Equal(t, "kind(7)", jwtx.Kind(7).String())
}
