package utils // package utils provides token, QR code and seat label helpers

import (
    "errors"
    "fmt"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for signing and parsing tokens
)

// ErrInvalidToken is returned by ParseAccessToken for any token that does
// not verify or lacks the expected claims.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// Tokens are issued by the identity service; this package only signs them
// for local tooling and tests.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// Identity is the caller extracted from a verified access token.
type Identity struct {
    UserID uint64
    Role   string
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The token
// carries sub (user id), role, exp and iat.
func NewAccessToken(secret string, userID uint64, role string, ttl time.Duration) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":  strconv.FormatUint(userID, 10),
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw with secret and returns its identity.  Only
// HMAC signing methods are accepted.  The sub claim may be a JSON number
// or a decimal string.
func ParseAccessToken(secret, raw string) (Identity, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Reject tokens signed with anything but HMAC.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return Identity{}, ErrInvalidToken
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Identity{}, ErrInvalidToken
    }
    var id uint64
    switch v := claims["sub"].(type) {
    case float64:
        if v > 0 {
            id = uint64(v)
        }
    case string:
        id, _ = strconv.ParseUint(v, 10, 64)
    }
    role, _ := claims["role"].(string)
    if id == 0 || role == "" {
        return Identity{}, ErrInvalidToken
    }
    return Identity{UserID: id, Role: role}, nil
}
