package broker

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSigningKey = errors.New("media api key or secret is not set")

// VideoGrant is the room permission set of a media server access token.
type VideoGrant struct {
	RoomJoin     bool   `json:"roomJoin,omitempty"`
	Room         string `json:"room,omitempty"`
	CanPublish   *bool  `json:"canPublish,omitempty"`
	CanSubscribe *bool  `json:"canSubscribe,omitempty"`
}

// Claims of an access token.
// The issuer is the api key and the subject is the participant identity.
type Claims struct {
	jwt.RegisteredClaims
	Name  string      `json:"name,omitempty"`
	Video *VideoGrant `json:"video,omitempty"`
}

// Minter signs access tokens with the shared media server secret.
type Minter struct {
	key    string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewMinter(apiKey, apiSecret string, ttl time.Duration) *Minter {
	return &Minter{key: apiKey, secret: []byte(apiSecret), ttl: ttl, now: time.Now}
}

// Mint issues a token that lets the identity join the room with
// publish and subscribe rights.
func (m *Minter) Mint(identity, room string) (string, error) {
	if m.key == "" || len(m.secret) == 0 {
		return "", ErrNoSigningKey
	}
	now := m.now()
	yes := true
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.key,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Name:  identity,
		Video: &VideoGrant{RoomJoin: true, Room: room, CanPublish: &yes, CanSubscribe: &yes},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses a token signed by this minter.
func (m *Minter) Verify(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.key),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	return &claims, nil
}
