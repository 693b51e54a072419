package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MKhiriev/go-note-keeper/models"
)

// ErrInvalidToken is returned for a developer token that cannot be parsed.
var ErrInvalidToken = errors.New("invalid developer token")

type developerTokenAuthenticator struct {
	token string
	host  string
}

// NewDeveloperTokenAuthenticator authenticates with a long-lived developer
// token instead of the OAuth flow. The token carries the shard ("S"), the
// user id ("U", hex) and the expiration ("E", hex milliseconds), e.g.
// "S=s1:U=9c9d:E=18f0a3b1c00:C=...:P=...:A=...:V=2:H=...".
func NewDeveloperTokenAuthenticator(token, host string) Authenticator {
	return &developerTokenAuthenticator{
		token: token,
		host:  strings.TrimSuffix(host, "/"),
	}
}

func (a *developerTokenAuthenticator) Authenticate(ctx context.Context) (models.AuthData, error) {
	if err := ctx.Err(); err != nil {
		return models.AuthData{}, err
	}

	fields := make(map[string]string)
	for _, part := range strings.Split(a.token, ":") {
		key, value, ok := strings.Cut(part, "=")
		if ok {
			fields[key] = value
		}
	}

	shard := fields["S"]
	if shard == "" {
		return models.AuthData{}, fmt.Errorf("%w: no shard", ErrInvalidToken)
	}
	userID, err := strconv.ParseInt(fields["U"], 16, 32)
	if err != nil || userID <= 0 {
		return models.AuthData{}, fmt.Errorf("%w: bad user id %q", ErrInvalidToken, fields["U"])
	}
	expiration, err := strconv.ParseInt(fields["E"], 16, 64)
	if err != nil || expiration <= 0 {
		return models.AuthData{}, fmt.Errorf("%w: bad expiration %q", ErrInvalidToken, fields["E"])
	}

	return models.AuthData{
		UserID:          int32(userID),
		AuthToken:       a.token,
		ShardID:         shard,
		NoteStoreURL:    a.host + "/shard/" + shard + "/notestore",
		WebAPIURLPrefix: a.host + "/shard/" + shard + "/",
		Expiration:      expiration,
	}, nil
}
