package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Well-known placeholder identity seeded on first run so the login prompt
// has something to suggest. It never authenticates anybody by itself.
const (
	DefaultUsername = "adm"
	DefaultSecret   = "123"
)
