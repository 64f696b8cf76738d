// Package jwt issues and verifies signed session tokens and provides the HTTP
// middleware that authenticates requests with them.
//
// Tokens are HS256 JWTs built with github.com/golang-jwt/jwt/v5. Each token
// carries the account email as subject, the account id, issued-at, expiry and a
// random token id (jti). Codec verification consults no server state.
//
// Logout is modelled with a RevocationList keyed by token id. The list is
// checked by the middleware after the codec accepts a token, and entries expire
// together with the token they revoke:
//
//	codec, err := jwt.NewCodec([]byte(cfg.SigningKey), jwt.WithTTL(cfg.TTL))
//	revoked := jwt.NewRedisRevocationList(redisClient)
//
//	r.With(jwt.Middleware(jwt.MiddlewareConfig{
//		Codec:       codec,
//		Revocations: revoked,
//	})).Get("/me", handler)
package jwt
