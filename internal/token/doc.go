// Package token manages the bearer credential used for every upstream
// calendar call.
//
// A Cache holds a single credential per upstream identity and refreshes it
// through an Authenticator, typically ClientCredentials:
//
//	auth := &token.ClientCredentials{
//		BaseURL:      "https://calendar.example.com/api/",
//		ClientID:     id,
//		ClientSecret: secret,
//	}
//	cache := token.New(auth, token.WithMetrics(metrics))
//	bearer, err := cache.Token(ctx)
//
// Credentials live only in process memory.
package token
