package moves

import "golang.org/x/oauth2"

// Endpoint is the service's OAuth2 authorization and token endpoint pair.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://api.moves-app.com/oauth/v1/authorize",
	TokenURL: "https://api.moves-app.com/oauth/v1/access_token",
}

// OAuthConfig builds the OAuth2 config for the service's authorization-code
// flow. The web login flow that drives the exchange lives outside this
// repository; the pipeline only consumes the stored token via a TokenSource.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     Endpoint,
		Scopes:       []string{"activity", "location"},
	}
}
