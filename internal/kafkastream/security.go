package kafkastream

import (
	"context"
	"crypto/tls"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/oauth"
	"golang.org/x/oauth2/clientcredentials"

	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
)

var jaasFieldPattern = regexp.MustCompile(`oauth\.(client\.id|client\.secret|token\.endpoint\.uri|scope)="([^"]*)"`)

// parseJAAS extracts the oauth.* fields a SecurityDirective's JaasConfig
// carries. A real Kafka client would parse sasl.jaas.config the same way;
// this layer never receives the underlying VaultCredentials directly.
func parseJAAS(jaasConfig string) (map[string]string, error) {
	fields := map[string]string{}
	for _, m := range jaasFieldPattern.FindAllStringSubmatch(jaasConfig, -1) {
		fields[m[1]] = m[2]
	}
	if fields["client.id"] == "" || fields["client.secret"] == "" || fields["token.endpoint.uri"] == "" {
		return nil, probeerrors.New(probeerrors.KindConfiguration, "JAAS config missing required oauth fields")
	}
	return fields, nil
}

type oauthCacheEntry struct {
	token     string
	expiresAt time.Time
}

// oauthTokenSource refreshes an OAUTHBEARER token via the client
// credentials grant, caching it and renewing at half its reported
// lifetime (spec.md §4.3.1 "schedules OAuth token refresh at half the
// token lifetime").
type oauthTokenSource struct {
	cc     *clientcredentials.Config
	mu     sync.Mutex
	cached *oauthCacheEntry
}

func newOAuthTokenSource(fields map[string]string) *oauthTokenSource {
	cc := &clientcredentials.Config{
		ClientID:     fields["client.id"],
		ClientSecret: fields["client.secret"],
		TokenURL:     fields["token.endpoint.uri"],
	}
	if scope := fields["scope"]; scope != "" {
		cc.Scopes = []string{scope}
	}
	return &oauthTokenSource{cc: cc}
}

func (o *oauthTokenSource) Token(ctx context.Context) (oauth.Auth, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cached != nil && time.Now().Before(o.cached.expiresAt) {
		return oauth.Auth{Token: o.cached.token}, nil
	}

	tok, err := o.cc.Token(ctx)
	if err != nil {
		return oauth.Auth{}, probeerrors.Wrap(probeerrors.KindConsumer, fmt.Errorf("refreshing oauth token: %w", err))
	}

	lifetime := time.Until(tok.Expiry)
	if lifetime <= 0 {
		lifetime = time.Minute
	}
	o.cached = &oauthCacheEntry{token: tok.AccessToken, expiresAt: time.Now().Add(lifetime / 2)}

	return oauth.Auth{Token: tok.AccessToken}, nil
}

// BuildClientOpts translates a SecurityDirective into franz-go client
// options (spec.md §4.3.1: SASL_SSL -> OAUTHBEARER + TLS, PLAINTEXT ->
// neither).
func BuildClientOpts(directive probetypes.SecurityDirective) ([]kgo.Opt, error) {
	switch directive.SecurityProtocol {
	case probetypes.SecurityPlaintext:
		return nil, nil
	case probetypes.SecuritySASLSSL:
		fields, err := parseJAAS(directive.JaasConfig)
		if err != nil {
			return nil, err
		}
		src := newOAuthTokenSource(fields)
		return []kgo.Opt{
			kgo.SASL(oauth.Oauth(src.Token)),
			kgo.DialTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
		}, nil
	default:
		return nil, probeerrors.New(probeerrors.KindConfiguration, "unknown security protocol %q", directive.SecurityProtocol)
	}
}
