// internal/oauth/google.go
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"agenthub/internal/models"
)

const (
	tokenEndpoint = "https://oauth2.googleapis.com/token"
	authEndpoint  = "https://accounts.google.com/o/oauth2/v2/auth"
	calendarScope = "https://www.googleapis.com/auth/calendar"
)

// Tokens is the pair returned by a successful code exchange.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Exchanger converts an authorization code into tokens at the identity
// provider. It is pure with respect to local state.
type Exchanger struct {
	clientID     string
	clientSecret string
	endpoint     string
	http         *http.Client
}

func NewExchanger(clientID, clientSecret string) *Exchanger {
	return &Exchanger{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     tokenEndpoint,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint overrides the token endpoint. Used by tests.
func (e *Exchanger) WithEndpoint(endpoint string) *Exchanger {
	e.endpoint = endpoint
	return e
}

// ExchangeCode performs the single token POST. Authorization codes are
// single-use, so a failed exchange is never retried.
func (e *Exchanger) ExchangeCode(ctx context.Context, code, redirectURI string) (Tokens, error) {
	form := url.Values{
		"client_id":     {e.clientID},
		"client_secret": {e.clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {redirectURI},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", models.ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.http.Do(req)
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", models.ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", models.ErrTokenExchange, err)
	}

	var payload struct {
		Tokens
		Error     string `json:"error"`
		ErrorDesc string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Tokens{}, fmt.Errorf("%w: malformed provider response", models.ErrTokenExchange)
	}
	if payload.Error != "" || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Tokens{}, fmt.Errorf("%w: %s %s", models.ErrTokenExchange, payload.Error, payload.ErrorDesc)
	}
	return payload.Tokens, nil
}

// AuthURL builds the consent URL. access_type=offline with prompt=consent
// forces the provider to return a refresh token on every connect.
func AuthURL(clientID, redirectURI, state string) string {
	q := url.Values{
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"scope":         {calendarScope},
		"response_type": {"code"},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
		"state":         {state},
	}
	return authEndpoint + "?" + q.Encode()
}

// EncodeState packs the principal namespace and id into the OAuth state
// parameter so one callback serves both cookie namespaces.
func EncodeState(kind models.PrincipalKind, id uuid.UUID) string {
	return string(kind) + ":" + id.String()
}

// DecodeState is the inverse of EncodeState.
func DecodeState(state string) (models.PrincipalKind, uuid.UUID, error) {
	kindStr, idStr, ok := strings.Cut(state, ":")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("malformed state %q", state)
	}
	kind := models.PrincipalKind(kindStr)
	if kind != models.KindEmployee && kind != models.KindBoss {
		return "", uuid.Nil, fmt.Errorf("unknown principal kind %q", kindStr)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("malformed principal id in state: %w", err)
	}
	return kind, id, nil
}
