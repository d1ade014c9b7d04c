package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"rentaudit/internal/config"
)

const humanTokenIssuer = "rentaudit-captcha"

var ErrVerifierUnavailable = errors.New("captcha verification service unavailable")

// Visitor identifies the anonymous browser a captcha pass is bound to.
type Visitor struct {
	IP          string
	Fingerprint string
	Session     string
}

// ITurnstileVerifier checks Cloudflare Turnstile challenges and issues the
// short-lived human token that lets a visitor past the soft rate limit.
type ITurnstileVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
	GenerateHumanToken(v Visitor, ttl time.Duration) (string, error)
	ValidateHumanToken(tokenString string, v Visitor) bool
}

// siteVerifyResponse is the body returned by the siteverify endpoint.
type siteVerifyResponse struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	Action      string   `json:"action"`
}

type turnstileVerifier struct {
	secretKey  string
	verifyURL  string
	signingKey []byte
	httpClient *http.Client
}

func NewTurnstileVerifier(cfg *config.Config) ITurnstileVerifier {
	return &turnstileVerifier{
		secretKey:  cfg.CloudflareTurnstileSecretKey,
		verifyURL:  cfg.CloudflareSiteVerifyURL,
		signingKey: []byte(cfg.JwtSecret),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Verify calls the Cloudflare siteverify endpoint. Without a secret key every
// token passes, which keeps local development usable.
func (v *turnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if v.secretKey == "" {
		log.Println("WARN: Cloudflare Turnstile secret key not configured. Skipping verification.")
		return true, nil
	}
	if token == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", v.secretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		log.Printf("WARN: error calling Turnstile siteverify: %v", err)
		return false, ErrVerifierUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return false, fmt.Errorf("failed to read turnstile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("WARN: Turnstile siteverify returned %d: %s", resp.StatusCode, body)
		return false, ErrVerifierUnavailable
	}

	var parsed siteVerifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("failed to parse turnstile response: %w", err)
	}
	if !parsed.Success {
		log.Printf("Turnstile verification unsuccessful. Error codes: %v", parsed.ErrorCodes)
	}
	return parsed.Success, nil
}

// HumanTokenClaims are carried by the X-C-T header token.
type HumanTokenClaims struct {
	IP          string `json:"ip"`
	Fingerprint string `json:"bfp"`
	Session     string `json:"spa"`
	jwt.RegisteredClaims
}

func (v *turnstileVerifier) GenerateHumanToken(visitor Visitor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &HumanTokenClaims{
		IP:          visitor.IP,
		Fingerprint: visitor.Fingerprint,
		Session:     visitor.Session,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    humanTokenIssuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign human token: %w", err)
	}
	return signed, nil
}

// ValidateHumanToken accepts a token only for the visitor it was issued to.
func (v *turnstileVerifier) ValidateHumanToken(tokenString string, visitor Visitor) bool {
	claims := &HumanTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(humanTokenIssuer))
	if err != nil || !token.Valid {
		return false
	}
	if claims.IP != visitor.IP || claims.Fingerprint != visitor.Fingerprint || claims.Session != visitor.Session {
		log.Printf("X-C-T token mismatch: IP(%s vs %s) BFP(%s vs %s)", claims.IP, visitor.IP, claims.Fingerprint, visitor.Fingerprint)
		return false
	}
	return true
}
