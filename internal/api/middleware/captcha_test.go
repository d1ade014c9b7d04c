package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentaudit/internal/captcha"
	"rentaudit/internal/config"
)

type MockTurnstileVerifier struct {
	mock.Mock
}

func (m *MockTurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	args := m.Called(ctx, token, remoteIP)
	return args.Bool(0), args.Error(1)
}

func (m *MockTurnstileVerifier) GenerateHumanToken(v captcha.Visitor, ttl time.Duration) (string, error) {
	args := m.Called(v, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockTurnstileVerifier) ValidateHumanToken(tokenString string, v captcha.Visitor) bool {
	args := m.Called(tokenString, v)
	return args.Bool(0)
}

func setupCaptchaTestEngine(cfg *config.Config, verifier captcha.ITurnstileVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CaptchaMiddleware(cfg, verifier))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"is_human": c.GetBool(ContextKeyIsHumanVerified), "xct": c.Writer.Header().Get("X-C-T")})
	})
	return r
}

type captchaResult struct {
	IsHuman bool   `json:"is_human"`
	XCT     string `json:"xct"`
}

func doCaptchaRequest(t *testing.T, router *gin.Engine, ip string, headers map[string]string) captchaResult {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = ip + ":12345"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res captchaResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestCaptchaMiddleware_NoHeaders(t *testing.T) {
	mockVerifier := new(MockTurnstileVerifier)
	router := setupCaptchaTestEngine(&config.Config{}, mockVerifier)

	res := doCaptchaRequest(t, router, "9.9.9.9", nil)

	assert.False(t, res.IsHuman)
	assert.Empty(t, res.XCT)
	mockVerifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
	mockVerifier.AssertNotCalled(t, "ValidateHumanToken", mock.Anything, mock.Anything)
}

func TestCaptchaMiddleware_ValidXCV(t *testing.T) {
	cfg := &config.Config{CaptchaTokenTTL: 10 * time.Minute}
	mockVerifier := new(MockTurnstileVerifier)
	router := setupCaptchaTestEngine(cfg, mockVerifier)

	visitor := captcha.Visitor{IP: "1.1.1.1", Fingerprint: "fp1", Session: "sess1"}
	mockVerifier.On("Verify", mock.Anything, "valid-challenge", visitor.IP).Return(true, nil)
	mockVerifier.On("GenerateHumanToken", visitor, cfg.CaptchaTokenTTL).Return("generated-xct", nil)

	res := doCaptchaRequest(t, router, visitor.IP, map[string]string{
		"X-C-V": "valid-challenge",
		"X-BFP": visitor.Fingerprint,
		"X-SPA": visitor.Session,
	})

	assert.True(t, res.IsHuman)
	assert.Equal(t, "generated-xct", res.XCT)
	mockVerifier.AssertExpectations(t)
}

func TestCaptchaMiddleware_InvalidXCV(t *testing.T) {
	mockVerifier := new(MockTurnstileVerifier)
	router := setupCaptchaTestEngine(&config.Config{}, mockVerifier)

	mockVerifier.On("Verify", mock.Anything, "bad-challenge", "2.2.2.2").Return(false, nil)

	res := doCaptchaRequest(t, router, "2.2.2.2", map[string]string{"X-C-V": "bad-challenge"})

	assert.False(t, res.IsHuman)
	assert.Empty(t, res.XCT)
	mockVerifier.AssertNotCalled(t, "GenerateHumanToken", mock.Anything, mock.Anything)
}

func TestCaptchaMiddleware_VerifierError(t *testing.T) {
	mockVerifier := new(MockTurnstileVerifier)
	router := setupCaptchaTestEngine(&config.Config{}, mockVerifier)

	mockVerifier.On("Verify", mock.Anything, "challenge", "2.2.2.2").Return(false, captcha.ErrVerifierUnavailable)

	res := doCaptchaRequest(t, router, "2.2.2.2", map[string]string{"X-C-V": "challenge"})
	assert.False(t, res.IsHuman)
}

func TestCaptchaMiddleware_ValidXCT(t *testing.T) {
	mockVerifier := new(MockTurnstileVerifier)
	router := setupCaptchaTestEngine(&config.Config{}, mockVerifier)

	visitor := captcha.Visitor{IP: "3.3.3.3", Fingerprint: "fp2", Session: "sess2"}
	mockVerifier.On("ValidateHumanToken", "valid-xct", visitor).Return(true)

	res := doCaptchaRequest(t, router, visitor.IP, map[string]string{
		"X-C-T": "valid-xct",
		"X-BFP": visitor.Fingerprint,
		"X-SPA": visitor.Session,
	})

	assert.True(t, res.IsHuman)
	assert.Empty(t, res.XCT)
	mockVerifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

func TestCaptchaMiddleware_InvalidXCTFallsBackToXCV(t *testing.T) {
	cfg := &config.Config{CaptchaTokenTTL: time.Minute}
	mockVerifier := new(MockTurnstileVerifier)
	router := setupCaptchaTestEngine(cfg, mockVerifier)

	visitor := captcha.Visitor{IP: "4.4.4.4"}
	mockVerifier.On("ValidateHumanToken", "stale-xct", visitor).Return(false)
	mockVerifier.On("Verify", mock.Anything, "challenge", visitor.IP).Return(true, nil)
	mockVerifier.On("GenerateHumanToken", visitor, cfg.CaptchaTokenTTL).Return("fresh-xct", nil)

	res := doCaptchaRequest(t, router, visitor.IP, map[string]string{"X-C-T": "stale-xct", "X-C-V": "challenge"})

	assert.True(t, res.IsHuman)
	assert.Equal(t, "fresh-xct", res.XCT)
	mockVerifier.AssertExpectations(t)
}
