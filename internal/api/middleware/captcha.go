package middleware

import (
	"log"

	"github.com/gin-gonic/gin"

	"rentaudit/internal/captcha"
	"rentaudit/internal/config"
)

// ContextKeyIsHumanVerified holds the key for captcha status in Gin context.
const ContextKeyIsHumanVerified = "isHumanVerified"

func visitorFromRequest(c *gin.Context) captcha.Visitor {
	return captcha.Visitor{
		IP:          c.ClientIP(),
		Fingerprint: c.GetHeader("X-BFP"),
		Session:     c.GetHeader("X-SPA"),
	}
}

// CaptchaMiddleware accepts either a previously issued human token (X-C-T) or
// a fresh Turnstile challenge response (X-C-V). A solved challenge is answered
// with a new X-C-T token.
func CaptchaMiddleware(cfg *config.Config, verifier captcha.ITurnstileVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		visitor := visitorFromRequest(c)
		humanToken := c.GetHeader("X-C-T")
		challenge := c.GetHeader("X-C-V")

		isHuman := humanToken != "" && verifier.ValidateHumanToken(humanToken, visitor)

		if !isHuman && challenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), challenge, visitor.IP)
			if err != nil {
				// The rate limiter decides what happens to unverified clients.
				log.Printf("WARN: error verifying Turnstile token: %v", err)
			} else if verified {
				isHuman = true
				token, err := verifier.GenerateHumanToken(visitor, cfg.CaptchaTokenTTL)
				if err != nil {
					log.Printf("WARN: error generating X-C-T token: %v", err)
				} else {
					c.Header("X-C-T", token)
				}
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}
