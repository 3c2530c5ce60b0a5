package public

import (
	"errors"

	"github.com/kedai-next/internal/http/response"
	"github.com/kedai-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetImageCaptcha 获取图片验证码挑战
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	if h.CaptchaService == nil {
		respondError(c, response.CodeInternal, "captcha unavailable", nil)
		return
	}

	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		if errors.Is(err, service.ErrCaptchaDisabled) {
			respondError(c, response.CodeBadRequest, "captcha is disabled", nil)
			return
		}
		respondError(c, response.CodeInternal, "captcha generation failed", err)
		return
	}

	response.Success(c, gin.H{
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}
