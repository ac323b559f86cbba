package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerTwoFactorRoutes() {
	authed := s.engine.Group("/2fa", s.AuthRequired())
	authed.POST("/setup", s.TwoFactorSetup)
	authed.POST("/verify", s.TwoFactorVerify)
	authed.POST("/disable", s.TwoFactorDisable)
	authed.GET("/status", s.TwoFactorStatus)
}

type twoFactorVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

type twoFactorDisableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

func (s *Server) TwoFactorSetup(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.twofactorSvc.Setup(c.Request.Context(), claims.SubjectID())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) TwoFactorVerify(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req twoFactorVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	backupCodes, err := s.twofactorSvc.VerifyAndEnable(c.Request.Context(), claims.SubjectID(), req.Code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// The raw backup codes exist only in this response; the store keeps
	// hashes.
	c.JSON(http.StatusOK, gin.H{"backup_codes": backupCodes})
}

func (s *Server) TwoFactorDisable(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req twoFactorDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.Password == "" && req.Code == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.twofactorSvc.Disable(c.Request.Context(), claims.SubjectID(), req.Password, req.Code); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) TwoFactorStatus(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	status, err := s.twofactorSvc.Status(c.Request.Context(), claims.SubjectID())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
