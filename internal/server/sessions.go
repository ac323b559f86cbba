package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/feltflyt/feltflyt/internal/audit/domain"
	sessiondomain "github.com/feltflyt/feltflyt/internal/session/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) registerSessionRoutes() {
	authed := s.engine.Group("", s.AuthRequired())
	authed.GET("/sessions", s.ListSessions)
	authed.POST("/sessions/terminate", s.TerminateSession)
}

type terminateSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (s *Server) ListSessions(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	active, err := s.sessions.ListActiveSessions(c.Request.Context(), claims.SubjectID(), claims.SubjectKind)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]sessiondomain.SessionView, 0, len(active))
	for _, sess := range active {
		views = append(views, sess.View(claims.JTI()))
	}

	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

func (s *Server) TerminateSession(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req terminateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	sessionID, err := snowflake.ParseString(req.SessionID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()
	if err := s.sessions.Terminate(ctx, sessiondomain.TerminateRequest{
		SessionID:   sessionID,
		SubjectID:   claims.SubjectID(),
		SubjectKind: claims.SubjectKind,
		CallerJTI:   claims.JTI(),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		SubjectID:   claims.SubjectID(),
		SubjectKind: claims.SubjectKind,
		Action:      "session.terminated",
		Metadata:    map[string]any{"session_id": req.SessionID},
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	})

	c.Status(http.StatusNoContent)
}
