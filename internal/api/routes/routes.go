package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Devansh978/AI-Interview-Assistant/internal/api/handlers"
)

type Deps struct {
	Interview *handlers.InterviewHandler
	WS        *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/interview/start", d.Interview.Start)
	r.GET("/interview/current", d.Interview.Current)
	r.POST("/interview/restart", d.Interview.Restart)

	r.GET("/interview/:candidate_id", d.Interview.Get)
	r.POST("/interview/:candidate_id/upload", d.Interview.Upload)
	r.POST("/interview/:candidate_id/field", d.Interview.ProvideField)
	r.POST("/interview/:candidate_id/answer", d.Interview.SubmitAnswer)
	r.PUT("/interview/:candidate_id/draft", d.Interview.SaveDraft)
	r.POST("/interview/:candidate_id/pause", d.Interview.Pause)
	r.POST("/interview/:candidate_id/resume", d.Interview.Resume)

	// interviewer dashboard
	r.GET("/candidates", d.Interview.List)

	// WebSocket countdown/draft channel
	r.GET("/ws/interview/:candidate_id", d.WS.InterviewWS)
}
