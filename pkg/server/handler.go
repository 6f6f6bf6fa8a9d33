package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.health)
	r.POST("/slack/events", h.slackEvents)
	api := r.Group("/api")
	{
		api.POST("/ask", h.ask)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"in_flight": h.Service.InFlight(),
	})
}

// slackEvent is the subset of the Events API envelope the bot cares about.
type slackEvent struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge"`
	Event     json.RawMessage `json:"event"`
}

type slackInnerEvent struct {
	Type    string `json:"type"`
	User    string `json:"user"`
	Text    string `json:"text"`
	Channel string `json:"channel"`
	BotID   string `json:"bot_id"`
}

// slackEvents handles the Slack Events API: the one-time URL verification
// handshake, then app_mention callbacks. Slack retries on any non-200, so
// even unhandled event types are acked.
func (h *Handler) slackEvents(c *gin.Context) {
	var envelope slackEvent
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	switch envelope.Type {
	case "url_verification":
		c.JSON(http.StatusOK, gin.H{"challenge": envelope.Challenge})

	case "event_callback":
		var inner slackInnerEvent
		if err := json.Unmarshal(envelope.Event, &inner); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inner event"})
			return
		}
		// Ignore the bot's own messages to avoid reply loops.
		if inner.Type == "app_mention" && inner.BotID == "" {
			h.Service.HandleMention(inner.User, inner.Channel, inner.Text)
		}
		c.Status(http.StatusOK)

	default:
		c.Status(http.StatusOK)
	}
}

type askRequest struct {
	Question  string `json:"question" binding:"required"`
	Requester string `json:"requester"`
}

type askResponse struct {
	Answer   string         `json:"answer"`
	Source   string         `json:"source"`
	Status   string         `json:"status"`
	Error    string         `json:"error,omitempty"`
	Progress map[string]any `json:"progress,omitempty"`
}

// ask runs the workflow synchronously and returns the terminal state.
func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	state := h.Service.Ask(c.Request.Context(), req.Requester, req.Question)

	c.JSON(http.StatusOK, askResponse{
		Answer:   state.Generation,
		Source:   string(state.Source),
		Status:   string(state.Status),
		Error:    state.ErrorMessage,
		Progress: state.Progress,
	})
}
