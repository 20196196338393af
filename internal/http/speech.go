package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type SpeechController struct {
	speech SpeechService
}

func NewSpeechController(speech SpeechService) *SpeechController {
	return &SpeechController{
		speech: speech,
	}
}

// SpeakRequest is the payload for reading text aloud.
type SpeakRequest struct {
	Text string `json:"text" binding:"required"`
}

// Speak reads the given text aloud. A new request cancels any utterance
// still playing.
// POST /api/speech/speak
func (controller *SpeechController) Speak(c *gin.Context) {
	var req SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "text must not be blank"})
		return
	}

	if err := controller.speech.Speak(c.Request.Context(), req.Text); err != nil {
		respondError(c, err)
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "spoken"})
}

// Cancel stops the current utterance, if any.
// POST /api/speech/cancel
func (controller *SpeechController) Cancel(c *gin.Context) {
	controller.speech.Cancel()
	c.IndentedJSON(http.StatusOK, gin.H{"message": "cancelled"})
}
