package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prepwise/internal/service"
)

// InterviewHandler expone la generación y consulta de entrevistas.
type InterviewHandler struct {
	logger     *zap.Logger
	interviews *service.InterviewService
}

func NewInterviewHandler(logger *zap.Logger, interviews *service.InterviewService) *InterviewHandler {
	return &InterviewHandler{logger: logger, interviews: interviews}
}

// flexString acepta un string o un número JSON ("amount": 5 o "5").
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Status maneja GET /vapi/generate.
func (h *InterviewHandler) Status(c *gin.Context) {
	respond(c, http.StatusOK, "Thank you!", "OK")
}

// Generate maneja POST /vapi/generate.
func (h *InterviewHandler) Generate(c *gin.Context) {
	var req struct {
		Type      string     `json:"type" binding:"required"`
		Role      string     `json:"role" binding:"required"`
		Level     string     `json:"level" binding:"required"`
		Techstack string     `json:"techstack" binding:"required"`
		Amount    flexString `json:"amount" binding:"required"`
		UserID    string     `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	interview, err := h.interviews.Generate(c.Request.Context(), service.GenerateInterviewInput{
		Type:      req.Type,
		Role:      req.Role,
		Level:     req.Level,
		Techstack: req.Techstack,
		Amount:    string(req.Amount),
		UserID:    req.UserID,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, interview, "Interview generated successfully")
}

// List maneja GET /interviews.
func (h *InterviewHandler) List(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		_ = c.Error(service.ErrMissingToken)
		return
	}
	interviews, err := h.interviews.ListForUser(c.Request.Context(), identity.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, interviews, "Interviews fetched successfully")
}

// Get maneja GET /interviews/:id.
func (h *InterviewHandler) Get(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		_ = c.Error(service.ErrMissingToken)
		return
	}
	interview, err := h.interviews.GetForUser(c.Request.Context(), identity.ID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, interview, "Interview fetched successfully")
}
