package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"science-quiz/internal/app"
	"science-quiz/internal/domain"
)

// RESTHandler serves history browsing and explanation requests.
type RESTHandler struct {
	service *app.QuizService
}

func NewRESTHandler(service *app.QuizService) *RESTHandler {
	return &RESTHandler{service: service}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type explanationResponse struct {
	Text string `json:"text"`
}

func (h *RESTHandler) ListHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.History(c.Query("student")))
}

func (h *RESTHandler) ListStudents(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Students())
}

func (h *RESTHandler) ExplainAnswer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "answer index must be a number"})
		return
	}
	text, err := h.service.ExplainHistoryAnswer(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, explanationResponse{Text: text})
}

func (h *RESTHandler) GetSession(c *gin.Context) {
	session, err := h.service.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newStateView(session.Snapshot()))
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrAnswerNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
