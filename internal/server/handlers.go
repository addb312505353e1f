package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spigell/intraview/internal/interview"
)

type createRunRequest struct {
	JobDescription string `json:"jobDescription" binding:"required"`
}

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Category   string `json:"category"`
	Question   string `json:"question"`
	Answer     string `json:"answer" binding:"required"`
}

type locatorRequest struct {
	QuestionID string `json:"questionId"`
	Category   string `json:"category"`
	Question   string `json:"question"`
}

func (s *Server) createRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadRequest(err.Error()))
		return
	}

	id, err := s.runs.StartReport(c.Request.Context(), currentUser(c), req.JobDescription)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.runs.ListRuns(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.runs.FetchRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) retryGeneration(c *gin.Context) {
	run, err := s.runs.RetryGeneration(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, run)
}

func (s *Server) calculateScore(c *gin.Context) {
	run, err := s.runs.CalculateScore(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// submitAnswer serves both the text-addressed and the id-addressed routes.
func (s *Server) submitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadRequest(err.Error()))
		return
	}

	loc := interview.Locator{QuestionID: req.QuestionID, Category: req.Category, Question: req.Question}
	if id := c.Param("questionId"); id != "" {
		loc = interview.Locator{QuestionID: id}
	}

	question, err := s.runs.UpdateAnswer(c.Request.Context(), c.Param("id"), loc, req.Answer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, question)
}

func (s *Server) resetAnswer(c *gin.Context) {
	loc := interview.Locator{QuestionID: c.Param("questionId")}
	if loc.QuestionID == "" {
		var req locatorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errBadRequest(err.Error()))
			return
		}
		loc = interview.Locator{QuestionID: req.QuestionID, Category: req.Category, Question: req.Question}
	}

	if _, err := s.runs.RetryQuestion(c.Request.Context(), c.Param("id"), loc); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) transcribeAnswer(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxAudioBytes)
	audio, err := io.ReadAll(body)
	if err != nil {
		respondError(c, errBadRequest("could not read audio: "+err.Error()))
		return
	}

	mimeType := strings.TrimSpace(c.ContentType())
	loc := interview.Locator{QuestionID: c.Param("questionId")}

	question, err := s.runs.TranscribeAnswer(c.Request.Context(), c.Param("id"), loc, audio, mimeType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, question)
}
