package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Devansh978/AI-Interview-Assistant/internal/extractor"
	"github.com/Devansh978/AI-Interview-Assistant/internal/models"
	"github.com/Devansh978/AI-Interview-Assistant/internal/services"
	"github.com/Devansh978/AI-Interview-Assistant/internal/utils"
)

const maxResumeBytes = 10 << 20

type InterviewHandler struct {
	svc services.InterviewService
}

func NewInterviewHandler(svc services.InterviewService) *InterviewHandler {
	return &InterviewHandler{svc: svc}
}

func (h *InterviewHandler) Start(c *gin.Context) {
	cand, err := h.svc.StartCandidate(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cand)
}

// Current backs the welcome-back check: the client offers resume-or-restart
// when the returned candidate is not completed.
func (h *InterviewHandler) Current(c *gin.Context) {
	cand, err := h.svc.Current(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cand)
}

func (h *InterviewHandler) Get(c *gin.Context) {
	cand, err := h.svc.Get(c.Request.Context(), c.Param("candidate_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cand)
}

func (h *InterviewHandler) List(c *gin.Context) {
	cands, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cands)
}

// Upload receives the resume as multipart form data. Type and size are
// validated before any parsing or state change.
func (h *InterviewHandler) Upload(c *gin.Context) {
	const op = "InterviewHandler.Upload"

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'file'", err))
		return
	}
	if fh.Size <= 0 || fh.Size > maxResumeBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file empty or too large (max 10MB)", nil))
		return
	}

	mimeType := resumeMimeType(fh.Filename, fh.Header.Get("Content-Type"))
	if mimeType == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "unsupported file type (use PDF, DOCX, image, or plain text)", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxResumeBytes))
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to read upload", err))
		return
	}

	// sniff PDFs; extension alone is not trusted
	if mimeType == extractor.MimePDF && http.DetectContentType(data) != extractor.MimePDF {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid content type (must be pdf)", nil))
		return
	}

	cand, err := h.svc.UploadResume(c.Request.Context(), c.Param("candidate_id"), fh.Filename, data, mimeType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cand)
}

// resumeMimeType maps the upload to a supported mime type, or "" if the
// file is not an accepted resume format.
func resumeMimeType(fileName, headerType string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return extractor.MimePDF
	case ".docx":
		return extractor.MimeDOCX
	case ".txt":
		return "text/plain"
	case ".png", ".jpg", ".jpeg", ".webp":
		if strings.HasPrefix(headerType, "image/") {
			return headerType
		}
		return "image/png"
	default:
		return ""
	}
}

type ProvideFieldRequest struct {
	Field string `json:"field" binding:"required"` // name|email|phone
	Value string `json:"value" binding:"required"`
}

func (h *InterviewHandler) ProvideField(c *gin.Context) {
	const op = "InterviewHandler.ProvideField"

	var req ProvideFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	cand, err := h.svc.ProvideField(c.Request.Context(), c.Param("candidate_id"), models.ProfileField(req.Field), req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cand)
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

func (h *InterviewHandler) SubmitAnswer(c *gin.Context) {
	const op = "InterviewHandler.SubmitAnswer"

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	cand, err := h.svc.SubmitAnswer(c.Request.Context(), c.Param("candidate_id"), req.Answer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cand)
}

type DraftRequest struct {
	Draft string `json:"draft"`
}

func (h *InterviewHandler) SaveDraft(c *gin.Context) {
	const op = "InterviewHandler.SaveDraft"

	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}
	if err := h.svc.SetDraft(c.Request.Context(), c.Param("candidate_id"), req.Draft); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InterviewHandler) Pause(c *gin.Context) {
	if err := h.svc.Pause(c.Request.Context(), c.Param("candidate_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InterviewHandler) Resume(c *gin.Context) {
	cand, err := h.svc.Resume(c.Request.Context(), c.Param("candidate_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cand)
}

func (h *InterviewHandler) Restart(c *gin.Context) {
	cand, err := h.svc.Restart(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cand)
}
