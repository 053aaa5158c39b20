package problems

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/json"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
)

type Handler struct {
	problems domain.ProblemRepository
	logger   logging.Logger
}

func NewHandler(problems domain.ProblemRepository, logger logging.Logger) *Handler {
	return &Handler{
		problems: problems,
		logger:   logger,
	}
}

// GetProblemHandler godoc
// @Summary      Get a problem
// @Description  Returns the statement of a problem. Test case contents are not exposed.
// @Tags         problems
// @Produce      json
// @Param        problemId path string true "Problem ID"
// @Success      200 {object} problemResponse "Problem"
// @Failure      404 {object} json.ErrorResponse "Problem not found"
// @Failure      503 {object} json.ErrorResponse "Problem store not configured"
// @Router       /problems/{problemId} [get]
func (h *Handler) GetProblemHandler(w http.ResponseWriter, r *http.Request) {
	if h.problems == nil {
		json.WriteError(w, http.StatusServiceUnavailable, domain.ErrJudgeUnavailable, "Problem store is not configured")
		return
	}

	problemID := chi.URLParam(r, "problemId")
	if err := domain.ValidateProblemID(problemID); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	problem, err := h.problems.GetByID(r.Context(), problemID)
	if err != nil {
		if errors.Is(err, domain.ErrProblemNotFound) {
			json.WriteNotFoundError(w, "Problem not found")
			return
		}
		json.WriteInternalError(w, h.logger, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, problemResponse{
		ID:          problem.ID,
		Title:       problem.Title,
		Description: problem.Description,
		Difficulty:  problem.Difficulty,
		Examples:    len(problem.TestCases),
	})
}
