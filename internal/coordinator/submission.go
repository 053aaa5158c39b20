package coordinator

import (
	"context"
	"fmt"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/ws"
)

// SubmitSolution judges code against the problem's test cases in the
// background. The submitter gets a submissionResult; a fully accepted run
// marks the problem solved if the match is still running.
func (c *Coordinator) SubmitSolution(ctx context.Context, connID, roomID string, team domain.Team, problemID string, languageID int, code string) error {
	if c.judge == nil || c.problems == nil {
		return domain.ErrJudgeUnavailable
	}
	if err := c.requireInProgress(roomID); err != nil {
		return fmt.Errorf("submit %q: %w", roomID, err)
	}

	problem, err := c.problems.GetByID(ctx, problemID)
	if err != nil {
		return fmt.Errorf("submit %q: %w", problemID, err)
	}
	if len(problem.TestCases) == 0 {
		return fmt.Errorf("submit %q: %w: problem has no test cases", problemID, domain.ErrMalformedEvent)
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.judgeTimeout)
		defer cancel()
		c.runSubmission(runCtx, connID, roomID, team, problem, languageID, code)
	}()
	return nil
}

func (c *Coordinator) runSubmission(ctx context.Context, connID, roomID string, team domain.Team, problem *domain.Problem, languageID int, code string) {
	ctx, span := c.tracer.Start(ctx, "coordinator.judge")
	defer span.End()

	verdicts, err := c.judge.Run(ctx, languageID, code, problem.TestCases)
	if err != nil {
		c.countJudge("error")
		c.logger.Error(logging.Judge, logging.Submission, "judge run failed", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ProblemID:    problem.ID,
			logging.ErrorMessage: err.Error(),
		})
		span.RecordError(err)
		c.flush([]delivery{send(connID, ws.NewError(ws.SubmitSolution, ws.CodeInternal, "judging failed, try again"))})
		return
	}

	accepted := domain.AllAccepted(verdicts)
	if accepted {
		c.countJudge("accepted")
	} else {
		c.countJudge("rejected")
	}
	c.flush([]delivery{send(connID, ws.NewSubmissionResult(roomID, problem.ID, verdicts))})

	judged := domain.MatchEvent{
		Type:       domain.EventSolutionJudged,
		RoomID:     roomID,
		Team:       team,
		ProblemID:  problem.ID,
		Accepted:   &accepted,
		OccurredAt: c.now(),
	}
	c.notify(ctx, []domain.MatchEvent{judged})

	if !accepted {
		return
	}
	if err := c.markSolved(ctx, roomID, team, problem.ID, true); err != nil {
		c.logger.Info(logging.Judge, logging.Submission, "accepted solution not recorded", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ProblemID:    problem.ID,
			logging.ErrorMessage: err.Error(),
		})
	}
}

func (c *Coordinator) requireInProgress(roomID string) error {
	unit, ok := c.lookup(roomID)
	if !ok {
		return domain.ErrRoomNotFound
	}

	unit.mu.Lock()
	defer unit.mu.Unlock()
	if unit.room.Status != domain.StatusInProgress {
		return domain.ErrMatchNotInProgress
	}
	return nil
}

func (c *Coordinator) countJudge(outcome string) {
	if c.metrics != nil {
		c.metrics.JudgeRuns.WithLabelValues(outcome).Inc()
	}
}
