package coordinator

import (
	"errors"
	"testing"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/ws"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var twoSum = &domain.Problem{
	ID:    "two-sum",
	Title: "Two Sum",
	TestCases: []domain.TestCase{
		{Input: "1 2", ExpectedOutput: "3"},
		{Input: "2 2", ExpectedOutput: "4"},
	},
}

func withJudge(j Judge) func(*Options) {
	return func(o *Options) {
		o.Judge = j
		o.Problems = fakeProblems{twoSum.ID: twoSum}
	}
}

func startedRoom(t *testing.T, h *harness) {
	t.Helper()
	h.mustSend(t, "c-alice", ws.JoinSlot, m{"roomId": "r1", "team": "A", "slotIndex": 0, "username": "alice"})
	h.mustSend(t, "c-alice", ws.JoinProblemset, m{"roomId": "r1", "teamId": "A"})
	h.mustSend(t, "c-alice", ws.StartGame, m{"roomId": "r1"})
	h.gw.drain("c-alice")
}

func submit(problemID string) m {
	return m{"roomId": "r1", "teamId": "A", "problemId": problemID, "languageId": 71, "code": "print(sum(map(int, input().split())))"}
}

func TestAcceptedSubmissionMarksSolved(t *testing.T) {
	judge := &fakeJudge{verdicts: []domain.Verdict{
		{TestCase: 0, StatusID: 3, Status: "Accepted", Accepted: true},
		{TestCase: 1, StatusID: 3, Status: "Accepted", Accepted: true},
	}}
	h := newHarness(t, withJudge(judge))
	startedRoom(t, h)

	h.mustSend(t, "c-alice", ws.SubmitSolution, submit("two-sum"))
	h.c.Wait()

	msgs := h.gw.drain("c-alice")
	results := ofType(msgs, ws.SubmissionResult)
	if len(results) != 1 {
		t.Fatalf("submissionResult count = %d", len(results))
	}
	if p := results[0].Data.(ws.SubmissionResultPayload); !p.Accepted || len(p.Verdicts) != 2 {
		t.Fatalf("result = %+v", p)
	}
	if got := ofType(msgs, ws.SolvedProblem); len(got) != 1 {
		t.Fatalf("solvedProblem count = %d", len(got))
	}
	if snap := h.snapshot(t, "r1"); len(snap.Solved[domain.TeamA]) != 1 {
		t.Fatalf("solved = %v", snap.Solved)
	}
	if got := testutil.ToFloat64(h.metrics.JudgeRuns.WithLabelValues("accepted")); got != 1 {
		t.Fatalf("judge runs = %v", got)
	}
}

func TestRejectedSubmissionDoesNotMarkSolved(t *testing.T) {
	judge := &fakeJudge{verdicts: []domain.Verdict{
		{TestCase: 0, StatusID: 3, Status: "Accepted", Accepted: true},
		{TestCase: 1, StatusID: 4, Status: "Wrong Answer"},
	}}
	h := newHarness(t, withJudge(judge))
	startedRoom(t, h)

	h.mustSend(t, "c-alice", ws.SubmitSolution, submit("two-sum"))
	h.c.Wait()

	msgs := h.gw.drain("c-alice")
	results := ofType(msgs, ws.SubmissionResult)
	if len(results) != 1 || results[0].Data.(ws.SubmissionResultPayload).Accepted {
		t.Fatalf("results = %+v", results)
	}
	if got := ofType(msgs, ws.SolvedProblem); len(got) != 0 {
		t.Fatal("rejected submission announced a solve")
	}
}

func TestJudgeFailureReportsError(t *testing.T) {
	h := newHarness(t, withJudge(&fakeJudge{err: errors.New("judge down")}))
	startedRoom(t, h)

	h.mustSend(t, "c-alice", ws.SubmitSolution, submit("two-sum"))
	h.c.Wait()

	errs := ofType(h.gw.drain("c-alice"), ws.ErrorEvent)
	if len(errs) != 1 || errs[0].Data.(ws.ErrorPayload).Event != ws.SubmitSolution {
		t.Fatalf("errors = %+v", errs)
	}
}

func TestSubmissionPreconditions(t *testing.T) {
	judge := &fakeJudge{}
	h := newHarness(t, withJudge(judge))
	h.mustSend(t, "c-alice", ws.JoinRoom, m{"roomId": "r1", "username": "alice"})

	if err := h.send(t, "c-alice", ws.SubmitSolution, submit("two-sum")); !errors.Is(err, domain.ErrMatchNotInProgress) {
		t.Fatalf("lobby submit err = %v", err)
	}

	h.mustSend(t, "c-alice", ws.StartGame, m{"roomId": "r1"})
	if err := h.send(t, "c-alice", ws.SubmitSolution, submit("missing")); !errors.Is(err, domain.ErrProblemNotFound) {
		t.Fatalf("missing problem err = %v", err)
	}

	bad := submit("two-sum")
	bad["languageId"] = 0
	if err := h.send(t, "c-alice", ws.SubmitSolution, bad); ws.ErrorCode(err) != ws.CodeMalformedEvent {
		t.Fatalf("bad language err = %v", err)
	}
	h.c.Wait()
	if judge.calls != 0 {
		t.Fatalf("judge called %d times", judge.calls)
	}

	plain := newHarness(t)
	plain.mustSend(t, "c1", ws.JoinRoom, m{"roomId": "r1", "username": "alice"})
	if err := plain.send(t, "c1", ws.SubmitSolution, submit("two-sum")); ws.ErrorCode(err) != ws.CodeUnavailable {
		t.Fatalf("no judge err = %v", err)
	}
}
