package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
)

type fakeJudge0 struct {
	polls        atomic.Int32
	pendingPolls int32
	statuses     []int
	lastBatch    batchRequest
}

func (f *fakeJudge0) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /submissions/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("base64_encoded") != "false" {
			t.Errorf("base64_encoded = %q", r.URL.Query().Get("base64_encoded"))
		}
		if got := r.Header.Get("X-RapidAPI-Key"); got != "key" {
			t.Errorf("api key header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&f.lastBatch); err != nil {
			t.Error(err)
		}
		out := make([]tokenResponse, len(f.lastBatch.Submissions))
		for i := range out {
			out[i].Token = string(rune('a' + i))
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("GET /submissions/batch", func(w http.ResponseWriter, r *http.Request) {
		tokens := strings.Split(r.URL.Query().Get("tokens"), ",")
		n := f.polls.Add(1)

		var out batchResult
		for i, tok := range tokens {
			res := submissionResult{Token: tok}
			if n <= f.pendingPolls {
				res.Status.ID = StatusProcessing
				res.Status.Description = "Processing"
			} else {
				res.Status.ID = f.statuses[i]
				res.Status.Description = "done"
			}
			out.Submissions = append(out.Submissions, res)
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	return mux
}

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL:      url,
		APIKey:       "key",
		PollInterval: time.Millisecond,
		MaxWait:      2 * time.Second,
	}, logging.NewNop())
}

var cases = []domain.TestCase{
	{Input: "1 2", ExpectedOutput: "3"},
	{Input: "2 2", ExpectedOutput: "4"},
}

func TestRunPollsUntilSettled(t *testing.T) {
	fake := &fakeJudge0{pendingPolls: 2, statuses: []int{StatusAccepted, StatusAccepted}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	verdicts, err := newTestClient(srv.URL).Run(context.Background(), 71, "print(sum(map(int, input().split())))", cases)
	if err != nil {
		t.Fatal(err)
	}

	if got := fake.polls.Load(); got != 3 {
		t.Errorf("polls = %d, want 3", got)
	}
	if len(verdicts) != 2 || !domain.AllAccepted(verdicts) {
		t.Fatalf("verdicts = %+v", verdicts)
	}
	if len(fake.lastBatch.Submissions) != 2 || fake.lastBatch.Submissions[1].Stdin != "2 2" || fake.lastBatch.Submissions[0].LanguageID != 71 {
		t.Errorf("batch = %+v", fake.lastBatch)
	}
}

func TestRunReportsFailedCases(t *testing.T) {
	fake := &fakeJudge0{statuses: []int{StatusAccepted, 4}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	verdicts, err := newTestClient(srv.URL).Run(context.Background(), 71, "print(3)", cases)
	if err != nil {
		t.Fatal(err)
	}
	if domain.AllAccepted(verdicts) {
		t.Fatal("wrong answer must not be accepted")
	}
	if verdicts[1].TestCase != 1 || verdicts[1].StatusID != 4 || verdicts[1].Accepted {
		t.Errorf("verdict = %+v", verdicts[1])
	}
}

func TestRunStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad language", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Run(context.Background(), 9999, "x", cases)
	if err == nil || !strings.Contains(err.Error(), "bad language") {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRunGivesUpAfterMaxWait(t *testing.T) {
	fake := &fakeJudge0{pendingPolls: 1 << 30, statuses: []int{StatusAccepted, StatusAccepted}}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.cfg.MaxWait = 50 * time.Millisecond

	if _, err := c.Run(context.Background(), 71, "x", cases); err == nil {
		t.Fatal("expected timeout")
	}
}

func TestRunRequiresCases(t *testing.T) {
	if _, err := newTestClient("http://unused").Run(context.Background(), 71, "x", nil); err == nil {
		t.Fatal("expected error")
	}
}
