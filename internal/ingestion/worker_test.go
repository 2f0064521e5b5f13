package ingestion_test

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/ingestion"
	"TrancheAllocator/internal/observability"
	"TrancheAllocator/internal/report"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) PublishReport(_ context.Context, subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{subject: subject, data: data})
	return nil
}

type delivery struct {
	acked, naked int
}

func (d *delivery) raw(data string) ingestion.RawRequest {
	return ingestion.RawRequest{
		Subject: "allocator.requests.test",
		Data:    []byte(data),
		AckFunc: func() { d.acked++ },
		NakFunc: func() { d.naked++ },
	}
}

const validRequest = `{
	"request_id": "req-1",
	"wallets": [
		{"id": "w1", "balance": "100.00", "tranches": ["A"], "percentage": "0.75"},
		{"id": "w2", "balance": "50.00", "tranches": ["A"], "percentage": "0.75"}
	],
	"tranches": [
		{"id": "t1", "name": "A", "amount": "60.00", "percentage": "0.70"},
		{"id": "t2", "name": "A", "amount": "30.00", "percentage": "0.75"}
	]
}`

func newTestWorker(pub ingestion.ReportPublisher) *ingestion.Worker {
	defaults := ingestion.Defaults{Strategy: allocation.StrategyProportional, ApplyCap: true, MaxRounds: 100, NaiveMaxPence: 10_000}
	return ingestion.NewWorker(pub, defaults, "allocator.results", 8, zerolog.Nop(), nil)
}

func decodeReport(t *testing.T, data []byte) report.RunReport {
	t.Helper()
	var rep report.RunReport
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return rep
}

func TestWorker_ProcessesRequest(t *testing.T) {
	pub := &fakePublisher{}
	d := &delivery{}

	newTestWorker(pub).Handle(context.Background(), d.raw(validRequest))

	if d.acked != 1 || d.naked != 0 {
		t.Fatalf("acked=%d naked=%d, want 1/0", d.acked, d.naked)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("published %d reports, want 1", len(pub.sent))
	}

	rep := decodeReport(t, pub.sent[0].data)
	if pub.sent[0].subject != "allocator.results."+rep.RunID {
		t.Errorf("subject: got %s, want allocator.results.%s", pub.sent[0].subject, rep.RunID)
	}
	if rep.RequestID != "req-1" || rep.Strategy != allocation.StrategyProportional {
		t.Errorf("report header: %+v", rep)
	}
	if rep.Termination != "tranches_funded" {
		t.Errorf("termination: got %s, want tranches_funded", rep.Termination)
	}
	if rep.Error != "" {
		t.Errorf("unexpected error: %s", rep.Error)
	}

	var total int64
	for _, a := range rep.Allocations {
		total += a.Amount.Amount()
	}
	if total != 9_000 {
		t.Errorf("allocated total: got %d, want 9000", total)
	}
}

func TestWorker_DuplicateRequestRepublishesCachedReport(t *testing.T) {
	pub := &fakePublisher{}
	d := &delivery{}
	w := newTestWorker(pub)

	w.Handle(context.Background(), d.raw(validRequest))
	w.Handle(context.Background(), d.raw(validRequest))

	if d.acked != 2 {
		t.Fatalf("acked=%d, want 2", d.acked)
	}
	if len(pub.sent) != 2 {
		t.Fatalf("published %d reports, want 2", len(pub.sent))
	}
	if pub.sent[0].subject != pub.sent[1].subject || string(pub.sent[0].data) != string(pub.sent[1].data) {
		t.Error("redelivered request should get the identical report")
	}
}

func TestWorker_MalformedRequestAcksWithErrorReport(t *testing.T) {
	cases := map[string]string{
		"bad json":         `{"wallets": [`,
		"unknown strategy": `{"request_id": "r", "strategy": "greedy", "wallets": [], "tranches": []}`,
		"duplicate ids":    `{"wallets": [{"id": "w1", "balance": "1"}, {"id": "w1", "balance": "2"}], "tranches": []}`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			pub := &fakePublisher{}
			d := &delivery{}

			newTestWorker(pub).Handle(context.Background(), d.raw(input))

			if d.acked != 1 || d.naked != 0 {
				t.Fatalf("acked=%d naked=%d, want 1/0", d.acked, d.naked)
			}
			if len(pub.sent) != 1 || pub.sent[0].subject != "allocator.results.errors" {
				t.Fatalf("expected one error report, got %+v", pub.sent)
			}
			rep := decodeReport(t, pub.sent[0].data)
			if !strings.Contains(rep.Error, ingestion.ErrMalformedRequest.Error()) {
				t.Errorf("error: got %q", rep.Error)
			}
			if rep.RunID != "" {
				t.Errorf("error report should carry no run id, got %s", rep.RunID)
			}
		})
	}
}

func TestWorker_PublishFailureNaks(t *testing.T) {
	pub := &fakePublisher{err: errors.New("jetstream unavailable")}
	d := &delivery{}

	newTestWorker(pub).Handle(context.Background(), d.raw(validRequest))

	if d.acked != 0 || d.naked != 1 {
		t.Errorf("acked=%d naked=%d, want 0/1", d.acked, d.naked)
	}
}

func TestWorker_CancelledContextNaks(t *testing.T) {
	pub := &fakePublisher{}
	d := &delivery{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	newTestWorker(pub).Handle(ctx, d.raw(validRequest))

	if d.naked != 1 {
		t.Errorf("naked=%d, want 1", d.naked)
	}
	if len(pub.sent) != 0 {
		t.Errorf("nothing should be published, got %d", len(pub.sent))
	}
}

func TestWorker_RequestOverridesDefaults(t *testing.T) {
	pub := &fakePublisher{}
	d := &delivery{}
	req := strings.Replace(validRequest, `"request_id": "req-1",`, `"request_id": "req-2", "strategy": "naive", "apply_cap": false,`, 1)

	newTestWorker(pub).Handle(context.Background(), d.raw(req))

	if len(pub.sent) != 1 {
		t.Fatalf("published %d reports, want 1", len(pub.sent))
	}
	rep := decodeReport(t, pub.sent[0].data)
	if rep.Strategy != allocation.StrategyNaive {
		t.Errorf("strategy: got %s, want naive", rep.Strategy)
	}
}

func TestWorker_NaiveRequestBeyondLimitIsRejected(t *testing.T) {
	// 150.00 of balances and 120.00 of tranches: 12000 pence movable.
	req := strings.Replace(validRequest, `"request_id": "req-1",`, `"request_id": "req-3", "strategy": "naive",`, 1)
	req = strings.Replace(req, `"amount": "30.00"`, `"amount": "60.00"`, 1)

	cases := map[string]int64{
		"over the limit": 10_000,
		"naive disabled": 0,
	}
	for name, limit := range cases {
		t.Run(name, func(t *testing.T) {
			pub := &fakePublisher{}
			d := &delivery{}
			defaults := ingestion.Defaults{Strategy: allocation.StrategyProportional, ApplyCap: true, MaxRounds: 100, NaiveMaxPence: limit}

			ingestion.NewWorker(pub, defaults, "allocator.results", 8, zerolog.Nop(), nil).Handle(context.Background(), d.raw(req))

			if d.acked != 1 || d.naked != 0 {
				t.Fatalf("acked=%d naked=%d, want 1/0", d.acked, d.naked)
			}
			if len(pub.sent) != 1 || pub.sent[0].subject != "allocator.results.errors" {
				t.Fatalf("expected one error report, got %+v", pub.sent)
			}
			rep := decodeReport(t, pub.sent[0].data)
			if !strings.Contains(rep.Error, ingestion.ErrMalformedRequest.Error()) {
				t.Errorf("error: got %q", rep.Error)
			}
			if rep.RequestID != "req-3" {
				t.Errorf("request id: got %q", rep.RequestID)
			}
		})
	}
}

func TestWorker_RunStopsWhenChannelCloses(t *testing.T) {
	pub := &fakePublisher{}
	d := &delivery{}
	in := make(chan ingestion.RawRequest, 2)
	in <- d.raw(validRequest)
	in <- d.raw(`{`)
	close(in)

	if err := newTestWorker(pub).Run(context.Background(), in); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.acked != 2 {
		t.Errorf("acked=%d, want 2", d.acked)
	}
}

func TestWorker_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	defaults := ingestion.Defaults{Strategy: allocation.StrategyProportional, ApplyCap: true, MaxRounds: 100}
	w := ingestion.NewWorker(&fakePublisher{}, defaults, "allocator.results", 8, zerolog.Nop(), metrics)
	d := &delivery{}

	w.Handle(context.Background(), d.raw(validRequest))
	w.Handle(context.Background(), d.raw(`{`))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	outcomes := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "alloc_worker_messages_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" {
					outcomes[l.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	if outcomes["processed"] != 1 || outcomes["malformed"] != 1 {
		t.Errorf("outcomes: got %v", outcomes)
	}
}
