package logger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
)

const (
	axiomBuffer    = 1000
	axiomBatchSize = 200
)

// axiomWriter forwards zerolog JSON lines to Axiom (dropping debug level).
type axiomWriter struct{ client eventSink }

type eventSink interface {
	Send(ev axiom.Event)
}

func (w *axiomWriter) Write(p []byte) (int, error) {
	ev, ok := toEvent(p)
	if ok {
		w.client.Send(ev)
	}
	return len(p), nil
}

// toEvent decodes one zerolog line. Debug events are not shipped.
func toEvent(p []byte) (axiom.Event, bool) {
	var ev map[string]any
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]any{"message": string(p), "level": "info"}
	}
	if lvl, ok := ev["level"].(string); ok && lvl == "debug" {
		return nil, false
	}
	ev["service"] = ServiceName
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	return axiom.Event(ev), true
}

// Minimal Axiom batching client
type axiomClient struct {
	client  *axiom.Client
	dataset string
	ch      chan axiom.Event
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func newAxiomClient(token, orgID, dataset string, flushEvery time.Duration) (*axiomClient, error) {
	if dataset == "" {
		dataset = "dev_" + ServiceName
	}
	opts := []axiom.Option{axiom.SetToken(token)}
	if orgID != "" {
		opts = append(opts, axiom.SetOrganizationID(orgID))
	}
	c, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	ac := &axiomClient{
		client:  c,
		dataset: dataset,
		ch:      make(chan axiom.Event, axiomBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
	if flushEvery <= 0 {
		flushEvery = 10 * time.Second
	}
	ac.wg.Add(1)
	go ac.loop(flushEvery)
	return ac, nil
}

func (a *axiomClient) Send(ev axiom.Event) {
	select {
	case a.ch <- ev:
	default:
		// drop if buffer full
	}
}

func (a *axiomClient) loop(flushEvery time.Duration) {
	defer a.wg.Done()
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()
	batch := make([]axiom.Event, 0, axiomBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		_, _ = a.client.IngestEvents(ctx, a.dataset, batch)
		cancel()
		batch = batch[:0]
	}
	for {
		select {
		case <-a.ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case ev := <-a.ch:
			batch = append(batch, ev)
			if len(batch) >= axiomBatchSize {
				flush()
			}
		}
	}
}

func (a *axiomClient) Close() error {
	a.cancel()
	a.wg.Wait()
	return nil
}
