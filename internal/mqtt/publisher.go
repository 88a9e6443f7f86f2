package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"load_profile/internal/pipeline"
)

// publishTimeout bounds how long one publish may wait for the broker.
const publishTimeout = 5 * time.Second

// tokenPublisher is the part of mqtt.Client the publisher needs.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Summary is the compact run outcome published after a generation.
type Summary struct {
	RunID            string  `json:"run_id"`
	ProfileID        string  `json:"profile_id"`
	StartYear        int     `json:"start_year"`
	EndYear          int     `json:"end_year"`
	Hours            int     `json:"hours"`
	TotalMWh         float64 `json:"total_mwh"`
	PeakMW           float64 `json:"peak_mw"`
	TargetsMet       bool    `json:"targets_met"`
	MaxTransitionPct float64 `json:"max_transition_pct"`
	Warnings         int     `json:"warnings"`
}

type message struct {
	topic   string
	payload []byte
	retain  bool
}

// Publisher implements pipeline.Callback. Events are queued and published
// from Start so a slow broker never blocks a run; when the queue is full new
// events are dropped.
type Publisher struct {
	client tokenPublisher
	topic  string // may contain {profile_id}
	queue  chan message
}

type PublisherConfig struct {
	Topic     string // e.g. "loadprofile/{profile_id}/progress"
	QueueSize int
}

func NewPublisher(client tokenPublisher, config PublisherConfig) *Publisher {
	size := config.QueueSize
	if size <= 0 {
		size = 64
	}
	return &Publisher{
		client: client,
		topic:  config.Topic,
		queue:  make(chan message, size),
	}
}

func (p *Publisher) OnProgress(ev pipeline.Progress) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("MQTT: marshal progress: %v", err)
		return
	}
	p.enqueue(message{topic: formatTopic(p.topic, ev.ProfileID), payload: payload})
}

// OnResult publishes a retained run summary on the "/result" subtopic.
func (p *Publisher) OnResult(r *pipeline.Result) {
	if r == nil {
		return
	}
	payload, err := json.Marshal(SummaryFromResult(r))
	if err != nil {
		log.Printf("MQTT: marshal summary: %v", err)
		return
	}
	p.enqueue(message{topic: formatTopic(p.topic, r.ProfileID) + "/result", payload: payload, retain: true})
}

func (p *Publisher) enqueue(m message) {
	select {
	case p.queue <- m:
	default:
		log.Printf("MQTT: queue full, dropping message for %s", m.topic)
	}
}

// Start publishes queued events until ctx is cancelled, then flushes what is
// already queued.
func (p *Publisher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return
		case m := <-p.queue:
			if err := p.publish(m); err != nil {
				log.Printf("MQTT: %v", err)
			}
		}
	}
}

func (p *Publisher) flush() {
	for {
		select {
		case m := <-p.queue:
			if err := p.publish(m); err != nil {
				log.Printf("MQTT: %v", err)
			}
		default:
			return
		}
	}
}

func (p *Publisher) publish(m message) error {
	token := p.client.Publish(m.topic, 1, m.retain, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}
	return nil
}

func SummaryFromResult(r *pipeline.Result) Summary {
	s := Summary{
		RunID:            r.RunID,
		ProfileID:        r.ProfileID,
		Hours:            r.Report.Overall.Hours,
		TotalMWh:         r.Report.Overall.TotalMWh,
		PeakMW:           r.Report.Overall.PeakMW,
		TargetsMet:       r.Report.TargetsMet,
		MaxTransitionPct: r.Report.Smoothness.MaxTransitionPct,
		Warnings:         len(r.Warnings),
	}
	if n := len(r.Report.Accuracy); n > 0 {
		s.StartYear = r.Report.Accuracy[0].FiscalYear
		s.EndYear = r.Report.Accuracy[n-1].FiscalYear
	}
	return s
}

// formatTopic replaces the {profile_id} placeholder.
func formatTopic(pattern, profileID string) string {
	return strings.ReplaceAll(pattern, "{profile_id}", profileID)
}
