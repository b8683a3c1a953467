// Package notify fans a successful action out to its recipients over every
// configured channel. Delivery is best effort: failures are logged and
// counted, never returned.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"actionhub/internal/actions"
	"actionhub/internal/membership"
	"actionhub/internal/metrics"
	"actionhub/internal/notify/channels"
	"actionhub/internal/utils"
	"actionhub/internal/utils/logger"

	"golang.org/x/sync/errgroup"
)

var log = logger.New("NOTIFY")

// ErrRecipientRuleUnsupported marks recipient rules with no resolver yet.
var ErrRecipientRuleUnsupported = errors.New("recipient rule not supported")

// Job is everything needed to notify for one successful action. It is JSON
// encodable so it can cross a queue; the credential never is.
type Job struct {
	ActionKey  string                     `json:"actionKey"`
	Config     actions.NotificationConfig `json:"config"`
	Params     map[string]interface{}     `json:"params"`
	Result     json.RawMessage            `json:"result,omitempty"`
	CallerID   string                     `json:"callerId"`
	CallerName string                     `json:"callerName,omitempty"`
	Locale     string                     `json:"locale,omitempty"`
	RequestID  string                     `json:"requestId,omitempty"`
	Credential string                     `json:"-"`
}

// Outcome counts per-target results on one channel.
type Outcome struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Report summarises a Notify run.
type Report struct {
	Recipients int                          `json:"recipients"`
	Channels   map[actions.Channel]*Outcome `json:"channels"`
	mu         sync.Mutex
}

func newReport() *Report {
	return &Report{Channels: make(map[actions.Channel]*Outcome)}
}

func (r *Report) add(ch actions.Channel, sent, skipped, failed int) {
	r.mu.Lock()
	o, ok := r.Channels[ch]
	if !ok {
		o = &Outcome{}
		r.Channels[ch] = o
	}
	o.Sent += sent
	o.Skipped += skipped
	o.Failed += failed
	r.mu.Unlock()

	m := metrics.NotificationSends
	m.WithLabelValues(string(ch), "sent").Add(float64(sent))
	m.WithLabelValues(string(ch), "skipped").Add(float64(skipped))
	m.WithLabelValues(string(ch), "failed").Add(float64(failed))
}

// Outcome returns a copy of the tally for ch.
func (r *Report) Outcome(ch actions.Channel) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.Channels[ch]; ok {
		return *o
	}
	return Outcome{}
}

// Orchestrator resolves recipients and drives the channel senders.
type Orchestrator struct {
	members       membership.Source
	senders       map[actions.Channel]channels.Sender
	concurrency   int
	defaultLocale string
}

type Option func(*Orchestrator)

// WithConcurrency bounds in-flight sends per channel.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithDefaultLocale sets the last-resort template language.
func WithDefaultLocale(locale string) Option {
	return func(o *Orchestrator) { o.defaultLocale = locale }
}

func New(members membership.Source, senders []channels.Sender, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		members:       members,
		senders:       make(map[actions.Channel]channels.Sender, len(senders)),
		concurrency:   16,
		defaultLocale: actions.LocaleHebrew,
	}
	for _, s := range senders {
		o.senders[s.Channel()] = s
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Notify delivers job and reports what happened. It never fails and never
// panics.
func (o *Orchestrator) Notify(ctx context.Context, job Job) (report *Report) {
	report = newReport()
	defer func() {
		if r := recover(); r != nil {
			log.Error("notify %s panicked", fmt.Errorf("%v", r), job.ActionKey)
		}
	}()

	recipients, err := o.recipients(ctx, job)
	if err != nil {
		if errors.Is(err, ErrRecipientRuleUnsupported) {
			log.Warn("%s: %v, nobody notified", job.ActionKey, err)
		} else {
			log.Error("resolve recipients for %s", err, job.ActionKey)
		}
		return report
	}
	if job.Config.Recipients.ExcludeSender {
		recipients = without(recipients, job.CallerID)
	}
	report.Recipients = len(recipients)
	if len(recipients) == 0 {
		log.Debug("%s: no recipients", job.ActionKey)
		return report
	}

	vars := newRenderVars(job)
	metadata := job.Config.Metadata
	metadata.URL = vars.render(metadata.URL)
	messages := make(map[string]channels.Message, len(actions.SupportedLocales))
	for _, p := range recipients {
		locale := pickLocale(p.Locale, job.Locale, o.defaultLocale)
		if _, ok := messages[locale]; ok {
			continue
		}
		messages[locale] = channels.Message{
			Title:     vars.render(job.Config.Templates.Title.In(locale)),
			Body:      vars.render(job.Config.Templates.Body.In(locale)),
			Locale:    locale,
			ActionKey: job.ActionKey,
			SenderID:  job.CallerID,
			Metadata:  metadata,
			Data:      job.Result,
		}
	}

	var channelsWG sync.WaitGroup
	for _, ch := range job.Config.Channels {
		ch := ch
		sender, ok := o.senders[ch]
		if !ok {
			log.Warn("%s: channel %s has no sender", job.ActionKey, ch)
			report.add(ch, 0, len(recipients), 0)
			continue
		}
		channelsWG.Add(1)
		go func() {
			defer channelsWG.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error("channel %s panicked", fmt.Errorf("%v", r), ch)
				}
			}()
			o.deliver(ctx, sender, recipients, messages, job, report)
		}()
	}
	channelsWG.Wait()

	for ch, out := range report.Channels {
		log.Debug("%s via %s: sent=%d skipped=%d failed=%d", job.ActionKey, ch, out.Sent, out.Skipped, out.Failed)
	}
	return report
}

// deliver fans out over recipients and their targets. Every send runs to
// completion regardless of the others.
func (o *Orchestrator) deliver(ctx context.Context, sender channels.Sender, recipients []membership.UserProfile, messages map[string]channels.Message, job Job, report *Report) {
	ch := sender.Channel()
	var g errgroup.Group
	g.SetLimit(o.concurrency)

	for _, p := range recipients {
		p := p
		targets := sender.Targets(p)
		if len(targets) == 0 {
			report.add(ch, 0, 1, 0)
			continue
		}
		msg := messages[pickLocale(p.Locale, job.Locale, o.defaultLocale)]
		for _, target := range targets {
			target := target
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						log.Error("%s send to %s panicked", fmt.Errorf("%v", r), ch, p.ID)
						report.add(ch, 0, 0, 1)
					}
				}()
				if err := sender.Send(ctx, target, msg); err != nil {
					log.Error("%s send to user %s (target %s) for %s", err, ch, p.ID, mask(ch, target), job.ActionKey)
					report.add(ch, 0, 0, 1)
					return nil
				}
				report.add(ch, 1, 0, 0)
				return nil
			})
		}
	}
	_ = g.Wait()
}

func (o *Orchestrator) recipients(ctx context.Context, job Job) ([]membership.UserProfile, error) {
	rule := job.Config.Recipients
	switch rule.Type {
	case actions.RecipientsRelationMembers, actions.RecipientsSpecificUsers:
	default:
		return nil, fmt.Errorf("%w: %s", ErrRecipientRuleUnsupported, rule.Type)
	}

	relationID, ok := utils.LookupString(job.Params, rule.RelationIDParam)
	if !ok {
		return nil, fmt.Errorf("missing relation id at %q", rule.RelationIDParam)
	}
	if o.members == nil {
		return nil, errors.New("no membership source configured")
	}
	members, err := o.members.Members(membership.WithCredential(ctx, job.Credential), relationID)
	if err != nil {
		return nil, err
	}
	if rule.Type == actions.RecipientsRelationMembers {
		return members, nil
	}

	wanted := idSet(job.Params, rule.UserIDsParam)
	selected := make([]membership.UserProfile, 0, len(wanted))
	for _, m := range members {
		if _, ok := wanted[m.ID]; ok {
			selected = append(selected, m)
		}
	}
	return selected, nil
}

// idSet reads a single id or a list of ids from params.
func idSet(params map[string]interface{}, path string) map[string]struct{} {
	set := make(map[string]struct{})
	v, _ := utils.Lookup(params, path)
	switch ids := v.(type) {
	case []interface{}:
		for _, id := range ids {
			if s := utils.Stringify(id); s != "" {
				set[s] = struct{}{}
			}
		}
	default:
		if s := utils.Stringify(ids); s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

func without(profiles []membership.UserProfile, id string) []membership.UserProfile {
	out := make([]membership.UserProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// mask shortens addresses that are credentials in their own right.
func mask(ch actions.Channel, target string) string {
	if ch != actions.ChannelPush || len(target) <= 12 {
		return target
	}
	return target[:12] + "…"
}
