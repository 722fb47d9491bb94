package alerter

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/model"
	"fmt"
	"log"
	"strings"
)

// Metrics accepted in alerter rules.
var metrics = map[string]func(h *model.HostRecord) (float64, string){
	"int_sent": func(h *model.HostRecord) (float64, string) { return float64(h.Internal.BytesSent), "bytes" },
	"int_recv": func(h *model.HostRecord) (float64, string) { return float64(h.Internal.BytesReceived), "bytes" },
	"ext_sent": func(h *model.HostRecord) (float64, string) { return float64(h.External.BytesSent), "bytes" },
	"ext_recv": func(h *model.HostRecord) (float64, string) { return float64(h.External.BytesReceived), "bytes" },
	"packets": func(h *model.HostRecord) (float64, string) {
		return float64(h.Internal.PacketCount + h.External.PacketCount), "packets"
	},
	"tcp": func(h *model.HostRecord) (float64, string) {
		return float64(h.Internal.TCPBytes + h.External.TCPBytes), "bytes"
	},
	"udp": func(h *model.HostRecord) (float64, string) {
		return float64(h.Internal.UDPBytes + h.External.UDPBytes), "bytes"
	},
	"icmp": func(h *model.HostRecord) (float64, string) {
		return float64(h.Internal.ICMPBytes + h.External.ICMPBytes), "bytes"
	},
	"total": func(h *model.HostRecord) (float64, string) {
		total := h.Internal.BytesSent + h.Internal.BytesReceived + h.External.BytesSent + h.External.BytesReceived
		return float64(total), "bytes"
	},
}

// Alerter evaluates every flushed snapshot against per-host threshold rules
// and sends one consolidated notification when any of them fire.
type Alerter struct {
	rules    []config.AlerterRule
	notifier model.Notifier
}

// NewAlerter validates the rules and creates a new Alerter.
func NewAlerter(cfg *config.AlerterConfig, notifier model.Notifier) (*Alerter, error) {
	if len(cfg.Rules) == 0 {
		return nil, fmt.Errorf("alerter has no rules")
	}
	for _, rule := range cfg.Rules {
		if _, ok := metrics[rule.Metric]; !ok {
			return nil, fmt.Errorf("rule '%s': unknown metric '%s'", rule.Name, rule.Metric)
		}
		if !validOperator(rule.Operator) {
			return nil, fmt.Errorf("rule '%s': unknown operator '%s'", rule.Name, rule.Operator)
		}
	}
	return &Alerter{rules: cfg.Rules, notifier: notifier}, nil
}

func (a *Alerter) Name() string {
	return "alert"
}

// Emit evaluates the snapshot and notifies when at least one rule fires.
func (a *Alerter) Emit(snapshot *model.Snapshot) error {
	messages := a.Evaluate(snapshot)
	if len(messages) == 0 {
		return nil
	}

	log.Printf("Alerter evaluation completed. %d alert(s) triggered.", len(messages))

	body := "<h1>Go2NetBandwidth Alert Summary</h1>" +
		fmt.Sprintf("<p>The following alerts were triggered for the interval ending %s:</p><hr>",
			snapshot.Timestamp.Format("2006-01-02 15:04:05")) +
		strings.Join(messages, "<hr>")

	if a.notifier == nil {
		return nil
	}
	subject := fmt.Sprintf("Go2NetBandwidth Alert Summary (%d Triggered)", len(messages))
	if err := a.notifier.Send(subject, body); err != nil {
		return fmt.Errorf("failed to send alert notification: %w", err)
	}
	log.Printf("INFO: Consolidated alert notification sent successfully.")
	return nil
}

// Evaluate returns one HTML fragment per (host, rule) pair that fired.
func (a *Alerter) Evaluate(snapshot *model.Snapshot) []string {
	var triggered []string
	for i := range snapshot.Hosts {
		h := &snapshot.Hosts[i]
		for _, rule := range a.rules {
			value, unit := metrics[rule.Metric](h)
			if !check(value, rule.Threshold, rule.Operator) {
				continue
			}
			triggered = append(triggered, fmt.Sprintf("<h3>Alert: %s</h3>"+
				"<ul>"+
				"<li><b>Host:</b> <code>%s</code></li>"+
				"<li><b>Metric:</b> <code>%s</code></li>"+
				"<li><b>Condition:</b> <code>%s %.2f</code></li>"+
				"<li><b>Observed Value:</b> <code>%.0f %s</code></li>"+
				"</ul>",
				rule.Name, h.Address, rule.Metric, rule.Operator, rule.Threshold, value, unit))
		}
	}
	return triggered
}

func validOperator(op string) bool {
	switch op {
	case ">", "<", "=", ">=", "<=":
		return true
	}
	return false
}

// check compares a value against a threshold based on an operator.
func check(value, threshold float64, operator string) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case "=":
		return value == threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	default:
		log.Printf("Warning: unknown operator '%s' in alerter rule", operator)
		return false
	}
}
