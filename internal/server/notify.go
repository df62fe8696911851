package server

import (
	"time"

	"github.com/ironsheep/timer-ocr-mcp/internal/countdown"
	"github.com/ironsheep/timer-ocr-mcp/internal/runner"
)

// Notification methods pushed to the client.
const (
	NotifyTimerProgress  = "notifications/timer/progress"
	NotifyTimerCancelled = "notifications/timer/cancelled"
	NotifyTimerFinished  = "notifications/timer/finished"
	NotifyTimerAlarm     = "notifications/timer/alarm"
	NotifyTimerDismissed = "notifications/timer/dismissed"
	NotifyOCRProgress    = "notifications/ocr/progress"
	NotifyOCRCompleted   = "notifications/ocr/completed"
)

// mcpNotifier forwards countdown notifications to the MCP client.
type mcpNotifier struct {
	s *Server
}

func (n *mcpNotifier) Progress(remaining time.Duration) {
	n.s.notify(NotifyTimerProgress, map[string]interface{}{
		"remaining_ms": remaining.Milliseconds(),
		"text":         countdown.FormatRemaining(remaining),
	})
}

func (n *mcpNotifier) Cancel() {
	n.s.notify(NotifyTimerCancelled, nil)
}

func (n *mcpNotifier) Finished() {
	n.s.notify(NotifyTimerFinished, map[string]interface{}{
		"title": "Timer Finished",
		"text":  countdown.FinishedText,
	})
}

func (n *mcpNotifier) StartAlarm() {
	n.s.notify(NotifyTimerAlarm, map[string]interface{}{"ringing": true})
}

func (n *mcpNotifier) StopAlarm() {
	n.s.notify(NotifyTimerAlarm, map[string]interface{}{"ringing": false})
}

func (n *mcpNotifier) Dismissed() {
	n.s.notify(NotifyTimerDismissed, nil)
}

// onRunnerEvent forwards OCR progress and completion to the client.
func (s *Server) onRunnerEvent(ev runner.Event) {
	switch ev.Kind {
	case runner.EventProgress:
		s.notify(NotifyOCRProgress, map[string]interface{}{
			"request_id": ev.RequestID,
			"label":      ev.Label,
			"message":    ev.Message,
		})
	case runner.EventCompleted:
		params := map[string]interface{}{
			"request_id": ev.RequestID,
			"label":      ev.Label,
			"success":    ev.Success,
		}
		if ev.Message != "" {
			params["message"] = ev.Message
		}
		s.notify(NotifyOCRCompleted, params)
	}
}
