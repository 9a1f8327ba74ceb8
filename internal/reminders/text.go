package reminders

import (
	"fmt"

	"github.com/clearcase/worker/internal/push"
)

// Notification builds the localized push message for r addressed to token.
func Notification(r *Reminder, token string) push.Message {
	deadline := r.DeadlineISO()

	var title, body string
	switch r.Language {
	case LanguageSpanish:
		title = "Recordatorio de fecha limite"
		if r.OffsetDays == 1 {
			body = fmt.Sprintf("Su fecha limite es manana (%s). Revise su caso en ClearCase.", deadline)
		} else {
			body = fmt.Sprintf("Su fecha limite es en %d dias (%s). Revise su caso en ClearCase.", r.OffsetDays, deadline)
		}
	default:
		title = "Deadline reminder"
		if r.OffsetDays == 1 {
			body = fmt.Sprintf("Your deadline is tomorrow (%s). Review your case in ClearCase.", deadline)
		} else {
			body = fmt.Sprintf("Your deadline is in %d days (%s). Review your case in ClearCase.", r.OffsetDays, deadline)
		}
	}

	return push.Message{
		To:    token,
		Title: title,
		Body:  body,
		Data: map[string]any{
			"type":       "deadline_reminder",
			"caseId":     r.CaseID.String(),
			"reminderId": r.ID.String(),
			"offsetDays": r.OffsetDays,
		},
	}
}
