package command

import (
	"fmt"
	"net/url"
	"strconv"
)

// Prompt actions attached to reply buttons.
const (
	PromptDoneTask         = "done-task"
	PromptDeleteTask       = "delete-task"
	PromptPostponeTomorrow = "postpone-tomorrow"
	PromptPostponeWeekday  = "postpone-weekday"
	PromptCancel           = "cancel"
)

// Prompt is the flat key=value payload carried by a structured reply
// button, e.g. "action=delete-task&id=123".
type Prompt struct {
	Action string
	TaskID uint
}

// Encode renders the prompt in its wire form.
func (p Prompt) Encode() string {
	values := url.Values{}
	values.Set("action", p.Action)
	if p.TaskID != 0 {
		values.Set("id", strconv.FormatUint(uint64(p.TaskID), 10))
	}
	return values.Encode()
}

// ParsePrompt decodes a prompt payload produced by Encode.
func ParsePrompt(data string) (Prompt, error) {
	values, err := url.ParseQuery(data)
	if err != nil {
		return Prompt{}, fmt.Errorf("parse prompt: %w", err)
	}
	action := values.Get("action")
	if action == "" {
		return Prompt{}, fmt.Errorf("prompt missing action: %q", data)
	}
	prompt := Prompt{Action: action}
	if raw := values.Get("id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return Prompt{}, fmt.Errorf("prompt id %q: %w", raw, err)
		}
		prompt.TaskID = uint(id)
	}
	return prompt, nil
}
