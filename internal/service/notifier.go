package service

import (
	"context"

	"taskbot/internal/command"
)

// PromptButton is one choice offered on a structured prompt message.
type PromptButton struct {
	Label  string
	Prompt command.Prompt
}

// Notifier delivers messages to owners and watch groups. Delivery is
// best-effort and at-least-once; callers log failures and move on.
type Notifier interface {
	SendToUser(ctx context.Context, ownerID, text string) error
	SendPrompt(ctx context.Context, ownerID, text string, buttons []PromptButton) error
	SendToGroup(ctx context.Context, chatID int64, text string) error
}

func prompt(action string, taskID uint) command.Prompt {
	return command.Prompt{Action: action, TaskID: taskID}
}

func doneButton(taskID uint) PromptButton {
	return PromptButton{Label: "✅ Done", Prompt: prompt(command.PromptDoneTask, taskID)}
}

func deleteButton(taskID uint) PromptButton {
	return PromptButton{Label: "🗑 Delete", Prompt: prompt(command.PromptDeleteTask, taskID)}
}

func cancelButton(taskID uint) PromptButton {
	return PromptButton{Label: "↩️ Keep it", Prompt: prompt(command.PromptCancel, taskID)}
}
