package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbot/internal/command"
	"taskbot/internal/service"
)

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()

	_, ok := store.Get("owner-1")
	assert.False(t, ok)

	store.Set("owner-1", Session{Prompt: command.Prompt{Action: command.PromptDeleteTask, TaskID: 7}})
	session, ok := store.Get("owner-1")
	require.True(t, ok)
	assert.Equal(t, uint(7), session.Prompt.TaskID)

	store.Delete("owner-1")
	_, ok = store.Get("owner-1")
	assert.False(t, ok)
}

func TestConfirmStyle(t *testing.T) {
	button := func(action string) service.PromptButton {
		return service.PromptButton{Prompt: command.Prompt{Action: action, TaskID: 1}}
	}

	// One action plus cancel: a plain-text "yes" is unambiguous.
	assert.True(t, confirmStyle([]service.PromptButton{button(command.PromptDeleteTask), button(command.PromptCancel)}))
	assert.True(t, confirmStyle([]service.PromptButton{button(command.PromptDoneTask), button(command.PromptCancel)}))

	// Multi-action menus (the triage prompt) must not arm a session:
	// "yes" would silently pick the first choice.
	assert.False(t, confirmStyle([]service.PromptButton{
		button(command.PromptPostponeTomorrow),
		button(command.PromptPostponeWeekday),
		button(command.PromptDeleteTask),
		button(command.PromptCancel),
	}))
	assert.False(t, confirmStyle([]service.PromptButton{button(command.PromptDeleteTask)}))
	assert.False(t, confirmStyle([]service.PromptButton{button(command.PromptDeleteTask), button(command.PromptDoneTask)}))
	assert.False(t, confirmStyle(nil))
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore()

	store.Set("owner-1", Session{
		Prompt:    command.Prompt{Action: command.PromptCancel},
		ExpiresAt: time.Now().Add(-time.Second),
	})
	_, ok := store.Get("owner-1")
	assert.False(t, ok)

	// Setting another owner evicts the expired entry as well.
	store.Set("owner-1", Session{Prompt: command.Prompt{Action: command.PromptCancel}, ExpiresAt: time.Now().Add(-time.Second)})
	store.Set("owner-2", Session{Prompt: command.Prompt{Action: command.PromptCancel}})
	_, ok = store.Get("owner-1")
	assert.False(t, ok)
	_, ok = store.Get("owner-2")
	assert.True(t, ok)
}
