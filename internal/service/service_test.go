package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskbot/internal/model"
	"taskbot/internal/repository"
)

// newTestDB opens a per-test in-memory SQLite database with the schema
// migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", url.PathEscape(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Task{}, &model.Todo{}, &model.Project{}, &model.Group{}))
	return db
}

type sentMessage struct {
	Owner string
	Text  string
}

type sentPrompt struct {
	Owner   string
	Text    string
	Buttons []PromptButton
}

// fakeNotifier records deliveries and can be told to fail for an owner.
type fakeNotifier struct {
	mu      sync.Mutex
	failFor map[string]bool
	users   []sentMessage
	groups  []sentMessage
	prompts []sentPrompt
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: make(map[string]bool)}
}

func (n *fakeNotifier) SendToUser(ctx context.Context, ownerID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[ownerID] {
		return fmt.Errorf("delivery to %s refused", ownerID)
	}
	n.users = append(n.users, sentMessage{Owner: ownerID, Text: text})
	return nil
}

func (n *fakeNotifier) SendPrompt(ctx context.Context, ownerID, text string, buttons []PromptButton) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[ownerID] {
		return fmt.Errorf("delivery to %s refused", ownerID)
	}
	n.prompts = append(n.prompts, sentPrompt{Owner: ownerID, Text: text, Buttons: buttons})
	return nil
}

func (n *fakeNotifier) SendToGroup(ctx context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.groups = append(n.groups, sentMessage{Owner: fmt.Sprint(chatID), Text: text})
	return nil
}

func (n *fakeNotifier) userMessages(owner string) []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMessage
	for _, m := range n.users {
		if m.Owner == owner {
			out = append(out, m)
		}
	}
	return out
}

func (n *fakeNotifier) promptsFor(owner string) []sentPrompt {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentPrompt
	for _, p := range n.prompts {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	return out
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newRepos(t *testing.T) (*gorm.DB, *repository.TaskRepository, *repository.TodoRepository, *repository.GroupRepository) {
	t.Helper()
	db := newTestDB(t)
	return db, repository.NewTaskRepository(db), repository.NewTodoRepository(db), repository.NewGroupRepository(db)
}
