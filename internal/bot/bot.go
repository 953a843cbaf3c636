package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"taskbot/internal/command"
	"taskbot/internal/config"
	"taskbot/internal/model"
	"taskbot/internal/repository"
	"taskbot/internal/service"
)

const helpText = `I track your tasks. Commands:
add [YYYY-MM-DD HH:mm] <title> — add a task
addl [YYYY-MM-DD HH:mm] <title> — add a long task
ls / lsl — list short / long tasks
done <id> — complete a task
prog <id> <0-100> — set progress on a long task
padd <name> / pls — add / list projects
addp <projectId> [YYYY-MM-DD HH:mm] <title> — add a task to a project
lsp <projectId> — list a project's tasks
watch here — send failure alerts to this chat
myid — show your id
url — show the app link`

// Bot connects Telegram updates to the task services and doubles as the
// Notifier used by the scheduled jobs.
type Bot struct {
	api      *tgbotapi.BotAPI
	taskSvc  *service.TaskService
	groups   *repository.GroupRepository
	sessions SessionStore
	cfg      *config.Config
	log      *zap.Logger
}

func New(token string, taskSvc *service.TaskService, groups *repository.GroupRepository, sessions SessionStore, cfg *config.Config, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:      api,
		taskSvc:  taskSvc,
		groups:   groups,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Warn("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.From == nil || update.Message.Text == "" {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Warn("handle message", zap.Error(err))
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	owner := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	if handled, err := b.handleSessionReply(ctx, owner, chatID, msg.Text); handled {
		return err
	}

	action := command.Parse(msg.Text)

	switch action.Kind {
	case command.KindError:
		return b.reply(chatID, "Usage: "+action.Usage)

	case command.KindAddTask, command.KindAddLongTask, command.KindAddProjectTask:
		return b.handleAdd(ctx, chatID, owner, action)

	case command.KindListShort:
		tasks, err := b.taskSvc.ListTasks(ctx, owner, model.TypeShort)
		if err != nil {
			return err
		}
		return b.reply(chatID, formatTaskList("📋 Tasks", tasks))

	case command.KindListLong:
		tasks, err := b.taskSvc.ListTasks(ctx, owner, model.TypeLong)
		if err != nil {
			return err
		}
		return b.reply(chatID, formatTaskList("📈 Long tasks", tasks))

	case command.KindWhoAmI:
		return b.reply(chatID, "Your id: "+owner)

	case command.KindAppURL:
		if b.cfg.AppURL == "" {
			return b.reply(chatID, "No app URL configured.")
		}
		return b.reply(chatID, b.cfg.AppURL)

	case command.KindAddProject:
		project, err := b.taskSvc.CreateProject(ctx, owner, action.Title)
		if err != nil {
			return b.reply(chatID, "Could not create project: "+err.Error())
		}
		return b.reply(chatID, fmt.Sprintf("📁 Project [%d] %s created", project.ID, project.Name))

	case command.KindListProjects:
		projects, err := b.taskSvc.ListProjects(ctx, owner)
		if err != nil {
			return err
		}
		return b.reply(chatID, formatProjectList(projects))

	case command.KindListProjectTasks:
		tasks, err := b.taskSvc.ListProjectTasks(ctx, owner, action.ProjectID)
		if err != nil {
			return err
		}
		return b.reply(chatID, formatTaskList(fmt.Sprintf("📁 Project %d", action.ProjectID), tasks))

	case command.KindDone:
		task, err := b.taskSvc.CompleteTask(ctx, owner, action.TaskID, time.Now())
		if err != nil {
			return b.reply(chatID, "Could not complete task: "+err.Error())
		}
		return b.reply(chatID, fmt.Sprintf("✅ Done: %s", task.Title))

	case command.KindWatchHere:
		if _, err := b.groups.Register(ctx, owner, chatID); err != nil {
			return b.reply(chatID, "Could not register this chat: "+err.Error())
		}
		return b.reply(chatID, "👀 Failure alerts will be sent to this chat.")

	case command.KindProgress:
		task, err := b.taskSvc.SetProgress(ctx, owner, action.TaskID, action.Progress, time.Now())
		if err != nil {
			return b.reply(chatID, "Could not set progress: "+err.Error())
		}
		return b.reply(chatID, fmt.Sprintf("📈 %s: %d%%", task.Title, action.Progress))
	}

	return b.reply(chatID, helpText)
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, owner string, action command.Action) error {
	input := service.TaskInput{Title: action.Title, Type: model.TypeShort}
	if action.Kind == command.KindAddLongTask {
		input.Type = model.TypeLong
	}
	if action.Kind == command.KindAddProjectTask {
		projectID := action.ProjectID
		input.ProjectID = &projectID
	}
	if action.Deadline != "" {
		deadline, err := service.ParseWireTime(action.Deadline, b.cfg.Timezone)
		if err != nil {
			return b.reply(chatID, err.Error())
		}
		input.Deadline = &deadline
	}

	task, err := b.taskSvc.CreateTask(ctx, owner, input)
	if err != nil {
		return b.reply(chatID, "Could not add task: "+err.Error())
	}

	text := fmt.Sprintf("➕ [%d] %s", task.ID, task.Title)
	if task.Deadline != nil {
		text += " (due " + task.Deadline.Format(service.WireTimeLayout) + ")"
	}
	return b.reply(chatID, text)
}

// handleSessionReply resolves a pending prompt from a plain-text answer,
// for owners who type instead of tapping a button.
func (b *Bot) handleSessionReply(ctx context.Context, owner string, chatID int64, text string) (bool, error) {
	session, ok := b.sessions.Get(owner)
	if !ok {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "ok":
		b.sessions.Delete(owner)
		return true, b.applyPrompt(ctx, owner, chatID, session.Prompt)
	case "no", "n", "cancel":
		b.sessions.Delete(owner)
		return true, b.reply(chatID, "👌 Left as is.")
	}
	return false, nil
}

// handleCallback decodes a structured prompt from a reply button and
// applies the chosen action.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	ack := tgbotapi.NewCallback(cq.ID, "")
	if _, err := b.api.Request(ack); err != nil {
		b.log.Warn("ack callback", zap.Error(err))
	}
	if cq.Message == nil {
		return nil
	}

	owner := strconv.FormatInt(cq.From.ID, 10)
	chatID := cq.Message.Chat.ID
	prompt, err := command.ParsePrompt(cq.Data)
	if err != nil {
		return err
	}
	b.sessions.Delete(owner)
	return b.applyPrompt(ctx, owner, chatID, prompt)
}

func (b *Bot) applyPrompt(ctx context.Context, owner string, chatID int64, prompt command.Prompt) error {
	switch prompt.Action {
	case command.PromptDoneTask:
		task, err := b.taskSvc.CompleteTask(ctx, owner, prompt.TaskID, time.Now())
		if err != nil {
			return b.reply(chatID, "Could not complete task: "+err.Error())
		}
		return b.reply(chatID, fmt.Sprintf("✅ Done: %s", task.Title))

	case command.PromptDeleteTask:
		if err := b.taskSvc.DeleteTask(ctx, owner, prompt.TaskID); err != nil {
			return b.reply(chatID, "Could not delete task: "+err.Error())
		}
		return b.reply(chatID, "🗑 Deleted.")

	case command.PromptPostponeTomorrow:
		task, err := b.taskSvc.PostponeFailed(ctx, owner, prompt.TaskID, service.TomorrowAt(time.Now().In(b.cfg.Timezone), 9))
		if err != nil {
			return b.reply(chatID, "Could not postpone: "+err.Error())
		}
		return b.reply(chatID, fmt.Sprintf("⏭ %s → %s", task.Title, task.Deadline.Format(service.WireTimeLayout)))

	case command.PromptPostponeWeekday:
		task, err := b.taskSvc.PostponeFailed(ctx, owner, prompt.TaskID, service.NextWeekdayAt(time.Now().In(b.cfg.Timezone), 9))
		if err != nil {
			return b.reply(chatID, "Could not postpone: "+err.Error())
		}
		return b.reply(chatID, fmt.Sprintf("📆 %s → %s", task.Title, task.Deadline.Format(service.WireTimeLayout)))

	case command.PromptCancel:
		return b.reply(chatID, "👌 Left as is.")
	}

	return fmt.Errorf("unknown prompt action %q", prompt.Action)
}

func (b *Bot) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendToUser implements service.Notifier. Owner ids are Telegram chat ids
// in string form.
func (b *Bot) SendToUser(ctx context.Context, ownerID, text string) error {
	chatID, err := strconv.ParseInt(ownerID, 10, 64)
	if err != nil {
		return fmt.Errorf("owner id %q: %w", ownerID, err)
	}
	return b.reply(chatID, text)
}

// SendPrompt implements service.Notifier: one message with an inline
// button per choice, each carrying the prompt's key=value payload.
func (b *Bot) SendPrompt(ctx context.Context, ownerID, text string, buttons []service.PromptButton) error {
	chatID, err := strconv.ParseInt(ownerID, 10, 64)
	if err != nil {
		return fmt.Errorf("owner id %q: %w", ownerID, err)
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, button := range buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Prompt.Encode()),
		))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}

	// A plain-text "yes" only has one possible meaning on a confirm-style
	// prompt; menus with several actions must be answered by button.
	if confirmStyle(buttons) {
		b.sessions.Set(ownerID, Session{Prompt: buttons[0].Prompt})
	}
	return nil
}

// confirmStyle reports whether the prompt offers exactly one action plus a
// cancel choice.
func confirmStyle(buttons []service.PromptButton) bool {
	return len(buttons) == 2 &&
		buttons[0].Prompt.Action != command.PromptCancel &&
		buttons[1].Prompt.Action == command.PromptCancel
}

// SendToGroup implements service.Notifier.
func (b *Bot) SendToGroup(ctx context.Context, chatID int64, text string) error {
	return b.reply(chatID, text)
}

func formatTaskList(header string, tasks []model.Task) string {
	var sb strings.Builder
	sb.WriteString(header + "\n")
	if len(tasks) == 0 {
		sb.WriteString("— nothing pending")
		return sb.String()
	}
	for _, task := range tasks {
		sb.WriteString(fmt.Sprintf("• [%d] %s", task.ID, task.Title))
		if task.Type == model.TypeLong {
			sb.WriteString(fmt.Sprintf(" — %d%%", task.Progress))
		}
		if task.Deadline != nil {
			sb.WriteString(" ⏰ " + task.Deadline.Format(service.WireTimeLayout))
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

func formatProjectList(projects []model.Project) string {
	if len(projects) == 0 {
		return "No projects yet. Create one with: padd <name>"
	}
	var sb strings.Builder
	sb.WriteString("📂 Projects\n")
	for _, project := range projects {
		sb.WriteString(fmt.Sprintf("• [%d] %s\n", project.ID, project.Name))
	}
	return strings.TrimSpace(sb.String())
}
