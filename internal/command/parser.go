// Package command turns raw chat text into structured actions and encodes
// the flat key=value prompts used by inline reply buttons.
package command

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// Kind identifies what a parsed chat line asks for.
type Kind int

const (
	KindHelp Kind = iota
	KindError
	KindAddTask
	KindAddLongTask
	KindListShort
	KindListLong
	KindWhoAmI
	KindAppURL
	KindAddProject
	KindListProjects
	KindAddProjectTask
	KindListProjectTasks
	KindDone
	KindWatchHere
	KindProgress
)

// Action is the result of parsing one chat line. Only the fields relevant
// to Kind are set.
type Action struct {
	Kind      Kind
	Title     string
	Deadline  string // "YYYY-MM-DD HH:mm" wire form, empty when absent
	ProjectID uint
	TaskID    uint
	Progress  int
	Usage     string // usage hint, set when Kind is KindError
}

const (
	usageAdd     = "add [YYYY-MM-DD HH:mm] <title>"
	usageAddLong = "addl [YYYY-MM-DD HH:mm] <title>"
	usageAddProj = "addp <projectId> [YYYY-MM-DD HH:mm] <title>"
	usagePAdd    = "padd <name>"
	usageLsp     = "lsp <projectId>"
	usageDone    = "done <taskId>"
	usageProg    = "prog <taskId> <0-100>"
)

// Date and time token shapes. Calendar correctness is deliberately not
// checked here; the store layer owns that.
var (
	dateShape = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	timeShape = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

// Parse maps one line of chat text to an Action. It is pure and safe for
// concurrent use. Fullwidth ASCII and ideographic spaces (typical mobile
// IME output) are folded to their halfwidth equivalents before matching.
func Parse(text string) Action {
	text = strings.TrimSpace(width.Fold.String(text))
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Action{Kind: KindHelp}
	}

	verb := tokens[0]
	rest := tokens[1:]

	switch verb {
	case "add":
		return parseAdd(KindAddTask, rest, usageAdd)
	case "addl":
		return parseAdd(KindAddLongTask, rest, usageAddLong)
	case "ls":
		return Action{Kind: KindListShort}
	case "lsl":
		return Action{Kind: KindListLong}
	case "myid", "id", "whoami":
		return Action{Kind: KindWhoAmI}
	case "padd":
		if len(rest) == 0 {
			return errorAction(usagePAdd)
		}
		return Action{Kind: KindAddProject, Title: strings.Join(rest, " ")}
	case "pls":
		return Action{Kind: KindListProjects}
	case "addp":
		if len(rest) < 2 {
			return errorAction(usageAddProj)
		}
		projectID, ok := parseID(rest[0])
		if !ok {
			return errorAction(usageAddProj)
		}
		action := parseAdd(KindAddProjectTask, rest[1:], usageAddProj)
		action.ProjectID = projectID
		return action
	case "lsp":
		if len(rest) != 1 {
			return errorAction(usageLsp)
		}
		projectID, ok := parseID(rest[0])
		if !ok {
			return errorAction(usageLsp)
		}
		return Action{Kind: KindListProjectTasks, ProjectID: projectID}
	case "done":
		if len(rest) != 1 {
			return errorAction(usageDone)
		}
		taskID, ok := parseID(rest[0])
		if !ok {
			return errorAction(usageDone)
		}
		return Action{Kind: KindDone, TaskID: taskID}
	case "prog":
		if len(rest) != 2 {
			return errorAction(usageProg)
		}
		taskID, ok := parseID(rest[0])
		if !ok {
			return errorAction(usageProg)
		}
		return Action{Kind: KindProgress, TaskID: taskID, Progress: parseProgress(rest[1])}
	}

	switch strings.ToLower(verb) {
	case "url":
		return Action{Kind: KindAppURL}
	case "watch":
		if len(rest) == 1 && strings.EqualFold(rest[0], "here") {
			return Action{Kind: KindWatchHere}
		}
	}

	return Action{Kind: KindHelp}
}

// parseAdd handles the shared add/addl/addp tail grammar: an optional
// leading date+time pair followed by the title. The date/time detection is
// structural only; "add 2099-99-99 99:99 x" is accepted here.
func parseAdd(kind Kind, rest []string, usage string) Action {
	if len(rest) == 0 {
		return errorAction(usage)
	}
	if len(rest) >= 3 && dateShape.MatchString(rest[0]) && timeShape.MatchString(rest[1]) {
		return Action{
			Kind:     kind,
			Deadline: rest[0] + " " + rest[1],
			Title:    strings.Join(rest[2:], " "),
		}
	}
	return Action{Kind: kind, Title: strings.Join(rest, " ")}
}

func parseID(token string) (uint, bool) {
	n, err := strconv.ParseUint(token, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// parseProgress reads a percentage token, tolerating a trailing "%".
// Non-numeric input counts as 0; the result is clamped into [0,100].
func parseProgress(token string) int {
	token = strings.TrimSuffix(token, "%")
	n, err := strconv.Atoi(token)
	if err != nil {
		n = 0
	}
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return n
}

func errorAction(usage string) Action {
	return Action{Kind: KindError, Usage: usage}
}
