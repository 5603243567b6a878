// Package commands parses the TUI command palette.
package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/wedplan/internal/model"
)

type Type string

const (
	TypeAdd        Type = "add"
	TypeDone       Type = "done"
	TypeUndo       Type = "undo"
	TypeSkip       Type = "skip"
	TypeTask       Type = "task"
	TypeRemove     Type = "remove"
	TypeExport     Type = "export"
	TypeReschedule Type = "reschedule"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type AddArgs struct {
	Date  time.Time
	Title string
}

// RowArgs point at a timeline row; Row is 1-based as shown on screen.
type RowArgs struct {
	Row int
}

// SkipArgs name a task of a row by 1-based number or by name.
type SkipArgs struct {
	Row  int
	Task string
}

type TaskArgs struct {
	Row  int
	Name string
}

type ExportArgs struct {
	Format string
}

type RescheduleArgs struct {
	Date time.Time
}

type Command struct {
	Type       Type
	Raw        string
	Add        *AddArgs
	Row        *RowArgs
	Skip       *SkipArgs
	Task       *TaskArgs
	Export     *ExportArgs
	Reschedule *RescheduleArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDone, TypeUndo, TypeRemove:
		return parseRow(input, Type(head), args)
	case TypeSkip:
		return parseSkip(input, args)
	case TypeTask:
		return parseTask(input, args)
	case TypeExport:
		return parseExport(input, args)
	case TypeReschedule:
		return parseReschedule(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a date and a title"}
	}
	date, err := parseDate(args[0])
	if err != nil {
		return Command{}, err
	}
	title := strings.TrimSpace(strings.Join(args[1:], " "))
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Date: date, Title: title}}, nil
}

func parseRow(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires a row number", typ)}
	}
	row, err := parseRowNumber(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: typ, Raw: raw, Row: &RowArgs{Row: row}}, nil
}

func parseSkip(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "skip requires a row and a task"}
	}
	row, err := parseRowNumber(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeSkip, Raw: raw, Skip: &SkipArgs{Row: row, Task: strings.Join(args[1:], " ")}}, nil
}

func parseTask(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "task requires a row and a name"}
	}
	row, err := parseRowNumber(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeTask, Raw: raw, Task: &TaskArgs{Row: row, Name: strings.Join(args[1:], " ")}}, nil
}

func parseExport(raw string, args []string) (Command, error) {
	format := "json"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}
	return Command{Type: TypeExport, Raw: raw, Export: &ExportArgs{Format: format}}, nil
}

func parseReschedule(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "reschedule requires the new wedding date"}
	}
	date, err := parseDate(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeReschedule, Raw: raw, Reschedule: &RescheduleArgs{Date: date}}, nil
}

func parseDate(raw string) (time.Time, error) {
	d, err := model.ParseDay(raw)
	if err != nil {
		return time.Time{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid date %q, expected yyyy-mm-dd", raw)}
	}
	return d, nil
}

func parseRowNumber(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid row %q", raw)}
	}
	return n, nil
}
