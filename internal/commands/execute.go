package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add        func(AddArgs) (Result, error)
	Done       func(RowArgs, bool) (Result, error)
	Skip       func(SkipArgs) (Result, error)
	Task       func(TaskArgs) (Result, error)
	Remove     func(RowArgs) (Result, error)
	Export     func(ExportArgs) (Result, error)
	Reschedule func(RescheduleArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Add(*cmd.Add)
	case TypeDone, TypeUndo:
		if handlers.Done == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Done(*cmd.Row, cmd.Type == TypeDone)
	case TypeSkip:
		if handlers.Skip == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Skip(*cmd.Skip)
	case TypeTask:
		if handlers.Task == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Task(*cmd.Task)
	case TypeRemove:
		if handlers.Remove == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Remove(*cmd.Row)
	case TypeExport:
		if handlers.Export == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Export(*cmd.Export)
	case TypeReschedule:
		if handlers.Reschedule == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Reschedule(*cmd.Reschedule)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
