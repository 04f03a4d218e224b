// Package command dispatches named commands with JSON arguments, the way a UI
// process invokes the backend.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/idelchi/diskscope/internal/diskusage"
)

// Command names understood by New.
const (
	AnalyzeDirectory = "analyze_directory"
	DeletePath       = "delete_path"
	Greet            = "greet"
)

// Handler runs a command with its raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Dispatcher routes invocations to registered handlers.
type Dispatcher struct {
	handlers map[string]Handler
	log      *zap.Logger
}

// New creates a Dispatcher serving analyze_directory, delete_path and greet.
func New(scanner *diskusage.Scanner, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}

	d := &Dispatcher{
		handlers: make(map[string]Handler),
		log:      log,
	}

	d.Register(AnalyzeDirectory, analyzeHandler(scanner))
	d.Register(DeletePath, deleteHandler(log))
	d.Register(Greet, greetHandler(log))

	return d
}

// Register adds or replaces a handler.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[name] = h
}

// Names returns the registered command names in sorted order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Invoke runs the named command. Every returned error is an *Error.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	h, ok := d.handlers[name]
	if !ok {
		return nil, &Error{Command: name, Code: CodeUnknownCommand, Err: fmt.Errorf("unknown command %q", name)}
	}

	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}

	result, err := h(ctx, args)
	if err != nil {
		cmdErr := &Error{Command: name, Code: classify(err), Err: err}
		d.log.Debug("command failed", zap.String("command", name), zap.String("code", string(cmdErr.Code)), zap.Error(err))

		return nil, cmdErr
	}

	return result, nil
}

// decode unmarshals args into v, rejecting unknown fields.
func decode(args json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidArgument, err)
	}

	return nil
}

// analyzeArgs are the arguments of analyze_directory. The UI sends sizeLimit;
// size_limit is accepted as well.
type analyzeArgs struct {
	Path           string  `json:"path"`
	SizeLimit      *uint64 `json:"sizeLimit"`
	SizeLimitSnake *uint64 `json:"size_limit"`
}

func analyzeHandler(scanner *diskusage.Scanner) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args analyzeArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}

		if args.Path == "" {
			return nil, fmt.Errorf("%w: path is required", errInvalidArgument)
		}

		var limit uint64

		switch {
		case args.SizeLimit != nil:
			limit = *args.SizeLimit
		case args.SizeLimitSnake != nil:
			limit = *args.SizeLimitSnake
		}

		result, err := scanner.Analyze(ctx, args.Path, limit)
		if err != nil {
			return nil, err
		}

		if result.Items == nil {
			return []diskusage.FileSystemItem{}, nil
		}

		return result.Items, nil
	}
}

type pathArgs struct {
	Path string `json:"path"`
}

func deleteHandler(log *zap.Logger) Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var args pathArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}

		if args.Path == "" {
			return nil, fmt.Errorf("%w: path is required", errInvalidArgument)
		}

		if err := diskusage.DeletePath(args.Path); err != nil {
			return nil, err
		}

		log.Info("deleted path", zap.String("path", args.Path))

		return nil, nil
	}
}

type greetArgs struct {
	Name string `json:"name"`
}

func greetHandler(log *zap.Logger) Handler {
	return func(_ context.Context, raw json.RawMessage) (any, error) {
		var args greetArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}

		log.Debug("greeting", zap.String("name", args.Name))

		return Greeting(args.Name), nil
	}
}

// Greeting is the reply of the greet command.
func Greeting(name string) string {
	return fmt.Sprintf("Hello, %s! You've been greeted from Go!", name)
}
