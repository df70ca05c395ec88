package server

import (
	stderrors "errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/kballard/go-shellquote"
)

// ErrUnterminatedQuote is returned by SplitArgs for an unbalanced quote.
var ErrUnterminatedQuote = stderrors.New("unterminated quote in launch arguments")

// Command represents the server command to execute.
type Command struct {
	// Path is the server binary.
	Path string

	// Args are the command line arguments, without the binary.
	Args []string

	// Env are the environment variables.
	Env []string
}

// BuildArgs constructs the server command arguments.
//
// The port is the first positional argument unless portFlag is set, in which
// case "portFlag port" is appended after the launch arguments. launchArgs is
// split with SplitArgs and otherwise passed through unchanged.
func BuildArgs(port uint16, launchArgs, portFlag string) ([]string, error) {
	rest, err := SplitArgs(launchArgs)
	if err != nil {
		return nil, err
	}

	p := strconv.FormatUint(uint64(port), 10)

	if portFlag != "" {
		return append(rest, portFlag, p), nil
	}

	return append([]string{p}, rest...), nil
}

// SplitArgs splits s into arguments the way a POSIX shell splits words,
// honoring single quotes, double quotes and backslash escapes. No expansion
// of any kind is performed.
func SplitArgs(s string) ([]string, error) {
	args, err := shellquote.Split(s)
	if err != nil {
		switch {
		case stderrors.Is(err, shellquote.UnterminatedSingleQuoteError),
			stderrors.Is(err, shellquote.UnterminatedDoubleQuoteError),
			stderrors.Is(err, shellquote.UnterminatedEscapeError):
			return nil, fmt.Errorf("%w: %q", ErrUnterminatedQuote, s)
		default:
			return nil, fmt.Errorf("split launch arguments: %w", err)
		}
	}

	if len(args) == 0 {
		return nil, nil
	}

	return args, nil
}

// BuildEnvironment constructs the environment for the server process: the
// current environment with extra entries appended in key order, so they
// take precedence over inherited values.
func BuildEnvironment(extra map[string]string) []string {
	env := os.Environ()

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}

	return env
}
