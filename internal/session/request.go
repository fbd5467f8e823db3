// Package session launches recognition sessions: it validates run requests,
// hands out session ids, and drives each session's passes on its own goroutine.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingParameter matches every *ParameterError.
var ErrMissingParameter = errors.New("empty parameter")

// Required run fields, in validation order.
const (
	FieldSendSetParams     = "send_set_params"
	FieldSendDefineGrammar = "send_define_grammar"
	FieldGrammarURI        = "grammar_uri"
	FieldInputFile         = "input_file"
)

// ParameterError names the first missing required run field.
type ParameterError struct {
	Field string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("empty parameter: %s (input help for usage)", e.Field)
}

// Is lets errors.Is(err, ErrMissingParameter) match.
func (e *ParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// Request holds the raw tokens of one `run` command. An empty string means
// the token was absent.
type Request struct {
	SendSetParams     string
	SendDefineGrammar string
	GrammarURI        string
	InputFile         string
	Repetitions       string
	Profile           string
}

// validate reports the first missing required field.
func (r Request) validate() error {
	switch {
	case r.SendSetParams == "":
		return &ParameterError{Field: FieldSendSetParams}
	case r.SendDefineGrammar == "":
		return &ParameterError{Field: FieldSendDefineGrammar}
	case r.GrammarURI == "":
		return &ParameterError{Field: FieldGrammarURI}
	case r.InputFile == "":
		return &ParameterError{Field: FieldInputFile}
	}
	return nil
}

// ParseDirective maps a directive token to its boolean. Only "y" and "Y"
// are true; "n" and every other token are false.
func ParseDirective(token string) bool {
	return token == "y" || token == "Y"
}

// ParseRepetitions returns the pass count for a token. Absent, non-numeric
// and non-positive tokens all yield 1.
func ParseRepetitions(token string) int {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
