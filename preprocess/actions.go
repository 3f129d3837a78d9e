package preprocess

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTag reports a malformed action in a code block info string.
var ErrInvalidTag = errors.New("invalid code block tag")

type actionKind int

const (
	actionHide actionKind = iota
	actionPrepare
	actionUse
	actionIncludeFile
	actionExec
)

type action struct {
	kind actionKind
	// name is the prepare/use name or the include-file path.
	name    string
	program string
	status  int
}

// parseActions reads an info string of the form
// "program,key[=value],...". The first entry names the program used by
// exec; unknown keys are ignored.
func parseActions(info string) ([]action, error) {
	info = strings.TrimSpace(info)
	if info == "" {
		return nil, nil
	}
	tokens := strings.Split(info, ",")
	program := tokens[0]
	var out []action
	for _, token := range tokens[1:] {
		key, value, hasValue := strings.Cut(token, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "hide":
			if hasValue {
				return nil, fmt.Errorf("%w: value %q on 'hide' is not allowed", ErrInvalidTag, value)
			}
			out = append(out, action{kind: actionHide})
		case "prepare":
			if !hasValue {
				return nil, fmt.Errorf("%w: 'prepare' needs a name, like 'prepare=name'", ErrInvalidTag)
			}
			out = append(out, action{kind: actionPrepare, name: value})
		case "use":
			if !hasValue {
				return nil, fmt.Errorf("%w: 'use' needs a name, like 'use=name'", ErrInvalidTag)
			}
			out = append(out, action{kind: actionUse, name: value})
		case "include-file":
			if !hasValue {
				return nil, fmt.Errorf("%w: 'include-file' needs a file name, like 'include-file=../file.md'", ErrInvalidTag)
			}
			out = append(out, action{kind: actionIncludeFile, name: value})
		case "exec":
			status := 0
			if hasValue {
				n, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("%w: exit status %q on 'exec': %v", ErrInvalidTag, value, err)
				}
				status = n
			}
			out = append(out, action{kind: actionExec, program: program, status: status})
		}
	}
	return out, nil
}

func hidden(actions []action) bool {
	for _, a := range actions {
		if a.kind == actionHide {
			return true
		}
	}
	return false
}
