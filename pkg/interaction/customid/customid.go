// Package customid encodes and decodes the colon-delimited identifiers carried by message
// components.
//
//	prompt:<flavor>:<action>
//	action:<opaqueID>:<kind>[:<extra>]
//	action::<kind>:<extra>[:<userID>]
//	none
//	delete
package customid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxLength is Discord's limit for a component custom id.
const MaxLength = 100

const (
	None   = "none"
	Delete = "delete"

	promptPrefix = "prompt"
	actionPrefix = "action"
)

// ErrMalformed is returned for identifiers that do not follow the grammar.
var ErrMalformed = errors.New("malformed custom id")

// Namespace says which part of the bot an identifier routes to.
type Namespace int

const (
	NamespaceNone Namespace = iota
	NamespaceDelete
	NamespacePrompt
	NamespaceAction
)

func (n Namespace) String() string {
	switch n {
	case NamespaceNone:
		return "none"
	case NamespaceDelete:
		return "delete"
	case NamespacePrompt:
		return "prompt"
	case NamespaceAction:
		return "action"
	default:
		return "unknown"
	}
}

// ID is a parsed identifier. Only the fields of its namespace are set.
type ID struct {
	Namespace Namespace

	Flavor int
	Action int

	OpaqueID string
	Kind     int
	Extra    string
	// User restricts a fast-path action to one invoker. Empty means anyone.
	User string
}

// FastPath reports whether an action id carries its state inline.
func (id ID) FastPath() bool {
	return id.Namespace == NamespaceAction && id.OpaqueID == ""
}

// Parse decodes s.
func Parse(s string) (ID, error) {
	switch s {
	case None:
		return ID{Namespace: NamespaceNone}, nil
	case Delete:
		return ID{Namespace: NamespaceDelete}, nil
	}

	parts := strings.Split(s, ":")
	switch parts[0] {
	case promptPrefix:
		if len(parts) != 3 {
			return ID{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		flavor, err1 := atoi(parts[1])
		action, err2 := atoi(parts[2])
		if err1 != nil || err2 != nil {
			return ID{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		return ID{Namespace: NamespacePrompt, Flavor: flavor, Action: action}, nil

	case actionPrefix:
		if len(parts) < 3 {
			return ID{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		kind, err := atoi(parts[2])
		if err != nil {
			return ID{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		id := ID{Namespace: NamespaceAction, OpaqueID: parts[1], Kind: kind}
		if id.OpaqueID != "" {
			// Stored form: the extra runs to the end of the string.
			if len(parts) > 3 {
				id.Extra = strings.Join(parts[3:], ":")
			}
			return id, nil
		}
		if len(parts) > 5 {
			return ID{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		if len(parts) > 3 {
			id.Extra = parts[3]
		}
		if len(parts) > 4 {
			id.User = parts[4]
		}
		return id, nil
	}
	return ID{}, fmt.Errorf("%w: %q", ErrMalformed, s)
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, ErrMalformed
	}
	return n, nil
}

// Prompt builds the id of a prompt control.
func Prompt(flavor, action int) string {
	return promptPrefix + ":" + strconv.Itoa(flavor) + ":" + strconv.Itoa(action)
}

// Action builds the id of a component bound to a stored pending action.
func Action(opaqueID string, kind int, extra string) string {
	return actionPrefix + ":" + opaqueID + ":" + strconv.Itoa(kind) + ":" + extra
}

// FastAction builds an id whose whole state is inline. extra and user must not contain
// colons; the result must fit in MaxLength.
func FastAction(kind int, extra, user string) (string, error) {
	if strings.Contains(extra, ":") || strings.Contains(user, ":") {
		return "", fmt.Errorf("%w: fast-path fields may not contain ':'", ErrMalformed)
	}
	s := actionPrefix + "::" + strconv.Itoa(kind) + ":" + extra
	if user != "" {
		s += ":" + user
	}
	if len(s) > MaxLength {
		return "", fmt.Errorf("%w: %d characters exceeds %d", ErrMalformed, len(s), MaxLength)
	}
	return s, nil
}
