package errs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type Kind uint8

const (
	KindOther    Kind = iota // Unclassified, 500
	KindIO                   // Credential file / history db, 500
	KindInvalid              // Validation / bad user input, 400
	KindExternal             // nmcli, bluetoothctl, iptables reported failure, 502
	KindNotFound             // Unknown adapter or route, 404
	KindSystem               // OS-level failures (exec, pty), 500
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindInvalid:
		return "invalid"
	case KindExternal:
		return "external"
	case KindNotFound:
		return "not_found"
	case KindSystem:
		return "system"
	default:
		return "other"
	}
}

type Op string

type Error struct {
	Op      Op     // Where did it happen?
	Kind    Kind   // What category?
	Err     error  // Underlying cause (may be another *Error, wraps correctly)
	Message string // Safe to show on the touchscreen / CLI
}

func E(args ...any) error {
	e := &Error{}
	for _, arg := range args {
		switch v := arg.(type) {
		case Op:
			e.Op = v
		case Kind:
			e.Kind = v
		case *Error:
			cp := *v
			e.Err = &cp
		case error:
			e.Err = v
		case string:
			e.Message = v
		}
	}
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(string(e.Op))
	}
	if e.Message != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the outermost *Error in the chain that carries
// one, or KindOther.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return KindOther
		}
		if e.Kind != KindOther {
			return e.Kind
		}
		err = e.Err
	}
	return KindOther
}

// Message returns the first user-facing message found in the chain, falling
// back to err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	for cur := err; cur != nil; {
		if !errors.As(cur, &e) {
			break
		}
		if e.Message != "" {
			return e.Message
		}
		cur = e.Err
	}
	return err.Error()
}

func HTTPResponse(w http.ResponseWriter, err error) {
	code := kindToStatus(KindOf(err))
	if code >= http.StatusInternalServerError {
		slog.Error("errs: request failed", "err", err)
	} else {
		slog.Debug("errs: request rejected", "err", err)
	}

	msg := "internal server error"
	var e *Error
	if errors.As(err, &e) {
		msg = Message(err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func kindToStatus(k Kind) int {
	switch k {
	case KindInvalid:
		return http.StatusBadRequest // 400
	case KindNotFound:
		return http.StatusNotFound // 404
	case KindExternal:
		return http.StatusBadGateway // 502
	case KindIO, KindSystem, KindOther:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError
	}
}
