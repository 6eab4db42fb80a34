package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind 错误大类
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindConfiguration Kind = "CONFIGURATION"
	KindSubmission    Kind = "SUBMISSION"
	KindState         Kind = "STATE"
)

// Code 具体错误码
type Code string

const (
	CodeInvalidAmount      Code = "INVALID_AMOUNT"
	CodeInvalidAddress     Code = "INVALID_ADDRESS"
	CodeMissingSourceChain Code = "MISSING_SOURCE_CHAIN"
	CodeUnsupportedChain   Code = "UNSUPPORTED_CHAIN"
	CodeSubmissionFailed   Code = "SUBMISSION_FAILED"
	CodeDuplicateID        Code = "DUPLICATE_ID"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeDepositNotFound    Code = "DEPOSIT_NOT_FOUND"
)

var codeKinds = map[Code]Kind{
	CodeInvalidAmount:      KindValidation,
	CodeInvalidAddress:     KindValidation,
	CodeMissingSourceChain: KindConfiguration,
	CodeUnsupportedChain:   KindConfiguration,
	CodeSubmissionFailed:   KindSubmission,
	CodeDuplicateID:        KindState,
	CodeInvalidTransition:  KindState,
	CodeDepositNotFound:    KindState,
}

// 哨兵错误, 配合 errors.Is 使用
var (
	ErrInvalidAmount      = &Error{Kind: KindValidation, Code: CodeInvalidAmount}
	ErrInvalidAddress     = &Error{Kind: KindValidation, Code: CodeInvalidAddress}
	ErrMissingSourceChain = &Error{Kind: KindConfiguration, Code: CodeMissingSourceChain}
	ErrUnsupportedChain   = &Error{Kind: KindConfiguration, Code: CodeUnsupportedChain}
	ErrSubmission         = &Error{Kind: KindSubmission, Code: CodeSubmissionFailed}
	ErrDuplicateID        = &Error{Kind: KindState, Code: CodeDuplicateID}
	ErrInvalidTransition  = &Error{Kind: KindState, Code: CodeInvalidTransition}
	ErrDepositNotFound    = &Error{Kind: KindState, Code: CodeDepositNotFound}
)

// Error 带分类的业务错误
type Error struct {
	Kind   Kind
	Code   Code
	Op     string
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Code)
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Fields[k])
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New 创建错误, Kind 由 Code 决定
func New(code Code, op string, err error) *Error {
	return &Error{
		Kind: codeKinds[code],
		Code: code,
		Op:   op,
		Err:  err,
	}
}

// Newf 以格式化消息创建错误
func Newf(code Code, op string, format string, args ...any) *Error {
	return New(code, op, fmt.Errorf(format, args...))
}

// With 附加上下文字段
func (e *Error) With(key, value string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[key] = value
	return e
}

// KindOf 取出错误大类, 非业务错误返回空
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf 取出错误码, 非业务错误返回空
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Field 取出附加字段
func Field(err error, key string) (string, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Fields == nil {
		return "", false
	}
	v, ok := e.Fields[key]
	return v, ok
}
