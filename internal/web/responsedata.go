package web

import (
	"errors"

	"github.com/goserg/poolrating/internal/web/webpath"
)

// data is what every html view receives.
type data struct {
	Title  string
	Path   map[string]string
	Errors []string
	Data   map[string]any
}

func newData(title string) data {
	return data{
		Title: title,
		Path:  webpath.Path(),
		Data:  make(map[string]any),
	}
}

func (m data) With(key string, value any) data {
	if m.Data == nil {
		m.Data = make(map[string]any)
	}
	m.Data[key] = value
	return m
}

func (m data) WithErrors(err error) data {
	m.Errors = append(m.Errors, messages(err)...)
	return m
}

type multierr interface {
	Unwrap() []error
}

// unwrap flattens errors.Join trees into their leaves.
func unwrap(err error) []error {
	var merr multierr
	if errors.As(err, &merr) {
		var errs []error
		for _, err := range merr.Unwrap() {
			errs = append(errs, unwrap(err)...)
		}
		return errs
	}
	return []error{err}
}

func messages(err error) []string {
	var res []string
	for _, err := range unwrap(err) {
		res = append(res, err.Error())
	}
	return res
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func newErrorResponse(msg string, err error) errorResponse {
	resp := errorResponse{Error: msg}
	if details := messages(err); len(details) > 1 || (len(details) == 1 && details[0] != msg) {
		resp.Details = details
	}
	return resp
}
