package entities

import "strconv"

// Status is the closed set of outcomes shared by extraction and answering.
// Values equal the HTTP status codes they map onto.
type Status int

const (
	StatusOK            Status = 200
	StatusPartial       Status = 206
	StatusBadRequest    Status = 400
	StatusNotFound      Status = 404
	StatusUnprocessable Status = 422
	StatusInternal      Status = 500
)

// Code returns the numeric status code.
func (s Status) Code() int { return int(s) }

// IsSuccess reports whether s is 200 or 206.
func (s Status) IsSuccess() bool {
	return s == StatusOK || s == StatusPartial
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOK, StatusPartial, StatusBadRequest, StatusNotFound, StatusUnprocessable, StatusInternal:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPartial:
		return "partial"
	case StatusBadRequest:
		return "bad_request"
	case StatusNotFound:
		return "not_found"
	case StatusUnprocessable:
		return "unprocessable"
	case StatusInternal:
		return "internal"
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}
