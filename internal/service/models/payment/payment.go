package payment

import (
	"database/sql/driver"
	"errors"
)

// Method is how the customer pays for an order.
type Method string

const (
	MethodQRIS Method = "qris"
	MethodCash Method = "cash"
)

var ErrInvalidMethod = errors.New("invalid payment method")

func (m Method) String() string {
	return string(m)
}

func (m Method) Value() (driver.Value, error) {
	return m.String(), nil
}

func ParseMethod(s string) (Method, error) {
	switch s {
	case MethodQRIS.String():
		return MethodQRIS, nil
	case MethodCash.String():
		return MethodCash, nil
	default:
		return "", ErrInvalidMethod
	}
}
