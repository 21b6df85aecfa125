package wayland

import "errors"

var (
	errShortStringLength = errors.New("wayland: short string length field")
	errShortStringData   = errors.New("wayland: short string data")
)
