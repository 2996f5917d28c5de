package yak_service

import "errors"

// Таксономия ошибок транслятора. Ошибки локальны для вызвавшего их запроса:
// наверх они уходят событиями на шине, не паниками.
var (
	ErrUnknownBinding    = errors.New("unknown binding")
	ErrOutOfRange        = errors.New("value out of range")
	ErrTransportTimeout  = errors.New("transport timeout")
	ErrMalformedResponse = errors.New("malformed response")
	ErrNotConnected      = errors.New("instrument not connected")
)
