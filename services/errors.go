package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации и бизнес-правил
	ErrValidationFailed = errors.New("validation failed")
	ErrDrawNotAllowed   = errors.New("a match cannot end in a draw")
	ErrOutcomeMissing   = errors.New("either winner_id or both leg scores are required")

	// Ошибки конфликтов
	ErrBracketExists  = errors.New("bracket already generated for this tournament")
	ErrResultConflict = errors.New("match already completed with a different result")

	ErrTournamentNotFound = errors.New("tournament not found")
	ErrBracketNotFound    = errors.New("bracket not found")

	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
)
