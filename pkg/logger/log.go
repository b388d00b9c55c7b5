// Package logger carries diagnostics from the bundle manager to zerolog.
package logger

import "github.com/rs/zerolog"

// Sink receives diagnostics that are reported rather than returned.
type Sink interface {
	LogError(message string)
	LogWarning(message string)
	LogInfo(message string)
}

// ZerologSink implements Sink with a zerolog.Logger.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink returns a Sink that logs with the "component=bundles"
// field.
func NewZerologSink(l zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: l.With().Str("component", "bundles").Logger()}
}

// LogError implements part of the Sink interface.
func (s *ZerologSink) LogError(message string) {
	s.logger.Error().Msg(message)
}

// LogWarning implements part of the Sink interface.
func (s *ZerologSink) LogWarning(message string) {
	s.logger.Warn().Msg(message)
}

// LogInfo implements part of the Sink interface.
func (s *ZerologSink) LogInfo(message string) {
	s.logger.Info().Msg(message)
}

// Nop returns a Sink that discards everything.
func Nop() Sink {
	return NewZerologSink(zerolog.Nop())
}
