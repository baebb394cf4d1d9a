package app

// Metrics receives lifecycle signals from sessions, history and explanations.
type Metrics interface {
	SessionOpened()
	SessionClosed()
	AttemptFinalized(reason FinishReason, score, total int)
	HistoryPersistFailed()
	ExplanationServed(ok bool)
}

// NopMetrics discards every signal.
type NopMetrics struct{}

func (NopMetrics) SessionOpened()                          {}
func (NopMetrics) SessionClosed()                          {}
func (NopMetrics) AttemptFinalized(FinishReason, int, int) {}
func (NopMetrics) HistoryPersistFailed()                   {}
func (NopMetrics) ExplanationServed(bool)                  {}
