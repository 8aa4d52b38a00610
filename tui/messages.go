package tui

// AnswerMsg carries a completed answer back to the UI.
type AnswerMsg struct {
	Result *QueryResult
	Err    error
}

// StatsMsg carries the corpus stats back to the UI.
type StatsMsg struct {
	Stats *StatsResult
	Err   error
}

// RefreshTriggeredMsg reports the outcome of starting an ingestion pass.
type RefreshTriggeredMsg struct {
	Err error
}
