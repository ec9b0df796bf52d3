package interfaces

// TranscriptMetrics receives counts from thread sessions.
type TranscriptMetrics interface {
	SendStarted()
	SendFinished(result string)
	SendRejected()
	FragmentsParsed(n int)
	LinesDropped(n int)
	RefreshFailed()
}
