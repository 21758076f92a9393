package domain

// legalTransitions is the full lifecycle graph. Crawled documents enter at
// pending and may skip the upload states; every transient state can fall
// into failed when the pipeline aborts.
var legalTransitions = map[DocumentStatus][]DocumentStatus{
	StatusPending:              {StatusUploading, StatusTypeDetecting, StatusFailed},
	StatusUploading:            {StatusUploaded, StatusFailed},
	StatusUploaded:             {StatusTypeDetecting, StatusFailed},
	StatusTypeDetecting:        {StatusTypeDetectionSuccess, StatusTypeDetectionFailed, StatusFailed},
	StatusTypeDetectionSuccess: {StatusProcessing, StatusFailed},
	StatusProcessing:           {StatusProcessingChunks, StatusFailed},
	StatusProcessingChunks:     {StatusSummarizing, StatusStoringEmbeddings, StatusFailed},
	StatusSummarizing:          {StatusStoringEmbeddings, StatusFailed},
	StatusStoringEmbeddings:    {StatusCompleted, StatusFailed},
	StatusCompleted:            {},
	StatusFailed:               {},
	StatusTypeDetectionFailed:  {},
}

func (s DocumentStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTypeDetectionFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from -> to is a legal lifecycle step.
// Unknown source states allow nothing.
func CanTransition(from, to DocumentStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
