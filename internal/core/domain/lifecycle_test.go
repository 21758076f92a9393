package domain

import "testing"

func TestCanTransitionHappyPath(t *testing.T) {
	path := []DocumentStatus{
		StatusPending,
		StatusUploading,
		StatusUploaded,
		StatusTypeDetecting,
		StatusTypeDetectionSuccess,
		StatusProcessing,
		StatusProcessingChunks,
		StatusSummarizing,
		StatusStoringEmbeddings,
		StatusCompleted,
	}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Fatalf("expected %s -> %s to be legal", path[i], path[i+1])
		}
	}
}

func TestCanTransitionSkipsSummarizing(t *testing.T) {
	if !CanTransition(StatusProcessingChunks, StatusStoringEmbeddings) {
		t.Fatalf("expected processing_chunks -> storing_embeddings without summarizing")
	}
}

func TestCanTransitionCrawledDocumentSkipsUpload(t *testing.T) {
	if !CanTransition(StatusPending, StatusTypeDetecting) {
		t.Fatalf("expected pending -> type_detecting for pre-staged blobs")
	}
}

func TestCanTransitionEveryTransientStateCanFail(t *testing.T) {
	transient := []DocumentStatus{
		StatusPending,
		StatusUploading,
		StatusUploaded,
		StatusTypeDetecting,
		StatusTypeDetectionSuccess,
		StatusProcessing,
		StatusProcessingChunks,
		StatusSummarizing,
		StatusStoringEmbeddings,
	}
	for _, status := range transient {
		if !CanTransition(status, StatusFailed) {
			t.Fatalf("expected %s -> failed to be legal", status)
		}
	}
}

func TestTerminalStatesAllowNothing(t *testing.T) {
	terminals := []DocumentStatus{StatusCompleted, StatusFailed, StatusTypeDetectionFailed}
	all := []DocumentStatus{
		StatusPending, StatusUploading, StatusUploaded, StatusTypeDetecting,
		StatusTypeDetectionSuccess, StatusTypeDetectionFailed, StatusProcessing,
		StatusProcessingChunks, StatusSummarizing, StatusStoringEmbeddings,
		StatusCompleted, StatusFailed,
	}
	for _, terminal := range terminals {
		if !terminal.IsTerminal() {
			t.Fatalf("expected %s to be terminal", terminal)
		}
		for _, next := range all {
			if CanTransition(terminal, next) {
				t.Fatalf("terminal %s must not transition to %s", terminal, next)
			}
		}
	}
}

func TestCanTransitionRejectsSkippingStages(t *testing.T) {
	cases := []struct{ from, to DocumentStatus }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusProcessing},
		{StatusUploading, StatusTypeDetecting},
		{StatusTypeDetecting, StatusProcessing},
		{StatusProcessing, StatusStoringEmbeddings},
		{StatusStoringEmbeddings, StatusProcessing},
	}
	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be illegal", tc.from, tc.to)
		}
	}
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	if CanTransition(DocumentStatus("archived"), StatusFailed) {
		t.Fatalf("unknown source status must allow nothing")
	}
	if CanTransition(StatusPending, DocumentStatus("archived")) {
		t.Fatalf("unknown target status must be rejected")
	}
}
