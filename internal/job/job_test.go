package job

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	job := New("a fox in the snow", DefaultStyle, 30)

	if job.ID == "" {
		t.Error("expected job to have an ID")
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %s, got %s", StatusQueued, job.Status)
	}
	if job.SegmentCount != 4 {
		t.Errorf("expected 4 segments, got %d", job.SegmentCount)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if job.Segments == nil {
		t.Error("expected Segments to be initialized")
	}
	if job.CompletedSegments != 0 {
		t.Errorf("expected 0 completed segments, got %d", job.CompletedSegments)
	}
}

func TestNewWithID(t *testing.T) {
	id := "test-job-123"
	job := NewWithID(id, "p", "s", 9)

	if job.ID != id {
		t.Errorf("expected ID %s, got %s", id, job.ID)
	}
	if job.SegmentCount != 1 {
		t.Errorf("expected 1 segment, got %d", job.SegmentCount)
	}
}

func TestSegmentCountFor(t *testing.T) {
	tests := []struct {
		duration int
		want     int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{9, 1},
		{10, 2},
		{18, 2},
		{19, 3},
		{30, 4},
		{600, 67},
	}

	for _, tt := range tests {
		if got := SegmentCountFor(tt.duration); got != tt.want {
			t.Errorf("SegmentCountFor(%d) = %d, want %d", tt.duration, got, tt.want)
		}
	}
}

func TestSegmentCountFor_IsCeilAndPositive(t *testing.T) {
	for d := 1; d <= 1000; d++ {
		n := SegmentCountFor(d)
		if n < 1 {
			t.Fatalf("SegmentCountFor(%d) = %d, want >= 1", d, n)
		}
		if n*SegmentSeconds < d || (n-1)*SegmentSeconds >= d {
			t.Fatalf("SegmentCountFor(%d) = %d is not ceil(d/9)", d, n)
		}
	}
}

func TestJob_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"queued to processing", StatusQueued, StatusProcessing, false},
		{"queued to failed", StatusQueued, StatusFailed, false},
		{"queued to cancelled", StatusQueued, StatusCancelled, false},
		{"processing to completed", StatusProcessing, StatusCompleted, false},
		{"processing to failed", StatusProcessing, StatusFailed, false},
		{"processing to cancelled", StatusProcessing, StatusCancelled, false},
		{"queued to completed", StatusQueued, StatusCompleted, true},
		{"processing to queued", StatusProcessing, StatusQueued, true},
		{"completed to processing", StatusCompleted, StatusProcessing, true},
		{"completed to cancelled", StatusCompleted, StatusCancelled, true},
		{"failed to completed", StatusFailed, StatusCompleted, true},
		{"cancelled to completed", StatusCancelled, StatusCompleted, true},
		{"cancelled to failed", StatusCancelled, StatusFailed, true},
		{"cancelled to processing", StatusCancelled, StatusProcessing, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewWithID("j", "p", "s", 30)
			job.Status = tt.from

			err := job.TransitionTo(tt.to)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				if job.Status != tt.from {
					t.Errorf("status changed to %s on rejected transition", job.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if job.Status != tt.to {
				t.Errorf("expected status %s, got %s", tt.to, job.Status)
			}
		})
	}
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewWithID("j", "p", "s", 30)

	if err := job.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if job.StartedAt == nil || job.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	job.Error = "stale"
	if err := job.Complete(); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if job.Error != "" {
		t.Errorf("expected error to be cleared, got %q", job.Error)
	}
	if job.CompletedAt == nil || job.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}
	if !job.IsTerminal() {
		t.Error("expected completed job to be terminal")
	}
}

func TestJob_Fail(t *testing.T) {
	job := NewWithID("j", "p", "s", 30)
	_ = job.Start()

	if err := job.Fail("boom"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if job.Status != StatusFailed || job.Error != "boom" {
		t.Errorf("unexpected job state: %s %q", job.Status, job.Error)
	}
}

func TestJob_CancelledIsTerminal(t *testing.T) {
	job := NewWithID("j", "p", "s", 30)
	_ = job.Start()
	if err := job.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	if err := job.Complete(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected Complete to be rejected, got %v", err)
	}
	if err := job.Fail(AllSegmentsFailed); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected Fail to be rejected, got %v", err)
	}
	if job.Status != StatusCancelled || job.Error != "" {
		t.Errorf("cancelled job was modified: %s %q", job.Status, job.Error)
	}
}

func TestApplySegment_UpsertIsIdempotent(t *testing.T) {
	job := NewWithID("j", "p", "s", 30)
	u := SegmentUpdate{Status: SegmentCompleted, VideoURL: "v0", ThumbnailURL: "t0", GenerationID: "g0"}

	for i := 0; i < 2; i++ {
		if err := job.ApplySegment(0, u); err != nil {
			t.Fatalf("ApplySegment() error = %v", err)
		}
	}

	if len(job.Segments) != 1 {
		t.Fatalf("expected 1 segment entry, got %d", len(job.Segments))
	}
	if job.CompletedSegments != 1 {
		t.Errorf("expected 1 completed segment, got %d", job.CompletedSegments)
	}
}

func TestApplySegment_KeepsIndexOrder(t *testing.T) {
	job := NewWithID("j", "p", "s", 36)

	for _, idx := range []int{2, 0, 3, 1} {
		if err := job.ApplySegment(idx, SegmentUpdate{Status: SegmentProcessing}); err != nil {
			t.Fatalf("ApplySegment(%d) error = %v", idx, err)
		}
	}

	for i, s := range job.Segments {
		if s.Index != i {
			t.Errorf("Segments[%d].Index = %d", i, s.Index)
		}
	}
}

func TestApplySegment_OutOfRange(t *testing.T) {
	job := NewWithID("j", "p", "s", 18)

	for _, idx := range []int{-1, 2, 100} {
		if err := job.ApplySegment(idx, SegmentUpdate{Status: SegmentProcessing}); !errors.Is(err, ErrSegmentOutOfRange) {
			t.Errorf("ApplySegment(%d) expected ErrSegmentOutOfRange, got %v", idx, err)
		}
	}
	if len(job.Segments) != 0 {
		t.Errorf("expected no segments, got %d", len(job.Segments))
	}
}

func TestApplySegment_FieldsFollowStatus(t *testing.T) {
	job := NewWithID("j", "p", "s", 18)

	_ = job.ApplySegment(0, SegmentUpdate{Status: SegmentCompleted, VideoURL: "v", ThumbnailURL: "t", GenerationID: "g", Error: "ignored"})
	seg := job.Segment(0)
	if seg.VideoURL != "v" || seg.ThumbnailURL != "t" || seg.GenerationID != "g" {
		t.Errorf("expected result fields on completed segment: %+v", seg)
	}
	if seg.Error != "" {
		t.Errorf("expected no error on completed segment, got %q", seg.Error)
	}

	_ = job.ApplySegment(0, SegmentUpdate{Status: SegmentFailed, VideoURL: "v", Error: "boom"})
	seg = job.Segment(0)
	if seg.VideoURL != "" || seg.ThumbnailURL != "" || seg.GenerationID != "" {
		t.Errorf("expected result fields cleared on failed segment: %+v", seg)
	}
	if seg.Error != "boom" {
		t.Errorf("expected error boom, got %q", seg.Error)
	}
}

func TestApplySegment_CompletedCountInvariant(t *testing.T) {
	job := NewWithID("j", "p", "s", 45)
	updates := []struct {
		index  int
		status SegmentStatus
	}{
		{0, SegmentProcessing},
		{0, SegmentCompleted},
		{1, SegmentProcessing},
		{1, SegmentFailed},
		{2, SegmentCompleted},
		{0, SegmentFailed},
		{3, SegmentCompleted},
		{1, SegmentCompleted},
		{4, SegmentProcessing},
	}

	for _, u := range updates {
		if err := job.ApplySegment(u.index, SegmentUpdate{Status: u.status}); err != nil {
			t.Fatalf("ApplySegment() error = %v", err)
		}
		want := 0
		for _, s := range job.Segments {
			if s.Status == SegmentCompleted {
				want++
			}
		}
		if job.CompletedSegments != want {
			t.Fatalf("after %+v: CompletedSegments = %d, want %d", u, job.CompletedSegments, want)
		}
		if len(job.Segments) > job.SegmentCount {
			t.Fatalf("segments exceed count: %d > %d", len(job.Segments), job.SegmentCount)
		}
	}
}

func TestJob_SegmentDefaultsToPending(t *testing.T) {
	job := NewWithID("j", "p", "s", 30)

	seg := job.Segment(3)
	if seg.Index != 3 || seg.Status != SegmentPending {
		t.Errorf("expected pending segment 3, got %+v", seg)
	}
}

func TestJob_ProgressAndCompletedList(t *testing.T) {
	job := NewWithID("j", "p", "s", 27)

	_ = job.ApplySegment(0, SegmentUpdate{Status: SegmentCompleted, VideoURL: "v0"})
	_ = job.ApplySegment(1, SegmentUpdate{Status: SegmentFailed, Error: "boom"})
	_ = job.ApplySegment(2, SegmentUpdate{Status: SegmentCompleted, VideoURL: "v2"})

	if got := job.Progress(); got != 67 {
		t.Errorf("Progress() = %d, want 67", got)
	}

	list := job.CompletedSegmentList()
	if len(list) != 2 || list[0].Index != 0 || list[1].Index != 2 {
		t.Errorf("unexpected completed list: %+v", list)
	}
}

func TestJob_Clone(t *testing.T) {
	job := NewWithID("j", "p", "s", 18)
	_ = job.ApplySegment(0, SegmentUpdate{Status: SegmentProcessing})

	clone := job.Clone()
	clone.Segments[0].Status = SegmentFailed
	clone.Prompt = "changed"

	if job.Segments[0].Status != SegmentProcessing {
		t.Error("modifying clone segments affected original")
	}
	if job.Prompt != "p" {
		t.Error("modifying clone affected original")
	}
}

func TestJob_JSONOmitsUnsetTimes(t *testing.T) {
	job := NewWithID("j", "p", "s", 30)

	raw, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(raw), "startedAt") || strings.Contains(string(raw), "completedAt") {
		t.Errorf("expected unset times to be omitted, got %s", raw)
	}

	if err := job.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	raw, _ = json.Marshal(job)
	var decoded Job
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.StartedAt == nil || !decoded.StartedAt.Equal(*job.StartedAt) {
		t.Errorf("expected startedAt to round-trip, got %v", decoded.StartedAt)
	}
	if decoded.CompletedAt != nil {
		t.Errorf("expected completedAt to stay unset, got %v", decoded.CompletedAt)
	}
}
