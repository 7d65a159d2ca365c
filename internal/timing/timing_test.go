package timing

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingSink struct {
	saved []string
	fail  string
}

func (s *recordingSink) SaveStageTiming(ctx context.Context, importID, stage string, d time.Duration) error {
	if stage == s.fail {
		return errors.New("db down")
	}
	s.saved = append(s.saved, importID+"/"+stage)
	return nil
}

func TestTracker(t *testing.T) {
	var tr Tracker

	done := tr.Start("chunk")
	time.Sleep(2 * time.Millisecond)
	done()
	tr.Start("extract")()

	stages := tr.Stages()
	if len(stages) != 2 || stages[0].Name != "chunk" || stages[1].Name != "extract" {
		t.Fatalf("unexpected stages: %+v", stages)
	}
	if stages[0].Duration < 2*time.Millisecond {
		t.Fatalf("chunk stage too short: %v", stages[0].Duration)
	}
	if tr.Total() < stages[0].Duration {
		t.Fatalf("total %v smaller than a stage", tr.Total())
	}

	sink := &recordingSink{fail: "chunk"}
	tr.Save(context.Background(), sink, "imp")
	if len(sink.saved) != 1 || sink.saved[0] != "imp/extract" {
		t.Fatalf("unexpected saved stages: %v", sink.saved)
	}
}
