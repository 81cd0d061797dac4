package main

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

func TestStopBackgroundCancelsInFlightRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{}, 1)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 1s", func() {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
	}); err != nil {
		t.Fatal(err)
	}
	scheduler.Start()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run never started")
	}

	done := make(chan bool, 1)
	go func() { done <- stopBackground(cancel, scheduler, 10*time.Second) }()

	select {
	case ok := <-done:
		if !ok {
			t.Error("stopBackground timed out")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown blocked on the in-flight run")
	}
}

func TestStopBackgroundWithoutScheduler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	if !stopBackground(cancel, nil, time.Second) {
		t.Error("nil scheduler should stop immediately")
	}
	if ctx.Err() == nil {
		t.Error("context was not cancelled")
	}
}
