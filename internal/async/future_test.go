package async

import (
	"errors"
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	f := NewFuture[int]()
	go f.Resolve(42)

	v, err := f.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v, want nil", err)
	}
	if v != 42 {
		t.Errorf("Wait() = %d, want 42", v)
	}
}

func TestReject(t *testing.T) {
	wantErr := errors.New("boom")
	f := Failed[int](wantErr)

	_, err := f.Wait()
	if err != wantErr {
		t.Errorf("Wait() error = %v, want %v", err, wantErr)
	}
}

func TestResolveOnlyOnce(t *testing.T) {
	f := NewFuture[int]()
	f.Resolve(1)
	f.Resolve(2)
	f.Reject(errors.New("ignored"))

	v, err := f.Wait()
	if err != nil || v != 1 {
		t.Errorf("Wait() = (%d, %v), want (1, nil) — first assignment must win", v, err)
	}
}

func TestMap(t *testing.T) {
	f := Resolved(3)
	mapped := Map(f, func(v int) (string, error) {
		return "got-3", nil
	})

	v, err := mapped.Wait()
	if err != nil || v != "got-3" {
		t.Errorf("Map result = (%q, %v), want (\"got-3\", nil)", v, err)
	}
}

func TestMapPropagatesError(t *testing.T) {
	wantErr := errors.New("upstream failure")
	f := Failed[int](wantErr)
	mapped := Map(f, func(v int) (string, error) {
		t.Fatal("fn must not run when the source Future failed")
		return "", nil
	})

	_, err := mapped.Wait()
	if err != wantErr {
		t.Errorf("Map error = %v, want %v", err, wantErr)
	}
}

func TestFlatMap(t *testing.T) {
	f := Resolved(5)
	chained := FlatMap(f, func(v int) *Future[int] {
		return Resolved(v * 2)
	})

	v, err := chained.Wait()
	if err != nil || v != 10 {
		t.Errorf("FlatMap result = (%d, %v), want (10, nil)", v, err)
	}
}

func TestDoneClosesOnCompletion(t *testing.T) {
	f := NewFuture[int]()
	select {
	case <-f.Done():
		t.Fatal("Done() closed before Resolve")
	case <-time.After(10 * time.Millisecond):
	}

	f.Resolve(1)
	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() did not close after Resolve")
	}
}
