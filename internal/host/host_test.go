package host

import (
	"testing"

	"github.com/google/uuid"
)

func TestAttrsRoundTrip(t *testing.T) {
	id := uuid.New()
	h := New("127.0.0.1", "dc1", "rack1", id, "4.0.1")

	got := WithAttrs(h.IP, h.Attrs())
	if got != h {
		t.Errorf("WithAttrs(IP, Attrs()) = %+v, want %+v", got, h)
	}
}

func TestAttrsEqualityIgnoresIP(t *testing.T) {
	id := uuid.New()
	a := New("10.0.0.1", "dc1", "rack1", id, "4.0.1")
	b := New("10.0.0.2", "dc1", "rack1", id, "4.0.1")

	if a.Attrs() != b.Attrs() {
		t.Error("hosts with identical attributes but different IPs should have equal Attrs()")
	}
	if a.IP == b.IP {
		t.Fatal("test fixture bug: IPs must differ")
	}
}

func TestParseIDEmpty(t *testing.T) {
	id, err := ParseID("")
	if err != nil {
		t.Fatalf("ParseID(\"\") error = %v, want nil", err)
	}
	if id != uuid.Nil {
		t.Errorf("ParseID(\"\") = %v, want uuid.Nil", id)
	}
}

func TestParseIDInvalid(t *testing.T) {
	if _, err := ParseID("not-a-uuid"); err == nil {
		t.Error("ParseID(\"not-a-uuid\") error = nil, want error")
	}
}
