package session

import (
	"testing"

	"github.com/jiangxiaosheng/eRPC/sm"
)

func TestTableAppendGetBury(t *testing.T) {
	tbl := NewTable(4)
	s := &Session{Role: RoleClient}
	num := tbl.Append(s)
	if num != 0 {
		t.Fatalf("first Append returned %d, want 0", num)
	}
	if s.LocalSessionNum != 0 {
		t.Fatalf("Append should set LocalSessionNum, got %d", s.LocalSessionNum)
	}

	got, ok := tbl.Get(0)
	if !ok || got != s {
		t.Fatalf("Get(0) = (%v, %v), want (%v, true)", got, ok, s)
	}
	if tbl.CountActive() != 1 {
		t.Fatalf("CountActive() = %d, want 1", tbl.CountActive())
	}

	tbl.Bury(0)
	if _, ok := tbl.Get(0); ok {
		t.Fatal("expected buried entry to be absent")
	}
	if tbl.CountActive() != 0 {
		t.Fatalf("CountActive() = %d after bury, want 0", tbl.CountActive())
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (buried slots are never removed)", tbl.Len())
	}
}

func TestTableFull(t *testing.T) {
	tbl := NewTable(2)
	tbl.Append(&Session{})
	if tbl.Full() {
		t.Fatal("table with 1/2 entries should not be full")
	}
	tbl.Append(&Session{})
	if !tbl.Full() {
		t.Fatal("table with 2/2 entries should be full")
	}
}

func TestFindClientSessionTo(t *testing.T) {
	tbl := NewTable(4)
	client := &Session{Role: RoleClient, Server: sm.Endpoint{Hostname: "b", EndpointID: 2}}
	tbl.Append(client)
	server := &Session{Role: RoleServer, Server: sm.Endpoint{Hostname: "b", EndpointID: 2}}
	tbl.Append(server)

	got, ok := tbl.FindClientSessionTo("b", 2)
	if !ok || got != client {
		t.Fatalf("FindClientSessionTo = (%v, %v), want the client session", got, ok)
	}
	if _, ok := tbl.FindClientSessionTo("b", 99); ok {
		t.Fatal("expected no match for an unconnected remote endpoint id")
	}
}
