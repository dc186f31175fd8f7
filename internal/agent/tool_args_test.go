package agent

import (
	"encoding/json"
	"testing"
)

func TestToolArgsRequiredString(t *testing.T) {
	args := ToolCallArgs{"token": json.RawMessage(`" WETH "`), "empty": json.RawMessage(`null`)}
	value, err := args.RequiredString("token")
	if err != nil || value != "WETH" {
		t.Fatalf("unexpected value %q: %v", value, err)
	}
	if _, err := args.RequiredString("empty"); err == nil {
		t.Fatalf("expected null to count as missing")
	}
	if _, err := args.RequiredString("missing"); err == nil {
		t.Fatalf("expected missing argument error")
	}
}

func TestToolArgsScalar(t *testing.T) {
	args := ToolCallArgs{
		"amount": json.RawMessage(`1.5`),
		"flag":   json.RawMessage(`true`),
		"list":   json.RawMessage(`[1,2]`),
	}
	if value, ok, err := args.Scalar("amount"); err != nil || !ok || value != "1.5" {
		t.Fatalf("unexpected amount %q %v %v", value, ok, err)
	}
	if value, ok, err := args.Scalar("flag"); err != nil || !ok || value != "true" {
		t.Fatalf("unexpected flag %q %v %v", value, ok, err)
	}
	if _, _, err := args.Scalar("list"); err == nil {
		t.Fatalf("expected array to be rejected")
	}
	if _, ok, err := args.Scalar("missing"); err != nil || ok {
		t.Fatalf("expected missing scalar to be absent")
	}
}
