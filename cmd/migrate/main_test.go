package main

import (
	"testing"

	"github.com/zhouzirui/haven/backend/pkg/logging"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		args []string
		want command
	}{
		{nil, command{name: "up"}},
		{[]string{"up"}, command{name: "up"}},
		{[]string{"down"}, command{name: "down"}},
		{[]string{"force", "3"}, command{name: "force", version: 3}},
	}
	for _, tc := range cases {
		got, err := parseCommand(tc.args)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", tc.args, err)
		}
		if got != tc.want {
			t.Fatalf("%v: expected %+v, got %+v", tc.args, tc.want, got)
		}
	}

	for _, args := range [][]string{{"force"}, {"force", "x"}, {"sideways"}} {
		if _, err := parseCommand(args); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func TestRunRequiresDatabaseURL(t *testing.T) {
	if err := run("", command{name: "up"}, logging.Discard()); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}
